package api

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	imagepkg "github.com/youruser/idcards/internal/image"
	"github.com/youruser/idcards/internal/layout"
)

// DefaultMaxSide caps request page and sprite sizes when Config.MaxSide is
// zero. It fits an A3 sheet at 300 DPI.
const DefaultMaxSide = 10000

// ConfigFromEnv builds a Config from IDCARDS_LAYOUT, IDCARDS_FONT,
// IDCARDS_LOGO, IDCARDS_WORKERS, IDCARDS_TEMPLATE_HOSTS (comma-separated) and
// IDCARDS_MAX_SIDE. Unset variables fall back to the built-in defaults.
func ConfigFromEnv(logger *slog.Logger) (Config, error) {
	cfg := Config{Workers: 4, Logger: logger, MaxSide: DefaultMaxSide}

	if path := os.Getenv("IDCARDS_LAYOUT"); path != "" {
		l, err := layout.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg.Layout = l
	} else {
		l := layout.Default()
		cfg.Layout = &l
	}

	font, err := imagepkg.ResolveFont(cfg.Layout, os.Getenv("IDCARDS_FONT"))
	if err != nil {
		return cfg, err
	}
	cfg.Font = font

	logo := os.Getenv("IDCARDS_LOGO")
	if logo == "" {
		logo = cfg.Layout.Logo.Path
	}
	if logo != "" {
		if cfg.Logo, err = os.ReadFile(logo); err != nil {
			return cfg, fmt.Errorf("read logo: %w", err)
		}
	}

	if cfg.Workers, err = positiveEnv("IDCARDS_WORKERS", cfg.Workers); err != nil {
		return cfg, err
	}
	if cfg.MaxSide, err = positiveEnv("IDCARDS_MAX_SIDE", cfg.MaxSide); err != nil {
		return cfg, err
	}
	cfg.TemplateHosts = splitList(os.Getenv("IDCARDS_TEMPLATE_HOSTS"))
	return cfg, nil
}

func positiveEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
