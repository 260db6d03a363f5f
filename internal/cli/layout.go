package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/youruser/idcards/internal/layout"
)

func newLayoutCmd() *cobra.Command {
	var (
		path   string
		places []string
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the effective layout as YAML",
		Long: `Prints the built-in layout, or the given layout file merged over it, as YAML.
The output is a starting point for a custom layout.`,
		Example: `  idcards layout > layout.yaml
  idcards layout --layout custom.yaml --place Photo=120,200 --place "QR Code=520,80"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLayout(path, places)
			if err != nil {
				return err
			}
			out, err := l.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&path, "layout", "", "Layout file to merge over the defaults")
	cmd.Flags().StringArrayVar(&places, "place", nil, "Override a coordinate as Label=x,y (repeatable)")

	return cmd
}

// loadLayout reads path (the default layout when empty) and applies the
// Label=x,y coordinate overrides in order.
func loadLayout(path string, places []string) (*layout.Layout, error) {
	var l *layout.Layout
	if path == "" {
		d := layout.Default()
		l = &d
	} else {
		var err error
		if l, err = layout.Load(path); err != nil {
			return nil, err
		}
	}
	if len(places) == 0 {
		return l, nil
	}
	for _, p := range places {
		label, at, err := parsePlace(p)
		if err != nil {
			return nil, err
		}
		l.Coordinates.Set(label, at)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func parsePlace(s string) (string, layout.Point, error) {
	i := strings.LastIndex(s, "=")
	if i <= 0 {
		return "", layout.Point{}, fmt.Errorf("placement %q: want Label=x,y", s)
	}
	label := strings.TrimSpace(s[:i])
	xs, ys, ok := strings.Cut(s[i+1:], ",")
	if !ok {
		return "", layout.Point{}, fmt.Errorf("placement %q: want Label=x,y", s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil {
		return "", layout.Point{}, fmt.Errorf("placement %q: coordinates must be integers", s)
	}
	return label, layout.Point{X: x, Y: y}, nil
}
