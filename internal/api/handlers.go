package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/youruser/idcards/internal/assets"
	"github.com/youruser/idcards/internal/batch"
	imagepkg "github.com/youruser/idcards/internal/image"
	"github.com/youruser/idcards/internal/layout"
	"github.com/youruser/idcards/internal/records"
	"github.com/youruser/idcards/internal/util"
)

// Config is shared by every request and never modified by handlers.
type Config struct {
	// Layout is used when a request does not send its own.
	Layout *layout.Layout
	Font   *imagepkg.FontSource
	// Logo is the encoded logo used when a request uploads none.
	Logo    []byte
	Workers int
	Logger  *slog.Logger
	// TemplateHosts lists the hosts template_url may point at; empty
	// disables template_url.
	TemplateHosts []string
	// MaxSide caps every pixel dimension a request can ask for.
	MaxSide int
}

type server struct {
	cfg Config
}

// health
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// qr endpoint returns a PNG of a QR for "text" query param
func qrHandler(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	size := 400
	if sizeStr := c.Query("size"); sizeStr != "" {
		v, err := strconv.Atoi(sizeStr)
		if err != nil || v < 21 || v > 4096 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 21 and 4096"})
			return
		}
		size = v
	}
	b, err := imagepkg.GenerateQRPNG(text, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}

// layoutHandler returns the server's default layout.
func (s *server) layoutHandler(c *gin.Context) {
	out, err := s.cfg.Layout.Marshal()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/yaml", out)
}

// cardsHandler generates cards from a multipart upload: template (file) or
// template_url, optional layout (YAML or JSON), records (JSON array) or
// records_csv (file), photos, qrs and logo (files), ids and search filters.
// Query: format=pdf|zip|json, paginate=true|false.
func (s *server) cardsHandler(c *gin.Context) {
	format := c.DefaultQuery("format", "pdf")
	switch format {
	case "pdf", "zip", "json":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be pdf, zip or json"})
		return
	}
	paginate := false
	if v := c.Query("paginate"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "paginate must be a boolean"})
			return
		}
		paginate = b
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	l := s.cfg.Layout
	if v := formValue(form, "layout"); v != "" {
		if l, err = layout.Parse([]byte(v)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := checkLimits(l, s.cfg.MaxSide); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tmplBytes, err := s.templateBytes(form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tmpl, err := imagepkg.LoadTemplate(tmplBytes, l.TemplateSize)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if sz := tmpl.Size(); s.cfg.MaxSide > 0 && (sz.W > s.cfg.MaxSide || sz.H > s.cfg.MaxSide) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("template %dx%d exceeds %d pixels per side", sz.W, sz.H, s.cfg.MaxSide)})
		return
	}
	logoBytes := s.cfg.Logo
	if fhs := form.File["logo"]; len(fhs) > 0 {
		if logoBytes, err = readFile(fhs[0]); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if len(logoBytes) > 0 {
		if tmpl.Logo, err = imagepkg.ProcessLogo(logoBytes, l.Logo.Size); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "logo: " + err.Error()})
			return
		}
	}

	recs, err := formRecords(form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recs = records.Select(recs, records.SelectOptions{
		IDs:       splitList(formValue(form, "ids")),
		FreeWords: formValue(form, "search"),
		Aliases:   l.Identifier,
	})

	font := s.cfg.Font
	if font == nil {
		if font, err = imagepkg.DefaultFont(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	runner := batch.NewRunner(l, tmpl, font)
	runner.Workers = s.cfg.Workers
	runner.Logger = s.cfg.Logger
	if runner.Photos, err = memIndex(form.File["photos"]); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if runner.QRs, err = memIndex(form.File["qrs"]); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := runner.Run(c.Request.Context(), recs, paginate)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, batch.ErrSourceUnreadable) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.Header("X-Cards-Succeeded", strconv.Itoa(res.Successes))
	c.Header("X-Cards-Failed", strconv.Itoa(res.Failures))
	if res.Successes == 0 {
		c.JSON(http.StatusUnprocessableEntity, res.Report())
		return
	}

	switch format {
	case "json":
		c.JSON(http.StatusOK, res.Report())
	case "zip":
		buf := new(bytes.Buffer)
		if err := writeZip(buf, res); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="id_cards.zip"`)
		c.Data(http.StatusOK, "application/zip", buf.Bytes())
	default:
		buf := new(bytes.Buffer)
		if err := imagepkg.WritePDF(buf, res.Images(), l.Page.DPI); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="all_id_cards.pdf"`)
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *server) templateBytes(form *multipart.Form) ([]byte, error) {
	if fhs := form.File["template"]; len(fhs) > 0 {
		return readFile(fhs[0])
	}
	raw := formValue(form, "template_url")
	if raw == "" {
		return nil, errors.New("template file or template_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.New("template_url must be an http(s) URL")
	}
	if !slices.ContainsFunc(s.cfg.TemplateHosts, func(h string) bool { return strings.EqualFold(h, u.Hostname()) }) {
		return nil, fmt.Errorf("template_url host %q is not allowed", u.Hostname())
	}
	return util.GetBytes(u.String())
}

// checkLimits rejects layouts whose pages or sprites exceed limit pixels on
// a side. limit <= 0 disables the check.
func checkLimits(l *layout.Layout, limit int) error {
	if limit <= 0 {
		return nil
	}
	sizes := []struct {
		name string
		size layout.Size
	}{
		{"page", layout.Size{W: l.Page.Width, H: l.Page.Height}},
		{"template", l.TemplateSize},
		{"photo", l.Photo.Size},
		{"qr", l.QR.Size},
		{"logo", l.Logo.Size},
	}
	for _, s := range sizes {
		if s.size.W > limit || s.size.H > limit {
			return fmt.Errorf("%s size %dx%d exceeds %d pixels per side", s.name, s.size.W, s.size.H, limit)
		}
	}
	return nil
}

func formRecords(form *multipart.Form) ([]records.Record, error) {
	if v := formValue(form, "records"); v != "" {
		return records.ReadJSON(strings.NewReader(v))
	}
	if fhs := form.File["records_csv"]; len(fhs) > 0 {
		f, err := fhs[0].Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return records.ReadCSV(f)
	}
	return nil, errors.New("records or records_csv is required")
}

func memIndex(fhs []*multipart.FileHeader) (*assets.Index, error) {
	if len(fhs) == 0 {
		return nil, nil
	}
	files := make([]assets.File, 0, len(fhs))
	for _, fh := range fhs {
		data, err := readFile(fh)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, assets.File{Name: fh.Filename, Data: data})
	}
	return assets.NewMemIndex(files), nil
}

func writeZip(w io.Writer, res *batch.Result) error {
	zw := zip.NewWriter(w)
	add := func(name string, write func(io.Writer) error) error {
		fw, err := zw.Create(name)
		if err != nil {
			return err
		}
		return write(fw)
	}
	if len(res.Pages) > 0 {
		for i, p := range res.Pages {
			if err := add(fmt.Sprintf("page-%03d.png", i+1), func(w io.Writer) error {
				return imagepkg.Encode(w, p, imagepkg.FormatPNG)
			}); err != nil {
				return err
			}
		}
	} else {
		for _, c := range res.Cards {
			name := fmt.Sprintf("%03d_%s.png", c.Row, util.SafeName(c.ID))
			if err := add(name, func(w io.Writer) error {
				return imagepkg.Encode(w, c.Card.Image, imagepkg.FormatPNG)
			}); err != nil {
				return err
			}
		}
	}
	if err := add("report.json", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Report())
	}); err != nil {
		return err
	}
	return zw.Close()
}
