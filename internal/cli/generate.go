package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/youruser/idcards/internal/assets"
	"github.com/youruser/idcards/internal/batch"
	imagepkg "github.com/youruser/idcards/internal/image"
	"github.com/youruser/idcards/internal/layout"
	"github.com/youruser/idcards/internal/records"
	"github.com/youruser/idcards/internal/util"
)

const pdfName = "all_id_cards.pdf"

type generateOptions struct {
	Template string
	Layout   string
	Records  string
	Photos   string
	QRs      string
	Out      string
	Font     string
	Logo     string
	Place    []string
	Format   string
	Workers  int
	PDF      bool
	Paginate bool
	IDs      []string
	Search   string
}

func newGenerateCmd() *cobra.Command {
	opts := generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate ID cards from a template, a layout and a record file",
		Long: `Generates one card per record and writes them to the output directory.

Records come from a CSV or JSON file. Photos and QR codes are matched by
file name: the first image whose name contains the record identifier wins.
With --paginate the cards are packed onto printable pages; with --pdf every
output image also goes into a single PDF.`,
		Example: `  # One PNG per student
  idcards generate --template bg.png --layout layout.yaml --records students.csv \
    --photos photos/ --qrs qrs/ --out cards/

  # Printable A4 sheets as a PDF, using 8 workers
  idcards generate --template bg.png --records students.csv --photos photos/ \
    --paginate --pdf --workers 8 --out print/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workers") {
				if v := os.Getenv("IDCARDS_WORKERS"); v != "" {
					n, err := strconv.Atoi(v)
					if err != nil {
						return fmt.Errorf("IDCARDS_WORKERS: %w", err)
					}
					opts.Workers = n
				}
			}
			if opts.Font == "" {
				opts.Font = os.Getenv("IDCARDS_FONT")
			}
			if opts.Layout == "" {
				opts.Layout = os.Getenv("IDCARDS_LAYOUT")
			}

			res, err := runGenerate(cmd.Context(), opts, slog.Default())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
			if res.Successes == 0 {
				return errors.New("no cards were generated")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Template, "template", "", "Background template image (path or http(s) URL)")
	f.StringVar(&opts.Layout, "layout", "", "Layout file, YAML or JSON (default from IDCARDS_LAYOUT, else built-in)")
	f.StringVar(&opts.Records, "records", "", "Record file (.csv or .json)")
	f.StringVar(&opts.Photos, "photos", "", "Directory of photos")
	f.StringVar(&opts.QRs, "qrs", "", "Directory of QR code images")
	f.StringVarP(&opts.Out, "out", "o", "output", "Output directory")
	f.StringVar(&opts.Logo, "logo", "", "Logo image drawn at the Logo coordinate (default from the layout's logo.path)")
	f.StringArrayVar(&opts.Place, "place", nil, "Override a coordinate as Label=x,y (repeatable)")
	f.StringVar(&opts.Font, "font", "", "TrueType/OpenType font file (default from IDCARDS_FONT, else built-in)")
	f.StringVar(&opts.Format, "format", "png", "Image format: png or jpg")
	f.IntVarP(&opts.Workers, "workers", "w", 1, "Cards composited in parallel")
	f.BoolVar(&opts.PDF, "pdf", false, "Also write "+pdfName)
	f.BoolVar(&opts.Paginate, "paginate", false, "Pack cards onto pages")
	f.StringSliceVar(&opts.IDs, "ids", nil, "Only generate these identifiers")
	f.StringVar(&opts.Search, "search", "", "Only generate records containing every word")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("records")

	return cmd
}

func runGenerate(ctx context.Context, opts generateOptions, log *slog.Logger) (*batch.Result, error) {
	format, err := imagepkg.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	l, err := loadLayout(opts.Layout, opts.Place)
	if err != nil {
		return nil, err
	}
	font, err := imagepkg.ResolveFont(l, opts.Font)
	if err != nil {
		return nil, err
	}

	data, err := imagepkg.ReadSource(opts.Template)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", batch.ErrTemplateUnreadable, err)
	}
	tmpl, err := imagepkg.LoadTemplate(data, l.TemplateSize)
	if err != nil {
		return nil, err
	}
	if tmpl.Logo, err = loadLogo(opts.Logo, l); err != nil {
		return nil, err
	}

	recs, err := records.LoadFile(opts.Records)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", batch.ErrSourceUnreadable, err)
	}
	if len(opts.IDs) > 0 || opts.Search != "" {
		n := len(recs)
		recs = records.Select(recs, records.SelectOptions{IDs: opts.IDs, FreeWords: opts.Search, Aliases: l.Identifier})
		log.Info("Filtered records", "kept", len(recs), "of", n)
	}

	runner := batch.NewRunner(l, tmpl, font)
	runner.Workers = opts.Workers
	runner.Logger = log
	if runner.Photos, err = dirIndex(opts.Photos); err != nil {
		return nil, err
	}
	if runner.QRs, err = dirIndex(opts.QRs); err != nil {
		return nil, err
	}
	if runner.Photos != nil || runner.QRs != nil {
		log.Info("Indexed assets", "photos", runner.Photos.Len(), "qrs", runner.QRs.Len())
	}

	res, err := runner.Run(ctx, recs, opts.Paginate)
	if err != nil {
		return nil, err
	}
	if err := writeOutputs(opts.Out, res, format, opts.PDF, l.Page.DPI, log); err != nil {
		return res, err
	}
	return res, nil
}

// loadLogo reads the logo from override or the layout's logo path. No path
// means no logo.
func loadLogo(override string, l *layout.Layout) (*imagepkg.Sprite, error) {
	path := override
	if path == "" {
		path = l.Logo.Path
	}
	if path == "" {
		return nil, nil
	}
	data, err := imagepkg.ReadSource(path)
	if err != nil {
		return nil, fmt.Errorf("logo: %w: %v", imagepkg.ErrAssetUnreadable, err)
	}
	logo, err := imagepkg.ProcessLogo(data, l.Logo.Size)
	if err != nil {
		return nil, fmt.Errorf("logo %s: %w", path, err)
	}
	return logo, nil
}

func dirIndex(dir string) (*assets.Index, error) {
	if dir == "" {
		return nil, nil
	}
	return assets.NewDirIndex(dir)
}

// writeOutputs writes pages (page-N) or cards (<id>) to dir, plus the PDF when
// asked. Cards sharing an identifier get a numeric suffix.
func writeOutputs(dir string, res *batch.Result, format imagepkg.Format, pdf bool, dpi float64, log *slog.Logger) error {
	if res.Successes == 0 {
		return nil
	}
	if len(res.Pages) > 0 {
		for i, p := range res.Pages {
			if err := writeImage(dir, fmt.Sprintf("page-%d%s", i+1, format.Ext()), p, format, log); err != nil {
				return err
			}
		}
	} else {
		seen := map[string]int{}
		for _, c := range res.Cards {
			base := util.SafeName(c.ID)
			seen[base]++
			if n := seen[base]; n > 1 {
				base = fmt.Sprintf("%s_%d", base, n)
			}
			if err := writeImage(dir, base+format.Ext(), c.Card.Image, format, log); err != nil {
				return err
			}
		}
	}

	if pdf {
		buf := new(bytes.Buffer)
		if err := imagepkg.WritePDF(buf, res.Images(), dpi); err != nil {
			return err
		}
		path, err := util.WriteFile(dir, pdfName, buf.Bytes())
		if err != nil {
			return fmt.Errorf("write %s: %w", pdfName, err)
		}
		log.Info("Wrote PDF", "path", path, "pages", len(res.Images()))
	}
	return nil
}

func writeImage(dir, name string, img image.Image, format imagepkg.Format, log *slog.Logger) error {
	buf := new(bytes.Buffer)
	if err := imagepkg.Encode(buf, img, format); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path, err := util.WriteFile(dir, name, buf.Bytes())
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	log.Debug("Wrote image", "path", path)
	return nil
}
