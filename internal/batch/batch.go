// Package batch drives card generation over a list of records.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"github.com/youruser/idcards/internal/assets"
	"github.com/youruser/idcards/internal/fields"
	imagepkg "github.com/youruser/idcards/internal/image"
	"github.com/youruser/idcards/internal/layout"
	"github.com/youruser/idcards/internal/records"
)

var (
	ErrMissingIdentifier  = errors.New("missing identifier")
	ErrSourceUnreadable   = errors.New("record source unreadable")
	ErrTemplateUnreadable = imagepkg.ErrTemplateUnreadable
)

// Compositor renders one record into a card.
type Compositor interface {
	Composite(rec records.Record, photo, qr *imagepkg.Sprite) (*imagepkg.Card, error)
}

// Output is one generated card in record order.
type Output struct {
	Row  int
	ID   string
	Card *imagepkg.Card
}

type Result struct {
	Total       int
	Successes   int
	Failures    int
	Cards       []Output
	Pages       []*image.NRGBA
	Diagnostics []Diagnostic
	// Interrupted is set when the context was cancelled mid-run; the result
	// then holds whatever finished before the stop.
	Interrupted bool
}

// Images returns the pages when paginated, otherwise the cards.
func (r *Result) Images() []image.Image {
	if len(r.Pages) > 0 {
		out := make([]image.Image, len(r.Pages))
		for i, p := range r.Pages {
			out[i] = p
		}
		return out
	}
	out := make([]image.Image, len(r.Cards))
	for i, c := range r.Cards {
		out[i] = c.Card.Image
	}
	return out
}

type Runner struct {
	Layout     *layout.Layout
	Compositor Compositor
	Photos     *assets.Index
	QRs        *assets.Index
	// Workers bounds concurrent compositing; values below 1 mean 1.
	Workers int
	Logger  *slog.Logger
}

// NewRunner wires a Compositor over tmpl and font.
func NewRunner(l *layout.Layout, tmpl *imagepkg.Template, font *imagepkg.FontSource) *Runner {
	return &Runner{
		Layout:     l,
		Compositor: imagepkg.NewCompositor(tmpl, l, font),
		Workers:    1,
		Logger:     slog.Default(),
	}
}

type outcome struct {
	out   *Output
	diags []Diagnostic
}

// Run generates a card per record in input order. Per-record problems become
// diagnostics; only missing preconditions return an error. Cancelling ctx
// stops dispatching new records and returns the partial result.
func (r *Runner) Run(ctx context.Context, recs []records.Record, paginate bool) (*Result, error) {
	if r.Compositor == nil {
		return nil, fmt.Errorf("%w: no template loaded", ErrTemplateUnreadable)
	}
	if r.Layout == nil {
		return nil, errors.New("no layout configured")
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrSourceUnreadable)
	}
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	workers := max(r.Workers, 1)

	log.Info("Generating cards", "records", len(recs), "workers", workers, "paginate", paginate)

	outcomes := make([]*outcome, len(recs))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				outcomes[i] = r.process(i+1, recs[i], log)
			}
		}()
	}

	interrupted := false
dispatch:
	for i := range recs {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			interrupted = true
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	res := &Result{Total: len(recs), Interrupted: interrupted}
	var cards []image.Image
	for _, o := range outcomes {
		if o == nil {
			// never dispatched, or dropped by a worker after cancellation
			res.Interrupted = true
			continue
		}
		res.Diagnostics = append(res.Diagnostics, o.diags...)
		if o.out == nil {
			res.Failures++
			continue
		}
		res.Successes++
		res.Cards = append(res.Cards, *o.out)
		cards = append(cards, o.out.Card.Image)
	}

	if paginate && len(cards) > 0 {
		res.Pages = imagepkg.Pack(cards, r.Layout.Page)
	}
	if res.Interrupted {
		log.Warn("Generation interrupted", "processed", res.Successes+res.Failures, "total", res.Total)
	}
	log.Info("Generation finished", "successes", res.Successes, "failures", res.Failures, "pages", len(res.Pages))
	return res, nil
}

func (r *Runner) process(row int, rec records.Record, log *slog.Logger) *outcome {
	o := &outcome{}
	_, id, ok := rec.Identifier(r.Layout.Identifier)
	if !ok {
		o.diags = append(o.diags, Diagnostic{
			Row:     row,
			Code:    CodeMissingIdentifier,
			Message: fmt.Sprintf("%v: none of %s has a value; record skipped", ErrMissingIdentifier, strings.Join(r.Layout.Identifier, ", ")),
		})
		log.Warn("Skipping record without identifier", "row", row)
		return o
	}

	diag := func(code Code, format string, args ...any) {
		o.diags = append(o.diags, Diagnostic{Row: row, ID: id, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	photo := r.loadSprite(id, r.Photos, "photo", diag, func(b []byte) (*imagepkg.Sprite, error) {
		return imagepkg.ProcessPhoto(b, r.Layout.Photo)
	})
	qr := r.loadSprite(id, r.QRs, "QR code", diag, func(b []byte) (*imagepkg.Sprite, error) {
		return imagepkg.ProcessQR(b, r.Layout.QR.Size)
	})
	if qr == nil && r.Layout.QR.Generate {
		s, err := imagepkg.GenerateQR(qrPayload(id, rec, r.Layout), r.Layout.QR.Size)
		if err != nil {
			diag(CodeAssetUnreadable, "QR code generation failed: %v", err)
		} else {
			qr = s
		}
	}

	card, err := r.Compositor.Composite(rec, photo, qr)
	if card != nil {
		for _, n := range card.Notes {
			switch n.Resolution.Kind {
			case fields.Unresolved:
				diag(CodeFieldUnresolved, "%s omitted: %s", n.Label, n.Resolution.Reason)
			case fields.Fallback:
				diag(CodeDateParseFailure, "%s printed as %q: %s", n.Label, n.Resolution.Text, n.Resolution.Reason)
			}
		}
	}
	if err != nil {
		code := CodeCompositeFailed
		if errors.Is(err, imagepkg.ErrNoContentPlaced) {
			code = CodeNoContentPlaced
		}
		diag(code, "card discarded: %v", err)
		log.Warn("Card failed", "row", row, "id", id, "err", err)
		return o
	}

	log.Info("Generated card", "row", row, "id", id, "placed", len(card.Placed))
	o.out = &Output{Row: row, ID: id, Card: card}
	return o
}

func (r *Runner) loadSprite(id string, idx *assets.Index, what string, diag func(Code, string, ...any), process func([]byte) (*imagepkg.Sprite, error)) *imagepkg.Sprite {
	name, ok := idx.Find(id)
	if !ok {
		if idx != nil {
			diag(CodeAssetMissing, "no %s file name contains %q", what, id)
		}
		return nil
	}
	data, err := idx.Read(name)
	if err != nil {
		diag(CodeAssetUnreadable, "%s %s: %v", what, name, err)
		return nil
	}
	s, err := process(data)
	if err != nil {
		diag(CodeAssetUnreadable, "%s %s: %v", what, name, err)
		return nil
	}
	return s
}

// qrPayload lists the identifier and configured labels as "Label: value"
// lines.
func qrPayload(id string, rec records.Record, l *layout.Layout) string {
	lines := []string{"ID: " + id}
	for _, label := range l.QR.Payload {
		spec, ok := l.Field(label)
		if !ok {
			spec = layout.FieldSpec{Label: label, Columns: []string{label}}
		}
		if res := fields.Resolve(rec, spec); res.Present() {
			lines = append(lines, label+": "+res.Text)
		}
	}
	return strings.Join(lines, "\n")
}
