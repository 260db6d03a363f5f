package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/go-cmp/cmp"
	"github.com/youruser/idcards/internal/assets"
	imagepkg "github.com/youruser/idcards/internal/image"
	"github.com/youruser/idcards/internal/layout"
	"github.com/youruser/idcards/internal/records"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type spyCompositor struct {
	mu    sync.Mutex
	calls []records.Record
	// onCall runs after a call is recorded.
	onCall func(n int)
}

func (s *spyCompositor) Composite(rec records.Record, photo, qr *imagepkg.Sprite) (*imagepkg.Card, error) {
	s.mu.Lock()
	s.calls = append(s.calls, rec)
	n := len(s.calls)
	s.mu.Unlock()
	if s.onCall != nil {
		s.onCall(n)
	}
	return &imagepkg.Card{
		Image:  imaging.New(40, 30, color.NRGBA{R: 200, A: 255}),
		Placed: []layout.Target{layout.TargetFor("Name")},
	}, nil
}

func spyRunner(spy *spyCompositor) *Runner {
	l := layout.Default()
	return &Runner{Layout: &l, Compositor: spy, Logger: quiet}
}

func TestRunSkipsMissingIdentifier(t *testing.T) {
	spy := &spyCompositor{}
	r := spyRunner(spy)

	recs := []records.Record{
		{"ext_id": "A1", "Name": "Ann"},
		{"Name": "No Id"},
		{"EXT_ID": "  ", "Name": "Blank Id"},
		{"ID": 42.0, "Name": "Numeric"},
	}
	res, err := r.Run(context.Background(), recs, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(spy.calls) != 2 {
		t.Fatalf("compositor called %d times, want 2", len(spy.calls))
	}
	for _, c := range spy.calls {
		if c["Name"] == "No Id" || c["Name"] == "Blank Id" {
			t.Errorf("record %v reached the compositor", c)
		}
	}
	if res.Successes != 2 || res.Failures != 2 || res.Total != 4 {
		t.Errorf("successes=%d failures=%d total=%d", res.Successes, res.Failures, res.Total)
	}
	var rows []int
	for _, d := range res.Diagnostics {
		if d.Code == CodeMissingIdentifier {
			rows = append(rows, d.Row)
		}
	}
	if diff := cmp.Diff([]int{2, 3}, rows); diff != "" {
		t.Errorf("missing identifier rows (-want +got):\n%s", diff)
	}
	if got := []string{res.Cards[0].ID, res.Cards[1].ID}; got[0] != "A1" || got[1] != "42" {
		t.Errorf("card ids = %v", got)
	}
}

func TestRunPreconditions(t *testing.T) {
	r := spyRunner(&spyCompositor{})
	if _, err := r.Run(context.Background(), nil, false); !errors.Is(err, ErrSourceUnreadable) {
		t.Errorf("no records err = %v", err)
	}
	r.Compositor = nil
	if _, err := r.Run(context.Background(), []records.Record{{"id": "x"}}, false); !errors.Is(err, ErrTemplateUnreadable) {
		t.Errorf("no compositor err = %v", err)
	}
}

func TestRunKeepsOrderWithWorkers(t *testing.T) {
	spy := &spyCompositor{}
	r := spyRunner(spy)
	r.Workers = 4
	r.Layout.Page = layout.PageStyle{Width: 300, Height: 100, Cols: 3, Rows: 1, Padding: 2, DPI: 300}

	var recs []records.Record
	var want []string
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("R%02d", i)
		recs = append(recs, records.Record{"id": id, "Name": id})
		want = append(want, id)
	}
	res, err := r.Run(context.Background(), recs, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var got []string
	for _, c := range res.Cards {
		got = append(got, c.ID)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("card order (-want +got):\n%s", diff)
	}
	if len(res.Pages) != 9 {
		t.Errorf("pages = %d, want 9", len(res.Pages))
	}
	if len(res.Images()) != 9 {
		t.Errorf("Images() = %d, want pages", len(res.Images()))
	}
}

func TestRunCancellation(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		spy := &spyCompositor{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := spyRunner(spy).Run(ctx, []records.Record{{"id": "a"}, {"id": "b"}}, true)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !res.Interrupted || len(spy.calls) != 0 || res.Successes != 0 {
			t.Errorf("interrupted=%v calls=%d successes=%d", res.Interrupted, len(spy.calls), res.Successes)
		}
	})

	t.Run("mid run keeps finished cards", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		spy := &spyCompositor{onCall: func(n int) {
			if n == 2 {
				cancel()
			}
		}}
		r := spyRunner(spy)
		r.Layout.Page = layout.PageStyle{Width: 200, Height: 100, Cols: 2, Rows: 1, DPI: 300}

		var recs []records.Record
		for i := 0; i < 6; i++ {
			recs = append(recs, records.Record{"id": fmt.Sprint(i)})
		}
		res, err := r.Run(ctx, recs, true)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !res.Interrupted {
			t.Error("result not marked interrupted")
		}
		if res.Successes != 2 || len(res.Cards) != 2 || len(res.Pages) != 1 {
			t.Errorf("successes=%d cards=%d pages=%d", res.Successes, len(res.Cards), len(res.Pages))
		}
		if !strings.Contains(res.Summary(), "interrupted after 2 of 6") {
			t.Errorf("summary:\n%s", res.Summary())
		}
	})
}

func TestRunCancelledWorkerDropsLastJob(t *testing.T) {
	// One worker is busy with the first record when the context is cancelled;
	// the dispatcher may still hand it the second record, which is dropped.
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		spy := &spyCompositor{onCall: func(n int) {
			if n == 1 {
				cancel()
			}
		}}
		res, err := spyRunner(spy).Run(ctx, []records.Record{{"id": "a"}, {"id": "b"}}, false)
		cancel()
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.Successes+res.Failures != 1 || !res.Interrupted {
			t.Fatalf("run %d: processed=%d interrupted=%v", i, res.Successes+res.Failures, res.Interrupted)
		}
	}
}

func TestSummarySeparatesFailuresFromOmissions(t *testing.T) {
	res := &Result{Total: 2, Successes: 1, Failures: 1, Diagnostics: []Diagnostic{
		{Row: 1, ID: "A", Code: CodeAssetMissing, Message: "no photo"},
		{Row: 2, Code: CodeMissingIdentifier, Message: "skipped"},
	}}
	got := res.Summary()
	failed := strings.Index(got, "Failed records\n  row 2 [missing_identifier] skipped")
	omitted := strings.Index(got, "Omissions\n  row 1 (A) [asset_missing] no photo")
	if failed < 0 || omitted < 0 || failed > omitted {
		t.Errorf("summary sections out of place:\n%s", got)
	}
}

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(w, h, c), imaging.PNG); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	photos := filepath.Join(dir, "photos")
	qrs := filepath.Join(dir, "qrs")
	for _, d := range []string{photos, qrs} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writePNG(t, filepath.Join(photos, "S1.png"), 90, 90, color.NRGBA{R: 255, A: 255})
	if err := os.WriteFile(filepath.Join(photos, "S2.jpg"), []byte("corrupt"), 0o644); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(qrs, "qr_S1.png"), 30, 30, color.Black)
	writePNG(t, filepath.Join(qrs, "qr_S2.png"), 30, 30, color.Black)

	l, err := layout.Parse([]byte(`
photo: {size: [60, 60], frame: circle, border_width: 2, border_color: white}
qr: {size: [40, 40]}
coordinates:
  Photo: [60, 60]
  QR Code: [250, 50]
  Name: [120, 40]
  Class: [120, 80]
  Validity: [120, 120]
`))
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	var bg bytes.Buffer
	if err := imaging.Encode(&bg, imaging.New(320, 200, color.White), imaging.PNG); err != nil {
		t.Fatal(err)
	}
	tmpl, err := imagepkg.LoadTemplate(bg.Bytes(), layout.Size{W: 320, H: 200})
	if err != nil {
		t.Fatal(err)
	}
	font, err := imagepkg.DefaultFont()
	if err != nil {
		t.Fatal(err)
	}

	r := NewRunner(l, tmpl, font)
	r.Logger = quiet
	if r.Photos, err = assets.NewDirIndex(photos); err != nil {
		t.Fatal(err)
	}
	if r.QRs, err = assets.NewDirIndex(qrs); err != nil {
		t.Fatal(err)
	}

	recs := []records.Record{
		{"Name": "Nobody", "Class": "4"},
		{"ext_id": "S2", "Name": "Bea", "Grade": "5", "Validity": "N/A"},
		{"ext_id": "S1", "Name": "Ann", "Class": "6", "Validity": "2024-01-05T00:00:00"},
	}
	res, err := r.Run(context.Background(), recs, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Successes != 2 || res.Failures != 1 {
		t.Fatalf("successes=%d failures=%d\n%s", res.Successes, res.Failures, res.Summary())
	}

	bea, ann := res.Cards[0], res.Cards[1]
	if bea.ID != "S2" || ann.ID != "S1" {
		t.Fatalf("card ids = %s, %s", bea.ID, ann.ID)
	}
	names := func(ts []layout.Target) []string {
		var out []string
		for _, tg := range ts {
			out = append(out, tg.String())
		}
		return out
	}
	if diff := cmp.Diff([]string{"Photo", "QR Code", "Name", "Class", "Validity"}, names(ann.Card.Placed)); diff != "" {
		t.Errorf("S1 placed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"QR Code", "Name", "Class", "Validity"}, names(bea.Card.Placed)); diff != "" {
		t.Errorf("S2 placed (-want +got):\n%s", diff)
	}
	for _, c := range res.Cards {
		if c.Card.Image.Bounds().Size() != image.Pt(320, 200) {
			t.Errorf("%s size = %v", c.ID, c.Card.Image.Bounds().Size())
		}
	}

	codes := map[Code][]int{}
	for _, d := range res.Diagnostics {
		codes[d.Code] = append(codes[d.Code], d.Row)
	}
	want := map[Code][]int{
		CodeMissingIdentifier: {1},
		CodeAssetUnreadable:   {2},
		CodeDateParseFailure:  {2},
	}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Errorf("diagnostics (-want +got):\n%s\n%s", diff, res.Summary())
	}
	summary := res.Summary()
	for _, s := range []string{"successful: 2", "failed:     1", "row 1 [missing_identifier]", `"N/A"`} {
		if !strings.Contains(summary, s) {
			t.Errorf("summary missing %q:\n%s", s, summary)
		}
	}
}

func TestRunGeneratesMissingQR(t *testing.T) {
	l, err := layout.Parse([]byte(`
qr: {size: [50, 50], generate: true}
coordinates:
  QR Code: [40, 40]
`))
	if err != nil {
		t.Fatal(err)
	}
	var bg bytes.Buffer
	if err := imaging.Encode(&bg, imaging.New(100, 100, color.NRGBA{G: 255, A: 255}), imaging.PNG); err != nil {
		t.Fatal(err)
	}
	tmpl, err := imagepkg.LoadTemplate(bg.Bytes(), layout.Size{})
	if err != nil {
		t.Fatal(err)
	}
	font, err := imagepkg.DefaultFont()
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(l, tmpl, font)
	r.Logger = quiet
	r.QRs = assets.NewMemIndex(nil)

	res, err := r.Run(context.Background(), []records.Record{{"id": "Z9", "Name": "Zed"}}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Successes != 1 {
		t.Fatalf("successes = %d\n%s", res.Successes, res.Summary())
	}
	if res.Diagnostics[0].Code != CodeAssetMissing {
		t.Errorf("diagnostics = %v", res.Diagnostics)
	}
	if got := qrPayload("Z9", records.Record{"Name": "Zed", "Grade": "3"}, l); got != "ID: Z9\nName: Zed\nClass: 3" {
		t.Errorf("payload = %q", got)
	}
}

func TestReport(t *testing.T) {
	res := &Result{Total: 2, Successes: 1, Failures: 1,
		Cards:       []Output{{Row: 1, ID: "A"}},
		Diagnostics: []Diagnostic{{Row: 2, Code: CodeMissingIdentifier, Message: "skipped"}},
	}
	rep := res.Report()
	if diff := cmp.Diff([]string{"A"}, rep.Cards); diff != "" {
		t.Error(diff)
	}
	if !CodeMissingIdentifier.Fatal() || CodeFieldUnresolved.Fatal() {
		t.Error("unexpected Fatal classification")
	}
	if got := rep.Diagnostics[0].String(); got != "row 2 [missing_identifier] skipped" {
		t.Errorf("String() = %q", got)
	}
}
