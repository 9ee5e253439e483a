package supplier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/backend-developer-hojiakbar/mebel/internal/models"
	"github.com/backend-developer-hojiakbar/mebel/internal/normalize"
	"github.com/backend-developer-hojiakbar/mebel/internal/queries"
	"github.com/backend-developer-hojiakbar/mebel/internal/websearch"
)

type fakeNormalizer struct {
	calls int
}

func (f *fakeNormalizer) Normalize(ctx context.Context, items []normalize.Item) map[string]normalize.Variants {
	f.calls++
	out := make(map[string]normalize.Variants, len(items))
	for _, it := range items {
		out[it.ID] = normalize.Variants{LatinUz: it.Name, LatinRu: it.Name, English: it.Name}
	}
	return out
}

type fakeQueryGen struct {
	calls   int
	perItem []string
}

func (f *fakeQueryGen) Generate(ctx context.Context, inputs []queries.Input) map[string][]string {
	f.calls++
	out := make(map[string][]string, len(inputs))
	for _, in := range inputs {
		qs := f.perItem
		if qs == nil {
			qs = []string{in.Name + " narxi"}
		}
		out[in.ID] = qs
	}
	return out
}

type fakeSearcher struct {
	mu      sync.Mutex
	calls   int
	results map[string][]websearch.Result
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]websearch.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

type fakeSynth struct {
	calls     int
	suppliers map[string][]models.Supplier
	panicOn   string
	gotLinks  [][]string
}

func (f *fakeSynth) Synthesize(ctx context.Context, product models.Product, results []websearch.Result, lang string) ([]models.Supplier, error) {
	f.calls++
	if product.ID == f.panicOn {
		panic("synthesizer exploded")
	}
	links := make([]string, 0, len(results))
	for _, r := range results {
		links = append(links, r.Link)
	}
	f.gotLinks = append(f.gotLinks, links)
	return f.suppliers[product.ID], nil
}

func testProducts(names ...string) []models.Product {
	out := make([]models.Product, len(names))
	for i, name := range names {
		out[i] = models.Product{ID: fmt.Sprintf("p%d", i+1), Name: name, Quantity: 1}
	}
	return out
}

func TestRunPreservesInputOrder(t *testing.T) {
	search := &fakeSearcher{results: map[string][]websearch.Result{}}
	synth := &fakeSynth{suppliers: map[string][]models.Supplier{
		"p1": {{ID: "s1", CompanyName: "Alpha"}},
		"p2": {{ID: "s2", CompanyName: "Beta"}},
		"p3": {{ID: "s3", CompanyName: "Gamma"}},
	}}
	o := NewOrchestrator(&fakeNormalizer{}, &fakeQueryGen{}, search, synth, 0)

	products := testProducts("stol", "stul", "shkaf")
	out, err := o.Run(context.Background(), products, "uz", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(out) != 3 {
		t.Fatalf("got %d products, want 3", len(out))
	}
	for i, want := range []string{"stol", "stul", "shkaf"} {
		if out[i].Name != want {
			t.Errorf("out[%d].Name = %q, want %q", i, out[i].Name, want)
		}
	}
	for i, want := range []string{"Alpha", "Beta", "Gamma"} {
		if len(out[i].Suppliers) != 1 || out[i].Suppliers[0].CompanyName != want {
			t.Errorf("out[%d].Suppliers = %+v, want single %q", i, out[i].Suppliers, want)
		}
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	synth := &fakeSynth{suppliers: map[string][]models.Supplier{
		"p1": {{ID: "s1", CompanyName: "Alpha"}},
	}}
	o := NewOrchestrator(&fakeNormalizer{}, &fakeQueryGen{}, &fakeSearcher{}, synth, 0)

	products := testProducts("stol")
	if _, err := o.Run(context.Background(), products, "uz", nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if products[0].Suppliers != nil {
		t.Errorf("input slice was mutated: %+v", products[0].Suppliers)
	}
}

func TestRunIsolatesSynthesizerPanic(t *testing.T) {
	search := &fakeSearcher{results: map[string][]websearch.Result{
		"stol narxi":  {{Title: "a", Link: "https://a.uz"}},
		"stul narxi":  {{Title: "b", Link: "https://b.uz"}},
		"shkaf narxi": {{Title: "c", Link: "https://c.uz"}},
	}}
	synth := &fakeSynth{
		panicOn: "p2",
		suppliers: map[string][]models.Supplier{
			"p1": {{ID: "s1", CompanyName: "Alpha"}},
			"p3": {{ID: "s3", CompanyName: "Gamma"}},
		},
	}
	o := NewOrchestrator(&fakeNormalizer{}, &fakeQueryGen{}, search, synth, 0)

	out, err := o.Run(context.Background(), testProducts("stol", "stul", "shkaf"), "uz", nil)
	if err != nil {
		t.Fatalf("Run must absorb per-product panics, got: %v", err)
	}

	if len(out[0].Suppliers) != 1 || len(out[2].Suppliers) != 1 {
		t.Errorf("healthy products lost suppliers: %+v / %+v", out[0].Suppliers, out[2].Suppliers)
	}
	if out[1].Suppliers == nil || len(out[1].Suppliers) != 0 {
		t.Errorf("panicking product must degrade to empty supplier list, got %+v", out[1].Suppliers)
	}
}

func TestRunSkipsUnnamedProducts(t *testing.T) {
	norm := &fakeNormalizer{}
	qgen := &fakeQueryGen{}
	search := &fakeSearcher{}
	synth := &fakeSynth{}
	o := NewOrchestrator(norm, qgen, search, synth, 0)

	var progress [][2]int
	out, err := o.Run(context.Background(),
		testProducts(models.NotAvailable, models.NotAvailable, models.NotAvailable), "uz",
		func(done, total int) { progress = append(progress, [2]int{done, total}) },
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if norm.calls != 0 || qgen.calls != 0 || search.calls != 0 || synth.calls != 0 {
		t.Errorf("skipped products must not consume calls: norm=%d qgen=%d search=%d synth=%d",
			norm.calls, qgen.calls, search.calls, synth.calls)
	}
	for i, p := range out {
		if p.Suppliers == nil || len(p.Suppliers) != 0 {
			t.Errorf("out[%d].Suppliers = %+v, want empty", i, p.Suppliers)
		}
	}
	if len(progress) != 3 {
		t.Fatalf("progress reported %d times, want 3", len(progress))
	}
	if progress[2] != [2]int{3, 3} {
		t.Errorf("final progress = %v, want [3 3]", progress[2])
	}
}

func TestRunMissingCredentialIsFatal(t *testing.T) {
	search := &fakeSearcher{err: websearch.ErrNoCredential}
	o := NewOrchestrator(&fakeNormalizer{}, &fakeQueryGen{}, search, &fakeSynth{}, 0)

	_, err := o.Run(context.Background(), testProducts("stol"), "uz", nil)
	if !errors.Is(err, websearch.ErrNoCredential) {
		t.Fatalf("err = %v, want ErrNoCredential", err)
	}
}

func TestRunToleratesTransientSearchFailure(t *testing.T) {
	search := &fakeSearcher{err: errors.New("upstream timeout")}
	synth := &fakeSynth{}
	o := NewOrchestrator(&fakeNormalizer{}, &fakeQueryGen{}, search, synth, 0)

	out, err := o.Run(context.Background(), testProducts("stol"), "uz", nil)
	if err != nil {
		t.Fatalf("transient search failures must not abort the run: %v", err)
	}
	if len(out[0].Suppliers) != 0 {
		t.Errorf("suppliers = %+v, want empty", out[0].Suppliers)
	}
	if synth.calls != 0 {
		t.Errorf("synthesizer called %d times with no results", synth.calls)
	}
}

func TestFanOutDeduplicatesByLink(t *testing.T) {
	search := &fakeSearcher{results: map[string][]websearch.Result{
		"q1": {
			{Title: "first", Link: "https://shop.uz/stol"},
			{Title: "only", Link: "https://other.uz"},
		},
		"q2": {
			{Title: "duplicate", Link: "https://shop.uz/stol"},
			{Title: "", Link: ""},
		},
	}}
	synth := &fakeSynth{}
	o := NewOrchestrator(&fakeNormalizer{}, &fakeQueryGen{perItem: []string{"q1", "q2"}}, search, synth, 0)

	if _, err := o.Run(context.Background(), testProducts("stol"), "uz", nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(synth.gotLinks) != 1 {
		t.Fatalf("synthesizer invoked %d times, want 1", len(synth.gotLinks))
	}
	links := synth.gotLinks[0]
	if len(links) != 2 {
		t.Fatalf("links = %v, want 2 after dedupe (empty links dropped)", links)
	}
	if links[0] != "https://shop.uz/stol" || links[1] != "https://other.uz" {
		t.Errorf("links = %v, want first-wins order from the first query", links)
	}
}

// blockingSynth waits out the context, the way a slow model call does when
// the run deadline expires mid-product.
type blockingSynth struct{}

func (blockingSynth) Synthesize(ctx context.Context, product models.Product, results []websearch.Result, lang string) ([]models.Supplier, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunDeadlineExceededIsFatal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	search := &fakeSearcher{results: map[string][]websearch.Result{
		"stol narxi": {{Title: "a", Link: "https://a.uz"}},
	}}
	o := NewOrchestrator(&fakeNormalizer{}, &fakeQueryGen{}, search, blockingSynth{}, 0)

	_, err := o.Run(ctx, testProducts("stol"), "uz", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded, not a degraded product", err)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(&fakeNormalizer{}, &fakeQueryGen{}, &fakeSearcher{}, &fakeSynth{}, 0)
	_, err := o.Run(ctx, testProducts("stol"), "uz", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
