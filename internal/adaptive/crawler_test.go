// internal/adaptive/crawler_test.go
package adaptive

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/wpitallo/crawlee/internal/prediction"
	"github.com/wpitallo/crawlee/pkg/models"
)

type fakePredictor struct {
	pred   prediction.Prediction
	stored []models.RenderingType
}

func (f *fakePredictor) Predict(url string) prediction.Prediction {
	return f.pred
}

func (f *fakePredictor) StoreResult(url string, observed models.RenderingType) {
	f.stored = append(f.stored, observed)
}

type fakeSimulator struct {
	result *DryRunResult
	calls  int
}

func (f *fakeSimulator) Simulate(ctx context.Context, req *models.Request, handler Handler) *DryRunResult {
	f.calls++
	return f.result
}

type fakeRenderer struct {
	result *RenderResult
	err    error
	calls  int
}

func (f *fakeRenderer) Render(ctx context.Context, req *models.Request, handler Handler) (*RenderResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse test document: %v", err)
	}
	return doc
}

func dryResult(t *testing.T, html string, records ...models.Record) *DryRunResult {
	t.Helper()
	result := NewRunResult()
	result.addRecords(records...)
	return &DryRunResult{Document: parseDoc(t, html), Result: result}
}

func newTestCrawler(t *testing.T, pred *fakePredictor, sim *fakeSimulator, ren *fakeRenderer, sink *memorySink) *Crawler {
	t.Helper()
	c, err := New(Options{
		Handler:    func(c *Context) error { return nil },
		Predictor:  pred,
		Simulator:  sim,
		Renderer:   ren,
		Classifier: NewDefaultClassifier(0.1, 20),
		Validator:  DefaultValidator,
		Data:       sink,
	})
	if err != nil {
		t.Fatalf("failed to build crawler: %v", err)
	}
	return c
}

func testRequest() *models.Request {
	return &models.Request{ID: "r1", URL: "https://example.com/"}
}

func TestStaticPredictionCommitsDryRunRecords(t *testing.T) {
	pred := &fakePredictor{pred: prediction.Prediction{RenderingType: models.RenderingStatic, DetectionProbability: 0}}
	sim := &fakeSimulator{result: dryResult(t, "<html><body><div>shell</div></body></html>", models.Record{"title": "Catalog"})}
	ren := &fakeRenderer{}
	sink := &memorySink{}
	c := newTestCrawler(t, pred, sim, ren, sink)

	if err := c.Process(context.Background(), testRequest()); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if sim.calls != 1 {
		t.Errorf("simulator ran %d times, want 1", sim.calls)
	}
	if ren.calls != 0 {
		t.Errorf("renderer ran %d times, want none on the static path", ren.calls)
	}
	if len(sink.records) != 1 || sink.records[0]["title"] != "Catalog" {
		t.Errorf("committed %v, want exactly the dry run's record", sink.records)
	}
	if len(pred.stored) != 0 {
		t.Errorf("predictor learned %v, want no update without a probe", pred.stored)
	}
}

func TestInvalidStaticRecordsFallBackToRendering(t *testing.T) {
	pred := &fakePredictor{pred: prediction.Prediction{RenderingType: models.RenderingStatic, DetectionProbability: 0}}
	sim := &fakeSimulator{result: dryResult(t, "<html><body></body></html>", models.Record{"title": "   "})}
	ren := &fakeRenderer{result: &RenderResult{Document: parseDoc(t, "<html><body><div>full</div></body></html>"), Result: NewRunResult()}}
	sink := &memorySink{}
	c := newTestCrawler(t, pred, sim, ren, sink)

	if err := c.Process(context.Background(), testRequest()); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if ren.calls != 1 {
		t.Errorf("renderer ran %d times, want exactly one fallback render", ren.calls)
	}
	if len(sink.records) != 0 {
		t.Errorf("dry run records were committed despite failing validation: %v", sink.records)
	}
	if len(pred.stored) != 0 {
		t.Errorf("fallback must not teach the predictor, got %v", pred.stored)
	}
}

func TestFailedSimulationFallsBackToRendering(t *testing.T) {
	pred := &fakePredictor{pred: prediction.Prediction{RenderingType: models.RenderingStatic, DetectionProbability: 0}}
	sim := &fakeSimulator{result: nil}
	ren := &fakeRenderer{result: &RenderResult{Document: parseDoc(t, "<html><body><div>full</div></body></html>"), Result: NewRunResult()}}
	sink := &memorySink{}
	c := newTestCrawler(t, pred, sim, ren, sink)

	if err := c.Process(context.Background(), testRequest()); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if sim.calls != 1 || ren.calls != 1 {
		t.Errorf("sim=%d render=%d, want one failed simulation then one fallback render", sim.calls, ren.calls)
	}
	if len(sink.records) != 0 {
		t.Errorf("nothing should be committed from a failed simulation, got %v", sink.records)
	}
}

func TestDetectionProbeRunsBothPathsAndLearns(t *testing.T) {
	// Probability 1.0 forces the detection draw for every request.
	pred := &fakePredictor{pred: prediction.Prediction{RenderingType: models.RenderingStatic, DetectionProbability: 1.0}}
	staticDoc := parseDoc(t, "<html><body><div>shell</div></body></html>")
	renderedDoc := parseDoc(t, "<html><body><div>a</div><div>b</div><p>c</p><p>d</p></body></html>")

	sim := &fakeSimulator{result: &DryRunResult{Document: staticDoc, Result: NewRunResult()}}
	ren := &fakeRenderer{result: &RenderResult{Document: renderedDoc, Result: NewRunResult(), Mutations: 42}}
	sink := &memorySink{}

	var captured *DetectionInput
	c, err := New(Options{
		Handler:   func(c *Context) error { return nil },
		Predictor: pred,
		Simulator: sim,
		Renderer:  ren,
		Classifier: func(in DetectionInput) models.RenderingType {
			captured = &in
			return models.RenderingClientOnly
		},
		Validator: DefaultValidator,
		Data:      sink,
	})
	if err != nil {
		t.Fatalf("failed to build crawler: %v", err)
	}

	if err := c.Process(context.Background(), testRequest()); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if sim.calls != 1 || ren.calls != 1 {
		t.Errorf("sim=%d render=%d, want both paths to run exactly once", sim.calls, ren.calls)
	}
	if captured == nil {
		t.Fatal("classifier was never invoked")
	}
	if captured.StaticDocument != staticDoc || captured.RenderedDocument != renderedDoc {
		t.Error("classifier did not receive both documents")
	}
	if captured.ChangeRatio == nil || *captured.ChangeRatio <= 0 {
		t.Errorf("change ratio = %v, want a positive measured value", captured.ChangeRatio)
	}
	if captured.MutationCount != 42 {
		t.Errorf("mutation count = %d, want the render session's 42", captured.MutationCount)
	}
	if len(pred.stored) != 1 || pred.stored[0] != models.RenderingClientOnly {
		t.Errorf("predictor stored %v, want exactly one client-only observation", pred.stored)
	}
	if snap := c.Stats(); snap.Detections != 1 || snap.RenderRuns != 1 {
		t.Errorf("stats = %+v, want the probe counted as one render with one detection", snap)
	}
}

func TestDetectionSkippedWhenProbeFails(t *testing.T) {
	pred := &fakePredictor{pred: prediction.Prediction{RenderingType: models.RenderingStatic, DetectionProbability: 1.0}}
	sim := &fakeSimulator{result: nil}
	ren := &fakeRenderer{result: &RenderResult{Document: parseDoc(t, "<html><body><div>full</div></body></html>"), Result: NewRunResult()}}
	sink := &memorySink{}
	c := newTestCrawler(t, pred, sim, ren, sink)

	if err := c.Process(context.Background(), testRequest()); err != nil {
		t.Fatalf("a failed probe must not fail the request: %v", err)
	}

	if ren.calls != 1 {
		t.Errorf("renderer ran %d times, want 1", ren.calls)
	}
	if len(pred.stored) != 0 {
		t.Errorf("learning must need both sides, predictor got %v", pred.stored)
	}
}

func TestRenderingPredictionSkipsProbe(t *testing.T) {
	pred := &fakePredictor{pred: prediction.Prediction{RenderingType: models.RenderingClientOnly, DetectionProbability: 0}}
	sim := &fakeSimulator{}
	ren := &fakeRenderer{result: &RenderResult{Document: parseDoc(t, "<html><body><div>full</div></body></html>"), Result: NewRunResult()}}
	sink := &memorySink{}
	c := newTestCrawler(t, pred, sim, ren, sink)

	if err := c.Process(context.Background(), testRequest()); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if sim.calls != 0 {
		t.Errorf("simulator ran %d times, want none when rendering is predicted", sim.calls)
	}
	if ren.calls != 1 {
		t.Errorf("renderer ran %d times, want 1", ren.calls)
	}
	if len(pred.stored) != 0 {
		t.Errorf("predictor learned %v, want no update without a probe", pred.stored)
	}
}

func TestRenderFailurePropagates(t *testing.T) {
	renderErr := errors.New("browser crashed")
	pred := &fakePredictor{pred: prediction.Prediction{RenderingType: models.RenderingClientOnly, DetectionProbability: 0}}
	sim := &fakeSimulator{}
	ren := &fakeRenderer{err: renderErr}
	sink := &memorySink{}
	c := newTestCrawler(t, pred, sim, ren, sink)

	err := c.Process(context.Background(), testRequest())
	if !errors.Is(err, renderErr) {
		t.Errorf("process returned %v, want the render failure to surface", err)
	}
	if len(pred.stored) != 0 {
		t.Errorf("a failed render must not teach the predictor, got %v", pred.stored)
	}
}

func TestStatsCountRoutingOutcomes(t *testing.T) {
	pred := &fakePredictor{pred: prediction.Prediction{RenderingType: models.RenderingStatic, DetectionProbability: 0}}
	dry := dryResult(t, "<html><body><div>shell</div></body></html>", models.Record{"title": "Catalog"})
	dry.Result.addLinks("https://example.com/dropped")
	sim := &fakeSimulator{result: dry}

	renResult := NewRunResult()
	renResult.addRecords(models.Record{"title": "Rendered"})
	renResult.addLinks("https://example.com/a", "https://example.com/b")
	ren := &fakeRenderer{result: &RenderResult{Document: parseDoc(t, "<html><body><div>full</div></body></html>"), Result: renResult}}
	sink := &memorySink{}
	c := newTestCrawler(t, pred, sim, ren, sink)

	// A trusted simulation commits statically.
	if err := c.Process(context.Background(), testRequest()); err != nil {
		t.Fatalf("static process failed: %v", err)
	}

	// A failed simulation forces the rendered fallback.
	sim.result = nil
	if err := c.Process(context.Background(), testRequest()); err != nil {
		t.Fatalf("fallback process failed: %v", err)
	}

	// A client-only prediction renders directly.
	pred.pred = prediction.Prediction{RenderingType: models.RenderingClientOnly, DetectionProbability: 0}
	if err := c.Process(context.Background(), testRequest()); err != nil {
		t.Fatalf("render process failed: %v", err)
	}

	snap := c.Stats()
	if snap.StaticCommits != 1 || snap.RenderRuns != 1 || snap.Fallbacks != 1 {
		t.Errorf("routing counts = %+v, want one of each outcome", snap)
	}
	// One record from the static commit, one from each rendered run.
	if snap.RecordsEmitted != 3 {
		t.Errorf("records emitted = %d, want 3", snap.RecordsEmitted)
	}
	// Only rendered runs forward links; the static commit's captured link
	// is dropped and must not count.
	if snap.LinksEnqueued != 4 {
		t.Errorf("links enqueued = %d, want 4 from the two rendered runs", snap.LinksEnqueued)
	}
	if snap.Detections != 0 {
		t.Errorf("detections = %d, want none without a probe", snap.Detections)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("empty options should be rejected")
	}

	_, err := New(Options{
		Handler:    func(c *Context) error { return nil },
		Predictor:  &fakePredictor{},
		Simulator:  &fakeSimulator{},
		Renderer:   &fakeRenderer{},
		Classifier: NewDefaultClassifier(0, 0),
		Validator:  DefaultValidator,
		Data:       &memorySink{},
	})
	if err != nil {
		t.Errorf("complete options rejected: %v", err)
	}
}
