// internal/adaptive/crawler.go
package adaptive

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog/log"

	"github.com/wpitallo/crawlee/internal/domdiff"
	"github.com/wpitallo/crawlee/internal/prediction"
	"github.com/wpitallo/crawlee/pkg/models"
)

// Simulator runs a handler against a statically fetched document with side
// effects diverted. A nil result means the simulation failed.
type Simulator interface {
	Simulate(ctx context.Context, req *models.Request, handler Handler) *DryRunResult
}

// Renderer runs a handler against a real rendered page, committing its side
// effects for real while capturing them.
type Renderer interface {
	Render(ctx context.Context, req *models.Request, handler Handler) (*RenderResult, error)
}

// Options configures a Crawler. All fields are required.
type Options struct {
	Handler    Handler
	Predictor  prediction.Predictor
	Simulator  Simulator
	Renderer   Renderer
	Classifier Classifier
	Validator  Validator
	Data       DataSink
}

// Crawler decides per request whether a cheap static fetch is enough or real
// rendering is needed, learning the answer over time. Each request runs one
// of three outcomes: a static commit of diverted side effects, a real
// rendered execution, or a rendered fallback after the static attempt proved
// untrustworthy. Exactly one of them commits.
type Crawler struct {
	handler    Handler
	predictor  prediction.Predictor
	simulator  Simulator
	renderer   Renderer
	classifier Classifier
	validator  Validator
	data       DataSink
	stats      stats
}

// New validates opts and returns a ready Crawler.
func New(opts Options) (*Crawler, error) {
	if opts.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if opts.Predictor == nil {
		return nil, fmt.Errorf("predictor is required")
	}
	if opts.Simulator == nil {
		return nil, fmt.Errorf("simulator is required")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if opts.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if opts.Validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if opts.Data == nil {
		return nil, fmt.Errorf("data sink is required")
	}

	return &Crawler{
		handler:    opts.Handler,
		predictor:  opts.Predictor,
		simulator:  opts.Simulator,
		renderer:   opts.Renderer,
		classifier: opts.Classifier,
		validator:  opts.Validator,
		data:       opts.Data,
	}, nil
}

// Stats returns a snapshot of routing outcomes so far.
func (c *Crawler) Stats() Snapshot {
	return c.stats.snapshot()
}

// Process runs the decision loop for one request. The predictor is consulted
// first; a uniform draw against its recommended probability decides whether
// this request is probed for active detection. Detection probes run the
// static simulation up front, then the rendered path, and feed the
// classifier's label back into the predictor. Requests predicted static and
// not probed take the cheap path, with a rendered fallback when the
// simulation cannot be trusted.
func (c *Crawler) Process(ctx context.Context, req *models.Request) error {
	pred := c.predictor.Predict(req.ResolvedURL())
	shouldDetect := rand.Float64() < pred.DetectionProbability

	log.Debug().
		Str("url", req.ResolvedURL()).
		Str("predicted", string(pred.RenderingType)).
		Float64("detection_probability", pred.DetectionProbability).
		Bool("detect", shouldDetect).
		Msg("Rendering decision")

	var probe *DryRunResult
	if shouldDetect {
		probe = c.simulator.Simulate(ctx, req, c.handler)
	}

	if pred.RenderingType == models.RenderingClientOnly || shouldDetect {
		return c.renderPath(ctx, req, probe, shouldDetect)
	}
	return c.staticPath(ctx, req)
}

// renderPath executes the real rendering path. When this request was probed
// and both sides produced a result, the two documents are compared and the
// classifier's label is stored back into the predictor. This is the only
// place the predictor learns.
func (c *Crawler) renderPath(ctx context.Context, req *models.Request, probe *DryRunResult, detect bool) error {
	rendered, err := c.renderer.Render(ctx, req, c.handler)
	if err != nil {
		return err
	}
	c.stats.renderRuns.Add(1)
	c.stats.recordsEmitted.Add(int64(len(rendered.Result.Records())))
	c.stats.linksEnqueued.Add(int64(len(rendered.Result.Links())))

	if detect && probe != nil {
		ratio := domdiff.ChangeRatio(probe.Document, rendered.Document)
		label := c.classifier(DetectionInput{
			URL:              req.ResolvedURL(),
			StaticDocument:   probe.Document,
			RenderedDocument: rendered.Document,
			ChangeRatio:      ratio,
			MutationCount:    rendered.Mutations,
			StaticRun:        probe.Result,
			RenderRun:        rendered.Result,
		})

		ev := log.Debug().
			Str("url", req.ResolvedURL()).
			Str("label", string(label)).
			Int64("mutations", rendered.Mutations)
		if ratio != nil {
			ev = ev.Float64("change_ratio", *ratio)
		}
		ev.Msg("Detection complete")

		c.predictor.StoreResult(req.ResolvedURL(), label)
		c.stats.detections.Add(1)
	}

	return nil
}

// staticPath simulates the handler against a plain fetch and, when the
// result holds up, commits its captured records for real. A failed or
// invalid simulation falls back to rendering the same request, and that
// rendered run's side effects become the outcome instead.
func (c *Crawler) staticPath(ctx context.Context, req *models.Request) error {
	dry := c.simulator.Simulate(ctx, req, c.handler)
	if dry == nil {
		log.Warn().Str("url", req.ResolvedURL()).Msg("Static simulation failed, falling back to rendering")
		return c.fallbackRender(ctx, req)
	}
	if !c.allValid(dry.Result.Records()) {
		log.Warn().Str("url", req.ResolvedURL()).Msg("Static extraction failed validation, falling back to rendering")
		return c.fallbackRender(ctx, req)
	}

	records := dry.Result.Records()
	if len(records) > 0 {
		if err := c.data.Push(ctx, records...); err != nil {
			return fmt.Errorf("failed to commit extracted records: %w", err)
		}
	}
	c.stats.staticCommits.Add(1)
	c.stats.recordsEmitted.Add(int64(len(records)))

	// Links captured by the dry run are dropped on this path.
	// TODO: route them into the request queue.
	log.Debug().
		Str("url", req.ResolvedURL()).
		Int("records", len(records)).
		Int("links_dropped", len(dry.Result.Links())).
		Msg("Static extraction committed")

	return nil
}

func (c *Crawler) fallbackRender(ctx context.Context, req *models.Request) error {
	rendered, err := c.renderer.Render(ctx, req, c.handler)
	if err != nil {
		return err
	}
	c.stats.fallbacks.Add(1)
	c.stats.recordsEmitted.Add(int64(len(rendered.Result.Records())))
	c.stats.linksEnqueued.Add(int64(len(rendered.Result.Links())))
	return nil
}

func (c *Crawler) allValid(records []models.Record) bool {
	for _, rec := range records {
		if !c.validator(rec) {
			return false
		}
	}
	return true
}
