// internal/adaptive/recorder.go
package adaptive

import (
	"context"

	"github.com/wpitallo/crawlee/pkg/models"
)

// DataSink receives extracted records. Satisfied by store.Dataset.
type DataSink interface {
	Push(ctx context.Context, records ...models.Record) error
}

// LinkSink receives discovered URLs for the crawl frontier. Satisfied by
// store.RequestQueue.
type LinkSink interface {
	Add(ctx context.Context, urls ...string) ([]models.AddedRequest, error)
}

// RunResult collects the side effects one handler execution attempted: every
// link it tried to enqueue and every record it tried to emit, in call order.
// One RunResult belongs to exactly one execution attempt.
type RunResult struct {
	links   []string
	records []models.Record
}

// NewRunResult returns an empty result ready to record one attempt.
func NewRunResult() *RunResult {
	return &RunResult{}
}

// Links returns the URLs the handler tried to enqueue, in call order.
func (r *RunResult) Links() []string {
	return r.links
}

// Records returns the records the handler tried to emit, in call order.
func (r *RunResult) Records() []models.Record {
	return r.records
}

func (r *RunResult) addLinks(urls ...string) {
	r.links = append(r.links, urls...)
}

func (r *RunResult) addRecords(records ...models.Record) {
	r.records = append(r.records, records...)
}

type recorderMode int

const (
	// modeDivert captures calls without forwarding them anywhere. Enqueue
	// calls get a synthetic empty acknowledgment.
	modeDivert recorderMode = iota

	// modeTap captures calls and forwards them to the real sinks, so the
	// side effects still happen.
	modeTap
)

// Recorder wraps the data and link sinks so every push and enqueue lands in
// a RunResult. Depending on mode the call is also forwarded to the real
// sinks or swallowed entirely.
type Recorder struct {
	mode   recorderMode
	result *RunResult
	data   DataSink
	links  LinkSink
}

// NewDivertRecorder returns a recorder that captures all side effects into
// result without performing any of them. Dry runs use this mode.
func NewDivertRecorder(result *RunResult) *Recorder {
	return &Recorder{mode: modeDivert, result: result}
}

// NewTapRecorder returns a recorder that captures side effects into result
// and forwards them to the given sinks. Real render executions use this
// mode so their effects both happen and remain observable.
func NewTapRecorder(result *RunResult, data DataSink, links LinkSink) *Recorder {
	return &Recorder{mode: modeTap, result: result, data: data, links: links}
}

// Push records the given records and, in tap mode, forwards them to the real
// data sink.
func (r *Recorder) Push(ctx context.Context, records ...models.Record) error {
	r.result.addRecords(records...)
	if r.mode == modeTap && r.data != nil {
		return r.data.Push(ctx, records...)
	}
	return nil
}

// Add records the given URLs and, in tap mode, forwards them to the real
// link sink. In divert mode the returned acknowledgment is always empty.
func (r *Recorder) Add(ctx context.Context, urls ...string) ([]models.AddedRequest, error) {
	r.result.addLinks(urls...)
	if r.mode == modeTap && r.links != nil {
		return r.links.Add(ctx, urls...)
	}
	return []models.AddedRequest{}, nil
}
