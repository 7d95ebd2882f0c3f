// internal/adaptive/recorder_test.go
package adaptive

import (
	"context"
	"fmt"
	"testing"

	"github.com/wpitallo/crawlee/pkg/models"
)

type memorySink struct {
	records []models.Record
}

func (s *memorySink) Push(ctx context.Context, records ...models.Record) error {
	s.records = append(s.records, records...)
	return nil
}

type memoryQueue struct {
	urls []string
}

func (q *memoryQueue) Add(ctx context.Context, urls ...string) ([]models.AddedRequest, error) {
	q.urls = append(q.urls, urls...)
	acks := make([]models.AddedRequest, len(urls))
	for i, u := range urls {
		acks[i] = models.AddedRequest{ID: fmt.Sprintf("req-%d", i), UniqueKey: u}
	}
	return acks, nil
}

func TestDivertRecorderCapturesWithoutForwarding(t *testing.T) {
	result := NewRunResult()
	rec := NewDivertRecorder(result)
	ctx := context.Background()

	if err := rec.Push(ctx, models.Record{"title": "first"}, models.Record{"title": "second"}); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if err := rec.Push(ctx, models.Record{"title": "third"}); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	acks, err := rec.Add(ctx, "https://example.com/a", "https://example.com/b")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if acks == nil || len(acks) != 0 {
		t.Errorf("diverted enqueue should return an empty acknowledgment, got %v", acks)
	}

	records := result.Records()
	if len(records) != 3 {
		t.Fatalf("captured %d records, want 3", len(records))
	}
	for i, want := range []string{"first", "second", "third"} {
		if records[i]["title"] != want {
			t.Errorf("record %d = %v, want title %q in call order", i, records[i], want)
		}
	}

	links := result.Links()
	if len(links) != 2 || links[0] != "https://example.com/a" || links[1] != "https://example.com/b" {
		t.Errorf("captured links = %v, want both URLs in call order", links)
	}
}

func TestTapRecorderCapturesAndForwards(t *testing.T) {
	result := NewRunResult()
	sink := &memorySink{}
	queue := &memoryQueue{}
	rec := NewTapRecorder(result, sink, queue)
	ctx := context.Background()

	if err := rec.Push(ctx, models.Record{"title": "real"}); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	acks, err := rec.Add(ctx, "https://example.com/next")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if len(sink.records) != 1 || sink.records[0]["title"] != "real" {
		t.Errorf("real sink got %v, want the forwarded record", sink.records)
	}
	if len(queue.urls) != 1 || queue.urls[0] != "https://example.com/next" {
		t.Errorf("real queue got %v, want the forwarded URL", queue.urls)
	}
	if len(acks) != 1 || acks[0].UniqueKey != "https://example.com/next" {
		t.Errorf("tap mode should return the real acknowledgment, got %v", acks)
	}

	if len(result.Records()) != 1 || len(result.Links()) != 1 {
		t.Errorf("tap mode must still capture: records=%d links=%d, want 1 and 1",
			len(result.Records()), len(result.Links()))
	}
}
