// internal/prediction/memory_test.go
package prediction

import (
	"fmt"
	"sync"
	"testing"

	"github.com/wpitallo/crawlee/pkg/models"
)

func TestPredictUnknownHost(t *testing.T) {
	p := NewMemoryPredictor(0.05, 0)

	pred := p.Predict("https://never-seen.example.com/page")
	if pred.RenderingType != models.RenderingClientOnly {
		t.Errorf("unknown host predicted %s, want client-only", pred.RenderingType)
	}
	if pred.DetectionProbability != 1.0 {
		t.Errorf("unknown host probability = %v, want 1.0", pred.DetectionProbability)
	}
}

func TestPredictLearnsMajorityType(t *testing.T) {
	p := NewMemoryPredictor(0.05, 0)

	for i := 0; i < 5; i++ {
		p.StoreResult("https://static.example.com/page", models.RenderingStatic)
	}
	p.StoreResult("https://static.example.com/odd-one", models.RenderingClientOnly)

	pred := p.Predict("https://static.example.com/another")
	if pred.RenderingType != models.RenderingStatic {
		t.Errorf("predicted %s, want static after 5:1 observations", pred.RenderingType)
	}
	// 6 observations: probability = 1/7, above the 0.05 floor.
	want := 1.0 / 7.0
	if pred.DetectionProbability != want {
		t.Errorf("probability = %v, want %v", pred.DetectionProbability, want)
	}
}

func TestPredictProbabilityFloorsAtRatio(t *testing.T) {
	p := NewMemoryPredictor(0.1, 0)

	for i := 0; i < 100; i++ {
		p.StoreResult("https://busy.example.com/", models.RenderingStatic)
	}

	pred := p.Predict("https://busy.example.com/")
	if pred.DetectionProbability != 0.1 {
		t.Errorf("probability = %v, want configured ratio 0.1", pred.DetectionProbability)
	}
}

func TestPredictTieGoesToClientOnly(t *testing.T) {
	p := NewMemoryPredictor(0.05, 0)

	p.StoreResult("https://tied.example.com/", models.RenderingStatic)
	p.StoreResult("https://tied.example.com/", models.RenderingClientOnly)

	pred := p.Predict("https://tied.example.com/")
	if pred.RenderingType != models.RenderingClientOnly {
		t.Errorf("tie predicted %s, want the safe client-only answer", pred.RenderingType)
	}
}

func TestStoreResultEvictsOldestHosts(t *testing.T) {
	p := NewMemoryPredictor(0.05, 3)

	for i := 0; i < 4; i++ {
		p.StoreResult(fmt.Sprintf("https://host%d.example.com/", i), models.RenderingStatic)
	}

	// host0 is the least recently seen and must be gone.
	pred := p.Predict("https://host0.example.com/")
	if pred.DetectionProbability != 1.0 {
		t.Errorf("evicted host should look unknown, probability = %v", pred.DetectionProbability)
	}

	pred = p.Predict("https://host3.example.com/")
	if pred.RenderingType != models.RenderingStatic {
		t.Errorf("recent host lost its history: %+v", pred)
	}
}

func TestPredictorConcurrentAccess(t *testing.T) {
	p := NewMemoryPredictor(0.05, 100)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				url := fmt.Sprintf("https://host%d.example.com/p%d", i%10, worker)
				if i%2 == 0 {
					p.StoreResult(url, models.RenderingStatic)
				} else {
					pred := p.Predict(url)
					if !pred.RenderingType.Valid() {
						t.Errorf("malformed prediction: %+v", pred)
						return
					}
					if pred.DetectionProbability < 0 || pred.DetectionProbability > 1 {
						t.Errorf("probability out of range: %v", pred.DetectionProbability)
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()
}
