// internal/prediction/memory.go
package prediction

import (
	"container/list"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wpitallo/crawlee/pkg/models"
)

// DefaultMaxHosts bounds the in-memory model; least recently seen hosts are
// evicted beyond this.
const DefaultMaxHosts = 10000

// hostStats accumulates labeled observations for one host.
type hostStats struct {
	host       string
	static     int
	clientOnly int
}

func (s *hostStats) total() int {
	return s.static + s.clientOnly
}

// MemoryPredictor predicts per host: pages on the same host almost always
// share a rendering approach, so host-level tallies converge quickly. Hosts
// with no history are treated as client-only with a certain probe; rendering
// is never wrong, just expensive, and the probe teaches the model. As
// observations accumulate, the probe recommendation decays from 1 down to the
// configured steady-state detection ratio.
type MemoryPredictor struct {
	mu       sync.RWMutex
	hosts    map[string]*list.Element
	lru      *list.List
	maxHosts int
	ratio    float64
}

// NewMemoryPredictor creates a predictor with the given steady-state
// detection-sampling ratio (clamped to [0,1]).
func NewMemoryPredictor(detectionRatio float64, maxHosts int) *MemoryPredictor {
	if detectionRatio < 0 {
		detectionRatio = 0
	}
	if detectionRatio > 1 {
		detectionRatio = 1
	}
	if maxHosts <= 0 {
		maxHosts = DefaultMaxHosts
	}

	return &MemoryPredictor{
		hosts:    make(map[string]*list.Element),
		lru:      list.New(),
		maxHosts: maxHosts,
		ratio:    detectionRatio,
	}
}

// Predict returns the model's current answer for the URL's host.
func (p *MemoryPredictor) Predict(urlStr string) Prediction {
	host := hostOf(urlStr)
	if host == "" {
		return Prediction{RenderingType: models.RenderingClientOnly, DetectionProbability: 1.0}
	}

	p.mu.Lock()
	element, exists := p.hosts[host]
	var stats hostStats
	if exists {
		stats = *element.Value.(*hostStats)
		p.lru.MoveToFront(element)
	}
	p.mu.Unlock()

	if !exists || stats.total() == 0 {
		return Prediction{RenderingType: models.RenderingClientOnly, DetectionProbability: 1.0}
	}

	renderingType := models.RenderingClientOnly
	if stats.static > stats.clientOnly {
		renderingType = models.RenderingStatic
	}

	// Probe often while the host is fresh, then settle at the configured rate.
	probability := 1.0 / float64(stats.total()+1)
	if probability < p.ratio {
		probability = p.ratio
	}

	return Prediction{RenderingType: renderingType, DetectionProbability: probability}
}

// StoreResult records one observed rendering type for the URL's host.
func (p *MemoryPredictor) StoreResult(urlStr string, observed models.RenderingType) {
	host := hostOf(urlStr)
	if host == "" || !observed.Valid() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	element, exists := p.hosts[host]
	if !exists {
		for p.lru.Len() >= p.maxHosts {
			oldest := p.lru.Back()
			if oldest == nil {
				break
			}
			evicted := oldest.Value.(*hostStats)
			p.lru.Remove(oldest)
			delete(p.hosts, evicted.host)
			log.Debug().Str("host", evicted.host).Msg("Evicted host from rendering model")
		}
		element = p.lru.PushFront(&hostStats{host: host})
		p.hosts[host] = element
	} else {
		p.lru.MoveToFront(element)
	}

	stats := element.Value.(*hostStats)
	switch observed {
	case models.RenderingStatic:
		stats.static++
	case models.RenderingClientOnly:
		stats.clientOnly++
	}
}

func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
