package chainclient

import (
	"math/rand"
	"sync"
	"time"

	"github.com/blockwatch/sentinel/internal/model"
)

// pool implements weighted-random endpoint selection with rotation away
// from endpoints that recently failed (spec.md §4.1).
type pool struct {
	mu        sync.Mutex
	endpoints []model.RPCEndpoint
	badUntil  []time.Time
	rng       *rand.Rand
}

func newPool(endpoints []model.RPCEndpoint) *pool {
	return &pool{
		endpoints: endpoints,
		badUntil:  make([]time.Time, len(endpoints)),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// pick returns the index of a weighted-randomly selected endpoint,
// skipping any currently marked bad. If all endpoints are bad, it picks
// among all of them anyway (a down network shouldn't wedge forever).
func (p *pool) pick() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	total := 0
	candidates := make([]int, 0, len(p.endpoints))
	for i, ep := range p.endpoints {
		if p.badUntil[i].After(now) {
			continue
		}
		w := ep.Weight
		if w <= 0 {
			w = 1
		}
		total += w
		candidates = append(candidates, i)
	}
	if len(candidates) == 0 {
		// Every endpoint is marked bad; fall back to the full set.
		for i, ep := range p.endpoints {
			w := ep.Weight
			if w <= 0 {
				w = 1
			}
			total += w
			candidates = append(candidates, i)
		}
	}

	r := p.rng.Intn(total)
	for _, i := range candidates {
		w := p.endpoints[i].Weight
		if w <= 0 {
			w = 1
		}
		if r < w {
			return i
		}
		r -= w
	}
	return candidates[len(candidates)-1]
}

// markBad marks endpoint i unusable for d, so the next pick rotates away
// from it.
func (p *pool) markBad(i int, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.badUntil) {
		return
	}
	p.badUntil[i] = time.Now().Add(d)
}

func (p *pool) url(i int) string {
	return p.endpoints[i].URL
}

func (p *pool) size() int {
	return len(p.endpoints)
}
