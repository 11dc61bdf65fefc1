// Package hotness keeps an exponentially decaying request count per H3 cell.
// The result cache uses it to admit only frequently requested areas into the
// shared tier.
package hotness

import (
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	numShards   = 64
	pruneBelow  = 0.01
	defaultSize = 4096
)

type Tracker struct {
	halfLife time.Duration
	now      func() time.Time
	// a shard at this size drops cells whose score decayed below pruneBelow
	maxPerShard int
	shards      [numShards]shard
}

type shard struct {
	mu sync.Mutex
	m  map[string]*counter
}

type counter struct {
	score float64
	last  time.Time
}

func New(halfLife time.Duration) *Tracker {
	if halfLife <= 0 {
		halfLife = time.Minute
	}
	t := &Tracker{halfLife: halfLife, now: time.Now, maxPerShard: defaultSize}
	for i := range t.shards {
		t.shards[i].m = make(map[string]*counter)
	}
	return t
}

// Touch records one request for cell and returns its score afterwards.
func (t *Tracker) Touch(cell string) float64 {
	if cell == "" {
		return 0
	}
	s := t.pick(cell)
	n := t.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.m[cell]
	if c == nil {
		if len(s.m) >= t.maxPerShard {
			s.prune(n, t.halfLife.Seconds())
		}
		s.m[cell] = &counter{score: 1, last: n}
		return 1
	}
	c.score = decay(c.score, n.Sub(c.last).Seconds(), t.halfLife.Seconds()) + 1
	c.last = n
	return c.score
}

// Score is the decayed score of cell without counting a request.
func (t *Tracker) Score(cell string) float64 {
	if cell == "" {
		return 0
	}
	s := t.pick(cell)
	n := t.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.m[cell]
	if c == nil {
		return 0
	}
	return decay(c.score, n.Sub(c.last).Seconds(), t.halfLife.Seconds())
}

// Len is the number of cells currently tracked.
func (t *Tracker) Len() int {
	total := 0
	for i := range t.shards {
		t.shards[i].mu.Lock()
		total += len(t.shards[i].m)
		t.shards[i].mu.Unlock()
	}
	return total
}

// caller holds s.mu
func (s *shard) prune(now time.Time, halfLife float64) {
	for cell, c := range s.m {
		if decay(c.score, now.Sub(c.last).Seconds(), halfLife) < pruneBelow {
			delete(s.m, cell)
		}
	}
}

// score * e^(-ln2/halfLife * dt)
func decay(score, dt, halfLife float64) float64 {
	if score == 0 || dt <= 0 || halfLife <= 0 {
		return score
	}
	return score * math.Exp(-math.Ln2/halfLife*dt)
}

func (t *Tracker) pick(cell string) *shard {
	h := xxhash.Sum64String(cell)
	return &t.shards[h&(numShards-1)]
}
