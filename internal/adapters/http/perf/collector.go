package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// EntryKind distinguishes request vs query entries.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Kind       EntryKind
	Label      string // "METHOD /route/{pattern}" or "VERB table"
	StatusCode int    // 0 for queries
	Failed     bool   // 5xx response or query error
	DurationMs float64
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer of timing entries.
// When full, the oldest entries are overwritten. Aggregation happens on read.
type Collector struct {
	mu       sync.Mutex
	entries  []Entry
	size     int
	pos      int
	requests int64
	queries  int64
}

// NewCollector creates a collector with the given ring buffer capacity.
// PRE: size > 0, otherwise DefaultRingSize is used
// POST: Returns a ready-to-use collector with pre-allocated storage
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Record appends an entry to the ring buffer.
// POST: Entry stored; if buffer full, oldest entry overwritten
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % c.size
	c.mu.Unlock()
	if e.Kind == KindQuery {
		atomic.AddInt64(&c.queries, 1)
	} else {
		atomic.AddInt64(&c.requests, 1)
	}
}

// TotalRecorded returns the number of entries ever recorded, of both kinds.
func (c *Collector) TotalRecorded() int64 {
	return atomic.LoadInt64(&c.requests) + atomic.LoadInt64(&c.queries)
}

// Snapshot is the aggregated view served by the admin perf endpoint.
type Snapshot struct {
	Since          time.Time `json:"since"`
	TotalRequests  int64     `json:"total_requests"`
	TotalQueries   int64     `json:"total_queries"`
	RequestP50Ms   float64   `json:"request_p50_ms"`
	RequestP95Ms   float64   `json:"request_p95_ms"`
	RequestP99Ms   float64   `json:"request_p99_ms"`
	SlowestRoutes  []Stat    `json:"slowest_routes"`
	SlowestQueries []Stat    `json:"slowest_queries"`
}

// Stat aggregates timing for one route or query label.
type Stat struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Failed  int     `json:"failed"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	TotalMs float64 `json:"-"`
}

// Snapshot aggregates the buffered entries recorded at or after since.
// Totals count every entry ever recorded; percentiles and top lists only see
// what is still buffered.
// POST: SlowestRoutes and SlowestQueries hold at most topN entries, slowest average first
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, c.size)
	copy(buf, c.entries)
	c.mu.Unlock()

	var durations []float64
	routes := make(map[string]*Stat)
	queries := make(map[string]*Stat)

	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		stats := routes
		if e.Kind == KindQuery {
			stats = queries
		} else {
			durations = append(durations, e.DurationMs)
		}
		s, ok := stats[e.Label]
		if !ok {
			s = &Stat{Label: e.Label}
			stats[e.Label] = s
		}
		s.add(e)
	}

	snap := Snapshot{
		Since:          since,
		TotalRequests:  atomic.LoadInt64(&c.requests),
		TotalQueries:   atomic.LoadInt64(&c.queries),
		SlowestRoutes:  topByAvg(routes, topN),
		SlowestQueries: topByAvg(queries, topN),
	}
	if len(durations) > 0 {
		sort.Float64s(durations)
		snap.RequestP50Ms = percentile(durations, 50)
		snap.RequestP95Ms = percentile(durations, 95)
		snap.RequestP99Ms = percentile(durations, 99)
	}
	return snap
}

func (s *Stat) add(e Entry) {
	s.Count++
	s.TotalMs += e.DurationMs
	s.AvgMs = s.TotalMs / float64(s.Count)
	if e.DurationMs > s.MaxMs {
		s.MaxMs = e.DurationMs
	}
	if e.Failed {
		s.Failed++
	}
}

// percentile interpolates the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func topByAvg(stats map[string]*Stat, n int) []Stat {
	list := make([]Stat, 0, len(stats))
	for _, s := range stats {
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs == list[j].AvgMs {
			return list[i].Label < list[j].Label
		}
		return list[i].AvgMs > list[j].AvgMs
	})
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	return list
}
