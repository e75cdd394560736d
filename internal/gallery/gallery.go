// Package gallery holds the in-memory collection of enrolled face
// encodings and answers nearest-neighbor queries against it.
package gallery

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/ondrejvana/rollcall/internal/store"
)

// hnswMaxNeighbors is the M parameter of the HNSW graph.
const hnswMaxNeighbors = 16

// hnswMinEntries is the gallery size above which searches go through the
// HNSW graph instead of a linear scan. Small rosters scan faster than they
// index.
const hnswMinEntries = 64

// Match is the result of a gallery lookup.
type Match struct {
	StudentID string  `json:"student_id"`
	Distance  float64 `json:"distance"`
}

// Gallery maps student identifiers to their face encodings. Thread-safe.
type Gallery struct {
	mu        sync.RWMutex
	threshold float64
	entries   map[string][]float32
	graph     *hnsw.Graph[string]
}

// New creates an empty gallery accepting matches below threshold.
func New(threshold float64) *Gallery {
	return &Gallery{
		threshold: threshold,
		entries:   make(map[string][]float32),
	}
}

// Load replaces the gallery contents with the given stored encodings.
func (g *Gallery) Load(encodings []store.Encoding) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entries = make(map[string][]float32, len(encodings))
	for _, enc := range encodings {
		if len(enc.Vector) == 0 {
			continue
		}
		g.entries[enc.StudentID] = enc.Vector
	}
	g.rebuildGraph()
}

// Add inserts or replaces the encoding for a student.
func (g *Gallery) Add(studentID string, vector []float32) {
	if len(vector) == 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	_, existed := g.entries[studentID]
	g.entries[studentID] = vector

	if existed {
		// HNSW does not support replacing a node, rebuild instead.
		g.rebuildGraph()
		return
	}
	if g.graph != nil {
		g.graph.Add(hnsw.MakeNode(studentID, vector))
	}
}

// Remove deletes a student's encoding. The HNSW node stays in the graph
// but is filtered out of results by the entries lookup.
func (g *Gallery) Remove(studentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, studentID)
}

// Size returns the number of enrolled encodings.
func (g *Gallery) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// Threshold returns the configured match threshold.
func (g *Gallery) Threshold() float64 {
	return g.threshold
}

// Nearest returns the closest gallery entry to the probe regardless of
// threshold. Returns false for an empty gallery.
func (g *Gallery) Nearest(probe []float32) (Match, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.entries) == 0 {
		return Match{}, false
	}

	if g.graph != nil && len(g.entries) >= hnswMinEntries {
		if m, ok := g.searchGraph(probe); ok {
			return m, true
		}
	}
	return g.scan(probe)
}

// Match returns the nearest gallery entry if its distance is below the
// threshold, and false otherwise. At most one identifier per probe.
func (g *Gallery) Match(probe []float32) (Match, bool) {
	m, ok := g.Nearest(probe)
	if !ok || m.Distance > g.threshold {
		return Match{}, false
	}
	return m, true
}

// scan is the linear fallback. Caller holds at least a read lock.
func (g *Gallery) scan(probe []float32) (Match, bool) {
	best := Match{Distance: -1}
	for id, vec := range g.entries {
		d := EuclideanDistance(probe, vec)
		if best.Distance < 0 || d < best.Distance {
			best = Match{StudentID: id, Distance: d}
		}
	}
	return best, best.Distance >= 0
}

// searchGraph queries the HNSW graph, skipping nodes whose student has
// been removed from the gallery. Caller holds at least a read lock.
func (g *Gallery) searchGraph(probe []float32) (Match, bool) {
	// Overfetch so removed entries can be filtered out.
	neighbors := g.graph.Search(probe, 4)
	for _, n := range neighbors {
		vec, ok := g.entries[n.Key]
		if !ok {
			continue
		}
		return Match{StudentID: n.Key, Distance: EuclideanDistance(probe, vec)}, true
	}
	return Match{}, false
}

// rebuildGraph reconstructs the HNSW graph from entries. Caller holds the
// write lock.
func (g *Gallery) rebuildGraph() {
	if len(g.entries) == 0 {
		g.graph = nil
		return
	}

	graph := hnsw.NewGraph[string]()
	graph.M = hnswMaxNeighbors
	graph.Ml = 1.0 / float64(hnswMaxNeighbors)
	graph.Distance = hnsw.EuclideanDistance

	for id, vec := range g.entries {
		graph.Add(hnsw.MakeNode(id, vec))
	}
	g.graph = graph
}
