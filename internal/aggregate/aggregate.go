// Package aggregate folds interaction events into per-pair summaries.
package aggregate

import (
	"cmp"
	"maps"
	"slices"

	"github.com/Kkro1s/HongLouMeng/internal/models"
)

// MaxContexts is the number of context samples kept per edge.
const MaxContexts = 3

type sample struct {
	chapter int
	index   int
	seq     int
	context string
}

func compareSamples(a, b sample) int {
	return cmp.Or(
		cmp.Compare(a.chapter, b.chapter),
		cmp.Compare(a.index, b.index),
		cmp.Compare(a.seq, b.seq),
		cmp.Compare(a.context, b.context),
	)
}

type entry struct {
	frequency int
	types     map[models.InteractionType]int
	chapters  map[int]struct{}
	samples   []sample
}

func newEntry() *entry {
	return &entry{
		types:    make(map[models.InteractionType]int),
		chapters: make(map[int]struct{}),
	}
}

// keep inserts s and retains only the earliest MaxContexts samples.
func (e *entry) keep(s ...sample) {
	e.samples = append(e.samples, s...)
	slices.SortFunc(e.samples, compareSamples)
	if len(e.samples) > MaxContexts {
		e.samples = e.samples[:MaxContexts]
	}
}

// Set accumulates events keyed by (source, target). Merging two Sets is
// commutative and associative, so chapters may be folded independently and
// combined in any order. A Set is not safe for concurrent use.
type Set struct {
	edges map[models.EdgeKey]*entry
	seq   int
}

// New returns an empty Set.
func New() *Set {
	return &Set{edges: make(map[models.EdgeKey]*entry)}
}

// Add folds events into the set.
func (s *Set) Add(events ...models.InteractionEvent) {
	for _, ev := range events {
		k := ev.Key()
		e, ok := s.edges[k]
		if !ok {
			e = newEntry()
			s.edges[k] = e
		}
		e.frequency++
		e.types[ev.Type]++
		e.chapters[ev.Chapter] = struct{}{}
		ctx := ev.Context
		if ctx == "" {
			ctx = ev.Sentence
		}
		e.keep(sample{chapter: ev.Chapter, index: ev.SentenceIndex, seq: s.seq, context: ctx})
		s.seq++
	}
}

// Merge folds other into s. other is left unchanged.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for k, o := range other.edges {
		e, ok := s.edges[k]
		if !ok {
			e = newEntry()
			s.edges[k] = e
		}
		e.frequency += o.frequency
		for t, n := range o.types {
			e.types[t] += n
		}
		for c := range o.chapters {
			e.chapters[c] = struct{}{}
		}
		e.keep(o.samples...)
	}
	s.seq = max(s.seq, other.seq)
}

// Len returns the number of distinct keys.
func (s *Set) Len() int {
	return len(s.edges)
}

// Total returns the number of events folded in.
func (s *Set) Total() int {
	n := 0
	for _, e := range s.edges {
		n += e.frequency
	}
	return n
}

// Edges returns one AggregatedEdge per key, ordered by frequency descending,
// then source and target ascending.
func (s *Set) Edges() []models.AggregatedEdge {
	out := make([]models.AggregatedEdge, 0, len(s.edges))
	for k, e := range s.edges {
		contexts := make([]string, len(e.samples))
		for i, smp := range e.samples {
			contexts[i] = smp.context
		}
		out = append(out, models.AggregatedEdge{
			Source:    k.Source,
			Target:    k.Target,
			Frequency: e.frequency,
			Types:     maps.Clone(e.types),
			Chapters:  slices.Sorted(maps.Keys(e.chapters)),
			Contexts:  contexts,
		})
	}
	slices.SortFunc(out, Compare)
	return out
}

// Compare orders edges by frequency descending, then source and target ascending.
func Compare(a, b models.AggregatedEdge) int {
	return cmp.Or(
		cmp.Compare(b.Frequency, a.Frequency),
		cmp.Compare(a.Source, b.Source),
		cmp.Compare(a.Target, b.Target),
	)
}

// Fold aggregates events in one pass.
func Fold(events []models.InteractionEvent) []models.AggregatedEdge {
	s := New()
	s.Add(events...)
	return s.Edges()
}
