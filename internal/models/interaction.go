// Package models defines the domain types shared by every pipeline stage.
package models

import (
	"fmt"
	"strings"
)

// InteractionType classifies a sentence-level interaction.
type InteractionType string

const (
	Dialogue     InteractionType = "dialogue"
	Action       InteractionType = "action"
	CoOccurrence InteractionType = "co_occurrence"
)

// InteractionTypes lists every type in classification priority order.
var InteractionTypes = []InteractionType{Dialogue, Action, CoOccurrence}

// Valid reports whether t is one of the known interaction types.
func (t InteractionType) Valid() bool {
	switch t {
	case Dialogue, Action, CoOccurrence:
		return true
	}
	return false
}

// Character is a canonical identity together with its surface variants.
type Character struct {
	ID      string   `json:"id" yaml:"id"`
	Aliases []string `json:"aliases" yaml:"aliases"`
}

// Chapter is one cleaned chapter of the corpus.
type Chapter struct {
	Number   int    `json:"chapter"`
	Path     string `json:"path,omitempty"`
	Checksum string `json:"checksum,omitempty"`
	Text     string `json:"-"`
}

// InteractionEvent is one sentence-level observation of two characters together.
type InteractionEvent struct {
	Source        string          `json:"source"`
	Target        string          `json:"target"`
	Chapter       int             `json:"chapter"`
	SentenceIndex int             `json:"sentence_index"`
	Type          InteractionType `json:"type"`
	Context       string          `json:"context"`
	Sentence      string          `json:"sentence"`
}

// EdgeKey identifies an ordered (source, target) pair.
type EdgeKey struct {
	Source string
	Target string
}

func (k EdgeKey) String() string {
	return k.Source + "->" + k.Target
}

// Key returns the aggregation key of the event.
func (e InteractionEvent) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target}
}

// AggregatedEdge is the summarized relationship for one (source, target) pair.
type AggregatedEdge struct {
	Source    string                  `json:"source"`
	Target    string                  `json:"target"`
	Frequency int                     `json:"frequency"`
	Types     map[InteractionType]int `json:"types"`
	Chapters  []int                   `json:"chapters"`
	Contexts  []string                `json:"contexts"`
}

// Key returns the unique key of the edge.
func (e AggregatedEdge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target}
}

// TypeSummary renders the histogram as "dialogue(3)、action(1)" in priority order.
func (e AggregatedEdge) TypeSummary() string {
	parts := make([]string, 0, len(e.Types))
	for _, t := range InteractionTypes {
		if n := e.Types[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s(%d)", t, n))
		}
	}
	return strings.Join(parts, "、")
}
