// Package extract turns chapter text into sentence-level interaction events.
package extract

import (
	"fmt"
	"slices"

	"github.com/Kkro1s/HongLouMeng/internal/alias"
	"github.com/Kkro1s/HongLouMeng/internal/apperr"
	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/segment"
)

// Extractor finds the focal character's co-presence with other characters.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	table  *alias.Table
	focal  string
	rules  Rules
	split  func(string) []string
	before int
	after  int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRules replaces the classification table.
func WithRules(rules Rules) Option {
	return func(e *Extractor) {
		e.rules = rules
	}
}

// WithSegmenter replaces the sentence splitter.
func WithSegmenter(split func(string) []string) Option {
	return func(e *Extractor) {
		e.split = split
	}
}

// New returns an Extractor for focal, which must be a character of table.
func New(table *alias.Table, focal string, opts ...Option) (*Extractor, error) {
	if table == nil {
		return nil, apperr.ErrEmptyTable
	}
	if !table.Has(focal) {
		return nil, fmt.Errorf("extract: focal %q: %w", focal, apperr.ErrUnknownCharacter)
	}
	e := &Extractor{
		table:  table,
		focal:  focal,
		rules:  DefaultRules,
		split:  segment.Split,
		before: 1,
		after:  1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Focal returns the focal character id.
func (e *Extractor) Focal() string {
	return e.focal
}

// Rules returns the classification table in use.
func (e *Extractor) Rules() Rules {
	return e.rules
}

// Chapter extracts every event in ch. Events come in sentence order, and within
// a sentence in ascending target order.
func (e *Extractor) Chapter(ch models.Chapter) []models.InteractionEvent {
	return e.Text(ch.Number, ch.Text)
}

// Text extracts events from text attributed to chapter.
func (e *Extractor) Text(chapter int, text string) []models.InteractionEvent {
	sentences := e.split(text)
	var out []models.InteractionEvent
	for i, sentence := range sentences {
		present := e.table.Present(sentence)
		if !slices.Contains(present, e.focal) {
			continue
		}
		var (
			typ models.InteractionType
			ctx string
		)
		for _, other := range present {
			if other == e.focal {
				continue
			}
			if ctx == "" {
				typ = e.rules.Classify(sentence)
				ctx = segment.Join(segment.Window(sentences, i, e.before, e.after))
			}
			out = append(out, models.InteractionEvent{
				Source:        e.focal,
				Target:        other,
				Chapter:       chapter,
				SentenceIndex: i,
				Type:          typ,
				Context:       ctx,
				Sentence:      sentence,
			})
		}
	}
	return out
}
