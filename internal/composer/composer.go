// Package composer merges causally related rendered events (a review and its
// inline comments, a discussion and its replies) into a bounded number of
// notifications.
package composer

import (
	"strings"

	"github.com/notifyhub/github-relay/internal/domain"
)

const (
	// ChunkSize is the maximum number of sub views merged into one notification.
	ChunkSize = 10
	// Separator joins the main view and each merged sub view.
	Separator = "\n\n***\n\n"
)

// Accumulator collects the views sharing one composite key.
type Accumulator struct {
	key  domain.CompositeKey
	main *domain.RenderedResult
	subs []domain.RenderedResult
}

func NewAccumulator(key domain.CompositeKey) *Accumulator {
	return &Accumulator{key: key}
}

func (a *Accumulator) Key() domain.CompositeKey { return a.key }

// SetMain stores the root view. The last call wins; replaced reports whether
// an earlier main view was discarded.
func (a *Accumulator) SetMain(r domain.RenderedResult) (replaced bool) {
	replaced = a.main != nil
	a.main = &r
	return replaced
}

// AddSub appends a reply view, preserving arrival order.
func (a *Accumulator) AddSub(r domain.RenderedResult) {
	a.subs = append(a.subs, r)
}

// Results flattens the accumulator into the notifications to deliver.
func (a *Accumulator) Results() []domain.RenderedResult {
	switch {
	case a.main != nil && len(a.subs) == 0:
		return []domain.RenderedResult{*a.main}
	case a.main != nil:
		var out []domain.RenderedResult
		for _, c := range chunk(a.subs, ChunkSize) {
			out = append(out, merge(*a.main, c))
		}
		return out
	case len(a.subs) == 1:
		return []domain.RenderedResult{a.subs[0]}
	case len(a.subs) > 1:
		var out []domain.RenderedResult
		for _, c := range chunk(a.subs, ChunkSize) {
			if len(c) == 1 {
				out = append(out, c[0])
				continue
			}
			out = append(out, merge(c[0], c[1:]))
		}
		return out
	}
	return nil
}

// merge builds one notification carrying main's title and event name,
// followed by each sub view's compact text (or full text).
func merge(main domain.RenderedResult, subs []domain.RenderedResult) domain.RenderedResult {
	parts := make([]string, 0, len(subs)+1)
	parts = append(parts, main.Markdown.Text)
	for _, s := range subs {
		if s.Markdown.CompactText != "" {
			parts = append(parts, s.Markdown.CompactText)
		} else {
			parts = append(parts, s.Markdown.Text)
		}
	}
	return domain.RenderedResult{
		EventName: main.EventName,
		Markdown: domain.Markdown{
			Title: main.Markdown.Title,
			Text:  strings.Join(parts, Separator),
		},
	}
}

func chunk(items []domain.RenderedResult, size int) [][]domain.RenderedResult {
	var out [][]domain.RenderedResult
	for size < len(items) {
		items, out = items[size:], append(out, items[:size:size])
	}
	return append(out, items)
}

// Set holds the accumulators of one destination group for one batch.
// It is not safe for concurrent use.
type Set struct {
	order []string
	byKey map[string]*Accumulator
}

func NewSet() *Set {
	return &Set{byKey: make(map[string]*Accumulator)}
}

// Get returns the accumulator for key, creating it on first use.
func (s *Set) Get(key domain.CompositeKey) *Accumulator {
	k := key.String()
	acc, ok := s.byKey[k]
	if !ok {
		acc = NewAccumulator(key)
		s.byKey[k] = acc
		s.order = append(s.order, k)
	}
	return acc
}

func (s *Set) Len() int { return len(s.order) }

// Results flattens every accumulator in the order its key was first seen.
func (s *Set) Results() []domain.RenderedResult {
	var out []domain.RenderedResult
	for _, k := range s.order {
		out = append(out, s.byKey[k].Results()...)
	}
	return out
}
