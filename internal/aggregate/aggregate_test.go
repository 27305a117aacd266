package aggregate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kkro1s/HongLouMeng/internal/models"
)

func ev(target string, chapter, idx int, typ models.InteractionType) models.InteractionEvent {
	return models.InteractionEvent{
		Source:        "薛寶釵",
		Target:        target,
		Chapter:       chapter,
		SentenceIndex: idx,
		Type:          typ,
		Context:       fmt.Sprintf("ctx-%d-%d", chapter, idx),
		Sentence:      fmt.Sprintf("s-%d-%d", chapter, idx),
	}
}

func sampleEvents() []models.InteractionEvent {
	return []models.InteractionEvent{
		ev("賈寶玉", 1, 0, models.Dialogue),
		ev("林黛玉", 1, 0, models.Dialogue),
		ev("賈寶玉", 1, 4, models.Action),
		ev("賈寶玉", 3, 2, models.CoOccurrence),
		ev("賈寶玉", 3, 9, models.Dialogue),
		ev("襲人", 5, 1, models.Action),
		ev("林黛玉", 5, 7, models.Action),
	}
}

func TestFold(t *testing.T) {
	edges := Fold(sampleEvents())
	require.Len(t, edges, 3)

	bao := edges[0]
	assert.Equal(t, "賈寶玉", bao.Target)
	assert.Equal(t, 4, bao.Frequency)
	assert.Equal(t, map[models.InteractionType]int{
		models.Dialogue:     2,
		models.Action:       1,
		models.CoOccurrence: 1,
	}, bao.Types)
	assert.Equal(t, []int{1, 3}, bao.Chapters)
	assert.Equal(t, []string{"ctx-1-0", "ctx-1-4", "ctx-3-2"}, bao.Contexts)

	assert.Equal(t, "林黛玉", edges[1].Target)
	assert.Equal(t, 2, edges[1].Frequency)
	assert.Equal(t, "襲人", edges[2].Target)
}

func TestFrequencyMatchesEventCount(t *testing.T) {
	events := sampleEvents()
	counts := map[models.EdgeKey]int{}
	for _, e := range events {
		counts[e.Key()]++
	}
	for _, edge := range Fold(events) {
		assert.Equal(t, counts[edge.Key()], edge.Frequency, edge.Key().String())
		assert.LessOrEqual(t, len(edge.Contexts), MaxContexts)
		sum := 0
		for _, n := range edge.Types {
			sum += n
		}
		assert.Equal(t, edge.Frequency, sum)
	}
}

func TestTieBreak(t *testing.T) {
	events := []models.InteractionEvent{
		ev("襲人", 1, 0, models.Action),
		ev("林黛玉", 1, 1, models.Action),
		ev("賈寶玉", 1, 2, models.Action),
	}
	edges := Fold(events)
	require.Len(t, edges, 3)
	assert.Equal(t, []string{"林黛玉", "襲人", "賈寶玉"}, []string{edges[0].Target, edges[1].Target, edges[2].Target})
}

func TestContextFallsBackToSentence(t *testing.T) {
	e := ev("賈寶玉", 1, 0, models.Dialogue)
	e.Context = ""
	edges := Fold([]models.InteractionEvent{e})
	assert.Equal(t, []string{"s-1-0"}, edges[0].Contexts)
}

func TestIdempotence(t *testing.T) {
	a := Fold(sampleEvents())
	b := Fold(sampleEvents())
	assert.Equal(t, a, b)
}

func TestMerge_MatchesSequential(t *testing.T) {
	events := sampleEvents()
	want := Fold(events)

	byChapter := map[int][]models.InteractionEvent{}
	for _, e := range events {
		byChapter[e.Chapter] = append(byChapter[e.Chapter], e)
	}
	orders := [][]int{{1, 3, 5}, {5, 3, 1}, {3, 1, 5}}
	for _, order := range orders {
		s := New()
		for _, c := range order {
			part := New()
			part.Add(byChapter[c]...)
			s.Merge(part)
		}
		assert.Equal(t, want, s.Edges(), "order %v", order)
	}
}

func TestMerge_Associative(t *testing.T) {
	events := sampleEvents()
	a, b, c := New(), New(), New()
	a.Add(events[:2]...)
	b.Add(events[2:5]...)
	c.Add(events[5:]...)

	left := New()
	left.Merge(a)
	left.Merge(b)
	left.Merge(c)

	bc := New()
	bc.Merge(b)
	bc.Merge(c)
	right := New()
	right.Merge(a)
	right.Merge(bc)

	assert.Equal(t, left.Edges(), right.Edges())
	assert.Equal(t, 7, left.Total())
	assert.Equal(t, 3, left.Len())
}

func TestMerge_LeavesOtherUnchanged(t *testing.T) {
	a := New()
	a.Add(sampleEvents()[:1]...)
	b := New()
	b.Add(sampleEvents()[2:4]...)
	before := b.Edges()
	a.Merge(b)
	a.Merge(nil)
	assert.Equal(t, before, b.Edges())
	assert.Equal(t, 3, a.Edges()[0].Frequency)
}

func TestEmpty(t *testing.T) {
	assert.Empty(t, Fold(nil))
	assert.Equal(t, 0, New().Total())
}
