package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kkro1s/HongLouMeng/internal/apperr"
	"github.com/Kkro1s/HongLouMeng/internal/models"
)

func edge(s, t string, f int) models.AggregatedEdge {
	return models.AggregatedEdge{Source: s, Target: t, Frequency: f}
}

func TestBuild_MergesDuplicateKeys(t *testing.T) {
	g, err := Build(edge("薛寶釵", "賈寶玉", 5), edge("薛寶釵", "賈寶玉", 7))
	require.NoError(t, err)
	assert.Equal(t, 2, g.Order())
	assert.Equal(t, 1, g.Size())
	w, ok := g.Weight("薛寶釵", "賈寶玉")
	require.True(t, ok)
	assert.Equal(t, 12.0, w)
	_, ok = g.Weight("賈寶玉", "薛寶釵")
	assert.False(t, ok)
}

func TestBuild_MergesAcrossBatches(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add(edge("薛寶釵", "賈寶玉", 5)))
	require.NoError(t, b.Add(edge("薛寶釵", "賈寶玉", 7)))
	g := b.Build()
	w, _ := g.Weight("薛寶釵", "賈寶玉")
	assert.Equal(t, 12.0, w)
	assert.Len(t, g.Edges(), 1)
}

func TestBuild_Rejects(t *testing.T) {
	_, err := Build(edge("甲", "甲", 1))
	assert.True(t, errors.Is(err, apperr.ErrSelfLoop))

	_, err = Build(edge("", "甲", 1))
	assert.True(t, errors.Is(err, apperr.ErrMalformedEdge))

	_, err = Build(edge("甲", "乙", 0))
	assert.True(t, errors.Is(err, apperr.ErrMalformedEdge))

	b := NewBuilder()
	require.Error(t, b.Add(edge("甲", "乙", 1), edge("乙", "乙", 1)))
	assert.Equal(t, 0, b.Build().Order())
	assert.Error(t, b.AddNode(""))
}

func TestSingleNode(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode("薛寶釵"))
	g := b.Build()
	assert.Equal(t, 1, g.Order())
	assert.Equal(t, 0, g.Size())
	assert.Empty(t, g.Edges())
	assert.Empty(t, g.AggregatedEdges())
}

func TestAccessors(t *testing.T) {
	g, err := Build(
		edge("甲", "乙", 2),
		edge("甲", "丙", 1),
		edge("乙", "甲", 3),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"丙", "乙", "甲"}, g.Nodes())
	assert.Equal(t, []string{"丙", "乙"}, g.Successors("甲"))
	assert.Equal(t, []string{"乙"}, g.Predecessors("甲"))
	assert.Nil(t, g.Successors("丁"))
	id, ok := g.ID("乙")
	require.True(t, ok)
	assert.Equal(t, "乙", g.Name(id))
	assert.Equal(t, "", g.Name(99))
	assert.True(t, g.Has("丙"))
	assert.False(t, g.Has("丁"))
}

func TestRoundTrip(t *testing.T) {
	in := []models.AggregatedEdge{
		edge("薛寶釵", "賈寶玉", 9),
		edge("薛寶釵", "林黛玉", 4),
		edge("薛寶釵", "襲人", 4),
	}
	g, err := Build(in...)
	require.NoError(t, err)
	out := g.AggregatedEdges()
	require.Len(t, out, 3)
	for i := range in {
		assert.Equal(t, in[i].Key(), out[i].Key())
		assert.Equal(t, in[i].Frequency, out[i].Frequency)
	}
}

func TestUndirectedSumsReciprocalWeights(t *testing.T) {
	g, err := Build(edge("甲", "乙", 2), edge("乙", "甲", 3), edge("甲", "丙", 1))
	require.NoError(t, err)
	u := g.Undirected()
	a, _ := g.ID("甲")
	b, _ := g.ID("乙")
	c, _ := g.ID("丙")
	w, ok := u.Weight(a, b)
	require.True(t, ok)
	assert.Equal(t, 5.0, w)
	w, _ = u.Weight(c, a)
	assert.Equal(t, 1.0, w)
	assert.Equal(t, 2, u.Edges().Len())
}

func TestCostGraph(t *testing.T) {
	g, err := Build(edge("甲", "乙", 4))
	require.NoError(t, err)
	a, _ := g.ID("甲")
	b, _ := g.ID("乙")

	w, _ := g.CostGraph(CostWeight).Weight(a, b)
	assert.Equal(t, 4.0, w)
	w, _ = g.CostGraph(CostInverse).Weight(a, b)
	assert.Equal(t, 0.25, w)
}

func TestParsePathCost(t *testing.T) {
	c, err := ParsePathCost("")
	require.NoError(t, err)
	assert.Equal(t, CostWeight, c)
	c, err = ParsePathCost("inverse")
	require.NoError(t, err)
	assert.Equal(t, CostInverse, c)
	_, err = ParsePathCost("log")
	assert.Error(t, err)
}

func TestMarshalDOT(t *testing.T) {
	g, err := Build(edge("薛寶釵", "賈寶玉", 3))
	require.NoError(t, err)
	b, err := g.MarshalDOT("honglou")
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, "digraph honglou {")
	assert.Contains(t, s, "weight=3")
	assert.Contains(t, s, "薛寶釵")
}

func TestNodeLink(t *testing.T) {
	g, err := Build(edge("薛寶釵", "賈寶玉", 3))
	require.NoError(t, err)
	nl := g.NodeLink("薛寶釵")
	assert.True(t, nl.Directed)
	require.Len(t, nl.Nodes, 2)
	assert.Equal(t, NodeLinkNode{ID: "薛寶釵", Focal: true}, nl.Nodes[0])
	assert.Equal(t, []WeightedEdge{{Source: "薛寶釵", Target: "賈寶玉", Weight: 3}}, nl.Links)
}
