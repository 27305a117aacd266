package reportservice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kkro1s/HongLouMeng/internal/alias"
	"github.com/Kkro1s/HongLouMeng/internal/apperr"
	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/pipeline"
	"github.com/Kkro1s/HongLouMeng/internal/store"
	"github.com/Kkro1s/HongLouMeng/internal/testutil"
)

type stubRunner struct {
	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func (r *stubRunner) Focal() string { return testutil.Focal }

func (r *stubRunner) Refresh(_ context.Context, st pipeline.Store, _ bool) (*models.Report, error) {
	if r.block != nil {
		r.once.Do(func() { close(r.started) })
		<-r.block
	}
	rep := testutil.SampleReport("fresh")
	return rep, st.SaveReport(rep)
}

func newService(t *testing.T, runner Runner) *Service {
	t.Helper()
	db := testutil.TestDB(t)
	require.NoError(t, db.SaveReport(testutil.SampleReport("r1")))
	return NewService(db, alias.Default(), runner)
}

func TestResolveRun(t *testing.T) {
	s := newService(t, &stubRunner{})
	id, err := s.ResolveRun(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "r1", id)

	id, err = s.ResolveRun(context.Background(), "explicit")
	require.NoError(t, err)
	assert.Equal(t, "explicit", id)

	empty := NewService(testutil.TestDB(t), alias.Default(), nil)
	_, err = empty.ResolveRun(context.Background(), "")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestEdges(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()

	edges, run, err := s.Edges(ctx, "", EdgeFilter{})
	require.NoError(t, err)
	assert.Equal(t, "r1", run)
	assert.Len(t, edges, 2)

	edges, _, err = s.Edges(ctx, "", EdgeFilter{Character: "林妹妹"})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "林黛玉", edges[0].Target)

	edges, _, err = s.Edges(ctx, "", EdgeFilter{MinFrequency: 2})
	require.NoError(t, err)
	assert.Len(t, edges, 1)

	edges, _, err = s.Edges(ctx, "", EdgeFilter{Type: models.Action})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "賈寶玉", edges[0].Target)
}

func TestInteractions(t *testing.T) {
	s := newService(t, nil)
	events, total, err := s.Interactions(context.Background(), "r1", store.EventFilter{Target: "寶玉"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, events, 2)
}

func TestCharacter(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()

	d, err := s.Character(ctx, "", "寶兄弟")
	require.NoError(t, err)
	assert.Equal(t, "賈寶玉", d.ID)
	require.NotNil(t, d.Metrics)
	assert.Equal(t, 1, d.Metrics.InDegree)
	assert.Len(t, d.Edges, 1)

	d, err = s.Character(ctx, "", "晴雯")
	require.NoError(t, err)
	assert.Nil(t, d.Metrics)
	assert.Empty(t, d.Edges)

	_, err = s.Character(ctx, "", "孫悟空")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestFocalAndNetwork(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()

	f, err := s.Focal(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, testutil.Focal, f.Character)

	n, err := s.Network(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n.Properties.Nodes)
	assert.Equal(t, 1, n.TriadCensus["201"])
	assert.Len(t, n.Failures, 1)

	nl, err := s.Graph(ctx, "")
	require.NoError(t, err)
	assert.Len(t, nl.Nodes, 3)

	dot, err := s.DOT(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph honglou {")
}

func TestRefresh(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{}), started: make(chan struct{})}
	s := newService(t, runner)

	done := make(chan error, 1)
	go func() {
		_, err := s.Refresh(context.Background(), true)
		done <- err
	}()
	<-runner.started

	_, err := s.Refresh(context.Background(), true)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	close(runner.block)
	require.NoError(t, <-done)

	id, err := s.ResolveRun(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "fresh", id)

	_, err = NewService(testutil.TestDB(t), alias.Default(), nil).Refresh(context.Background(), false)
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	s := newService(t, &stubRunner{})
	events, edges, err := s.Extract(context.Background(), "寶釵笑道：寶玉來了。寶釵見了寶玉。", "", 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	require.Len(t, edges, 1)
	assert.Equal(t, 2, edges[0].Frequency)

	_, _, err = s.Extract(context.Background(), "x", "孫悟空", 0)
	assert.True(t, errors.Is(err, apperr.ErrUnknownCharacter))
}
