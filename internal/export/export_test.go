package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kkro1s/HongLouMeng/internal/corpus"
	"github.com/Kkro1s/HongLouMeng/internal/graph"
	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/testutil"
)

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, utf8BOM), "missing BOM")
	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestInteractionsCSV(t *testing.T) {
	r := testutil.SampleReport("r1")
	data, err := InteractionsCSV(r.Edges)
	require.NoError(t, err)

	rows := readCSV(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, "Interaction_Types", rows[0][3])
	assert.Equal(t, []string{
		"薛寶釵", "賈寶玉", "2", "dialogue(1)、action(1)", "1、2", "2",
		"寶釵笑道：寶玉來了。黛玉在旁坐著", "寶釵見了寶玉", "",
	}, rows[1])
}

func TestMetricsCSV(t *testing.T) {
	r := testutil.SampleReport("r1")
	data, err := MetricsCSV(r.Nodes)
	require.NoError(t, err)

	rows := readCSV(t, data)
	require.Len(t, rows, 4)
	assert.Len(t, rows[0], len(metricColumns))
	assert.Equal(t, "character", rows[0][0])
	assert.Equal(t, "薛寶釵", rows[1][0])
	assert.Equal(t, "0.4", rows[2][11]) // pagerank
}

func TestExport(t *testing.T) {
	dir, fs := testutil.TestCorpus(t, nil)
	e := New(fs, WithDir("out"))
	r := testutil.SampleReport("r1")
	require.NoError(t, e.Export(r))

	for _, name := range []string{
		FileInteractionsCSV, FileInteractionsJSON, FileMetricsCSV, FileNetwork,
		FileTriads, FileDOT, FileNodeLink, FileRun, FocalFile(testutil.Focal),
	} {
		_, err := os.Stat(filepath.Join(dir, "out", name))
		assert.NoError(t, err, name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "out", FocalFile(testutil.Focal)))
	require.NoError(t, err)
	var focal models.MetricsRecord
	require.NoError(t, json.Unmarshal(raw, &focal))
	assert.Equal(t, 2, focal.OutDegree)

	raw, err = os.ReadFile(filepath.Join(dir, "out", FileNodeLink))
	require.NoError(t, err)
	var nl graph.NodeLink
	require.NoError(t, json.Unmarshal(raw, &nl))
	assert.True(t, nl.Directed)
	assert.Len(t, nl.Nodes, 3)
	assert.Len(t, nl.Links, 2)

	raw, err = os.ReadFile(filepath.Join(dir, "out", FileDOT))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "digraph honglou {")
}

func TestExport_RejectsSelfLoop(t *testing.T) {
	_, fs := testutil.TestCorpus(t, nil)
	r := testutil.SampleReport("bad")
	r.Edges = append(r.Edges, models.AggregatedEdge{Source: "甲", Target: "甲", Frequency: 1})
	assert.Error(t, New(fs).Export(r))
}

func TestSelection(t *testing.T) {
	dir, fs := testutil.TestCorpus(t, nil)
	stats := []corpus.Stat{
		{Chapter: 8, Mentions: 40, Length: 10000, Density: 4},
		{Chapter: 3, Mentions: 5, Length: 5000, Density: 1},
	}
	require.NoError(t, New(fs).Selection(stats, []int{8}))

	raw, err := os.ReadFile(filepath.Join(dir, FileSelection))
	require.NoError(t, err)
	var doc struct {
		Selected []int `json:"selected_chapters"`
		Mentions int   `json:"total_mentions"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, []int{8}, doc.Selected)
	assert.Equal(t, 40, doc.Mentions)

	raw, err = os.ReadFile(filepath.Join(dir, FileChapterStats))
	require.NoError(t, err)
	rows := readCSV(t, raw)
	assert.Len(t, rows, 3)
	assert.Equal(t, "4.0000", rows[1][3])
}
