// Package testutil provides shared test helpers for corpora, databases and reports.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/storage"
	"github.com/Kkro1s/HongLouMeng/internal/store"
)

// Focal is the focal character used by the sample corpus.
const Focal = "薛寶釵"

// SampleChapters is a three-chapter corpus. Chapter 1 has a dialogue with 賈寶玉
// and a co-occurrence with 林黛玉, chapter 2 an action with 賈寶玉, chapter 3
// no focal mention.
var SampleChapters = map[string]string{
	"ch001.txt": "寶釵笑道：寶玉來了。\n黛玉在旁坐著。\n寶釵與黛玉同坐。",
	"ch002.txt": "寶釵見了寶玉。",
	"ch003.txt": "黛玉獨自垂淚。",
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "honglou-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestCorpus writes files into a temporary directory and returns it with a
// storage.Provider rooted there.
func TestCorpus(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		WriteFile(t, dir, name, body)
	}
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// WriteFile writes body to dir/name, creating parent directories.
func WriteFile(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// SampleReport is a small hand-built report around Focal.
func SampleReport(runID string) *models.Report {
	focal := models.MetricsRecord{Character: Focal, Degree: 2, OutDegree: 2, WeightedDegree: 3, WeightedOutDegree: 3, DegreeCentrality: 1, Community: 0}
	return &models.Report{
		RunID:          runID,
		FocalCharacter: Focal,
		CreatedAt:      time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		CorpusChecksum: "sum-" + runID,
		Chapters:       []int{1, 2},
		Events: []models.InteractionEvent{
			{Source: Focal, Target: "賈寶玉", Chapter: 1, SentenceIndex: 0, Type: models.Dialogue, Context: "寶釵笑道：寶玉來了。黛玉在旁坐著", Sentence: "寶釵笑道：寶玉來了"},
			{Source: Focal, Target: "林黛玉", Chapter: 1, SentenceIndex: 2, Type: models.CoOccurrence, Context: "黛玉在旁坐著。寶釵與黛玉同坐", Sentence: "寶釵與黛玉同坐"},
			{Source: Focal, Target: "賈寶玉", Chapter: 2, SentenceIndex: 0, Type: models.Action, Context: "寶釵見了寶玉", Sentence: "寶釵見了寶玉"},
		},
		Edges: []models.AggregatedEdge{
			{Source: Focal, Target: "賈寶玉", Frequency: 2, Types: map[models.InteractionType]int{models.Dialogue: 1, models.Action: 1}, Chapters: []int{1, 2}, Contexts: []string{"寶釵笑道：寶玉來了。黛玉在旁坐著", "寶釵見了寶玉"}},
			{Source: Focal, Target: "林黛玉", Frequency: 1, Types: map[models.InteractionType]int{models.CoOccurrence: 1}, Chapters: []int{1}, Contexts: []string{"黛玉在旁坐著。寶釵與黛玉同坐"}},
		},
		Nodes: []models.MetricsRecord{
			focal,
			{Character: "賈寶玉", Degree: 1, InDegree: 1, WeightedDegree: 2, WeightedInDegree: 2, DegreeCentrality: 0.5, PageRank: 0.4, Community: 0},
			{Character: "林黛玉", Degree: 1, InDegree: 1, WeightedDegree: 1, WeightedInDegree: 1, DegreeCentrality: 0.5, PageRank: 0.3, Community: 0},
		},
		Focal:       &focal,
		Network:     models.NetworkProperties{Nodes: 3, Edges: 2, Density: 1.0 / 3, AvgDegree: 4.0 / 3, MinDegree: 1, MaxDegree: 2, WeaklyConnected: true, StrongComponents: 3, WeakComponents: 1},
		TriadCensus: map[string]int{"003": 0, "102": 0, "201": 1, "300": 0},
		Failures:    []models.MetricFailure{{Metric: "eigenvector_centrality", Reason: "did not converge"}},
	}
}
