package internal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Kkro1s/HongLouMeng/internal/export"
	"github.com/Kkro1s/HongLouMeng/internal/store"
	"github.com/Kkro1s/HongLouMeng/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir, _ := testutil.TestCorpus(t, testutil.SampleChapters)
	tmp := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Corpus.Path = dir
	cfg.Corpus.SelectTop = 0
	cfg.Output.Path = filepath.Join(tmp, "out")
	cfg.SQLite.Path = filepath.Join(tmp, "honglou.db")
	cfg.Characters.Focal = "寶姐姐"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestAnalyze_StoresAndExports(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	opts := []Option{WithConfig(cfg), WithLogOutput(io.Discard)}

	if err := Analyze(ctx, opts...); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	// Unchanged corpus: second run is skipped.
	if err := Analyze(ctx, opts...); err != nil {
		t.Fatalf("Analyze again: %v", err)
	}
	if err := Analyze(ctx, append(opts, WithForce(true))...); err != nil {
		t.Fatalf("Analyze forced: %v", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	runs, total, err := db.ListRuns(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(runs) != 2 {
		t.Fatalf("runs = %d (total %d), want 2", len(runs), total)
	}
	if runs[0].FocalCharacter != testutil.Focal {
		t.Errorf("focal = %q, want %q", runs[0].FocalCharacter, testutil.Focal)
	}

	for _, name := range []string{export.FileInteractionsCSV, export.FileRun, export.FocalFile(testutil.Focal)} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Path, name)); err != nil {
			t.Errorf("missing export %s: %v", name, err)
		}
	}
}

func TestChapters_SelectsByMentions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Corpus.SelectTop = 1

	stats, chosen, err := Chapters(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	if len(stats) != 3 {
		t.Errorf("stats = %d, want 3", len(stats))
	}
	if len(chosen) != 1 || chosen[0] != 1 {
		t.Errorf("chosen = %v, want [1]", chosen)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Path, export.FileSelection)); err != nil {
		t.Errorf("selection not written: %v", err)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}
