package corpus

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kkro1s/HongLouMeng/internal/alias"
	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/storage"
)

func writeCorpus(t *testing.T, files map[string]string) *storage.FS {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	fs, err := storage.NewFS(dir)
	require.NoError(t, err)
	return fs
}

func TestDiscover(t *testing.T) {
	fs := writeCorpus(t, map[string]string{
		"ch010.txt":   "十",
		"ch002.txt":   "二",
		"ch002_b.txt": "dup",
		"notes.txt":   "skip",
		"ch003.md":    "skip",
	})
	files, err := NewLoader(fs).Discover()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, 2, files[0].Number)
	assert.Equal(t, "ch002.txt", files[0].Path)
	assert.Equal(t, 10, files[1].Number)
}

func TestDiscover_Pattern(t *testing.T) {
	fs := writeCorpus(t, map[string]string{"chapter-7.txt": "七"})
	files, err := NewLoader(fs, WithPattern(regexp.MustCompile(`^chapter-(\d+)`))).Discover()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 7, files[0].Number)
}

func TestLoad_SkipsMissing(t *testing.T) {
	fs := writeCorpus(t, map[string]string{
		"ch001.txt": "寶釵來了",
		"ch003.txt": "黛玉去了",
	})
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	res, err := NewLoader(fs, WithLogger(logger)).Load([]int{3, 2, 1, 3})
	require.NoError(t, err)
	require.Len(t, res.Chapters, 2)
	assert.Equal(t, 1, res.Chapters[0].Number)
	assert.Equal(t, "寶釵來了", res.Chapters[0].Text)
	assert.Equal(t, 3, res.Chapters[1].Number)
	assert.Equal(t, []int{2}, res.Missing)
	assert.NotEmpty(t, res.Checksum)
	assert.Contains(t, buf.String(), "chapter file not found")
}

func TestLoad_AllAndFingerprint(t *testing.T) {
	fs := writeCorpus(t, map[string]string{"ch001.txt": "a", "ch002.txt": "b"})
	l := NewLoader(fs)
	first, err := l.Load(nil)
	require.NoError(t, err)
	assert.Len(t, first.Chapters, 2)

	again, err := l.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, first.Checksum, again.Checksum)

	require.NoError(t, fs.Write("ch002.txt", []byte("changed")))
	changed, err := l.Load(nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.Checksum, changed.Checksum)
}

func TestLoad_EmptyCorpus(t *testing.T) {
	res, err := NewLoader(writeCorpus(t, nil)).Load(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Chapters)
	assert.Empty(t, res.Missing)
}

func TestClean(t *testing.T) {
	in := "《金寡婦貪利權受辱　張太醫論病細窮源》\n  話說寶釵。  \n\n\n\n  黛玉來了  \n"
	assert.Equal(t, "話說寶釵。\n\n黛玉來了", Clean(in))
	assert.Equal(t, "", Clean("  \n\n "))
}

func TestSelect(t *testing.T) {
	chapters := []models.Chapter{
		{Number: 1, Text: "寶釵"},
		{Number: 2, Text: "寶釵寶姐姐寶丫頭"},
		{Number: 3, Text: "黛玉"},
		{Number: 4, Text: "寶釵寶釵"},
		{Number: 5, Text: "寶姐姐"},
	}
	stats, chosen := Select(chapters, alias.Default(), "薛寶釵", 3)
	assert.Equal(t, []int{1, 2, 4}, chosen)
	require.Len(t, stats, 5)
	assert.Equal(t, 2, stats[0].Chapter)
	assert.Equal(t, 3, stats[0].Mentions)
	assert.Equal(t, 1, stats[2].Chapter)
	assert.Equal(t, 5, stats[3].Chapter)
	assert.Equal(t, 3, stats[4].Chapter)
	assert.InDelta(t, 1000.0/2, stats[2].Density, 1e-9)

	_, all := Select(chapters, alias.Default(), "薛寶釵", 0)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, all)
}

func TestFilter(t *testing.T) {
	chapters := []models.Chapter{{Number: 1}, {Number: 2}, {Number: 3}}
	got := Filter(chapters, []int{3, 1})
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Number)
	assert.Equal(t, 3, got[1].Number)
}
