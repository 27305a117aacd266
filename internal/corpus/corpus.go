// Package corpus discovers, reads, cleans and selects chapter files.
package corpus

import (
	"cmp"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Kkro1s/HongLouMeng/internal/alias"
	"github.com/Kkro1s/HongLouMeng/internal/checksum"
	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/storage"
)

// DefaultPattern matches chapter file names such as ch008.txt and captures
// the chapter number.
var DefaultPattern = regexp.MustCompile(`^ch(\d+)`)

// Source is the read side of a storage.Provider.
type Source interface {
	List(dir, ext string) ([]storage.Entry, error)
	Read(path string) ([]byte, error)
}

// File is a discovered chapter file.
type File struct {
	Number   int    `json:"chapter"`
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

// Loader reads chapters from a Source.
type Loader struct {
	src     Source
	dir     string
	ext     string
	pattern *regexp.Regexp
	logger  *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithDir restricts discovery to dir, relative to the source root.
func WithDir(dir string) Option {
	return func(l *Loader) { l.dir = dir }
}

// WithExtension sets the chapter file extension. Default ".txt".
func WithExtension(ext string) Option {
	return func(l *Loader) { l.ext = ext }
}

// WithPattern sets the file-name pattern; its first group is the chapter number.
func WithPattern(re *regexp.Regexp) Option {
	return func(l *Loader) { l.pattern = re }
}

// WithLogger sets the logger used for skip warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader returns a Loader over src.
func NewLoader(src Source, opts ...Option) *Loader {
	l := &Loader{
		src:     src,
		ext:     ".txt",
		pattern: DefaultPattern,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Discover lists chapter files in ascending chapter order. When two files
// claim the same number, the first by path wins.
func (l *Loader) Discover() ([]File, error) {
	entries, err := l.src.List(l.dir, l.ext)
	if err != nil {
		return nil, fmt.Errorf("corpus: discover: %w", err)
	}
	seen := make(map[int]string)
	var out []File
	for _, e := range entries {
		name := e.Path[strings.LastIndex(e.Path, "/")+1:]
		m := l.pattern.FindStringSubmatch(name)
		if len(m) < 2 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if prev, ok := seen[n]; ok {
			l.logger.Warn("duplicate chapter file ignored",
				slog.Int("chapter", n),
				slog.String("path", e.Path),
				slog.String("kept", prev))
			continue
		}
		seen[n] = e.Path
		out = append(out, File{Number: n, Path: e.Path, Checksum: e.Checksum, Size: e.Size})
	}
	slices.SortFunc(out, func(a, b File) int { return cmp.Compare(a.Number, b.Number) })
	return out, nil
}

// Result is the outcome of Load.
type Result struct {
	Chapters []models.Chapter
	// Missing lists requested chapters with no readable file.
	Missing []int
	// Checksum fingerprints the files that were read.
	Checksum string
}

// Load reads the requested chapters in ascending order; nil means every
// discovered chapter. Missing or unreadable chapters are skipped with a warning.
func (l *Loader) Load(numbers []int) (*Result, error) {
	files, err := l.Discover()
	if err != nil {
		return nil, err
	}
	byNumber := make(map[int]File, len(files))
	for _, f := range files {
		byNumber[f.Number] = f
	}
	if numbers == nil {
		for _, f := range files {
			numbers = append(numbers, f.Number)
		}
	}
	numbers = slices.Clone(numbers)
	slices.Sort(numbers)
	numbers = slices.Compact(numbers)

	res := &Result{}
	sums := make(map[string]string)
	for _, n := range numbers {
		f, ok := byNumber[n]
		if !ok {
			l.logger.Warn("chapter file not found, skipping", slog.Int("chapter", n))
			res.Missing = append(res.Missing, n)
			continue
		}
		data, err := l.src.Read(f.Path)
		if err != nil {
			l.logger.Warn("chapter file unreadable, skipping",
				slog.Int("chapter", n),
				slog.String("error", err.Error()))
			res.Missing = append(res.Missing, n)
			continue
		}
		sum := checksum.Sum(data)
		sums[f.Path] = sum
		res.Chapters = append(res.Chapters, models.Chapter{
			Number:   n,
			Path:     f.Path,
			Checksum: sum,
			Text:     string(data),
		})
	}
	res.Checksum = checksum.Corpus(sums)
	return res, nil
}

var (
	titleRe      = regexp.MustCompile(`《[^》]+》`)
	blankLinesRe = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Clean strips 《…》 titles, collapses runs of blank lines and trims every line.
func Clean(text string) string {
	text = titleRe.ReplaceAllString(text, "")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Stat is the focal mention profile of one chapter.
type Stat struct {
	Chapter  int     `json:"chapter"`
	Path     string  `json:"path,omitempty"`
	Mentions int     `json:"mention_count"`
	Length   int     `json:"text_length"`
	Density  float64 `json:"density"`
}

// Profile counts focal mentions per chapter. Density is mentions per 1000
// characters. The result is sorted by mentions descending, then chapter.
func Profile(chapters []models.Chapter, table *alias.Table, focal string) []Stat {
	stats := make([]Stat, 0, len(chapters))
	for _, ch := range chapters {
		s := Stat{
			Chapter:  ch.Number,
			Path:     ch.Path,
			Mentions: table.Mentions(focal, ch.Text),
			Length:   utf8.RuneCountInString(ch.Text),
		}
		if s.Length > 0 {
			s.Density = float64(s.Mentions) / float64(s.Length) * 1000
		}
		stats = append(stats, s)
	}
	slices.SortFunc(stats, func(a, b Stat) int {
		return cmp.Or(cmp.Compare(b.Mentions, a.Mentions), cmp.Compare(a.Chapter, b.Chapter))
	})
	return stats
}

// Select returns the profile and the topN chapter numbers by focal mentions,
// in ascending order. topN <= 0 selects every chapter.
func Select(chapters []models.Chapter, table *alias.Table, focal string, topN int) ([]Stat, []int) {
	stats := Profile(chapters, table, focal)
	n := len(stats)
	if topN > 0 && topN < n {
		n = topN
	}
	chosen := make([]int, 0, n)
	for _, s := range stats[:n] {
		chosen = append(chosen, s.Chapter)
	}
	slices.Sort(chosen)
	return stats, chosen
}

// Filter keeps the chapters whose number is in keep.
func Filter(chapters []models.Chapter, keep []int) []models.Chapter {
	var out []models.Chapter
	for _, ch := range chapters {
		if slices.Contains(keep, ch.Number) {
			out = append(out, ch)
		}
	}
	return out
}
