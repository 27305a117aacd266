// Package export writes reports as CSV, JSON and DOT files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/Kkro1s/HongLouMeng/internal/corpus"
	"github.com/Kkro1s/HongLouMeng/internal/graph"
	"github.com/Kkro1s/HongLouMeng/internal/models"
)

// Output file names.
const (
	FileInteractionsCSV  = "interactions.csv"
	FileInteractionsJSON = "interactions.json"
	FileMetricsCSV       = "centrality_metrics.csv"
	FileNetwork          = "network_properties.json"
	FileTriads           = "triad_census.json"
	FileDOT              = "network.dot"
	FileNodeLink         = "network.json"
	FileRun              = "run.json"
	FileSelection        = "selected_chapters.json"
	FileChapterStats     = "all_chapters_stats.csv"
)

// utf8BOM lets spreadsheet tools detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Writer is the write side of a storage.Provider.
type Writer interface {
	Write(path string, content []byte) error
}

// Exporter writes report files under a directory of a Writer.
type Exporter struct {
	out    Writer
	dir    string
	logger *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithDir places every file under dir, relative to the writer root.
func WithDir(dir string) Option {
	return func(e *Exporter) { e.dir = dir }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) { e.logger = logger }
}

// New returns an Exporter writing through out.
func New(out Writer, opts ...Option) *Exporter {
	e := &Exporter{out: out, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FocalFile is the name of the focal character's metrics file.
func FocalFile(focal string) string {
	return focal + "_metrics.json"
}

// Export writes every report file. It stops at the first failure.
func (e *Exporter) Export(r *models.Report) error {
	g, err := Graph(r)
	if err != nil {
		return err
	}
	dot, err := g.MarshalDOT("honglou")
	if err != nil {
		return err
	}
	interactions, err := InteractionsCSV(r.Edges)
	if err != nil {
		return err
	}
	metricsCSV, err := MetricsCSV(r.Nodes)
	if err != nil {
		return err
	}

	files := []file{
		{FileInteractionsCSV, interactions},
		{FileInteractionsJSON, orEmpty(r.Events)},
		{FileMetricsCSV, metricsCSV},
		{FileNetwork, r.Network},
		{FileTriads, r.TriadCensus},
		{FileDOT, dot},
		{FileNodeLink, g.NodeLink(r.FocalCharacter)},
		{FileRun, runFile{RunSummary: r.Summary(), Failures: r.Failures}},
	}
	if r.Focal != nil {
		files = append(files, file{FocalFile(r.FocalCharacter), r.Focal})
	}

	for _, f := range files {
		if err := e.write(f.name, f.data); err != nil {
			return err
		}
	}
	e.logger.Info("report exported",
		slog.String("run_id", r.RunID),
		slog.String("dir", e.dir),
		slog.Int("files", len(files)))
	return nil
}

type file struct {
	name string
	data any
}

type runFile struct {
	models.RunSummary
	Failures []models.MetricFailure `json:"failures"`
}

// Selection writes the chapter profile and the chosen chapter list.
func (e *Exporter) Selection(stats []corpus.Stat, chosen []int) error {
	total := 0
	var details []corpus.Stat
	for _, s := range stats {
		for _, c := range chosen {
			if s.Chapter == c {
				total += s.Mentions
				details = append(details, s)
			}
		}
	}
	doc := struct {
		Selected []int         `json:"selected_chapters"`
		Count    int           `json:"total_chapters"`
		Mentions int           `json:"total_mentions"`
		Details  []corpus.Stat `json:"chapter_details"`
	}{chosen, len(chosen), total, details}
	if doc.Selected == nil {
		doc.Selected = []int{}
	}
	if err := e.write(FileSelection, doc); err != nil {
		return err
	}
	csvData, err := ChapterStatsCSV(stats)
	if err != nil {
		return err
	}
	return e.write(FileChapterStats, csvData)
}

func (e *Exporter) write(name string, data any) error {
	var raw []byte
	switch v := data.(type) {
	case []byte:
		raw = v
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("export: encode %s: %w", name, err)
		}
		raw = append(b, '\n')
	}
	p := name
	if e.dir != "" {
		p = path.Join(e.dir, name)
	}
	if err := e.out.Write(p, raw); err != nil {
		return fmt.Errorf("export: write %s: %w", p, err)
	}
	return nil
}

// Graph rebuilds the report's graph, seeding the focal node.
func Graph(r *models.Report) (*graph.Graph, error) {
	b := graph.NewBuilder()
	if r.FocalCharacter != "" {
		if err := b.AddNode(r.FocalCharacter); err != nil {
			return nil, err
		}
	}
	for _, n := range r.Nodes {
		if err := b.AddNode(n.Character); err != nil {
			return nil, err
		}
	}
	if err := b.Add(r.Edges...); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// InteractionsCSV renders edges as the interaction table.
func InteractionsCSV(edges []models.AggregatedEdge) ([]byte, error) {
	rows := [][]string{{
		"Source", "Target", "Frequency", "Interaction_Types", "Chapters", "Chapter_Count",
		"Context_1", "Context_2", "Context_3",
	}}
	for _, e := range edges {
		chapters := make([]string, len(e.Chapters))
		for i, c := range e.Chapters {
			chapters[i] = strconv.Itoa(c)
		}
		row := []string{
			e.Source, e.Target, strconv.Itoa(e.Frequency), e.TypeSummary(),
			strings.Join(chapters, "、"), strconv.Itoa(len(e.Chapters)),
		}
		for i := range 3 {
			ctx := ""
			if i < len(e.Contexts) {
				ctx = e.Contexts[i]
			}
			row = append(row, ctx)
		}
		rows = append(rows, row)
	}
	return encodeCSV(rows)
}

type column struct {
	name  string
	value func(models.MetricsRecord) string
}

func intCol(name string, fn func(models.MetricsRecord) int) column {
	return column{name, func(m models.MetricsRecord) string { return strconv.Itoa(fn(m)) }}
}

func floatCol(name string, fn func(models.MetricsRecord) float64) column {
	return column{name, func(m models.MetricsRecord) string { return strconv.FormatFloat(fn(m), 'g', -1, 64) }}
}

var metricColumns = []column{
	{"character", func(m models.MetricsRecord) string { return m.Character }},
	intCol("degree", func(m models.MetricsRecord) int { return m.Degree }),
	intCol("in_degree", func(m models.MetricsRecord) int { return m.InDegree }),
	intCol("out_degree", func(m models.MetricsRecord) int { return m.OutDegree }),
	floatCol("weighted_degree", func(m models.MetricsRecord) float64 { return m.WeightedDegree }),
	floatCol("weighted_in_degree", func(m models.MetricsRecord) float64 { return m.WeightedInDegree }),
	floatCol("weighted_out_degree", func(m models.MetricsRecord) float64 { return m.WeightedOutDegree }),
	floatCol("degree_centrality", func(m models.MetricsRecord) float64 { return m.DegreeCentrality }),
	floatCol("betweenness_centrality", func(m models.MetricsRecord) float64 { return m.Betweenness }),
	floatCol("closeness_centrality", func(m models.MetricsRecord) float64 { return m.Closeness }),
	floatCol("eigenvector_centrality", func(m models.MetricsRecord) float64 { return m.Eigenvector }),
	floatCol("pagerank", func(m models.MetricsRecord) float64 { return m.PageRank }),
	floatCol("clustering_coefficient", func(m models.MetricsRecord) float64 { return m.Clustering }),
	floatCol("katz_centrality", func(m models.MetricsRecord) float64 { return m.Katz }),
	floatCol("harmonic_centrality", func(m models.MetricsRecord) float64 { return m.Harmonic }),
	floatCol("hub_score", func(m models.MetricsRecord) float64 { return m.Hub }),
	floatCol("authority_score", func(m models.MetricsRecord) float64 { return m.Authority }),
	floatCol("subgraph_centrality", func(m models.MetricsRecord) float64 { return m.Subgraph }),
	intCol("core_number", func(m models.MetricsRecord) int { return m.CoreNumber }),
	floatCol("constraint", func(m models.MetricsRecord) float64 { return m.Constraint }),
	intCol("community", func(m models.MetricsRecord) int { return m.Community }),
}

// MetricsCSV renders one row per node.
func MetricsCSV(nodes []models.MetricsRecord) ([]byte, error) {
	header := make([]string, len(metricColumns))
	for i, c := range metricColumns {
		header[i] = c.name
	}
	rows := [][]string{header}
	for _, n := range nodes {
		row := make([]string, len(metricColumns))
		for i, c := range metricColumns {
			row[i] = c.value(n)
		}
		rows = append(rows, row)
	}
	return encodeCSV(rows)
}

// ChapterStatsCSV renders a chapter profile.
func ChapterStatsCSV(stats []corpus.Stat) ([]byte, error) {
	rows := [][]string{{"chapter", "mention_count", "text_length", "density"}}
	for _, s := range stats {
		rows = append(rows, []string{
			strconv.Itoa(s.Chapter), strconv.Itoa(s.Mentions), strconv.Itoa(s.Length),
			strconv.FormatFloat(s.Density, 'f', 4, 64),
		})
	}
	return encodeCSV(rows)
}

func encodeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("export: encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func orEmpty[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
