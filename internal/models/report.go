package models

import "time"

// MetricsRecord holds every per-node metric for one character.
type MetricsRecord struct {
	Character         string  `json:"character"`
	Degree            int     `json:"degree"`
	InDegree          int     `json:"in_degree"`
	OutDegree         int     `json:"out_degree"`
	WeightedDegree    float64 `json:"weighted_degree"`
	WeightedInDegree  float64 `json:"weighted_in_degree"`
	WeightedOutDegree float64 `json:"weighted_out_degree"`
	DegreeCentrality  float64 `json:"degree_centrality"`
	Betweenness       float64 `json:"betweenness_centrality"`
	Closeness         float64 `json:"closeness_centrality"`
	Eigenvector       float64 `json:"eigenvector_centrality"`
	PageRank          float64 `json:"pagerank"`
	Clustering        float64 `json:"clustering_coefficient"`
	Katz              float64 `json:"katz_centrality"`
	Harmonic          float64 `json:"harmonic_centrality"`
	Hub               float64 `json:"hub_score"`
	Authority         float64 `json:"authority_score"`
	Subgraph          float64 `json:"subgraph_centrality"`
	CoreNumber        int     `json:"core_number"`
	Constraint        float64 `json:"constraint"`
	Community         int     `json:"community"`
}

// NetworkProperties are whole-graph aggregates.
type NetworkProperties struct {
	Nodes             int      `json:"num_nodes"`
	Edges             int      `json:"num_edges"`
	Density           float64  `json:"density"`
	AvgDegree         float64  `json:"avg_degree"`
	MinDegree         int      `json:"min_degree"`
	MaxDegree         int      `json:"max_degree"`
	Reciprocity       float64  `json:"reciprocity"`
	Transitivity      float64  `json:"transitivity"`
	StronglyConnected bool     `json:"is_strongly_connected"`
	WeaklyConnected   bool     `json:"is_weakly_connected"`
	StrongComponents  int      `json:"num_strongly_connected_components"`
	WeakComponents    int      `json:"num_weakly_connected_components"`
	AveragePathLength *float64 `json:"average_path_length"`
	Modularity        float64  `json:"modularity"`
}

// MetricFailure records why a metric fell back to its default.
type MetricFailure struct {
	Metric string `json:"metric"`
	Reason string `json:"reason"`
}

// Report is the complete output of one pipeline run.
type Report struct {
	RunID          string             `json:"run_id"`
	FocalCharacter string             `json:"focal_character"`
	CreatedAt      time.Time          `json:"created_at"`
	CorpusChecksum string             `json:"corpus_checksum"`
	Chapters       []int              `json:"chapters"`
	Events         []InteractionEvent `json:"events,omitempty"`
	Edges          []AggregatedEdge   `json:"edges"`
	Nodes          []MetricsRecord    `json:"nodes"`
	Focal          *MetricsRecord     `json:"focal,omitempty"`
	Network        NetworkProperties  `json:"network"`
	TriadCensus    map[string]int     `json:"triad_census"`
	Failures       []MetricFailure    `json:"failures"`
}

// RunSummary is the lightweight view of a stored run.
type RunSummary struct {
	RunID          string    `json:"run_id"`
	FocalCharacter string    `json:"focal_character"`
	CorpusChecksum string    `json:"corpus_checksum"`
	Chapters       []int     `json:"chapters"`
	EventCount     int       `json:"event_count"`
	EdgeCount      int       `json:"edge_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary derives the RunSummary of r.
func (r *Report) Summary() RunSummary {
	return RunSummary{
		RunID:          r.RunID,
		FocalCharacter: r.FocalCharacter,
		CorpusChecksum: r.CorpusChecksum,
		Chapters:       r.Chapters,
		EventCount:     len(r.Events),
		EdgeCount:      len(r.Edges),
		CreatedAt:      r.CreatedAt,
	}
}
