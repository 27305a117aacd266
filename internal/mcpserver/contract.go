package mcpserver

// GlossaryURI is the resource URI of MetricsGlossary.
const GlossaryURI = "honglou://metrics-glossary"

// MetricsGlossary explains every field returned by the metrics tools.
const MetricsGlossary = `# HongLouMeng Metrics Glossary

The network is directed: every edge runs from the focal character to a
character who shares a sentence with them. Edge weight is the number of
such sentences.

## Per-character metrics

| Field | Meaning |
|---|---|
| degree / in_degree / out_degree | Number of distinct neighbours (total, incoming, outgoing). |
| weighted_degree | Sum of edge weights; weighted_in_degree and weighted_out_degree split it by direction. |
| degree_centrality | degree / (n - 1); 0 for a single-node network. |
| betweenness_centrality | Share of shortest paths passing through the character, normalized by (n - 1)(n - 2). |
| closeness_centrality | Inverse mean distance from the characters that can reach this one, scaled by reachability. |
| eigenvector_centrality | Importance from being linked by important characters (incoming edges). |
| pagerank | Random-walk importance with damping 0.85. |
| clustering_coefficient | How often the character's neighbours are themselves connected. |
| katz_centrality | Attenuated count of incoming walks of every length (alpha 0.1). |
| harmonic_centrality | Sum of inverse distances to every other character, ignoring direction. |
| hub_score / authority_score | HITS scores: hubs point at good authorities, authorities are pointed at by good hubs. |
| subgraph_centrality | Weighted count of closed walks starting and ending at the character. |
| core_number | Largest k such that the character belongs to the k-core. |
| constraint | Burt's constraint: high values mean the character's contacts are redundant. |
| community | Index of the greedy-modularity community, largest first; -1 if none. |

## Network properties

| Field | Meaning |
|---|---|
| density | Edges divided by n(n - 1). |
| reciprocity | Share of edges whose reverse edge also exists. |
| transitivity | Share of connected triples that close into triangles. |
| average_path_length | Mean directed hop distance; null unless strongly connected. |
| modularity | Quality of the community partition. |

## Triad census

Counts of unordered character triples by how many of their three pairs are
connected: 003 (none), 102 (one), 201 (two), 300 (all three).

## Failures

A metric that cannot be computed, for example on a single-node network, keeps
its default value and is listed under failures with a reason.
`
