package causal

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Tier places a node in the micro -> intermediate -> macro hierarchy.
type Tier string

const (
	TierMicro        Tier = "micro"
	TierIntermediate Tier = "intermediate"
	TierMacro        Tier = "macro"
)

// Node is one vertex in the causal graph.
type Node struct {
	ID          string    `json:"id"`
	Tier        Tier      `json:"tier"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Confidence  float64   `json:"confidence"`
}

// Edge links a cause to an effect with accumulated weight and evidence tags.
type Edge struct {
	FromID   string   `json:"from_id"`
	ToID     string   `json:"to_id"`
	Weight   float64  `json:"weight"`
	Evidence []string `json:"evidence"`
}

// Path is one ranked micro -> macro explanation.
type Path struct {
	Micro        string  `json:"micro"`
	Intermediate string  `json:"intermediate"`
	Macro        string  `json:"macro"`
	Weight       float64 `json:"weight"`
}

// Graph is an append-only causal graph. It grows monotonically within a
// session and is reset between matches. Not safe for concurrent use; the
// engine owns it and touches it only from the event-processing path.
type Graph struct {
	nodes map[string]*Node
	edges []*Edge

	// byDescription deduplicates intermediate and macro nodes so repeated
	// evidence accumulates on one node instead of forking the graph.
	byDescription map[string]string
}

// NewGraph creates an empty causal graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:         make(map[string]*Node),
		byDescription: make(map[string]string),
	}
}

// AddMicroNode appends a micro-tier node for a single observed action.
func (g *Graph) AddMicroNode(description string, ts time.Time, confidence float64) *Node {
	n := &Node{
		ID:          uuid.New().String(),
		Tier:        TierMicro,
		Description: description,
		Timestamp:   ts,
		Confidence:  confidence,
	}
	g.nodes[n.ID] = n
	return n
}

// EnsureNode returns the existing node for a description at the given tier,
// creating it when absent. Used for intermediate and macro outcomes that
// many micro actions feed into.
func (g *Graph) EnsureNode(tier Tier, description string, ts time.Time, confidence float64) *Node {
	key := string(tier) + "|" + description
	if id, ok := g.byDescription[key]; ok {
		return g.nodes[id]
	}
	n := &Node{
		ID:          uuid.New().String(),
		Tier:        tier,
		Description: description,
		Timestamp:   ts,
		Confidence:  confidence,
	}
	g.nodes[n.ID] = n
	g.byDescription[key] = n.ID
	return n
}

// Link adds weight and evidence to the edge from -> to, creating it when
// absent.
func (g *Graph) Link(fromID, toID string, weight float64, evidence ...string) *Edge {
	for _, e := range g.edges {
		if e.FromID == fromID && e.ToID == toID {
			e.Weight += weight
			e.Evidence = append(e.Evidence, evidence...)
			return e
		}
	}
	e := &Edge{FromID: fromID, ToID: toID, Weight: weight, Evidence: evidence}
	g.edges = append(g.edges, e)
	return e
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Nodes returns a copy of all nodes.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	return out
}

// Edges returns a copy of all edges.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, *e)
	}
	return out
}

// StrongestPaths ranks micro -> intermediate -> macro chains by combined
// edge weight and returns the top n explanations.
func (g *Graph) StrongestPaths(n int) []Path {
	if n <= 0 {
		return nil
	}

	// Index edges by source for the two-hop walk.
	bySource := make(map[string][]*Edge, len(g.edges))
	for _, e := range g.edges {
		bySource[e.FromID] = append(bySource[e.FromID], e)
	}

	var paths []Path
	for _, first := range g.edges {
		from := g.nodes[first.FromID]
		mid := g.nodes[first.ToID]
		if from == nil || mid == nil || from.Tier != TierMicro || mid.Tier != TierIntermediate {
			continue
		}
		for _, second := range bySource[mid.ID] {
			macro := g.nodes[second.ToID]
			if macro == nil || macro.Tier != TierMacro {
				continue
			}
			paths = append(paths, Path{
				Micro:        from.Description,
				Intermediate: mid.Description,
				Macro:        macro.Description,
				Weight:       first.Weight + second.Weight,
			})
		}
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i].Weight > paths[j].Weight })
	if len(paths) > n {
		paths = paths[:n]
	}
	return paths
}

// Reset drops all nodes and edges.
func (g *Graph) Reset() {
	g.nodes = make(map[string]*Node)
	g.edges = nil
	g.byDescription = make(map[string]string)
}
