package graph

import (
	"sentinel/pkg/models"
)

// Edge is one directed connection between two cards.
type Edge struct {
	From  string
	To    string
	Label string
}

// Graph is the evidence board as an adjacency list keyed by card id.
// Connections naming ids that were never created are representable; they
// show up in Dangling rather than causing lookups to fail.
type Graph struct {
	cards map[string]models.EvidenceCard
	order []string
	edges map[string][]Edge
}

// Build constructs a graph from an ordered card sequence. Self-edges are
// skipped; on duplicate ids the later card wins, matching the reducer's
// replace-on-duplicate rule.
func Build(cards []models.EvidenceCard) *Graph {
	g := &Graph{
		cards: make(map[string]models.EvidenceCard, len(cards)),
		edges: make(map[string][]Edge),
	}
	for _, c := range cards {
		if _, seen := g.cards[c.ID]; !seen {
			g.order = append(g.order, c.ID)
		}
		g.cards[c.ID] = c
		for _, conn := range c.Connections {
			if conn.To == "" || conn.To == c.ID {
				continue
			}
			g.edges[c.ID] = append(g.edges[c.ID], Edge{From: c.ID, To: conn.To, Label: conn.Label})
		}
	}
	return g
}

// Card returns the card with the given id.
func (g *Graph) Card(id string) (models.EvidenceCard, bool) {
	c, ok := g.cards[id]
	return c, ok
}

// Len reports the number of distinct cards.
func (g *Graph) Len() int {
	return len(g.order)
}

// EdgesFrom returns the outgoing edges of a card in definition order.
func (g *Graph) EdgesFrom(id string) []Edge {
	return g.edges[id]
}

// Edges returns every edge in card order.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, id := range g.order {
		out = append(out, g.edges[id]...)
	}
	return out
}

// Dangling returns edges whose target card was never created. These are
// valid data (a connection may name a card from a turn that failed) but
// callers rendering the board usually skip them.
func (g *Graph) Dangling() []Edge {
	var out []Edge
	for _, id := range g.order {
		for _, e := range g.edges[id] {
			if _, ok := g.cards[e.To]; !ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// HasCycle reports whether the connection graph contains a directed
// cycle. The graph is not required to be acyclic; this is a diagnostic.
func (g *Graph) HasCycle() bool {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(g.order))

	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = visiting
		for _, e := range g.edges[id] {
			if _, ok := g.cards[e.To]; !ok {
				continue
			}
			switch state[e.To] {
			case visiting:
				return true
			case unvisited:
				if visit(e.To) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}

	for _, id := range g.order {
		if state[id] == unvisited && visit(id) {
			return true
		}
	}
	return false
}
