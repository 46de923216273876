package converter

import "github.com/alanyoungcy/feedconv/internal/domain"

// Graph is the bidirectional adjacency view of a feed list. Every feed is
// reachable from both of its assets; the edge direction says whether its rate
// is applied or inverted.
type Graph struct {
	edges map[domain.AssetCode][]domain.Edge
}

// NewGraph registers both directions of each feed, preserving input order
// per node. Duplicate or parallel feeds are kept as-is.
func NewGraph(feeds []domain.Feed) *Graph {
	g := &Graph{edges: make(map[domain.AssetCode][]domain.Edge, len(feeds)*2)}
	for _, f := range feeds {
		g.addEdge(domain.Edge{Feed: f, Forward: true})
		g.addEdge(domain.Edge{Feed: f, Forward: false})
	}
	return g
}

func (g *Graph) addEdge(e domain.Edge) {
	src := e.Source()
	g.edges[src] = append(g.edges[src], e)
}

// Neighbors returns the outgoing edges of asset in registration order.
func (g *Graph) Neighbors(asset domain.AssetCode) []domain.Edge {
	return g.edges[asset]
}

// Has reports whether any feed touches asset.
func (g *Graph) Has(asset domain.AssetCode) bool {
	_, ok := g.edges[asset]
	return ok
}
