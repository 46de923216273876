package converter

import (
	"fmt"
	"slices"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

// FindPath runs a breadth-first search from src to dst treating every edge as
// unit cost. Neighbours are expanded in feed input order, so among paths of
// equal length the first one discovered wins. The returned path never visits
// an asset twice.
func FindPath(g *Graph, src, dst domain.AssetCode) (domain.Path, error) {
	if src == dst {
		return domain.Path{}, nil
	}
	if !g.Has(src) || !g.Has(dst) {
		return nil, fmt.Errorf("%w: from %s to %s", domain.ErrNoRouteFound, src, dst)
	}

	visited := map[domain.AssetCode]bool{src: true}
	// predecessor edge for every reached asset
	via := make(map[domain.AssetCode]domain.Edge)
	queue := []domain.AssetCode{src}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range g.Neighbors(current) {
			next := edge.Target()
			if visited[next] {
				continue
			}
			visited[next] = true
			via[next] = edge

			if next == dst {
				return buildPath(via, src, dst), nil
			}
			queue = append(queue, next)
		}
	}

	return nil, fmt.Errorf("%w: from %s to %s", domain.ErrNoRouteFound, src, dst)
}

func buildPath(via map[domain.AssetCode]domain.Edge, src, dst domain.AssetCode) domain.Path {
	var path domain.Path
	for current := dst; current != src; {
		edge := via[current]
		path = append(path, edge)
		current = edge.Source()
	}
	slices.Reverse(path)
	return path
}
