package epiworld

import (
	"context"
	"fmt"
	"math"

	"github.com/iti/epiworld/internal/logging"
	"golang.org/x/exp/slices"
)

// RewireDegSeq rewires an undirected contact graph while keeping the degree of every
// agent.  It makes ceil(proportion*E) attempts, E being the number of edges.  Each
// attempt picks two edges (i,j) and (k,l) and, when i,j,k,l are all different and
// neither (i,l) nor (k,j) exists, replaces them by (i,l) and (k,j).  A failed attempt
// still counts against the budget.
func RewireDegSeq(m *Model, proportion float64) error {
	if m.directed {
		return fmt.Errorf("%w: degree sequence rewiring of a directed graph", ErrInvalidGraphOperation)
	}
	if proportion < 0.0 || proportion > 1.0 {
		return fmt.Errorf("%w: rewiring proportion %f outside [0,1]", ErrOutOfRange, proportion)
	}

	// each undirected edge once, as (low, high) population indices
	edges := make([][2]int, 0)
	for idx := range m.population {
		for _, nbr := range m.population[idx].neighbors {
			if idx < nbr {
				edges = append(edges, [2]int{idx, nbr})
			}
		}
	}
	nedges := len(edges)
	if nedges < 2 {
		return nil
	}

	attempts := int(math.Ceil(proportion * float64(nedges)))
	swaps := 0
	for attempt := 0; attempt < attempts; attempt++ {
		e0 := m.rng.Intn(nedges)
		e1 := m.rng.Intn(nedges - 1)
		if e1 >= e0 {
			e1++
		}

		i, j := edges[e0][0], edges[e0][1]
		k, l := edges[e1][0], edges[e1][1]

		// either orientation of the second edge is a candidate
		if m.rng.Runif() < 0.5 {
			k, l = l, k
		}

		if i == k || i == l || j == k || j == l {
			continue
		}
		if isNeighbor(m, i, l) || isNeighbor(m, k, j) {
			continue
		}

		replaceNeighbor(m, i, j, l)
		replaceNeighbor(m, j, i, k)
		replaceNeighbor(m, k, l, j)
		replaceNeighbor(m, l, k, i)

		edges[e0] = orderedEdge(i, l)
		edges[e1] = orderedEdge(k, j)
		swaps++
	}

	m.logger.Log(context.Background(), logging.LevelTrace, "rewired contact graph", "model", m.name, "day", m.today,
		"edges", nedges, "attempts", attempts, "swaps", swaps)
	return nil
}

func orderedEdge(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

func isNeighbor(m *Model, a, b int) bool {
	return slices.Contains(m.population[a].neighbors, b)
}

// replaceNeighbor swaps neighbor from of agent at for to, in place so that the
// position in the neighbor list is kept
func replaceNeighbor(m *Model, at, from, to int) {
	nbrs := m.population[at].neighbors
	pos := slices.Index(nbrs, from)
	nbrs[pos] = to
}
