package epiworld

// graph.go gives a gonum view of the contact graph of a model, used to ask
// questions about the network the engine itself does not need: shortest contact
// chains between agents and connected components.
//
// The view and the shortest-path trees computed from it are cached.  Anything that
// changes the graph (loading a population, rewiring, restoring a backup) drops
// the cache.

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// contactView caches the gonum representation of a model's contact graph
type contactView struct {
	g        graph.Graph
	cachedSP map[int]path.Shortest
}

func (m *Model) invalidateGraph() {
	m.view = nil
}

// ContactGraph returns the contact graph as a gonum graph whose node ids are agent ids.
// The graph is directed when the population was loaded as directed.
func (m *Model) ContactGraph() graph.Graph {
	if m.view != nil {
		return m.view.g
	}

	var g graph.Graph
	if m.directed {
		dg := simple.NewDirectedGraph()
		for idx := range m.population {
			dg.AddNode(simple.Node(m.population[idx].id))
		}
		for idx := range m.population {
			from := simple.Node(m.population[idx].id)
			for _, nbr := range m.population[idx].neighbors {
				dg.SetEdge(dg.NewEdge(from, simple.Node(m.population[nbr].id)))
			}
		}
		g = dg
	} else {
		ug := simple.NewUndirectedGraph()
		for idx := range m.population {
			ug.AddNode(simple.Node(m.population[idx].id))
		}
		for idx := range m.population {
			from := simple.Node(m.population[idx].id)
			for _, nbr := range m.population[idx].neighbors {
				ug.SetEdge(ug.NewEdge(from, simple.Node(m.population[nbr].id)))
			}
		}
		g = ug
	}
	m.view = &contactView{g: g, cachedSP: make(map[int]path.Shortest)}
	return g
}

// getSPTree returns the shortest path tree rooted in agent id from.  If the tree is
// found in the cache it is returned, if not it is computed, saved, and returned.
func (m *Model) getSPTree(from int) path.Shortest {
	g := m.ContactGraph()
	spTree, present := m.view.cachedSP[from]
	if present {
		return spTree
	}

	// every edge has weight 1, so the tree minimizes the number of contacts
	spTree = path.DijkstraFrom(simple.Node(from), g)
	m.view.cachedSP[from] = spTree
	return spTree
}

// ContactPath returns the ids of the agents on a shortest chain of contacts from agent
// srcID to agent dstID, both included.  An empty path means dstID cannot be reached.
func (m *Model) ContactPath(srcID, dstID int) ([]int, error) {
	if _, present := m.idToIndex[srcID]; !present {
		return nil, fmt.Errorf("%w: no agent with id %d", ErrOutOfRange, srcID)
	}
	if _, present := m.idToIndex[dstID]; !present {
		return nil, fmt.Errorf("%w: no agent with id %d", ErrOutOfRange, dstID)
	}

	spTree := m.getSPTree(srcID)
	nodeSeq, _ := spTree.To(int64(dstID))

	route := make([]int, len(nodeSeq))
	for idx, node := range nodeSeq {
		route[idx] = int(node.ID())
	}
	return route, nil
}

// Components lists the connected components of an undirected contact graph, each
// as a list of agent ids
func (m *Model) Components() ([][]int, error) {
	if m.directed {
		return nil, fmt.Errorf("%w: connected components of a directed graph", ErrInvalidGraphOperation)
	}
	ug, ok := m.ContactGraph().(graph.Undirected)
	if !ok {
		return nil, fmt.Errorf("%w: contact graph is not undirected", ErrInvalidGraphOperation)
	}
	comps := topo.ConnectedComponents(ug)
	ids := make([][]int, len(comps))
	for cidx, comp := range comps {
		ids[cidx] = make([]int, len(comp))
		for nidx, node := range comp {
			ids[cidx][nidx] = int(node.ID())
		}
		sort.Ints(ids[cidx])
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i][0] < ids[j][0] })
	return ids, nil
}
