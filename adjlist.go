package epiworld

// adjlist.go builds the population of a model from an edge list, read from a
// file or generated, and writes the contact graph back out as an edge list.

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// AdjList is an edge list: edge e goes from agent id Source[e] to agent id Target[e].
// When MinID and MaxID are not negative every id in [MinID,MaxID] is an agent, even
// one with no edges, and ids outside the range are refused.
type AdjList struct {
	Source   []int
	Target   []int
	Directed bool
	MinID    int
	MaxID    int
}

// CreateAdjList is a constructor
func CreateAdjList(directed bool, minID, maxID int) *AdjList {
	al := new(AdjList)
	al.Source = make([]int, 0)
	al.Target = make([]int, 0)
	al.Directed = directed
	al.MinID = minID
	al.MaxID = maxID
	return al
}

// AddEdge appends the edge (src,dst)
func (al *AdjList) AddEdge(src, dst int) {
	al.Source = append(al.Source, src)
	al.Target = append(al.Target, dst)
}

// NEdges is the number of edges listed, duplicates included
func (al *AdjList) NEdges() int {
	return len(al.Source)
}

func (al *AdjList) bounded() bool {
	return al.MinID >= 0 && al.MaxID >= al.MinID
}

// ReadAdjList reads an edge list from a text file with one "source target" pair of
// integer ids per line.  The first skip lines are ignored, as are blank lines.
// minID and maxID bound the ids when not negative.
func ReadAdjList(filename string, skip int, directed bool, minID, maxID int) (*AdjList, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	al := CreateAdjList(directed, minID, maxID)
	errs := make([]error, 0)

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		if lineno <= skip {
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			errs = append(errs, fmt.Errorf("%s line %d: expected two ids, found %q", filename, lineno, line))
			continue
		}
		src, serr := strconv.Atoi(fields[0])
		dst, derr := strconv.Atoi(fields[1])
		if serr != nil || derr != nil {
			errs = append(errs, fmt.Errorf("%s line %d: ids must be integers, found %q", filename, lineno, line))
			continue
		}
		if al.bounded() && (src < minID || src > maxID || dst < minID || dst > maxID) {
			errs = append(errs, fmt.Errorf("%w: %s line %d: edge (%d,%d) outside ids [%d,%d]",
				ErrInvalidGraphOperation, filename, lineno, src, dst, minID, maxID))
			continue
		}
		al.AddEdge(src, dst)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	if err := ReportErrs(errs); err != nil {
		return nil, err
	}
	return al, nil
}

// RingLattice connects each of n agents (ids 0..n-1) to its k nearest agents around a
// ring: the k/2 on either side when undirected, the k that follow it when directed
func RingLattice(n, k int, directed bool) (*AdjList, error) {
	if n < 1 || k < 0 || k >= n {
		return nil, fmt.Errorf("%w: ring lattice of %d agents with degree %d", ErrOutOfRange, n, k)
	}
	al := CreateAdjList(directed, 0, n-1)
	reach := k
	if !directed {
		reach = k / 2
	}
	for i := 0; i < n; i++ {
		for step := 1; step <= reach; step++ {
			al.AddEdge(i, (i+step)%n)
		}
	}
	return al, nil
}

// PopSmallWorld loads a ring lattice of n agents with degree k and rewires a proportion
// p of its edges, using the model's random streams and its rewiring function
func (m *Model) PopSmallWorld(n, k int, p float64) error {
	al, err := RingLattice(n, k, false)
	if err != nil {
		return err
	}
	if err := m.PopFromAdjList(al); err != nil {
		return err
	}
	if m.rewireFunc == nil || !(p > 0.0) {
		return nil
	}
	if err := m.rewireFunc(m, p); err != nil {
		return err
	}
	m.queue.rebuild(m)
	m.invalidateGraph()
	return nil
}

// PopFromAdjList replaces the population of the model by one agent per id of al,
// wired as al says.  Duplicate edges are merged, and an undirected edge listed in both
// directions is one edge.  Self-loops and negative ids are refused.  Agents are
// placed in increasing order of id.
func (m *Model) PopFromAdjList(al *AdjList) error {
	if len(al.Source) != len(al.Target) {
		return fmt.Errorf("%w: %d sources for %d targets", ErrInvalidGraphOperation, len(al.Source), len(al.Target))
	}
	if m.state == Running {
		return fmt.Errorf("%w: population change during a run", ErrInvalidGraphOperation)
	}

	var g graph.Graph
	var setEdge func(from, to int64)
	var addNode func(id int64)
	if al.Directed {
		dg := simple.NewDirectedGraph()
		g = dg
		setEdge = func(from, to int64) { dg.SetEdge(dg.NewEdge(simple.Node(from), simple.Node(to))) }
		addNode = func(id int64) {
			if dg.Node(id) == nil {
				dg.AddNode(simple.Node(id))
			}
		}
	} else {
		ug := simple.NewUndirectedGraph()
		g = ug
		setEdge = func(from, to int64) { ug.SetEdge(ug.NewEdge(simple.Node(from), simple.Node(to))) }
		addNode = func(id int64) {
			if ug.Node(id) == nil {
				ug.AddNode(simple.Node(id))
			}
		}
	}

	if al.bounded() {
		for id := al.MinID; id <= al.MaxID; id++ {
			addNode(int64(id))
		}
	}

	errs := make([]error, 0)
	for e := range al.Source {
		src, dst := al.Source[e], al.Target[e]
		if src < 0 || dst < 0 {
			errs = append(errs, fmt.Errorf("%w: negative id in edge (%d,%d)", ErrInvalidGraphOperation, src, dst))
			continue
		}
		if src == dst {
			errs = append(errs, fmt.Errorf("%w: self-loop on agent %d", ErrInvalidGraphOperation, src))
			continue
		}
		if al.bounded() && (src < al.MinID || src > al.MaxID || dst < al.MinID || dst > al.MaxID) {
			errs = append(errs, fmt.Errorf("%w: edge (%d,%d) outside ids [%d,%d]",
				ErrInvalidGraphOperation, src, dst, al.MinID, al.MaxID))
			continue
		}
		addNode(int64(src))
		addNode(int64(dst))
		setEdge(int64(src), int64(dst))
	}
	if err := ReportErrs(errs); err != nil {
		return err
	}

	nodes := graph.NodesOf(g.Nodes())
	ids := make([]int, len(nodes))
	for idx, node := range nodes {
		ids[idx] = int(node.ID())
	}
	sort.Ints(ids)

	m.population = make([]Agent, len(ids))
	m.idToIndex = make(map[int]int, len(ids))
	for idx, id := range ids {
		m.idToIndex[id] = idx
	}
	for idx, id := range ids {
		agent := &m.population[idx]
		agent.id = id
		agent.index = idx
		agent.status = StatusHealthy
		agent.viruses = make([]*Virus, 0)
		agent.tools = make([]*Tool, 0)

		// gonum hands nodes back in no particular order
		nbrs := graph.NodesOf(g.From(int64(id)))
		agent.neighbors = make([]int, len(nbrs))
		for nidx, nbr := range nbrs {
			agent.neighbors[nidx] = m.idToIndex[int(nbr.ID())]
		}
		sort.Ints(agent.neighbors)
	}

	m.directed = al.Directed
	if m.directed {
		m.rewireProp = 0.0
	}
	m.backup = nil
	m.queue.reset(m)
	m.actions.clear()
	m.invalidateGraph()
	m.state = Uninitialized

	m.logger.Debug("population loaded", "model", m.name, "agents", len(m.population),
		"edges", al.NEdges(), "directed", m.directed)
	return nil
}

// Edgelist returns the contact graph as agent ids.  An undirected edge is listed
// once, from the smaller id.
func (m *Model) Edgelist() *AdjList {
	al := CreateAdjList(m.directed, -1, -1)
	for idx := range m.population {
		agent := &m.population[idx]
		nbrIDs := make([]int, 0, len(agent.neighbors))
		for _, nbr := range agent.neighbors {
			nbrID := m.population[nbr].id
			if !m.directed && nbrID < agent.id {
				continue
			}
			nbrIDs = append(nbrIDs, nbrID)
		}
		sort.Ints(nbrIDs)
		for _, nbrID := range nbrIDs {
			al.AddEdge(agent.id, nbrID)
		}
	}
	return al
}

// ReportErrs transforms a list of errors and transforms the non-nil ones into a single error
// with comma-separated report of all the constituent errors, and returns it.
func ReportErrs(errs []error) error {
	errMsg := make([]string, 0)
	var first error
	for _, err := range errs {
		if err != nil {
			if first == nil {
				first = err
			}
			errMsg = append(errMsg, err.Error())
		}
	}
	if len(errMsg) == 0 {
		return nil
	}
	if len(errMsg) == 1 {
		return first
	}
	// keep the first error reachable through errors.Is
	return fmt.Errorf("%w (and %d more): %s", first, len(errMsg)-1, strings.Join(errMsg[1:], ","))
}

// CheckFiles probes the file system for the existence of the directory of every
// named file and, if checkExistence is set, of the file itself.  Returns a boolean
// indicating whether all checks passed, and an aggregated error if any failed.
func CheckFiles(names []string, checkExistence bool) (bool, error) {
	errs := make([]error, 0)

	for _, name := range names {
		if len(name) == 0 {
			continue
		}

		// split off the directory portion of the path
		directory, _ := filepath.Split(name)
		if len(directory) == 0 {
			directory = "."
		}
		if _, err := os.Stat(directory); err != nil {
			errs = append(errs, err)
			continue
		}
		if checkExistence {
			if _, err := os.Stat(name); err != nil {
				errs = append(errs, err)
			}
		}
	}

	err := ReportErrs(errs)
	if err != nil {
		return false, err
	}
	return true, nil
}
