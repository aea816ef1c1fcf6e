package epiworld

import (
	"errors"
	"testing"
)

func TestContactPath(t *testing.T) {
	m := newRingModel(t, 10, 2)

	path, err := m.ContactPath(0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !equalInts(path, []int{0, 1, 2, 3}) {
		t.Errorf("path 0->3 is %v", path)
	}
	path, err = m.ContactPath(0, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !equalInts(path, []int{0, 9, 8}) {
		t.Errorf("path 0->8 is %v", path)
	}
	if _, err := m.ContactPath(0, 42); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("unknown destination: got %v", err)
	}
}

func TestComponents(t *testing.T) {
	al := CreateAdjList(false, 0, 6)
	al.AddEdge(0, 1)
	al.AddEdge(1, 2)
	al.AddEdge(4, 5)
	m := CreateModel("pieces")
	if err := m.PopFromAdjList(al); err != nil {
		t.Fatal(err)
	}

	comps, err := m.Components()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]int{{0, 1, 2}, {3}, {4, 5}, {6}}
	if len(comps) != len(want) {
		t.Fatalf("components %v", comps)
	}
	for idx := range want {
		if !equalInts(comps[idx], want[idx]) {
			t.Errorf("component %d is %v, want %v", idx, comps[idx], want[idx])
		}
	}

	path, err := m.ContactPath(0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(path) != 0 {
		t.Errorf("path across components %v", path)
	}

	dal, _ := RingLattice(5, 1, true)
	dm := CreateModel("directed")
	if err := dm.PopFromAdjList(dal); err != nil {
		t.Fatal(err)
	}
	if _, err := dm.Components(); !errors.Is(err, ErrInvalidGraphOperation) {
		t.Errorf("directed components: got %v", err)
	}
}

func TestGraphCacheDropped(t *testing.T) {
	m := newRingModel(t, 30, 4)
	if err := m.Init(2, 1); err != nil {
		t.Fatal(err)
	}
	g := m.ContactGraph()
	if g.Node(0) == nil {
		t.Fatal("agent 0 missing from the contact graph")
	}
	if err := m.SetRewireProp(1.0); err != nil {
		t.Fatal(err)
	}
	if err := m.Rewire(); err != nil {
		t.Fatal(err)
	}
	if m.ContactGraph() == g {
		t.Error("rewiring kept the cached graph")
	}
	for idx := range m.Population() {
		a := m.AgentAt(idx)
		for _, nbr := range a.Neighbors() {
			if !m.ContactGraph().HasEdgeBetween(int64(a.ID()), int64(m.AgentAt(nbr).ID())) {
				t.Fatalf("edge %d-%d missing from the rebuilt graph", a.ID(), m.AgentAt(nbr).ID())
			}
		}
	}
}
