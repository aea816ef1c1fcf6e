package epiworld

import (
	"testing"
)

// newRingModel returns a model whose population is an undirected ring lattice
func newRingModel(t *testing.T, n, k int) *Model {
	t.Helper()
	al, err := RingLattice(n, k, false)
	if err != nil {
		t.Fatalf("RingLattice(%d, %d): %v", n, k, err)
	}
	m := CreateModel("test")
	if err := m.PopFromAdjList(al); err != nil {
		t.Fatalf("PopFromAdjList: %v", err)
	}
	return m
}

// newSIRModel adds to a ring model a virus with the given infectiousness and
// persistence, seeded at prevalence
func newSIRModel(t *testing.T, n, k int, prevalence, infectiousness, persistence float64) *Model {
	t.Helper()
	m := newRingModel(t, n, k)
	v := CreateVirus("flu", nil)
	v.SetInfectiousnessValue(infectiousness)
	v.SetPersistenceValue(persistence)
	if err := m.AddVirus(v, prevalence); err != nil {
		t.Fatalf("AddVirus: %v", err)
	}
	return m
}

func histOfModel(m *Model) []int {
	_, _, counts := m.Database().HistTotal()
	return counts
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
