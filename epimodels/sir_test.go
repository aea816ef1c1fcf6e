package epimodels

import (
	"errors"
	"testing"

	"github.com/iti/epiworld"
)

func TestNewSIR(t *testing.T) {
	m, err := NewSIR("flu", 0.1, 0.0, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	al, err := epiworld.RingLattice(100, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.PopFromAdjList(al); err != nil {
		t.Fatal(err)
	}
	if err := m.RunDays(3, 11); err != nil {
		t.Fatal(err)
	}

	// certain recovery and no transmission: the seeded agents recover on day one
	if got := m.CountStatus(epiworld.StatusRecovered); got != 10 {
		t.Errorf("%d recovered, want 10", got)
	}
	if got := m.CountStatus(epiworld.StatusInfected); got != 0 {
		t.Errorf("%d still infected", got)
	}
	if len(m.Database().Transmissions()) != 0 {
		t.Error("virus spread with zero transmission probability")
	}

	if err := m.SetParam(ParamTransmission, 1.0); err != nil {
		t.Fatal(err)
	}
	if err := m.SetParam(ParamRecovery, 0.0); err != nil {
		t.Fatal(err)
	}
	if err := m.RunDays(3, 11); err != nil {
		t.Fatal(err)
	}
	// each seeded agent reaches two agents a day on either side
	if got := m.CountStatus(epiworld.StatusHealthy); got >= 90 {
		t.Errorf("%d agents still healthy after certain transmission", got)
	}
}

func TestRecoveryIsForLife(t *testing.T) {
	sir, err := NewSIR("flu", 0.1, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	sirconn, err := NewSIRCONN("flu", 100, 0.1, 2.0, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range []*epiworld.Model{sir, sirconn} {
		meta, err := m.Meta(epiworld.StatusRecovered)
		if err != nil {
			t.Fatal(err)
		}
		if meta != epiworld.MetaRemoved {
			t.Errorf("%s: recovered is %s, want removed-like", m.Name(), meta)
		}
	}
}

func TestModelArguments(t *testing.T) {
	tests := []struct {
		name  string
		build func() error
	}{
		{"sir transmission", func() error { _, err := NewSIR("v", 0.1, 1.5, 0.2); return err }},
		{"sir recovery", func() error { _, err := NewSIR("v", 0.1, 0.5, -0.2); return err }},
		{"sir prevalence", func() error { _, err := NewSIR("v", 2.0, 0.5, 0.2); return err }},
		{"sirconn agents", func() error { _, err := NewSIRCONN("v", 0, 0.1, 1.0, 0.5, 0.2); return err }},
		{"sirconn contact rate", func() error { _, err := NewSIRCONN("v", 10, 0.1, -1.0, 0.5, 0.2); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.build(); !errors.Is(err, epiworld.ErrOutOfRange) {
				t.Errorf("got %v, want ErrOutOfRange", err)
			}
		})
	}
}
