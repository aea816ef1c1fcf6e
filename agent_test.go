package epiworld

import (
	"errors"
	"math"
	"testing"
)

func TestProposeLocksAgent(t *testing.T) {
	m := newSIRModel(t, 10, 2, 0.0, 1.0, 1.0)
	if err := m.Init(1, 5); err != nil {
		t.Fatal(err)
	}
	v := m.Viruses()[0]
	a := m.AgentAt(3)

	if err := a.AddVirus(m, v, StatusInfected, QueueDefault); err != nil {
		t.Fatalf("first proposal refused: %v", err)
	}
	if !a.Locked() {
		t.Error("agent not locked after a proposal")
	}
	err := a.ChangeStatus(m, StatusRemoved, QueueDefault)
	if !errors.Is(err, ErrAgentBusy) {
		t.Fatalf("second proposal: got %v, want ErrAgentBusy", err)
	}

	// nothing happens before the commit
	if a.NumViruses() != 0 || a.Status() != StatusHealthy {
		t.Error("proposal mutated the agent before commit")
	}

	if err := m.commitActions(); err != nil {
		t.Fatal(err)
	}
	if a.Locked() {
		t.Error("agent still locked after commit")
	}
	if a.NumViruses() != 1 || a.Status() != StatusInfected {
		t.Errorf("after commit: %d viruses, status %d", a.NumViruses(), a.Status())
	}
	got, _ := a.Virus(0)
	if got == v {
		t.Error("agent holds the registry template instead of a copy")
	}
	if got.Date() != m.Today() || got.Host(m) != a {
		t.Errorf("copy has date %d host %v", got.Date(), got.Host(m))
	}
}

func TestChangeStatusUnknown(t *testing.T) {
	m := newRingModel(t, 5, 2)
	if err := m.Init(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := m.AgentAt(0).ChangeStatus(m, 77, QueueDefault); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("got %v, want ErrUnknownStatus", err)
	}
}

func TestRemoveSlotOutOfRange(t *testing.T) {
	m := newRingModel(t, 5, 2)
	if err := m.Init(1, 1); err != nil {
		t.Fatal(err)
	}
	a := m.AgentAt(0)
	if err := a.RemoveVirus(m, 0, StatusUnchanged, QueueDefault); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("RemoveVirus: got %v, want ErrOutOfRange", err)
	}
	if err := a.RemoveTool(m, 2, StatusUnchanged, QueueDefault); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("RemoveTool: got %v, want ErrOutOfRange", err)
	}
	if a.Locked() {
		t.Error("refused proposal locked the agent")
	}
}

func TestAddNothing(t *testing.T) {
	m := newRingModel(t, 5, 2)
	if err := m.Init(1, 1); err != nil {
		t.Fatal(err)
	}
	a := m.AgentAt(0)
	if err := a.AddVirus(m, nil, StatusInfected, QueueDefault); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("AddVirus(nil): got %v, want ErrOutOfRange", err)
	}
	if err := a.AddTool(m, nil, StatusUnchanged, QueueDefault); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("AddTool(nil): got %v, want ErrOutOfRange", err)
	}
	if a.Locked() || m.actions.Len() != 0 {
		t.Error("refused proposal was queued")
	}
}

func TestCompoundReduction(t *testing.T) {
	tests := []struct {
		name    string
		effects []float64
		want    float64
	}{
		{"no tools", nil, 0.0},
		{"one tool", []float64{0.3}, 0.3},
		{"two halves", []float64{0.5, 0.5}, 0.75},
		{"three tools", []float64{0.9, 0.5, 0.2}, 1.0 - 0.1*0.5*0.8},
		{"full protection", []float64{1.0, 0.4}, 1.0},
		{"out of range values are clamped", []float64{1.7, -0.5}, 1.0},
		{"NaN is no reduction", []float64{math.NaN(), 0.5}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newRingModel(t, 4, 2)
			v := CreateVirus("v", nil)
			if err := m.AddVirus(v, 0.0); err != nil {
				t.Fatal(err)
			}
			a := m.AgentAt(0)
			m.committing = true
			for idx, e := range tt.effects {
				tool := CreateTool("tool")
				tool.SetContagionReductionValue(e)
				tool.SetTransmissionReductionValue(e)
				tool.SetRecoveryEnhancerValue(e)
				tool.SetDeathReductionValue(e)
				if err := m.AddTool(tool, 0.0); err != nil {
					t.Fatal(err)
				}
				if err := m.AttachTool(a, m.Tools()[idx]); err != nil {
					t.Fatal(err)
				}
			}
			m.committing = false

			for name, got := range map[string]float64{
				"susceptibility": a.SusceptibilityReduction(v, m),
				"transmission":   a.TransmissionReduction(v, m),
				"recovery":       a.RecoveryEnhancer(v, m),
				"death":          a.DeathReduction(v, m),
			} {
				if got < 0.0 || got > 1.0 {
					t.Errorf("%s reduction %f outside [0,1]", name, got)
				}
				if math.Abs(got-tt.want) > 1e-12 {
					t.Errorf("%s reduction = %f, want %f", name, got, tt.want)
				}
			}
		})
	}
}

func TestRateDefaultsAndParams(t *testing.T) {
	m := newRingModel(t, 4, 2)
	v := CreateVirus("v", nil)
	if got := v.Infectiousness(m); got != DefaultVirusInfectiousness {
		t.Errorf("default infectiousness %f", got)
	}
	if got := v.Persistence(m); got != DefaultVirusPersistence {
		t.Errorf("default persistence %f", got)
	}
	if got := v.Death(m); got != DefaultVirusDeath {
		t.Errorf("default death %f", got)
	}

	h, err := m.AddParam("beta", 0.25)
	if err != nil {
		t.Fatal(err)
	}
	v.SetInfectiousnessParam(h)
	if got := v.Infectiousness(m); got != 0.25 {
		t.Errorf("param infectiousness %f", got)
	}
	if err := m.SetParam("beta", 0.5); err != nil {
		t.Fatal(err)
	}
	if got := v.Infectiousness(m); got != 0.5 {
		t.Errorf("infectiousness does not follow the parameter: %f", got)
	}

	tool := CreateTool("t")
	if got := tool.ContagionReduction(v, m); got != DefaultToolContagionReduction {
		t.Errorf("default contagion reduction %f", got)
	}
}
