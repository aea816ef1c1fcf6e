package epiworld

import (
	"errors"
	"testing"

	"golang.org/x/exp/slices"
)

func TestAddStatusErrors(t *testing.T) {
	m := CreateModel("statuses")

	tests := []struct {
		name  string
		code  StatusCode
		label string
		want  error
	}{
		{"code in use", StatusRecovered, "convalescent", ErrDuplicateStatus},
		{"label in use", 10, "infected", ErrDuplicateStatus},
		{"negative code", -3, "bad", ErrOutOfRange},
		{"fresh", 10, "exposed", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.AddStatusInfected(tt.code, tt.label)
			if !errors.Is(err, tt.want) {
				t.Errorf("AddStatusInfected(%d, %q) = %v, want %v", tt.code, tt.label, err, tt.want)
			}
		})
	}

	code, err := m.AddStatusLabel(MetaRemoved, "quarantined")
	if err != nil {
		t.Fatal(err)
	}
	if code != 11 {
		t.Errorf("AddStatusLabel gave code %d, want 11", code)
	}
	if meta, _ := m.Meta(code); meta != MetaRemoved {
		t.Errorf("meta of %d is %s", code, meta)
	}
	labels := m.StatusLabels()
	if len(labels) != 6 || labels[4] != "exposed" || labels[5] != "quarantined" {
		t.Errorf("labels %v", labels)
	}
}

func TestAddParamDuplicate(t *testing.T) {
	m := CreateModel("params")
	if _, err := m.AddParam("gamma", 0.1); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddParam("gamma", 0.2); !errors.Is(err, ErrDuplicateParameter) {
		t.Errorf("got %v, want ErrDuplicateParameter", err)
	}
	if v, _ := m.GetParam("gamma"); v != 0.1 {
		t.Errorf("duplicate overwrote the value: %f", v)
	}
	if _, err := m.GetParam("delta"); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("got %v, want ErrUnknownParameter", err)
	}
}

func TestRunBeforeInit(t *testing.T) {
	m := newSIRModel(t, 10, 2, 0.1, 0.5, 0.5)
	if err := m.Run(); !errors.Is(err, ErrUninitializedModel) {
		t.Errorf("Run: got %v, want ErrUninitializedModel", err)
	}
	if err := m.RunMultiple(2, nil); !errors.Is(err, ErrUninitializedModel) {
		t.Errorf("RunMultiple: got %v, want ErrUninitializedModel", err)
	}
	if err := m.Reset(); !errors.Is(err, ErrUninitializedModel) {
		t.Errorf("Reset: got %v, want ErrUninitializedModel", err)
	}

	empty := CreateModel("empty")
	if err := empty.Init(1, 10); !errors.Is(err, ErrUninitializedModel) {
		t.Errorf("Init without population: got %v, want ErrUninitializedModel", err)
	}
}

func TestPrevalenceSeeding(t *testing.T) {
	m := newSIRModel(t, 200, 4, 0.05, 0.5, 0.5)
	tool := CreateTool("mask")
	if err := m.AddTool(tool, 0.25); err != nil {
		t.Fatal(err)
	}
	if err := m.Init(3, 10); err != nil {
		t.Fatal(err)
	}
	if got := m.CountStatus(StatusInfected); got != 10 {
		t.Errorf("%d infected after init, want 10", got)
	}
	holders := 0
	for idx := range m.Population() {
		a := m.AgentAt(idx)
		holders += a.NumTools()
		if a.Locked() {
			t.Fatalf("agent %d locked after init", a.ID())
		}
	}
	if holders != 50 {
		t.Errorf("%d tools handed out, want 50", holders)
	}
	if m.Database().NDays() != 1 {
		t.Errorf("init recorded %d days, want 1", m.Database().NDays())
	}
}

func TestAgentsConserved(t *testing.T) {
	m := newSIRModel(t, 300, 4, 0.05, 0.4, 0.8)
	m.Viruses()[0].SetDeathValue(0.05)
	if err := m.Init(17, 40); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.State() != Finished {
		t.Errorf("state %s after run", m.State())
	}

	nstatus := len(m.Database().Labels())
	_, _, counts := m.Database().HistTotal()
	for start := 0; start < len(counts); start += nstatus {
		total := 0
		for _, c := range counts[start : start+nstatus] {
			total += c
		}
		if total != 300 {
			t.Fatalf("day %d has %d agents", start/nstatus, total)
		}
	}
}

func TestSeedDeterminism(t *testing.T) {
	run := func(seed int64) *Model {
		m := newSIRModel(t, 500, 4, 0.02, 0.3, 0.8)
		if err := m.SetRewireProp(0.1); err != nil {
			t.Fatal(err)
		}
		if err := m.RunDays(40, seed); err != nil {
			t.Fatal(err)
		}
		return m
	}

	a, b := run(99), run(99)
	if !equalInts(histOfModel(a), histOfModel(b)) {
		t.Error("same seed gave different histories")
	}
	if len(a.Database().Transmissions()) != len(b.Database().Transmissions()) {
		t.Error("same seed gave different transmission counts")
	}
	ea, eb := a.Edgelist(), b.Edgelist()
	if !equalInts(ea.Source, eb.Source) || !equalInts(ea.Target, eb.Target) {
		t.Error("same seed gave different rewired graphs")
	}

	c := run(100)
	if equalInts(histOfModel(a), histOfModel(c)) {
		t.Error("different seeds gave identical histories")
	}
}

func TestResetRestoresBackup(t *testing.T) {
	m := newSIRModel(t, 100, 4, 0.1, 0.5, 0.7)
	if err := m.SetRewireProp(0.2); err != nil {
		t.Fatal(err)
	}
	m.SetBackup()
	before := m.Edgelist()

	if err := m.RunDays(20, 8); err != nil {
		t.Fatal(err)
	}
	after := m.Edgelist()
	if equalInts(before.Target, after.Target) {
		t.Fatal("rewiring left the graph unchanged")
	}

	if err := m.Reset(); err != nil {
		t.Fatal(err)
	}
	if m.State() != Initialized || m.Today() != 0 {
		t.Errorf("after reset: state %s, day %d", m.State(), m.Today())
	}
	if m.Database().NDays() != 0 {
		t.Errorf("database has %d days after reset", m.Database().NDays())
	}
	restored := m.Edgelist()
	if !equalInts(before.Source, restored.Source) || !equalInts(before.Target, restored.Target) {
		t.Error("reset did not restore the contact graph")
	}
	for idx := range m.Population() {
		a := m.AgentAt(idx)
		if a.Status() != StatusHealthy || len(a.Viruses()) != 0 {
			t.Fatalf("agent %d: status %d with %d viruses", a.ID(), a.Status(), len(a.Viruses()))
		}
	}

	// the viruses are seeded again when the next run starts
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	_, _, counts := m.Database().HistTotal()
	if counts[StatusInfected] != 10 {
		t.Errorf("%d infected on day 0 of the second run, want 10", counts[StatusInfected])
	}
}

func TestResetToSeededBackup(t *testing.T) {
	m := newSIRModel(t, 200, 4, 0.05, 0.6, 0.7)
	if err := m.Init(21, 15); err != nil {
		t.Fatal(err)
	}
	m.SetBackup()
	seeded := make(map[int]bool)
	for idx := range m.Population() {
		if m.AgentAt(idx).NumViruses() > 0 {
			seeded[m.AgentAt(idx).ID()] = true
		}
	}

	days := make([][]int, 0)
	saver := func(m *Model, rep int) error {
		_, _, counts := m.Database().HistTotal()
		days = append(days, counts[:len(m.Database().Labels())])
		return nil
	}
	if err := m.RunMultiple(3, saver); err != nil {
		t.Fatal(err)
	}
	if len(days) != 3 {
		t.Fatalf("saver called %d times", len(days))
	}
	for rep := range days {
		if !equalInts(days[rep], days[0]) {
			t.Errorf("replicate %d starts from %v, want %v", rep, days[rep], days[0])
		}
	}

	if err := m.Reset(); err != nil {
		t.Fatal(err)
	}
	for idx := range m.Population() {
		a := m.AgentAt(idx)
		if seeded[a.ID()] != (a.NumViruses() > 0) {
			t.Fatalf("agent %d infection not restored from backup", a.ID())
		}
	}
}

func TestRunMultipleReseeds(t *testing.T) {
	m := newSIRModel(t, 200, 4, 0.05, 0.5, 0.5)
	if err := m.Init(5, 10); err != nil {
		t.Fatal(err)
	}
	reps := 0
	err := m.RunMultiple(4, func(m *Model, rep int) error {
		if rep != reps {
			t.Errorf("replicate %d reported as %d", reps, rep)
		}
		reps++
		_, _, counts := m.Database().HistTotal()
		if counts[StatusInfected] != 10 {
			t.Errorf("replicate %d: %d infected on day 0", rep, counts[StatusInfected])
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if reps != 4 {
		t.Errorf("%d replicates saved", reps)
	}
	if _, _, n := m.Elapsed(); n != 4 {
		t.Errorf("elapsed reports %d runs", n)
	}

	stop := errors.New("stop")
	err = m.RunMultiple(3, func(*Model, int) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("saver error not propagated: %v", err)
	}
}

func TestEarlyTermination(t *testing.T) {
	m := newSIRModel(t, 20, 2, 1.0, 0.0, 1.0)
	m.Viruses()[0].SetDeathValue(1.0)
	if err := m.RunDays(50, 4); err != nil {
		t.Fatal(err)
	}
	if m.Today() != 1 {
		t.Errorf("run stopped on day %d, want 1", m.Today())
	}
	if got := m.CountStatus(StatusRemoved); got != 20 {
		t.Errorf("%d removed agents", got)
	}
	if m.Database().NDays() != 2 {
		t.Errorf("%d days recorded", m.Database().NDays())
	}
	for idx := range m.Population() {
		if m.AgentAt(idx).NumViruses() != 0 {
			t.Fatal("dead agent still carries a virus")
		}
	}
}

func TestRecoveredCanBeReinfected(t *testing.T) {
	al := CreateAdjList(false, 0, 1)
	al.AddEdge(0, 1)
	m := CreateModel("pair")
	if err := m.PopFromAdjList(al); err != nil {
		t.Fatal(err)
	}
	v := CreateVirus("flu", nil)
	v.SetInfectiousnessValue(1.0)
	v.SetPersistenceValue(0.0)
	if err := m.AddVirus(v, 0.5); err != nil {
		t.Fatal(err)
	}
	// day one: the seeded agent recovers and infects its neighbor.
	// day two: the neighbor passes the virus back and recovers in turn.
	if err := m.RunDays(2, 3); err != nil {
		t.Fatal(err)
	}
	trans := m.Database().Transmissions()
	if len(trans) != 2 {
		t.Fatalf("%d transmissions, want 2", len(trans))
	}
	first, second := trans[0].Source, trans[0].Target
	if trans[1].Source != second || trans[1].Target != first || trans[1].Day != trans[0].Day+1 {
		t.Errorf("second transmission %+v does not go back to agent %d a day later", trans[1], first)
	}

	// ids 0 and 1 sit at indices 0 and 1
	if got := m.AgentAt(first).Status(); got != StatusInfected {
		t.Errorf("first carrier has status %s, want infected", m.StatusLabel(got))
	}
	if got := m.AgentAt(second).Status(); got != StatusRecovered {
		t.Errorf("second carrier has status %s, want recovered", m.StatusLabel(got))
	}
	raw := m.Database().TransitionProbability(false)
	if got := raw.At(int(StatusRecovered), int(StatusInfected)); got != 1.0 {
		t.Errorf("%f recovered to infected transitions, want 1", got)
	}
}

func TestRecoveredPopulationKeepsRunning(t *testing.T) {
	m := newSIRModel(t, 10, 2, 1.0, 0.0, 0.0)
	if err := m.RunDays(5, 8); err != nil {
		t.Fatal(err)
	}
	if got := m.CountStatus(StatusRecovered); got != 10 {
		t.Fatalf("%d recovered agents, want 10", got)
	}
	if m.Today() != 5 {
		t.Errorf("run stopped on day %d, want 5", m.Today())
	}
}

func TestSetStatusMeta(t *testing.T) {
	m := newRingModel(t, 10, 2)
	if err := m.SetStatusMeta(StatusCode(42), MetaRemoved); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("unknown status: got %v, want ErrUnknownStatus", err)
	}
	if err := m.SetStatusMeta(StatusRecovered, MetaCategory(7)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("bad meta-category: got %v, want ErrOutOfRange", err)
	}
	if meta, _ := m.Meta(StatusRecovered); meta != MetaSusceptible {
		t.Errorf("recovered starts %s, want susceptible-like", meta)
	}
	if err := m.SetStatusMeta(StatusRecovered, MetaRemoved); err != nil {
		t.Fatal(err)
	}
	if got := m.StatusesOf(MetaRemoved); !slices.Contains(got, StatusRecovered) {
		t.Errorf("removed-like statuses %v", got)
	}
}

func TestPostRecoveryHook(t *testing.T) {
	m := newSIRModel(t, 10, 2, 1.0, 0.0, 0.0)
	immune := CreateTool("immunity")
	immune.SetContagionReductionValue(1.0)
	if err := m.AddTool(immune, 0.0); err != nil {
		t.Fatal(err)
	}

	calls := 0
	m.Viruses()[0].SetPostRecovery(func(v *Virus, host *Agent, m *Model) {
		calls++
		if host == nil {
			t.Error("hook called without a host")
			return
		}
		if err := m.AttachTool(host, m.Tools()[0]); err != nil {
			t.Errorf("AttachTool from hook: %v", err)
		}
	})

	if err := m.RunDays(1, 2); err != nil {
		t.Fatal(err)
	}
	if calls != 10 {
		t.Errorf("hook called %d times, want 10", calls)
	}
	for idx := range m.Population() {
		a := m.AgentAt(idx)
		if a.Status() != StatusRecovered || !a.HasToolNamed("immunity") {
			t.Errorf("agent %d: status %d, tools %d", a.ID(), a.Status(), a.NumTools())
		}
	}

	if err := m.AttachTool(m.AgentAt(0), immune); !errors.Is(err, ErrOutsideCommit) {
		t.Errorf("AttachTool outside commit: got %v, want ErrOutsideCommit", err)
	}
}

func TestCommitOrderAndCustomHandler(t *testing.T) {
	m := newRingModel(t, 6, 2)
	exposed, err := m.AddStatusLabel(MetaSusceptible, "exposed")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Init(1, 3); err != nil {
		t.Fatal(err)
	}

	order := make([]int, 0)
	m.SetActionHandler(ActionChangeStatus, func(act *Action, m *Model) error {
		order = append(order, m.AgentAt(act.Agent).ID())
		return nil
	})
	for _, idx := range []int{4, 1, 3} {
		if err := m.AgentAt(idx).ChangeStatus(m, exposed, QueueDefault); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.commitActions(); err != nil {
		t.Fatal(err)
	}
	if !equalInts(order, []int{4, 1, 3}) {
		t.Errorf("actions committed in order %v", order)
	}
	if m.CountStatus(exposed) != 3 {
		t.Errorf("%d agents exposed", m.CountStatus(exposed))
	}

	// a failing handler releases every lock
	m.SetActionHandler(ActionChangeStatus, func(*Action, *Model) error { return errors.New("boom") })
	for _, idx := range []int{0, 2} {
		if err := m.AgentAt(idx).ChangeStatus(m, exposed, QueueDefault); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.commitActions(); err == nil {
		t.Fatal("handler error swallowed")
	}
	for idx := range m.Population() {
		if m.AgentAt(idx).Locked() {
			t.Fatalf("agent %d left locked", idx)
		}
	}
}

func TestDayStartHook(t *testing.T) {
	m := newSIRModel(t, 20, 2, 0.1, 0.5, 0.5)
	days := make([]int, 0)
	m.SetDayStart(func(m *Model) error {
		days = append(days, m.Today())
		return nil
	})
	if err := m.RunDays(5, 1); err != nil {
		t.Fatal(err)
	}
	if len(days) != 5 || days[0] != 0 || days[4] != 4 {
		t.Errorf("day start called on days %v", days)
	}

	fail := errors.New("day start failed")
	m.SetDayStart(func(*Model) error { return fail })
	if err := m.RunDays(5, 1); !errors.Is(err, fail) {
		t.Errorf("got %v, want the day start error", err)
	}
}

// queuing only skips agents that would draw no random numbers, so both modes
// must walk through the same states
func TestQueuingEquivalence(t *testing.T) {
	build := func(queuing bool) *Model {
		m := newSIRModel(t, 1000, 6, 0.01, 0.35, 0.75)
		m.Viruses()[0].SetDeathValue(0.01)
		tool := CreateTool("vaccine")
		tool.SetContagionReductionValue(0.5)
		tool.SetRecoveryEnhancerValue(0.3)
		if err := m.AddTool(tool, 0.2); err != nil {
			t.Fatal(err)
		}
		if !queuing {
			m.QueuingOff()
		}
		if err := m.RunDays(60, 1231); err != nil {
			t.Fatal(err)
		}
		return m
	}

	on, off := build(true), build(false)
	if !equalInts(histOfModel(on), histOfModel(off)) {
		t.Error("queuing changed the history")
	}
	if len(on.Database().Transmissions()) == 0 {
		t.Error("the virus never spread")
	}
}

func TestQueuingEquivalenceDirected(t *testing.T) {
	build := func(queuing bool) *Model {
		al, err := RingLattice(400, 3, true)
		if err != nil {
			t.Fatal(err)
		}
		m := CreateModel("directed")
		if err := m.PopFromAdjList(al); err != nil {
			t.Fatal(err)
		}
		v := CreateVirus("flu", nil)
		v.SetInfectiousnessValue(0.6)
		v.SetPersistenceValue(0.8)
		if err := m.AddVirus(v, 0.02); err != nil {
			t.Fatal(err)
		}
		if !queuing {
			m.QueuingOff()
		}
		if err := m.RunDays(40, 77); err != nil {
			t.Fatal(err)
		}
		return m
	}
	if !equalInts(histOfModel(build(true)), histOfModel(build(false))) {
		t.Error("queuing changed the history of a directed model")
	}
}
