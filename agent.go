package epiworld

// agent.go holds the Agent type.  Agents live in a contiguous slice owned by the
// Model; neighbors are referenced by their index in that slice.

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Agent is a node of the contact graph
type Agent struct {
	id        int
	index     int
	status    StatusCode
	viruses   []*Virus
	tools     []*Tool
	neighbors []int
	locked    bool
	nViruses  int // number of active viruses
}

// ID returns the stable identifier given to the agent when the population was loaded
func (a *Agent) ID() int {
	return a.id
}

// Index is the position of the agent in the population
func (a *Agent) Index() int {
	return a.index
}

func (a *Agent) Status() StatusCode {
	return a.status
}

// Locked reports whether the agent has a pending Action for the current day
func (a *Agent) Locked() bool {
	return a.locked
}

// Viruses returns the virus instances carried by the agent, in order of acquisition.
// The slice must not be modified.
func (a *Agent) Viruses() []*Virus {
	return a.viruses
}

// Virus returns the virus in the given slot
func (a *Agent) Virus(slot int) (*Virus, error) {
	if slot < 0 || slot >= len(a.viruses) {
		return nil, fmt.Errorf("%w: virus slot %d of agent %d", ErrOutOfRange, slot, a.id)
	}
	return a.viruses[slot], nil
}

// NumViruses is the number of active viruses carried by the agent
func (a *Agent) NumViruses() int {
	return a.nViruses
}

func (a *Agent) Tools() []*Tool {
	return a.tools
}

func (a *Agent) Tool(slot int) (*Tool, error) {
	if slot < 0 || slot >= len(a.tools) {
		return nil, fmt.Errorf("%w: tool slot %d of agent %d", ErrOutOfRange, slot, a.id)
	}
	return a.tools[slot], nil
}

func (a *Agent) NumTools() int {
	return len(a.tools)
}

// Neighbors returns the population indices of the agent's neighbors
func (a *Agent) Neighbors() []int {
	return a.neighbors
}

// HasVirus reports whether the agent carries an active instance of the virus with the registration id
func (a *Agent) HasVirus(id int) bool {
	return slices.IndexFunc(a.viruses, func(v *Virus) bool { return v.active && v.id == id }) >= 0
}

// HasVirusNamed is HasVirus by name
func (a *Agent) HasVirusNamed(name string) bool {
	return slices.IndexFunc(a.viruses, func(v *Virus) bool { return v.active && v.name == name }) >= 0
}

func (a *Agent) HasTool(id int) bool {
	return slices.IndexFunc(a.tools, func(t *Tool) bool { return t.id == id }) >= 0
}

func (a *Agent) HasToolNamed(name string) bool {
	return slices.IndexFunc(a.tools, func(t *Tool) bool { return t.name == name }) >= 0
}

// propose locks the agent and queues the Action.  A locked agent refuses.
func (a *Agent) propose(m *Model, act Action) error {
	if a.locked {
		return fmt.Errorf("%w: agent %d already has a pending %s", ErrAgentBusy, a.id, m.actions.pendingKind(a.index))
	}
	a.locked = true
	act.Agent = a.index
	m.actions.push(act)
	return nil
}

// AddVirus proposes that the agent acquire a copy of v.  When v is carried by another
// agent the acquisition is recorded as a transmission from that agent.
func (a *Agent) AddVirus(m *Model, v *Virus, newStatus StatusCode, queue QueueDirective) error {
	if v == nil {
		return fmt.Errorf("%w: no virus offered to agent %d", ErrOutOfRange, a.id)
	}
	source := -1
	if host := v.Host(m); host != nil {
		source = host.id
	}
	return a.propose(m, Action{Kind: ActionAddVirus, Virus: v, Slot: -1, Source: source, NewStatus: newStatus, Queue: queue})
}

// AddTool proposes that the agent acquire a copy of t
func (a *Agent) AddTool(m *Model, t *Tool, newStatus StatusCode, queue QueueDirective) error {
	if t == nil {
		return fmt.Errorf("%w: no tool offered to agent %d", ErrOutOfRange, a.id)
	}
	return a.propose(m, Action{Kind: ActionAddTool, Tool: t, Slot: -1, Source: -1, NewStatus: newStatus, Queue: queue})
}

// RemoveVirus proposes that the virus in the given slot be deactivated and detached
func (a *Agent) RemoveVirus(m *Model, slot int, newStatus StatusCode, queue QueueDirective) error {
	if slot < 0 || slot >= len(a.viruses) {
		return fmt.Errorf("%w: virus slot %d of agent %d", ErrOutOfRange, slot, a.id)
	}
	return a.propose(m, Action{Kind: ActionRemoveVirus, Slot: slot, Source: -1, NewStatus: newStatus, Queue: queue})
}

// RemoveTool proposes that the tool in the given slot be detached
func (a *Agent) RemoveTool(m *Model, slot int, newStatus StatusCode, queue QueueDirective) error {
	if slot < 0 || slot >= len(a.tools) {
		return fmt.Errorf("%w: tool slot %d of agent %d", ErrOutOfRange, slot, a.id)
	}
	return a.propose(m, Action{Kind: ActionRemoveTool, Slot: slot, Source: -1, NewStatus: newStatus, Queue: queue})
}

// ChangeStatus proposes a status change with no virus or tool involved
func (a *Agent) ChangeStatus(m *Model, newStatus StatusCode, queue QueueDirective) error {
	if _, present := m.statusIdx[newStatus]; !present {
		return fmt.Errorf("%w: %d", ErrUnknownStatus, newStatus)
	}
	return a.propose(m, Action{Kind: ActionChangeStatus, Slot: -1, Source: -1, NewStatus: newStatus, Queue: queue})
}

// compound folds one tool effect over every tool the agent holds.  The residual
// risks (1-reduction) multiply, so the result is always in [0,1].
func (a *Agent) compound(v *Virus, m *Model, effect func(*Tool, *Virus, *Model) float64) float64 {
	residual := 1.0
	for _, t := range a.tools {
		residual *= 1.0 - effect(t, v, m)
	}
	return 1.0 - residual
}

// SusceptibilityReduction is the compound reduction, over all tools held, in the chance of catching v
func (a *Agent) SusceptibilityReduction(v *Virus, m *Model) float64 {
	return a.compound(v, m, (*Tool).ContagionReduction)
}

// TransmissionReduction is the compound reduction in the chance of passing v on
func (a *Agent) TransmissionReduction(v *Virus, m *Model) float64 {
	return a.compound(v, m, (*Tool).TransmissionReduction)
}

// RecoveryEnhancer is the compound increase in the chance of clearing v
func (a *Agent) RecoveryEnhancer(v *Virus, m *Model) float64 {
	return a.compound(v, m, (*Tool).RecoveryEnhancer)
}

// DeathReduction is the compound reduction in the chance that v kills the agent
func (a *Agent) DeathReduction(v *Virus, m *Model) float64 {
	return a.compound(v, m, (*Tool).DeathReduction)
}

// copyAgent makes an independent copy, cloning the virus and tool instances
func copyAgent(a *Agent) Agent {
	na := *a
	na.neighbors = slices.Clone(a.neighbors)
	na.viruses = make([]*Virus, len(a.viruses))
	for idx, v := range a.viruses {
		na.viruses[idx] = v.clone()
		na.viruses[idx].host = v.host
		na.viruses[idx].active = v.active
	}
	na.tools = make([]*Tool, len(a.tools))
	for idx, t := range a.tools {
		na.tools[idx] = t.clone()
		na.tools[idx].holder = t.holder
	}
	na.locked = false
	return na
}
