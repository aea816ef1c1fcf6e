package epiworld

// action.go holds the deferred mutation protocol.  During the update pass agents only
// propose Actions; commitActions applies all of them, in the order proposed, and
// then releases the agent locks.

import (
	"fmt"
)

// ActionKind tags the variant of an Action
type ActionKind int

const (
	ActionAddVirus ActionKind = iota
	ActionAddTool
	ActionRemoveVirus
	ActionRemoveTool
	ActionChangeStatus
)

var actionKindStr = map[ActionKind]string{
	ActionAddVirus:     "add_virus",
	ActionAddTool:      "add_tool",
	ActionRemoveVirus:  "rm_virus",
	ActionRemoveTool:   "rm_tool",
	ActionChangeStatus: "change_status",
}

func (ak ActionKind) String() string {
	str, present := actionKindStr[ak]
	if !present {
		return "unknown"
	}
	return str
}

// QueueDirective tells the agent queue how an Action changes which agents need
// updating.  Positive values add to the queue, negative values take away.
type QueueDirective int

const (
	QueueNoOne    QueueDirective = 0
	QueueOnlySelf QueueDirective = 1
	QueueEveryone QueueDirective = 2

	// QueueDefault selects the directive customary for the Action kind
	QueueDefault QueueDirective = -99
)

// Action is a proposed change to one agent
type Action struct {
	Kind      ActionKind
	Agent     int    // population index of the target agent
	Virus     *Virus // virus to copy, for ActionAddVirus
	Tool      *Tool  // tool to copy, for ActionAddTool
	Slot      int    // slot to remove, for ActionRemoveVirus and ActionRemoveTool
	Source    int    // id of the agent passing the virus on, -1 when there is none
	NewStatus StatusCode
	Queue     QueueDirective
}

// resolveQueue replaces QueueDefault by the directive customary for the kind
func (act *Action) resolveQueue() QueueDirective {
	if act.Queue != QueueDefault {
		return act.Queue
	}
	switch act.Kind {
	case ActionAddVirus:
		return QueueEveryone
	case ActionRemoveVirus:
		return -QueueEveryone
	}
	return QueueNoOne
}

// ActionFunc applies an Action to the model.  Handlers run in the commit phase
// and may mutate the target agent directly.
type ActionFunc func(act *Action, m *Model) error

// ActionQueue collects the Actions proposed during a day
type ActionQueue struct {
	actions []Action
	pending map[int]ActionKind
}

func createActionQueue() ActionQueue {
	return ActionQueue{actions: make([]Action, 0), pending: make(map[int]ActionKind)}
}

func (aq *ActionQueue) push(act Action) {
	aq.actions = append(aq.actions, act)
	aq.pending[act.Agent] = act.Kind
}

// Len is the number of Actions waiting to be committed
func (aq *ActionQueue) Len() int {
	return len(aq.actions)
}

func (aq *ActionQueue) pendingKind(agent int) string {
	kind, present := aq.pending[agent]
	if !present {
		return "action"
	}
	return kind.String()
}

func (aq *ActionQueue) clear() {
	aq.actions = aq.actions[:0]
	clear(aq.pending)
}

// commitActions applies every queued Action exactly once and unlocks the agents.
// On a handler error the remaining Actions are discarded and every lock released,
// so that the model is not left with agents that can never be mutated again.
func (m *Model) commitActions() error {
	m.committing = true
	defer func() {
		m.committing = false
		for idx := range m.actions.actions {
			m.population[m.actions.actions[idx].Agent].locked = false
		}
		m.actions.clear()
	}()

	for idx := range m.actions.actions {
		act := &m.actions.actions[idx]
		handler := m.actionHandlers[act.Kind]
		if handler == nil {
			return fmt.Errorf("no handler for %s", act.Kind)
		}
		if err := handler(act, m); err != nil {
			return err
		}

		agent := &m.population[act.Agent]
		if act.NewStatus != StatusUnchanged {
			if _, present := m.statusIdx[act.NewStatus]; !present {
				return fmt.Errorf("%w: %d proposed for agent %d", ErrUnknownStatus, act.NewStatus, agent.id)
			}
			agent.status = act.NewStatus
		}
		m.queue.apply(act.Agent, act.resolveQueue())

		if m.trace != nil {
			AddActionTrace(m.trace, m.today, act, agent)
		}
	}
	return nil
}

// DefaultAddVirus copies the virus into the agent's list, dated today.  When the
// source instance has a host the copy is recorded as a transmission.
func DefaultAddVirus(act *Action, m *Model) error {
	if act.Virus == nil {
		return fmt.Errorf("add_virus action without a virus for agent %d", m.population[act.Agent].id)
	}
	agent := &m.population[act.Agent]
	nv := act.Virus.clone()
	nv.host = agent.index
	nv.date = m.today
	agent.viruses = append(agent.viruses, nv)
	agent.nViruses++

	if act.Source >= 0 {
		m.db.recordTransmission(m.today, act.Source, agent.id, nv.id)
	}
	return nil
}

// DefaultAddTool copies the tool into the agent's list, dated today
func DefaultAddTool(act *Action, m *Model) error {
	if act.Tool == nil {
		return fmt.Errorf("add_tool action without a tool for agent %d", m.population[act.Agent].id)
	}
	m.attachTool(&m.population[act.Agent], act.Tool)
	return nil
}

// DefaultRemoveVirus deactivates and detaches the virus in the Action's slot.
// The virus's post-recovery hook runs unless the agent moves to StatusRemoved.
// An agent moving to a removed-like status loses every virus.
func DefaultRemoveVirus(act *Action, m *Model) error {
	agent := &m.population[act.Agent]
	if act.Slot < 0 || act.Slot >= len(agent.viruses) {
		return fmt.Errorf("%w: virus slot %d of agent %d", ErrOutOfRange, act.Slot, agent.id)
	}
	v := agent.viruses[act.Slot]

	if act.NewStatus != StatusRemoved {
		v.postRecover(m)
	}
	removed := act.NewStatus != StatusUnchanged && m.isMeta(act.NewStatus, MetaRemoved)
	detachVirus(agent, act.Slot)

	if removed {
		// each further virus gave up its own contribution to the queue
		qd := act.resolveQueue()
		for len(agent.viruses) > 0 {
			last := len(agent.viruses) - 1
			if agent.viruses[last].active && qd < 0 {
				m.queue.apply(act.Agent, qd)
			}
			detachVirus(agent, last)
		}
	}
	return nil
}

func detachVirus(agent *Agent, slot int) {
	v := agent.viruses[slot]
	if v.active {
		agent.nViruses--
	}
	v.active = false
	v.host = -1
	agent.viruses = append(agent.viruses[:slot], agent.viruses[slot+1:]...)
}

// DefaultRemoveTool detaches the tool in the Action's slot
func DefaultRemoveTool(act *Action, m *Model) error {
	agent := &m.population[act.Agent]
	if act.Slot < 0 || act.Slot >= len(agent.tools) {
		return fmt.Errorf("%w: tool slot %d of agent %d", ErrOutOfRange, act.Slot, agent.id)
	}
	agent.tools[act.Slot].holder = -1
	agent.tools = append(agent.tools[:act.Slot], agent.tools[act.Slot+1:]...)
	return nil
}

// DefaultChangeStatus does nothing; the status is set by the commit loop
func DefaultChangeStatus(act *Action, m *Model) error {
	return nil
}

func defaultActionHandlers() map[ActionKind]ActionFunc {
	return map[ActionKind]ActionFunc{
		ActionAddVirus:     DefaultAddVirus,
		ActionAddTool:      DefaultAddTool,
		ActionRemoveVirus:  DefaultRemoveVirus,
		ActionRemoveTool:   DefaultRemoveTool,
		ActionChangeStatus: DefaultChangeStatus,
	}
}

// agentQueue counts, for each agent, how many reasons it has to be updated.  Only
// QueueEveryone contributions reach other agents, namely the followers of the
// contributor (the agents that list it as a neighbor), so the counters can be
// rebuilt from the per-agent contributions when the graph changes.
type agentQueue struct {
	counts    []int
	self      []int // net QueueOnlySelf contributions of each agent
	everyone  []int // net QueueEveryone contributions of each agent
	followers [][]int
	global    int
	mixing    bool
}

func (aq *agentQueue) reset(m *Model) {
	n := len(m.population)
	aq.counts = make([]int, n)
	aq.self = make([]int, n)
	aq.everyone = make([]int, n)
	aq.global = 0
	aq.buildFollowers(m)
}

func (aq *agentQueue) buildFollowers(m *Model) {
	aq.followers = make([][]int, len(m.population))
	for idx := range m.population {
		for _, nbr := range m.population[idx].neighbors {
			aq.followers[nbr] = append(aq.followers[nbr], idx)
		}
	}
}

// active reports whether the agent at idx needs its update function called
func (aq *agentQueue) active(idx int) bool {
	return aq.counts[idx] > 0 || (aq.mixing && aq.global > 0)
}

func (aq *agentQueue) apply(idx int, qd QueueDirective) {
	switch qd {
	case QueueOnlySelf:
		aq.self[idx]++
		aq.counts[idx]++
	case -QueueOnlySelf:
		if aq.self[idx] > 0 {
			aq.self[idx]--
			aq.counts[idx]--
		}
	case QueueEveryone:
		aq.everyone[idx]++
		aq.global++
		aq.counts[idx]++
		for _, f := range aq.followers[idx] {
			aq.counts[f]++
		}
	case -QueueEveryone:
		if aq.everyone[idx] > 0 {
			aq.everyone[idx]--
			aq.global--
			aq.counts[idx]--
			for _, f := range aq.followers[idx] {
				aq.counts[f]--
			}
		}
	}
}

// snapshot copies the per-agent contributions
func (aq *agentQueue) snapshot() agentQueue {
	return agentQueue{
		self:     append([]int(nil), aq.self...),
		everyone: append([]int(nil), aq.everyone...),
		global:   aq.global,
	}
}

// restore puts back the contributions of a snapshot and recomputes the counters
func (aq *agentQueue) restore(m *Model, snap agentQueue) {
	n := len(m.population)
	if len(snap.self) != n || len(snap.everyone) != n {
		aq.reset(m)
		return
	}
	aq.counts = make([]int, n)
	aq.self = append([]int(nil), snap.self...)
	aq.everyone = append([]int(nil), snap.everyone...)
	aq.global = snap.global
	aq.rebuild(m)
}

// rebuild recomputes the followers and the counters from the contributions
func (aq *agentQueue) rebuild(m *Model) {
	aq.buildFollowers(m)
	for idx := range aq.counts {
		aq.counts[idx] = aq.self[idx] + aq.everyone[idx]
	}
	for idx := range aq.everyone {
		if aq.everyone[idx] == 0 {
			continue
		}
		for _, f := range aq.followers[idx] {
			aq.counts[f] += aq.everyone[idx]
		}
	}
}
