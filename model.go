package epiworld

// model.go has the code that builds a model and drives it through its lifecycle:
// registration of statuses, viruses and tools, seeding of the population,
// the daily update/commit/mutate/rewire/record cycle, backups and resets.

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/iti/epiworld/internal/logging"
	"golang.org/x/exp/slices"
)

// UpdateFunc is called once per day for every agent of the matching meta-category.
// It reads the population and proposes Actions; it must not mutate agents directly.
type UpdateFunc func(a *Agent, m *Model) error

// DayStartFunc is called once at the start of every day, before any update function
type DayStartFunc func(m *Model) error

// RewireFunc perturbs the contact graph of a model, between days
type RewireFunc func(m *Model, proportion float64) error

type statusDesc struct {
	code  StatusCode
	label string
	meta  MetaCategory
}

// Model owns the population, the registries, the parameters, the random streams
// and the database of a simulation
type Model struct {
	name       string
	population []Agent
	idToIndex  map[int]int
	directed   bool

	viruses         []*Virus
	prevalenceVirus []float64
	tools           []*Tool
	prevalenceTool  []float64

	rng *RandomStreams
	db  *Database

	paramNames []string
	paramVals  []float64
	paramIdx   map[string]ParamHandle

	statuses  []statusDesc
	statusIdx map[StatusCode]int

	updateFuncs    [3]UpdateFunc
	dayStart       DayStartFunc
	actionHandlers map[ActionKind]ActionFunc
	actions        ActionQueue
	committing     bool
	queue          agentQueue
	queuing        bool

	rewireFunc RewireFunc
	rewireProp float64

	ndays  int
	today  int
	state  ModelState
	seeded bool
	seed   uint64

	backup       []Agent
	backupQueue  agentQueue
	backupSeeded bool
	view         *contactView

	progress ProgressReporter
	trace    *TraceManager
	logger   *slog.Logger
	verbose  bool

	lastElapsed  time.Duration
	totalElapsed time.Duration
	nReplicates  int
}

// CreateModel is a constructor.  The model starts with the four built-in statuses:
// healthy and recovered (susceptible-like), infected (infected-like) and removed
// (removed-like).  A recovered agent can be infected again unless its tools prevent
// it.  Queuing is on and there is no rewiring.
func CreateModel(name string) *Model {
	m := new(Model)
	m.name = name
	m.idToIndex = make(map[int]int)
	m.viruses = make([]*Virus, 0)
	m.tools = make([]*Tool, 0)
	m.rng = CreateRandomStreams(0)
	m.db = createDatabase()
	m.paramNames = make([]string, 0)
	m.paramVals = make([]float64, 0)
	m.paramIdx = make(map[string]ParamHandle)
	m.statusIdx = make(map[StatusCode]int)
	m.actionHandlers = defaultActionHandlers()
	m.actions = createActionQueue()
	m.queuing = true
	m.rewireFunc = RewireDegSeq
	m.progress = nil
	m.logger = logging.Discard()

	m.statuses = []statusDesc{
		{code: StatusHealthy, label: "healthy", meta: MetaSusceptible},
		{code: StatusInfected, label: "infected", meta: MetaInfected},
		{code: StatusRecovered, label: "recovered", meta: MetaSusceptible},
		{code: StatusRemoved, label: "removed", meta: MetaRemoved},
	}
	for idx, sd := range m.statuses {
		m.statusIdx[sd.code] = idx
	}
	m.updateFuncs[MetaSusceptible] = DefaultUpdateSusceptible
	m.updateFuncs[MetaInfected] = DefaultUpdateInfected
	return m
}

func (m *Model) Name() string {
	return m.name
}

// State reports where the model is in its lifecycle
func (m *Model) State() ModelState {
	return m.state
}

// Size is the number of agents
func (m *Model) Size() int {
	return len(m.population)
}

// Population exposes the agent arena.  Agents must only be mutated through Actions.
func (m *Model) Population() []Agent {
	return m.population
}

// Agent returns the agent with the given id
func (m *Model) Agent(id int) (*Agent, error) {
	idx, present := m.idToIndex[id]
	if !present {
		return nil, fmt.Errorf("%w: no agent with id %d", ErrOutOfRange, id)
	}
	return &m.population[idx], nil
}

// AgentAt returns the agent at the given population index
func (m *Model) AgentAt(idx int) *Agent {
	return &m.population[idx]
}

func (m *Model) Directed() bool {
	return m.directed
}

// Rand gives update functions access to the random streams of the model
func (m *Model) Rand() *RandomStreams {
	return m.rng
}

// Database holds the recorded history
func (m *Model) Database() *Database {
	return m.db
}

// Today is the current day counter
func (m *Model) Today() int {
	return m.today
}

func (m *Model) NDays() int {
	return m.ndays
}

func (m *Model) SetNDays(ndays int) {
	m.ndays = ndays
}

// Seed is the seed the random streams were last initialized with
func (m *Model) Seed() uint64 {
	return m.seed
}

// SetSeed reseeds the random streams, drawing a fresh seed when seed is negative.
// Calling it before PopSmallWorld makes the generated graph follow the seed.
func (m *Model) SetSeed(seed int64) {
	if seed < 0 {
		m.seed = drawSeed()
	} else {
		m.seed = uint64(seed)
	}
	m.rng.Seed(m.seed)
}

// SetLogger replaces the logger, which by default discards everything.  A nil
// logger restores the default.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.Discard()
	}
	m.logger = logger
}

func (m *Model) Logger() *slog.Logger {
	return m.logger
}

// VerboseOn makes the model log a summary of each run at info level
func (m *Model) VerboseOn() {
	m.verbose = true
}

func (m *Model) VerboseOff() {
	m.verbose = false
}

func (m *Model) Verbose() bool {
	return m.verbose
}

// SetProgress installs a progress reporter, called once per day
func (m *Model) SetProgress(pr ProgressReporter) {
	m.progress = pr
}

// SetTraceManager makes the model trace every committed Action into tm
func (m *Model) SetTraceManager(tm *TraceManager) error {
	m.trace = tm
	if tm == nil {
		return nil
	}
	for _, v := range m.viruses {
		if err := tm.AddName(v.id, v.name, "virus"); err != nil {
			return err
		}
	}
	for _, t := range m.tools {
		if err := tm.AddName(t.id, t.name, "tool"); err != nil {
			return err
		}
	}
	return nil
}

// QueuingOn and QueuingOff switch the optimization that skips agents with nothing to do
func (m *Model) QueuingOn() {
	m.queuing = true
}

func (m *Model) QueuingOff() {
	m.queuing = false
}

func (m *Model) Queuing() bool {
	return m.queuing
}

// SetGlobalMixing declares that every agent can be in contact with every other,
// regardless of the graph.  With queuing on, any QueueEveryone contribution then
// activates the whole population.
func (m *Model) SetGlobalMixing(mixing bool) {
	m.queue.mixing = mixing
}

func (m *Model) GlobalMixing() bool {
	return m.queue.mixing
}

// SetUpdateSusceptible, SetUpdateInfected and SetUpdateRemoved install the function
// called each day for agents of the meta-category.  nil means no update.
func (m *Model) SetUpdateSusceptible(fn UpdateFunc) {
	m.updateFuncs[MetaSusceptible] = fn
}

func (m *Model) SetUpdateInfected(fn UpdateFunc) {
	m.updateFuncs[MetaInfected] = fn
}

func (m *Model) SetUpdateRemoved(fn UpdateFunc) {
	m.updateFuncs[MetaRemoved] = fn
}

// SetDayStart installs a function called at the start of every day, before the
// update pass.  It sees the same population the update functions will see.
func (m *Model) SetDayStart(fn DayStartFunc) {
	m.dayStart = fn
}

// SetActionHandler replaces the function applying Actions of the given kind
func (m *Model) SetActionHandler(kind ActionKind, fn ActionFunc) {
	m.actionHandlers[kind] = fn
}

// SetRewireFunc replaces the rewiring algorithm
func (m *Model) SetRewireFunc(fn RewireFunc) {
	m.rewireFunc = fn
}

// SetRewireProp sets the proportion of edges the rewiring step tries to swap each day
func (m *Model) SetRewireProp(prop float64) error {
	if prop < 0.0 || prop > 1.0 {
		return fmt.Errorf("%w: rewiring proportion %f outside [0,1]", ErrOutOfRange, prop)
	}
	if prop > 0.0 && m.directed {
		return fmt.Errorf("%w: rewiring requires an undirected graph", ErrInvalidGraphOperation)
	}
	m.rewireProp = prop
	return nil
}

func (m *Model) RewireProp() float64 {
	return m.rewireProp
}

// Rewire applies the rewiring function with the configured proportion
func (m *Model) Rewire() error {
	if m.rewireFunc == nil || !(m.rewireProp > 0.0) {
		return nil
	}
	if err := m.rewireFunc(m, m.rewireProp); err != nil {
		return err
	}
	m.queue.rebuild(m)
	m.invalidateGraph()
	return nil
}

// addStatus registers a status code under a meta-category
func (m *Model) addStatus(meta MetaCategory, code StatusCode, label string) error {
	if code < 0 {
		return fmt.Errorf("%w: negative status code %d", ErrOutOfRange, code)
	}
	if _, present := m.statusIdx[code]; present {
		return fmt.Errorf("%w: code %d already in use", ErrDuplicateStatus, code)
	}
	if slices.IndexFunc(m.statuses, func(sd statusDesc) bool { return sd.label == label }) >= 0 {
		return fmt.Errorf("%w: label %q already in use", ErrDuplicateStatus, label)
	}
	m.statusIdx[code] = len(m.statuses)
	m.statuses = append(m.statuses, statusDesc{code: code, label: label, meta: meta})
	return nil
}

// nextStatusCode is one more than the largest code in use
func (m *Model) nextStatusCode() StatusCode {
	next := StatusCode(0)
	for _, sd := range m.statuses {
		if sd.code >= next {
			next = sd.code + 1
		}
	}
	return next
}

// AddStatusSusceptible registers a susceptible-like status
func (m *Model) AddStatusSusceptible(code StatusCode, label string) error {
	return m.addStatus(MetaSusceptible, code, label)
}

// AddStatusInfected registers an infected-like status
func (m *Model) AddStatusInfected(code StatusCode, label string) error {
	return m.addStatus(MetaInfected, code, label)
}

// AddStatusRemoved registers a removed-like status
func (m *Model) AddStatusRemoved(code StatusCode, label string) error {
	return m.addStatus(MetaRemoved, code, label)
}

// AddStatusLabel registers a status with the next free code, and returns the code
func (m *Model) AddStatusLabel(meta MetaCategory, label string) (StatusCode, error) {
	code := m.nextStatusCode()
	if err := m.addStatus(meta, code, label); err != nil {
		return StatusUnchanged, err
	}
	return code, nil
}

// SetStatusMeta moves a registered status to another meta-category, e.g. to make
// StatusRecovered removed-like in a model where recovery is for life
func (m *Model) SetStatusMeta(code StatusCode, meta MetaCategory) error {
	idx, present := m.statusIdx[code]
	if !present {
		return fmt.Errorf("%w: %d", ErrUnknownStatus, code)
	}
	if meta != MetaSusceptible && meta != MetaInfected && meta != MetaRemoved {
		return fmt.Errorf("%w: meta-category %d", ErrOutOfRange, meta)
	}
	if m.state == Running {
		return fmt.Errorf("meta-category of status %d cannot change during a run", code)
	}
	m.statuses[idx].meta = meta
	return nil
}

// Statuses lists the registered codes, in registration order
func (m *Model) Statuses() []StatusCode {
	codes := make([]StatusCode, len(m.statuses))
	for idx, sd := range m.statuses {
		codes[idx] = sd.code
	}
	return codes
}

// StatusLabels lists the registered labels, in registration order
func (m *Model) StatusLabels() []string {
	labels := make([]string, len(m.statuses))
	for idx, sd := range m.statuses {
		labels[idx] = sd.label
	}
	return labels
}

// StatusesOf lists the codes registered under a meta-category
func (m *Model) StatusesOf(meta MetaCategory) []StatusCode {
	codes := make([]StatusCode, 0)
	for _, sd := range m.statuses {
		if sd.meta == meta {
			codes = append(codes, sd.code)
		}
	}
	return codes
}

// Meta returns the meta-category of a status code
func (m *Model) Meta(code StatusCode) (MetaCategory, error) {
	idx, present := m.statusIdx[code]
	if !present {
		return MetaSusceptible, fmt.Errorf("%w: %d", ErrUnknownStatus, code)
	}
	return m.statuses[idx].meta, nil
}

func (m *Model) isMeta(code StatusCode, meta MetaCategory) bool {
	idx, present := m.statusIdx[code]
	return present && m.statuses[idx].meta == meta
}

// StatusLabel returns the label of a status code
func (m *Model) StatusLabel(code StatusCode) string {
	idx, present := m.statusIdx[code]
	if !present {
		return "unknown"
	}
	return m.statuses[idx].label
}

// AddVirus puts a virus in the registry.  At initialization a proportion
// prevalence of the agents receives a copy.
func (m *Model) AddVirus(v *Virus, prevalence float64) error {
	if prevalence < 0.0 || prevalence > 1.0 {
		return fmt.Errorf("%w: prevalence %f of virus %s", ErrOutOfRange, prevalence, v.name)
	}
	v.id = len(m.viruses)
	m.viruses = append(m.viruses, v)
	m.prevalenceVirus = append(m.prevalenceVirus, prevalence)
	m.db.registerVirus(v)
	if m.trace != nil {
		return m.trace.AddName(v.id, v.name, "virus")
	}
	return nil
}

// AddTool puts a tool in the registry
func (m *Model) AddTool(t *Tool, prevalence float64) error {
	if prevalence < 0.0 || prevalence > 1.0 {
		return fmt.Errorf("%w: prevalence %f of tool %s", ErrOutOfRange, prevalence, t.name)
	}
	t.id = len(m.tools)
	m.tools = append(m.tools, t)
	m.prevalenceTool = append(m.prevalenceTool, prevalence)
	m.db.registerTool(t)
	if m.trace != nil {
		return m.trace.AddName(t.id, t.name, "tool")
	}
	return nil
}

// Viruses returns the virus registry
func (m *Model) Viruses() []*Virus {
	return m.viruses
}

// Tools returns the tool registry
func (m *Model) Tools() []*Tool {
	return m.tools
}

// AttachTool gives a copy of t to agent a immediately.  It is only legal while
// Actions are being committed, e.g. from a post-recovery hook or an action handler.
func (m *Model) AttachTool(a *Agent, t *Tool) error {
	if !m.committing {
		return ErrOutsideCommit
	}
	m.attachTool(a, t)
	return nil
}

func (m *Model) attachTool(a *Agent, t *Tool) {
	nt := t.clone()
	nt.holder = a.index
	nt.date = m.today
	a.tools = append(a.tools, nt)
}

// SetBackup snapshots the population and graph so that Reset can restore them.  A
// backup taken after Init keeps the viruses and tools already distributed, and
// replicates started from it share that initial state.
func (m *Model) SetBackup() {
	m.backup = make([]Agent, len(m.population))
	for idx := range m.population {
		m.backup[idx] = copyAgent(&m.population[idx])
	}
	m.backupSeeded = m.seeded
	m.backupQueue = m.queue.snapshot()
}

// HasBackup reports whether SetBackup was called
func (m *Model) HasBackup() bool {
	return m.backup != nil
}

func (m *Model) restoreBackup() {
	m.population = make([]Agent, len(m.backup))
	for idx := range m.backup {
		m.population[idx] = copyAgent(&m.backup[idx])
	}
	m.invalidateGraph()
}

// Init seeds the random streams, distributes the registered viruses and tools over
// the population and records day 0.  A negative seed asks for a fresh seed.  On a
// model that was initialized before, the agents are first stripped of what they carry;
// the contact graph is kept.
func (m *Model) Init(seed int64, ndays int) error {
	if len(m.population) == 0 {
		return fmt.Errorf("%w: model %q has no population", ErrUninitializedModel, m.name)
	}
	if ndays < 0 {
		return fmt.Errorf("%w: %d days", ErrOutOfRange, ndays)
	}
	m.SetSeed(seed)
	m.ndays = ndays
	m.today = 0
	if m.state != Uninitialized {
		m.stripAgents()
	}
	m.db.reset(m)
	m.queue.reset(m)
	m.actions.clear()
	m.seeded = false

	if err := m.distribute(); err != nil {
		return err
	}
	m.state = Initialized
	return nil
}

// distribute seeds tools then viruses, committing after each so that an agent picked
// for several of them does not collide with itself, and records day 0
func (m *Model) distribute() error {
	n := len(m.population)
	for idx, t := range m.tools {
		for _, agentIdx := range m.sampleAgents(m.prevalenceTool[idx], n) {
			if err := m.population[agentIdx].AddTool(m, t, StatusUnchanged, QueueDefault); err != nil {
				return err
			}
		}
		if err := m.commitActions(); err != nil {
			return err
		}
	}
	for idx, v := range m.viruses {
		for _, agentIdx := range m.sampleAgents(m.prevalenceVirus[idx], n) {
			if err := m.population[agentIdx].AddVirus(m, v, StatusInfected, QueueDefault); err != nil {
				return err
			}
		}
		if err := m.commitActions(); err != nil {
			return err
		}
	}
	m.seeded = true
	m.db.record(m)
	return nil
}

// sampleAgents draws floor(prevalence*n) distinct population indices
func (m *Model) sampleAgents(prevalence float64, n int) []int {
	k := int(math.Floor(prevalence * float64(n)))
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// partial Fisher-Yates
	for i := 0; i < k; i++ {
		j := i + m.rng.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// Reset restores the population from the backup (when there is one, otherwise
// agents are stripped of viruses and tools and set healthy), clears the database
// and returns the model to the Initialized state.  The random streams are not
// reseeded, so successive replicates follow independent trajectories.  Unless the
// backup was taken after Init, the viruses and tools are seeded again when Run starts.
func (m *Model) Reset() error {
	if m.state == Uninitialized {
		return fmt.Errorf("%w: reset before init", ErrUninitializedModel)
	}
	if m.backup != nil {
		m.restoreBackup()
		m.seeded = m.backupSeeded
	} else {
		m.stripAgents()
		m.seeded = false
	}
	if m.seeded {
		m.queue.restore(m, m.backupQueue)
	} else {
		m.queue.reset(m)
	}
	m.today = 0
	m.db.reset(m)
	m.actions.clear()
	m.state = Initialized
	return nil
}

// stripAgents takes every virus and tool away and makes every agent healthy
func (m *Model) stripAgents() {
	for idx := range m.population {
		agent := &m.population[idx]
		for _, v := range agent.viruses {
			v.active = false
			v.host = -1
		}
		agent.viruses = make([]*Virus, 0)
		agent.tools = make([]*Tool, 0)
		agent.nViruses = 0
		agent.status = StatusHealthy
		agent.locked = false
	}
}

// Run steps the model through ndays days, or until every agent is in a removed-like
// status.  The model must have been initialized.
func (m *Model) Run() error {
	if m.state == Uninitialized {
		return fmt.Errorf("%w: run called before init", ErrUninitializedModel)
	}
	if m.state == Running || m.state == Finished {
		if err := m.Reset(); err != nil {
			return err
		}
	}
	if !m.seeded {
		if err := m.distribute(); err != nil {
			return err
		}
	} else if m.db.NDays() == 0 {
		m.db.record(m)
	}

	start := time.Now()
	m.state = Running
	m.progressStart()

	err := runDays(m)

	m.progressEnd()
	m.lastElapsed = time.Since(start)
	m.totalElapsed += m.lastElapsed
	m.nReplicates++
	if err != nil {
		m.logger.Error("run aborted", "model", m.name, "day", m.today, "err", err)
		return err
	}
	m.state = Finished

	if m.verbose {
		m.logger.Info("run complete", "model", m.name, "agents", len(m.population),
			"days", m.today, "seed", m.seed, "elapsed", m.lastElapsed)
	}
	return nil
}

// RunDays is the convenience form of Init followed by Run
func (m *Model) RunDays(ndays int, seed int64) error {
	if err := m.Init(seed, ndays); err != nil {
		return err
	}
	return m.Run()
}

// ReplicateSaver is called after each replicate of RunMultiple
type ReplicateSaver func(m *Model, replicate int) error

// RunMultiple runs nreps replicates.  The first replicate starts from the current
// state; each following one starts from Reset.  Without a backup, changes made to
// the contact graph by rewiring carry over from one replicate to the next.
func (m *Model) RunMultiple(nreps int, saver ReplicateSaver) error {
	if m.state == Uninitialized {
		return fmt.Errorf("%w: run called before init", ErrUninitializedModel)
	}
	if m.backup == nil && m.rewireProp > 0.0 {
		m.logger.Debug("no backup, rewired graph carries over between replicates", "model", m.name)
	}
	for rep := 0; rep < nreps; rep++ {
		if rep > 0 {
			if err := m.Reset(); err != nil {
				return err
			}
		}
		if err := m.Run(); err != nil {
			return fmt.Errorf("replicate %d: %w", rep, err)
		}
		m.logger.Debug("replicate finished", "model", m.name, "replicate", rep)
		if saver != nil {
			if err := saver(m, rep); err != nil {
				return fmt.Errorf("replicate %d: %w", rep, err)
			}
		}
	}
	return nil
}

// Elapsed returns the wall time of the last run, of all runs, and the number of runs
func (m *Model) Elapsed() (time.Duration, time.Duration, int) {
	return m.lastElapsed, m.totalElapsed, m.nReplicates
}

// step performs one simulated day
func (m *Model) step() error {
	if m.dayStart != nil {
		if err := m.dayStart(m); err != nil {
			return err
		}
	}
	if err := m.updateStatus(); err != nil {
		return err
	}
	if err := m.commitActions(); err != nil {
		return err
	}
	m.mutateViruses()
	if err := m.Rewire(); err != nil {
		return err
	}
	m.today++
	m.db.record(m)
	m.progressNext()
	return nil
}

// updateStatus calls the update function of every agent's meta-category
func (m *Model) updateStatus() error {
	for idx := range m.population {
		if m.queuing && !m.queue.active(idx) {
			continue
		}
		agent := &m.population[idx]
		sidx, present := m.statusIdx[agent.status]
		if !present {
			return fmt.Errorf("%w: agent %d has status %d", ErrUnknownStatus, agent.id, agent.status)
		}
		fn := m.updateFuncs[m.statuses[sidx].meta]
		if fn == nil {
			continue
		}
		if err := fn(agent, m); err != nil {
			return err
		}
	}
	return nil
}

// mutateViruses calls the mutation hook of every active virus
func (m *Model) mutateViruses() {
	for idx := range m.population {
		for _, v := range m.population[idx].viruses {
			if v.active {
				v.Mutate(m)
			}
		}
	}
}

// closed reports whether every agent is in a removed-like status
func (m *Model) closed() bool {
	for idx := range m.population {
		if !m.isMeta(m.population[idx].status, MetaRemoved) {
			return false
		}
	}
	return true
}

// CountStatus returns the number of agents currently in the status
func (m *Model) CountStatus(code StatusCode) int {
	count := 0
	for idx := range m.population {
		if m.population[idx].status == code {
			count++
		}
	}
	return count
}
