package epiworld

// virus.go holds the Virus type and the functions that compute its rates

// default rates applied when a virus has no function set
const (
	DefaultVirusInfectiousness = 1.0
	DefaultVirusPersistence    = 0.5
	DefaultVirusDeath          = 0.0
)

// VirusFunc computes a rate for virus v carried by host
type VirusFunc func(v *Virus, host *Agent, m *Model) float64

// MutationFunc may change the sequence of v.  It reports whether a change was made.
type MutationFunc func(v *Virus, host *Agent, m *Model) bool

// PostRecoveryFunc is called when the host of v recovers from it
type PostRecoveryFunc func(v *Virus, host *Agent, m *Model)

// Virus is a pathogen.  A Virus in the model registry is a template; the instances
// carried by agents are copies of a template and are owned by their host.
type Virus struct {
	name     string
	sequence any
	id       int
	date     int
	active   bool
	host     int // index of the host in the population, -1 when unattached

	infectiousness VirusFunc
	persistence    VirusFunc
	death          VirusFunc
	mutation       MutationFunc
	postRecovery   PostRecoveryFunc

	data []float64
}

// CreateVirus is a constructor.  The sequence is an opaque payload that
// mutation functions may replace.
func CreateVirus(name string, sequence any) *Virus {
	if len(name) == 0 {
		name = "unknown virus"
	}
	v := new(Virus)
	v.name = name
	v.sequence = sequence
	v.id = -1
	v.date = -1
	v.active = true
	v.host = -1
	v.data = make([]float64, 0)
	return v
}

// clone makes the instance handed to a new host.  Rate functions are shared,
// the parameter vector is copied.
func (v *Virus) clone() *Virus {
	nv := new(Virus)
	*nv = *v
	nv.data = make([]float64, len(v.data))
	copy(nv.data, v.data)
	nv.host = -1
	nv.active = true
	return nv
}

func (v *Virus) Name() string {
	return v.name
}

// ID returns the registration id, which is -1 until the virus is added to a model
func (v *Virus) ID() int {
	return v.id
}

// Date is the day on which the current host acquired the virus
func (v *Virus) Date() int {
	return v.date
}

func (v *Virus) Active() bool {
	return v.active
}

func (v *Virus) Sequence() any {
	return v.sequence
}

func (v *Virus) SetSequence(sequence any) {
	v.sequence = sequence
}

// Host returns the agent carrying v, or nil
func (v *Virus) Host(m *Model) *Agent {
	if v.host < 0 || v.host >= len(m.population) {
		return nil
	}
	return &m.population[v.host]
}

// Data gives rate functions access to the numeric parameter vector of the virus
func (v *Virus) Data() []float64 {
	return v.data
}

func (v *Virus) SetData(data []float64) {
	v.data = make([]float64, len(data))
	copy(v.data, data)
}

func (v *Virus) SetInfectiousness(fn VirusFunc) {
	v.infectiousness = fn
}

func (v *Virus) SetPersistence(fn VirusFunc) {
	v.persistence = fn
}

func (v *Virus) SetDeath(fn VirusFunc) {
	v.death = fn
}

func (v *Virus) SetMutation(fn MutationFunc) {
	v.mutation = fn
}

func (v *Virus) SetPostRecovery(fn PostRecoveryFunc) {
	v.postRecovery = fn
}

// SetInfectiousnessValue, SetPersistenceValue and SetDeathValue fix a rate to a constant
func (v *Virus) SetInfectiousnessValue(p float64) {
	v.infectiousness = constVirusFunc(p)
}

func (v *Virus) SetPersistenceValue(p float64) {
	v.persistence = constVirusFunc(p)
}

func (v *Virus) SetDeathValue(p float64) {
	v.death = constVirusFunc(p)
}

// SetInfectiousnessParam, SetPersistenceParam and SetDeathParam make a rate follow
// the current value of a model parameter
func (v *Virus) SetInfectiousnessParam(h ParamHandle) {
	v.infectiousness = paramVirusFunc(h)
}

func (v *Virus) SetPersistenceParam(h ParamHandle) {
	v.persistence = paramVirusFunc(h)
}

func (v *Virus) SetDeathParam(h ParamHandle) {
	v.death = paramVirusFunc(h)
}

func constVirusFunc(p float64) VirusFunc {
	return func(*Virus, *Agent, *Model) float64 { return p }
}

func paramVirusFunc(h ParamHandle) VirusFunc {
	return func(_ *Virus, _ *Agent, m *Model) float64 { return m.Par(h) }
}

// Infectiousness is the probability that the virus is passed on in a contact
func (v *Virus) Infectiousness(m *Model) float64 {
	if v.infectiousness == nil {
		return DefaultVirusInfectiousness
	}
	return v.infectiousness(v, v.Host(m), m)
}

// Persistence is the probability that the virus stays with its host for another day
func (v *Virus) Persistence(m *Model) float64 {
	if v.persistence == nil {
		return DefaultVirusPersistence
	}
	return v.persistence(v, v.Host(m), m)
}

// Death is the daily probability that the virus kills its host
func (v *Virus) Death(m *Model) float64 {
	if v.death == nil {
		return DefaultVirusDeath
	}
	return v.death(v, v.Host(m), m)
}

// Mutate applies the mutation function, if any.  The registration id is never changed.
func (v *Virus) Mutate(m *Model) bool {
	if v.mutation == nil || !v.active {
		return false
	}
	return v.mutation(v, v.Host(m), m)
}

func (v *Virus) postRecover(m *Model) {
	if v.postRecovery != nil {
		v.postRecovery(v, v.Host(m), m)
	}
}
