package epiworld

// default effects of a tool with no function set
const (
	DefaultToolContagionReduction    = 0.0
	DefaultToolTransmissionReduction = 0.0
	DefaultToolRecoveryEnhancer      = 0.0
	DefaultToolDeathReduction        = 0.0
)

// ToolFunc computes the effect of tool t, held by holder, against virus v
type ToolFunc func(t *Tool, holder *Agent, v *Virus, m *Model) float64

// Tool is a protective intervention: a vaccine, a mask, a treatment.  As with viruses,
// the registry holds templates and agents own copies.
type Tool struct {
	name     string
	sequence any
	id       int
	date     int
	holder   int

	contagionReduction    ToolFunc
	transmissionReduction ToolFunc
	recoveryEnhancer      ToolFunc
	deathReduction        ToolFunc
}

// CreateTool is a constructor
func CreateTool(name string) *Tool {
	if len(name) == 0 {
		name = "unknown tool"
	}
	t := new(Tool)
	t.name = name
	t.id = -1
	t.date = -1
	t.holder = -1
	return t
}

func (t *Tool) clone() *Tool {
	nt := new(Tool)
	*nt = *t
	nt.holder = -1
	return nt
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) ID() int {
	return t.id
}

// Date is the day on which the holder acquired the tool
func (t *Tool) Date() int {
	return t.date
}

func (t *Tool) Sequence() any {
	return t.sequence
}

func (t *Tool) SetSequence(sequence any) {
	t.sequence = sequence
}

// Holder returns the agent holding t, or nil
func (t *Tool) Holder(m *Model) *Agent {
	if t.holder < 0 || t.holder >= len(m.population) {
		return nil
	}
	return &m.population[t.holder]
}

func (t *Tool) SetContagionReduction(fn ToolFunc) {
	t.contagionReduction = fn
}

func (t *Tool) SetTransmissionReduction(fn ToolFunc) {
	t.transmissionReduction = fn
}

func (t *Tool) SetRecoveryEnhancer(fn ToolFunc) {
	t.recoveryEnhancer = fn
}

func (t *Tool) SetDeathReduction(fn ToolFunc) {
	t.deathReduction = fn
}

func (t *Tool) SetContagionReductionValue(p float64) {
	t.contagionReduction = constToolFunc(p)
}

func (t *Tool) SetTransmissionReductionValue(p float64) {
	t.transmissionReduction = constToolFunc(p)
}

func (t *Tool) SetRecoveryEnhancerValue(p float64) {
	t.recoveryEnhancer = constToolFunc(p)
}

func (t *Tool) SetDeathReductionValue(p float64) {
	t.deathReduction = constToolFunc(p)
}

func (t *Tool) SetContagionReductionParam(h ParamHandle) {
	t.contagionReduction = paramToolFunc(h)
}

func (t *Tool) SetTransmissionReductionParam(h ParamHandle) {
	t.transmissionReduction = paramToolFunc(h)
}

func (t *Tool) SetRecoveryEnhancerParam(h ParamHandle) {
	t.recoveryEnhancer = paramToolFunc(h)
}

func (t *Tool) SetDeathReductionParam(h ParamHandle) {
	t.deathReduction = paramToolFunc(h)
}

func constToolFunc(p float64) ToolFunc {
	return func(*Tool, *Agent, *Virus, *Model) float64 { return p }
}

func paramToolFunc(h ParamHandle) ToolFunc {
	return func(_ *Tool, _ *Agent, _ *Virus, m *Model) float64 { return m.Par(h) }
}

func (t *Tool) eval(fn ToolFunc, dflt float64, v *Virus, m *Model) float64 {
	if fn == nil {
		return dflt
	}
	return clamp01(fn(t, t.Holder(m), v, m))
}

// ContagionReduction is the reduction in the chance of the holder catching v
func (t *Tool) ContagionReduction(v *Virus, m *Model) float64 {
	return t.eval(t.contagionReduction, DefaultToolContagionReduction, v, m)
}

// TransmissionReduction is the reduction in the chance of the holder passing v on
func (t *Tool) TransmissionReduction(v *Virus, m *Model) float64 {
	return t.eval(t.transmissionReduction, DefaultToolTransmissionReduction, v, m)
}

// RecoveryEnhancer increases the chance that the holder clears v
func (t *Tool) RecoveryEnhancer(v *Virus, m *Model) float64 {
	return t.eval(t.recoveryEnhancer, DefaultToolRecoveryEnhancer, v, m)
}

// DeathReduction is the reduction in the chance that v kills the holder
func (t *Tool) DeathReduction(v *Virus, m *Model) float64 {
	return t.eval(t.deathReduction, DefaultToolDeathReduction, v, m)
}

// clamp01 keeps a user supplied reduction inside [0,1] so that the compound
// factor (product of complements) stays a probability.  NaN counts as 0.
func clamp01(p float64) float64 {
	if !(p > 0.0) {
		return 0.0
	}
	if p > 1.0 {
		return 1.0
	}
	return p
}
