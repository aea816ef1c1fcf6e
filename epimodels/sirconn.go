package epimodels

import (
	"fmt"

	"github.com/iti/epiworld"
)

// sirconn holds the list of agents carrying a virus at the start of the day
type sirconn struct {
	infected []int
}

// NewSIRCONN builds a fully mixed susceptible-infected-recovered model of n agents.
// Each day a susceptible agent meets each of the infected agents with probability
// contactRate/n, and each meeting passes the virus on with probability transmission.
// As in NewSIR an infected agent recovers with probability recovery each day, for life.
func NewSIRCONN(vname string, n int, prevalence, contactRate, transmission, recovery float64) (*epiworld.Model, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: population of %d", epiworld.ErrOutOfRange, n)
	}
	if contactRate < 0.0 || contactRate > float64(n) {
		return nil, fmt.Errorf("%w: contact rate %f for %d agents", epiworld.ErrOutOfRange, contactRate, n)
	}

	m := epiworld.CreateModel("SIR connected")
	if err := m.PopFromAdjList(epiworld.CreateAdjList(false, 0, n-1)); err != nil {
		return nil, err
	}
	m.SetGlobalMixing(true)
	if err := m.SetStatusMeta(epiworld.StatusRecovered, epiworld.MetaRemoved); err != nil {
		return nil, err
	}

	hContact, err := m.AddParam(ParamContactRate, contactRate)
	if err != nil {
		return nil, err
	}
	v, err := addSIRVirus(m, vname, transmission, recovery)
	if err != nil {
		return nil, err
	}
	if err := m.AddVirus(v, prevalence); err != nil {
		return nil, err
	}

	state := &sirconn{infected: make([]int, 0)}
	m.SetDayStart(state.collect)
	m.SetUpdateSusceptible(func(a *epiworld.Agent, m *epiworld.Model) error {
		return state.updateSusceptible(a, m, hContact)
	})
	return m, nil
}

// collect lists the agents that carry an active virus
func (sc *sirconn) collect(m *epiworld.Model) error {
	sc.infected = sc.infected[:0]
	pop := m.Population()
	for idx := range pop {
		if pop[idx].NumViruses() > 0 {
			sc.infected = append(sc.infected, idx)
		}
	}
	return nil
}

// updateSusceptible draws the number of infected agents met, picks them at random,
// and lets Roulette choose which of their viruses, if any, is caught
func (sc *sirconn) updateSusceptible(a *epiworld.Agent, m *epiworld.Model, hContact epiworld.ParamHandle) error {
	ninfected := len(sc.infected)
	if ninfected == 0 {
		return nil
	}

	rs := m.Rand()
	nmet := rs.Rbinom(ninfected, m.Par(hContact)/float64(m.Size()))
	if nmet == 0 {
		return nil
	}

	candidates := make([]*epiworld.Virus, 0, nmet)
	probs := make([]float64, 0, nmet)
	for i := 0; i < nmet; i++ {
		carrier := m.AgentAt(sc.infected[rs.Intn(ninfected)])
		for _, v := range carrier.Viruses() {
			if !v.Active() {
				continue
			}
			p := v.Infectiousness(m) *
				(1.0 - carrier.TransmissionReduction(v, m)) *
				(1.0 - a.SusceptibilityReduction(v, m))
			candidates = append(candidates, v)
			probs = append(probs, p)
		}
	}

	which := rs.Roulette(probs)
	if which < 0 {
		return nil
	}
	return a.AddVirus(m, candidates[which], epiworld.StatusInfected, epiworld.QueueDefault)
}
