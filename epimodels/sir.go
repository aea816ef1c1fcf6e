// Package epimodels holds ready-made compartmental models built on the epiworld engine.
package epimodels

import (
	"fmt"

	"github.com/iti/epiworld"
)

// parameter names shared by the models
const (
	ParamTransmission = "Prob. of transmission"
	ParamRecovery     = "Prob. of recovery"
	ParamContactRate  = "Contact rate"
)

// NewSIR builds a susceptible-infected-recovered model over a contact network.  The
// population is loaded by the caller, e.g. with PopFromAdjList.  An infected agent passes
// the virus to each neighbor with probability transmission and recovers with
// probability recovery each day.  Recovery is for life: recovered agents are removed-like.
func NewSIR(vname string, prevalence, transmission, recovery float64) (*epiworld.Model, error) {
	m := epiworld.CreateModel("SIR")
	if err := m.SetStatusMeta(epiworld.StatusRecovered, epiworld.MetaRemoved); err != nil {
		return nil, err
	}
	v, err := addSIRVirus(m, vname, transmission, recovery)
	if err != nil {
		return nil, err
	}
	if err := m.AddVirus(v, prevalence); err != nil {
		return nil, err
	}
	return m, nil
}

// addSIRVirus registers the transmission and recovery parameters and returns a virus
// whose rates follow them
func addSIRVirus(m *epiworld.Model, vname string, transmission, recovery float64) (*epiworld.Virus, error) {
	for _, p := range []float64{transmission, recovery} {
		if p < 0.0 || p > 1.0 {
			return nil, fmt.Errorf("%w: probability %f", epiworld.ErrOutOfRange, p)
		}
	}
	hTrans, err := m.AddParam(ParamTransmission, transmission)
	if err != nil {
		return nil, err
	}
	hRec, err := m.AddParam(ParamRecovery, recovery)
	if err != nil {
		return nil, err
	}

	v := epiworld.CreateVirus(vname, nil)
	v.SetInfectiousnessParam(hTrans)
	v.SetPersistence(func(_ *epiworld.Virus, _ *epiworld.Agent, m *epiworld.Model) float64 {
		return 1.0 - m.Par(hRec)
	})
	return v, nil
}
