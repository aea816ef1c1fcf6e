package epiworld

// update.go holds the default daily update functions for susceptible-like and
// infected-like agents.  Both read the population as it stood at the start of
// the day and only propose Actions.

// DefaultUpdateSusceptible exposes the agent to every active virus carried by its
// neighbors.  Virus v of neighbor n is caught with probability
//
//	infectiousness(v) * (1 - transmission reduction of n) * (1 - susceptibility reduction of a)
//
// and at most one virus is caught per day, chosen by Roulette.  An agent with no
// infected neighbor draws no random number.
func DefaultUpdateSusceptible(a *Agent, m *Model) error {
	candidates := make([]*Virus, 0)
	probs := make([]float64, 0)

	for _, nbrIdx := range a.neighbors {
		nbr := &m.population[nbrIdx]
		if nbr.nViruses == 0 {
			continue
		}
		for _, v := range nbr.viruses {
			if !v.active {
				continue
			}
			p := clamp01(v.Infectiousness(m)) *
				(1.0 - nbr.TransmissionReduction(v, m)) *
				(1.0 - a.SusceptibilityReduction(v, m))
			candidates = append(candidates, v)
			probs = append(probs, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	which := m.rng.Roulette(probs)
	if which < 0 {
		return nil
	}
	return a.AddVirus(m, candidates[which], StatusInfected, QueueDefault)
}

// DefaultUpdateInfected lets each active virus of the agent either kill it or be
// cleared.  For a virus v
//
//	P(death)    = death(v) * (1 - death reduction)
//	P(recovery) = 1 - persistence(v) * (1 - recovery enhancer)
//
// and at most one of those events happens per day, chosen by Roulette.  Death moves
// the agent to StatusRemoved.  Clearing the last active virus moves it to StatusRecovered,
// clearing one of several leaves the status alone.
func DefaultUpdateInfected(a *Agent, m *Model) error {
	if a.nViruses == 0 {
		return nil
	}
	slots := make([]int, 0, len(a.viruses))
	for slot, v := range a.viruses {
		if v.active {
			slots = append(slots, slot)
		}
	}
	nv := len(slots)
	probs := make([]float64, 2*nv)
	for idx, slot := range slots {
		v := a.viruses[slot]
		probs[idx] = clamp01(v.Death(m)) * (1.0 - a.DeathReduction(v, m))
		probs[nv+idx] = 1.0 - clamp01(v.Persistence(m))*(1.0-a.RecoveryEnhancer(v, m))
	}

	which := m.rng.Roulette(probs)
	switch {
	case which < 0:
		return nil
	case which < nv:
		return a.RemoveVirus(m, slots[which], StatusRemoved, QueueDefault)
	}
	newStatus := StatusUnchanged
	if a.nViruses == 1 {
		newStatus = StatusRecovered
	}
	return a.RemoveVirus(m, slots[which-nv], newStatus, QueueDefault)
}
