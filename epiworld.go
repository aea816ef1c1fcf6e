// Package epiworld is a discrete-time agent-based epidemic simulation engine.
//
// A population of agents, wired together by a contact graph, carries viruses and
// holds tools.  Each simulated day every agent's update function looks at a single
// consistent snapshot of the population and proposes Actions (add or remove a virus
// or tool, change status).  The proposed Actions are committed together at the end of
// the update pass, so the day's changes appear to have happened simultaneously.  After
// the commit the viruses mutate, the contact graph is optionally rewired, and the
// Database records the day.
package epiworld

import (
	"errors"
)

// StatusCode is the integer label of an agent's health state
type StatusCode int

// the four statuses every model starts with
const (
	StatusHealthy StatusCode = iota
	StatusInfected
	StatusRecovered
	StatusRemoved
)

// StatusUnchanged is passed to the Agent mutators when the Action
// should leave the agent's status as it is
const StatusUnchanged StatusCode = -99

// MetaCategory buckets status codes for the purpose of choosing an update function
// and for reporting
type MetaCategory int

const (
	MetaSusceptible MetaCategory = iota
	MetaInfected
	MetaRemoved
)

func (mc MetaCategory) String() string {
	switch mc {
	case MetaSusceptible:
		return "susceptible"
	case MetaInfected:
		return "infected"
	case MetaRemoved:
		return "removed"
	}
	return "unknown"
}

// MetaFromStr converts the text form of a meta-category, as found in
// configuration files, to a MetaCategory
func MetaFromStr(meta string) (MetaCategory, error) {
	switch meta {
	case "susceptible", "Susceptible", "S":
		return MetaSusceptible, nil
	case "infected", "Infected", "I":
		return MetaInfected, nil
	case "removed", "Removed", "R":
		return MetaRemoved, nil
	}
	return MetaSusceptible, errors.New("unrecognized meta-category " + meta)
}

// errors surfaced by the engine.  All of them indicate programming or configuration
// mistakes; none are retried.
var (
	ErrAgentBusy             = errors.New("agent busy")
	ErrDuplicateStatus       = errors.New("duplicate status")
	ErrDuplicateParameter    = errors.New("duplicate parameter")
	ErrInvalidGraphOperation = errors.New("invalid graph operation")
	ErrUninitializedModel    = errors.New("uninitialized model")
	ErrUnknownParameter      = errors.New("unknown parameter")
	ErrUnknownStatus         = errors.New("unknown status")
	ErrOutOfRange            = errors.New("index out of range")
	ErrOutsideCommit         = errors.New("operation only legal during action commit")
)

// ModelState tracks where a Model is in its lifecycle
type ModelState int

const (
	Uninitialized ModelState = iota
	Initialized
	Running
	Finished
)

func (ms ModelState) String() string {
	switch ms {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Finished:
		return "finished"
	}
	return "unknown"
}
