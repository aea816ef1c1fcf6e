package epiworld

// scheduler.go drives the day loop of a run.  Each simulated day is an event
// on an evtm event manager, scheduled one time unit after the day before.  The
// handler for a day performs the step and, when the run is to go on, schedules
// the next day.

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// dayClock carries the state a day event needs
type dayClock struct {
	m       *Model
	lastDay int // day counter at which the run stops
	err     error
}

// runDays steps m from its current day to its configured number of days.  It stops
// early when a step fails or when every agent is in a removed-like status.
func runDays(m *Model) error {
	clock := &dayClock{m: m, lastDay: m.ndays}
	if m.today >= clock.lastDay || m.closed() {
		return nil
	}

	evtMgr := evtm.New()
	evtMgr.Schedule(clock, nil, enterDay, vrtime.SecondsToTime(0.0))

	// the horizon only bounds the event list; days stop rescheduling themselves first
	evtMgr.Run(float64(clock.lastDay - m.today + 1))
	return clock.err
}

// enterDay is the event handler for one simulated day
func enterDay(evtMgr *evtm.EventManager, context any, data any) any {
	clock := context.(*dayClock)
	m := clock.m

	if err := m.step(); err != nil {
		clock.err = err
		return nil
	}

	if m.today >= clock.lastDay {
		return nil
	}
	if m.closed() {
		m.logger.Debug("every agent removed, stopping early", "model", m.name, "day", m.today,
			"time", evtMgr.CurrentSeconds())
		return nil
	}
	evtMgr.Schedule(clock, nil, enterDay, vrtime.SecondsToTime(1.0))
	return nil
}
