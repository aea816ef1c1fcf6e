package epiworld

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ProgressReporter is told when a run starts, after every day, and when the run ends
type ProgressReporter interface {
	Start()
	Next()
	End()
}

// DefaultProgressWidth is the number of ticks of a full progress bar
const DefaultProgressWidth = 80

// Progress is a text progress bar.  It prints a '|' tick each time the run
// crosses another 1/width of its days.
type Progress struct {
	w     io.Writer
	width int
	ndays int
	day   int
	ticks int
}

// CreateProgress is a constructor.  A nil writer means stdout.
func CreateProgress(w io.Writer, ndays, width int) *Progress {
	if w == nil {
		w = os.Stdout
	}
	if width <= 0 {
		width = DefaultProgressWidth
	}
	return &Progress{w: w, width: width, ndays: ndays}
}

func (p *Progress) Start() {
	p.day = 0
	p.ticks = 0
}

func (p *Progress) Next() {
	p.day++
	if p.ndays <= 0 {
		return
	}
	want := p.day * p.width / p.ndays
	if want > p.width {
		want = p.width
	}
	if want > p.ticks {
		fmt.Fprint(p.w, strings.Repeat("|", want-p.ticks))
		p.ticks = want
	}
}

func (p *Progress) End() {
	if p.ticks < p.width && p.ndays > 0 && p.day >= p.ndays {
		fmt.Fprint(p.w, strings.Repeat("|", p.width-p.ticks))
		p.ticks = p.width
	}
	fmt.Fprintln(p.w, " done")
}

// the progress helpers keep a failing reporter from aborting the run

func (m *Model) progressStart() {
	m.callProgress("start", func(pr ProgressReporter) { pr.Start() })
}

func (m *Model) progressNext() {
	m.callProgress("next", func(pr ProgressReporter) { pr.Next() })
}

func (m *Model) progressEnd() {
	m.callProgress("end", func(pr ProgressReporter) { pr.End() })
}

func (m *Model) callProgress(op string, call func(ProgressReporter)) {
	if m.progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("progress reporter failed", "op", op, "panic", r)
		}
	}()
	call(m.progress)
}
