package epiworld

// database.go records the history of a run.  Each call to record appends one
// day: the count of agents per status, the status of every agent, and the
// number of agents per status carrying each virus and holding each tool.

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RegistryInfo describes a virus or tool in the model registry
type RegistryInfo struct {
	ID       int
	Name     string
	Sequence string
}

// Transmission records that the virus VirusID passed from agent Source to agent Target
type Transmission struct {
	Day     int
	Source  int
	Target  int
	VirusID int
}

// HistRecord is the count of agents in a status on a day; for virus and tool
// histories ID is the registration id, otherwise -1
type HistRecord struct {
	Day    int
	ID     int
	Status string
	Count  int
}

// Database is the append-only history of a model
type Database struct {
	labels []string

	dates        []int
	statusCounts [][]int
	agentStatus  [][]int32
	virusCounts  [][][]int // day, virus id, status
	toolCounts   [][][]int // day, tool id, status

	transmissions []Transmission
	virusInfo     []RegistryInfo
	toolInfo      []RegistryInfo
}

func createDatabase() *Database {
	db := new(Database)
	db.labels = make([]string, 0)
	db.virusInfo = make([]RegistryInfo, 0)
	db.toolInfo = make([]RegistryInfo, 0)
	db.clear()
	return db
}

func (db *Database) clear() {
	db.dates = make([]int, 0)
	db.statusCounts = make([][]int, 0)
	db.agentStatus = make([][]int32, 0)
	db.virusCounts = make([][][]int, 0)
	db.toolCounts = make([][][]int, 0)
	db.transmissions = make([]Transmission, 0)
}

// reset drops the recorded history; the registry information is kept
func (db *Database) reset(m *Model) {
	db.clear()
	db.labels = m.StatusLabels()
}

func (db *Database) registerVirus(v *Virus) {
	db.virusInfo = append(db.virusInfo, RegistryInfo{ID: v.id, Name: v.name, Sequence: sequenceStr(v.sequence)})
}

func (db *Database) registerTool(t *Tool) {
	db.toolInfo = append(db.toolInfo, RegistryInfo{ID: t.id, Name: t.name, Sequence: sequenceStr(t.sequence)})
}

func sequenceStr(seq any) string {
	if seq == nil {
		return ""
	}
	return fmt.Sprint(seq)
}

func (db *Database) recordTransmission(day, source, target, virusID int) {
	db.transmissions = append(db.transmissions, Transmission{Day: day, Source: source, Target: target, VirusID: virusID})
}

// record appends the current state of m as day m.today
func (db *Database) record(m *Model) {
	// statuses are append-only, so indices recorded earlier stay valid
	db.labels = m.StatusLabels()
	nstatus := len(db.labels)

	counts := make([]int, nstatus)
	perAgent := make([]int32, len(m.population))
	virusCounts := make([][]int, len(m.viruses))
	for idx := range virusCounts {
		virusCounts[idx] = make([]int, nstatus)
	}
	toolCounts := make([][]int, len(m.tools))
	for idx := range toolCounts {
		toolCounts[idx] = make([]int, nstatus)
	}

	for idx := range m.population {
		agent := &m.population[idx]
		sidx := m.statusIdx[agent.status]
		counts[sidx]++
		perAgent[idx] = int32(sidx)
		for _, v := range agent.viruses {
			if v.active && v.id >= 0 && v.id < len(virusCounts) {
				virusCounts[v.id][sidx]++
			}
		}
		for _, t := range agent.tools {
			if t.id >= 0 && t.id < len(toolCounts) {
				toolCounts[t.id][sidx]++
			}
		}
	}

	db.dates = append(db.dates, m.today)
	db.statusCounts = append(db.statusCounts, counts)
	db.agentStatus = append(db.agentStatus, perAgent)
	db.virusCounts = append(db.virusCounts, virusCounts)
	db.toolCounts = append(db.toolCounts, toolCounts)
}

// NDays is the number of days recorded, day 0 included
func (db *Database) NDays() int {
	return len(db.dates)
}

// Labels lists the status labels in registration order
func (db *Database) Labels() []string {
	return db.labels
}

// HistTotal returns the count of agents per status for every recorded day, ordered
// by day and then by status registration order
func (db *Database) HistTotal() (dates []int, labels []string, counts []int) {
	nrec := len(db.dates) * len(db.labels)
	dates = make([]int, 0, nrec)
	labels = make([]string, 0, nrec)
	counts = make([]int, 0, nrec)
	for d, day := range db.dates {
		for sidx, count := range db.statusCounts[d] {
			dates = append(dates, day)
			labels = append(labels, db.labels[sidx])
			counts = append(counts, count)
		}
	}
	return dates, labels, counts
}

// TodayTotal returns the counts of the last recorded day, in status registration order
func (db *Database) TodayTotal() []int {
	if len(db.statusCounts) == 0 {
		return make([]int, len(db.labels))
	}
	last := db.statusCounts[len(db.statusCounts)-1]
	counts := make([]int, len(db.labels))
	copy(counts, last)
	return counts
}

// HistVirus returns, for every recorded day and virus, the number of carriers in each status
func (db *Database) HistVirus() []HistRecord {
	return histOf(db.dates, db.labels, db.virusCounts)
}

// HistTool returns, for every recorded day and tool, the number of holders in each status
func (db *Database) HistTool() []HistRecord {
	return histOf(db.dates, db.labels, db.toolCounts)
}

func histOf(dates []int, labels []string, counts [][][]int) []HistRecord {
	hist := make([]HistRecord, 0)
	for d, day := range dates {
		for id, byStatus := range counts[d] {
			for sidx, count := range byStatus {
				hist = append(hist, HistRecord{Day: day, ID: id, Status: labels[sidx], Count: count})
			}
		}
	}
	return hist
}

// Transmissions lists the recorded transmissions in the order they happened
func (db *Database) Transmissions() []Transmission {
	return db.transmissions
}

func (db *Database) VirusInfo() []RegistryInfo {
	return db.virusInfo
}

func (db *Database) ToolInfo() []RegistryInfo {
	return db.toolInfo
}

// TransitionProbability estimates the day to day status transition matrix from the
// recorded per-agent statuses.  Cell (i,j) counts the agents in status i on some day
// that are in status j the next day.  With normalize set each row is divided by
// its total, so that rows of statuses that were observed sum to 1; a status never
// observed gives a row of zeros.
func (db *Database) TransitionProbability(normalize bool) *mat.Dense {
	n := len(db.labels)
	if n == 0 {
		return nil
	}
	tmat := mat.NewDense(n, n, nil)
	for d := 0; d+1 < len(db.agentStatus); d++ {
		today := db.agentStatus[d]
		tomorrow := db.agentStatus[d+1]
		for idx := range today {
			i, j := int(today[idx]), int(tomorrow[idx])
			tmat.Set(i, j, tmat.At(i, j)+1.0)
		}
	}
	if !normalize {
		return tmat
	}
	for i := 0; i < n; i++ {
		row := tmat.RawRowView(i)
		total := 0.0
		for _, c := range row {
			total += c
		}
		if total > 0.0 {
			for j := range row {
				row[j] /= total
			}
		}
	}
	return tmat
}
