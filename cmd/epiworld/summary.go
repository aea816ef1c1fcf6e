package main

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// StatusSummary describes the final count of a status over replicates
type StatusSummary struct {
	Status string  `json:"status"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"sd"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// summarizeReplicates condenses finals, one row of counts per replicate in the order
// of labels, into one summary per status
func summarizeReplicates(labels []string, finals [][]float64) []StatusSummary {
	summaries := make([]StatusSummary, len(labels))
	column := make([]float64, 0, len(finals))
	for sidx, label := range labels {
		column = column[:0]
		for _, final := range finals {
			if sidx < len(final) {
				column = append(column, final[sidx])
			}
		}
		summaries[sidx].Status = label
		if len(column) == 0 {
			continue
		}
		if len(column) == 1 {
			summaries[sidx].Mean = column[0]
		} else {
			summaries[sidx].Mean, summaries[sidx].StdDev = stat.MeanStdDev(column, nil)
		}
		summaries[sidx].Min = floats.Min(column)
		summaries[sidx].Max = floats.Max(column)
	}
	return summaries
}
