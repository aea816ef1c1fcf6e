// Package export writes the history recorded by an epiworld model to CSV files and
// to SQLite databases.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/iti/epiworld"
)

// DataFiles names the CSV files WriteData produces.  An empty name skips that file.
type DataFiles struct {
	VirusInfo     string
	VirusHist     string
	ToolInfo      string
	ToolHist      string
	TotalHist     string
	Transmissions string
	Edgelist      string
}

func (df DataFiles) names() []string {
	return []string{df.VirusInfo, df.VirusHist, df.ToolInfo, df.ToolHist, df.TotalHist, df.Transmissions, df.Edgelist}
}

// WriteData writes every file named in files
func WriteData(m *epiworld.Model, files DataFiles) error {
	if ok, err := epiworld.CheckFiles(files.names(), false); !ok {
		return err
	}
	db := m.Database()
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{files.VirusInfo, func(w io.Writer) error { return WriteRegistryInfo(w, db.VirusInfo()) }},
		{files.VirusHist, func(w io.Writer) error { return WriteHist(w, "virus_id", db.HistVirus()) }},
		{files.ToolInfo, func(w io.Writer) error { return WriteRegistryInfo(w, db.ToolInfo()) }},
		{files.ToolHist, func(w io.Writer) error { return WriteHist(w, "tool_id", db.HistTool()) }},
		{files.TotalHist, func(w io.Writer) error { return WriteTotalHist(w, db) }},
		{files.Transmissions, func(w io.Writer) error { return WriteTransmissions(w, db.Transmissions()) }},
		{files.Edgelist, func(w io.Writer) error { return WriteEdgelist(w, m.Edgelist()) }},
	}
	for _, wr := range writers {
		if len(wr.name) == 0 {
			continue
		}
		if err := writeFile(wr.name, wr.write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(filename string, write func(io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return f.Close()
}

func writeRecords(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

// WriteRegistryInfo writes one row per registered virus or tool
func WriteRegistryInfo(w io.Writer, info []epiworld.RegistryInfo) error {
	rows := make([][]string, len(info))
	for idx, ri := range info {
		rows[idx] = []string{strconv.Itoa(ri.ID), ri.Name, ri.Sequence}
	}
	return writeRecords(w, []string{"id", "name", "sequence"}, rows)
}

// WriteHist writes a virus or tool history; idColumn names the id column
func WriteHist(w io.Writer, idColumn string, hist []epiworld.HistRecord) error {
	rows := make([][]string, len(hist))
	for idx, hr := range hist {
		rows[idx] = []string{strconv.Itoa(hr.Day), strconv.Itoa(hr.ID), hr.Status, strconv.Itoa(hr.Count)}
	}
	return writeRecords(w, []string{"date", idColumn, "status", "counts"}, rows)
}

// WriteTotalHist writes the count of agents per status per day
func WriteTotalHist(w io.Writer, db *epiworld.Database) error {
	dates, labels, counts := db.HistTotal()
	rows := make([][]string, len(dates))
	for idx := range dates {
		rows[idx] = []string{strconv.Itoa(dates[idx]), labels[idx], strconv.Itoa(counts[idx])}
	}
	return writeRecords(w, []string{"date", "status", "counts"}, rows)
}

// WriteTransmissions writes the transmission list
func WriteTransmissions(w io.Writer, trans []epiworld.Transmission) error {
	rows := make([][]string, len(trans))
	for idx, tr := range trans {
		rows[idx] = []string{strconv.Itoa(tr.Day), strconv.Itoa(tr.VirusID), strconv.Itoa(tr.Source), strconv.Itoa(tr.Target)}
	}
	return writeRecords(w, []string{"date", "virus_id", "source", "target"}, rows)
}

// WriteEdgelist writes the edge list as "source target" lines, the format ReadAdjList reads
// with skip set to 1
func WriteEdgelist(w io.Writer, al *epiworld.AdjList) error {
	writer := csv.NewWriter(w)
	writer.Comma = ' '
	if err := writer.Write([]string{"source", "target"}); err != nil {
		return err
	}
	for e := range al.Source {
		if err := writer.Write([]string{strconv.Itoa(al.Source[e]), strconv.Itoa(al.Target[e])}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
