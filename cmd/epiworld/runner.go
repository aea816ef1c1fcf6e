package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/iti/epiworld"
	"github.com/iti/epiworld/export"
	"github.com/iti/epiworld/internal/logging"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

// runOptions are the flags shared by the commands that run a model
type runOptions struct {
	days       int
	seed       int64
	replicates int
	outDir     string
	sqlitePath string
	tracePath  string
	progress   bool
	pathFrom   int
	pathTo     int
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int("days", 100, "Number of days to simulate")
	cmd.Flags().Int64("seed", -1, "Random seed (negative draws one)")
	cmd.Flags().Int("replicates", 1, "Number of replicates")
	cmd.Flags().String("out", "", "Directory for CSV output, one set of files per replicate")
	cmd.Flags().String("sqlite", "", "SQLite database collecting the history of every replicate")
	cmd.Flags().String("trace", "", "File (.yaml or .json) receiving a trace of every committed action")
	cmd.Flags().Bool("progress", false, "Show a progress bar on stderr")
}

func readRunOptions(cmd *cobra.Command) runOptions {
	opts := runOptions{}
	opts.days, _ = cmd.Flags().GetInt("days")
	opts.seed, _ = cmd.Flags().GetInt64("seed")
	opts.replicates, _ = cmd.Flags().GetInt("replicates")
	opts.outDir, _ = cmd.Flags().GetString("out")
	opts.sqlitePath, _ = cmd.Flags().GetString("sqlite")
	opts.tracePath, _ = cmd.Flags().GetString("trace")
	opts.progress, _ = cmd.Flags().GetBool("progress")
	opts.pathFrom, opts.pathTo = -1, -1
	return opts
}

// runReport is what a run prints
type runReport struct {
	Model       string          `json:"model"`
	Agents      int             `json:"agents"`
	Seed        uint64          `json:"seed"`
	Days        int             `json:"days"`
	Replicates  int             `json:"replicates"`
	ElapsedSecs float64         `json:"elapsed_secs"`
	Final       []StatusSummary `json:"final"`
	Statuses    []string        `json:"statuses"`
	Transition  [][]float64     `json:"transition"`
	Components  int             `json:"components,omitempty"`
	Largest     int             `json:"largest_component,omitempty"`
	ContactPath []int           `json:"contact_path,omitempty"`
}

func dataFiles(dir string, rep int) export.DataFiles {
	prefix := filepath.Join(dir, "rep"+strconv.Itoa(rep)+"_")
	return export.DataFiles{
		VirusInfo:     prefix + "virus_info.csv",
		VirusHist:     prefix + "virus_hist.csv",
		ToolInfo:      prefix + "tool_info.csv",
		ToolHist:      prefix + "tool_hist.csv",
		TotalHist:     prefix + "total_hist.csv",
		Transmissions: prefix + "transmission.csv",
		Edgelist:      prefix + "edgelist.txt",
	}
}

// execute initializes m and runs the replicates, saving and reporting as the options ask
func execute(cmd *cobra.Command, m *epiworld.Model, opts runOptions) error {
	level, _ := cmd.Flags().GetString("log-level")
	jsonOut, _ := cmd.Flags().GetBool("json")
	m.SetLogger(logging.NewLogger(level, cmd.ErrOrStderr()))
	m.VerboseOn()

	if opts.replicates < 1 {
		return fmt.Errorf("need at least one replicate, got %d", opts.replicates)
	}

	var tm *epiworld.TraceManager
	if len(opts.tracePath) > 0 {
		tm = epiworld.CreateTraceManager(m.Name(), true)
		if err := m.SetTraceManager(tm); err != nil {
			return err
		}
	}
	if opts.progress {
		m.SetProgress(epiworld.CreateProgress(cmd.ErrOrStderr(), opts.days, 0))
	}

	if err := m.Init(opts.seed, opts.days); err != nil {
		return err
	}

	var sw *export.SQLiteWriter
	if len(opts.sqlitePath) > 0 {
		var err error
		sw, err = export.OpenSQLite(opts.sqlitePath)
		if err != nil {
			return err
		}
		defer sw.Close()
	}

	finals := make([][]float64, 0, opts.replicates)
	saver := func(m *epiworld.Model, rep int) error {
		counts := m.Database().TodayTotal()
		final := make([]float64, len(counts))
		for idx, c := range counts {
			final[idx] = float64(c)
		}
		finals = append(finals, final)

		if sw != nil {
			if err := sw.WriteReplicate(cmd.Context(), m, rep); err != nil {
				return err
			}
		}
		if len(opts.outDir) > 0 {
			if err := export.WriteData(m, dataFiles(opts.outDir, rep)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := m.RunMultiple(opts.replicates, saver); err != nil {
		return err
	}

	if tm != nil {
		if err := tm.WriteToFile(opts.tracePath, true); err != nil {
			return err
		}
	}

	_, total, nruns := m.Elapsed()
	report := runReport{
		Model:       m.Name(),
		Agents:      m.Size(),
		Seed:        m.Seed(),
		Days:        opts.days,
		Replicates:  nruns,
		ElapsedSecs: total.Seconds(),
		Statuses:    m.StatusLabels(),
		Final:       summarizeReplicates(m.StatusLabels(), finals),
	}
	tmat := m.Database().TransitionProbability(true)
	report.Transition = denseRows(tmat)
	if err := describeGraph(m, opts, &report); err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(cmd.OutOrStdout(), report, tmat)
	return nil
}

// describeGraph adds the shape of the contact graph, as it stands after the last
// replicate, to the report
func describeGraph(m *epiworld.Model, opts runOptions, report *runReport) error {
	if !m.Directed() && !m.GlobalMixing() {
		comps, err := m.Components()
		if err != nil {
			return err
		}
		report.Components = len(comps)
		for _, comp := range comps {
			report.Largest = max(report.Largest, len(comp))
		}
	}
	if opts.pathFrom >= 0 && opts.pathTo >= 0 {
		route, err := m.ContactPath(opts.pathFrom, opts.pathTo)
		if err != nil {
			return err
		}
		if len(route) == 0 {
			return fmt.Errorf("agent %d cannot be reached from agent %d", opts.pathTo, opts.pathFrom)
		}
		report.ContactPath = route
	}
	return nil
}

func denseRows(d *mat.Dense) [][]float64 {
	if d == nil {
		return nil
	}
	r, _ := d.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = mat.Row(nil, i, d)
	}
	return rows
}

func printReport(w io.Writer, report runReport, tmat *mat.Dense) {
	fmt.Fprintf(w, "Model        : %s\n", report.Model)
	fmt.Fprintf(w, "Agents       : %d\n", report.Agents)
	fmt.Fprintf(w, "Days         : %d\n", report.Days)
	fmt.Fprintf(w, "Seed         : %d\n", report.Seed)
	fmt.Fprintf(w, "Replicates   : %d (%.3fs)\n", report.Replicates, report.ElapsedSecs)
	if report.Components > 0 {
		fmt.Fprintf(w, "Components   : %d (largest %d agents)\n", report.Components, report.Largest)
	}
	if len(report.ContactPath) > 0 {
		fmt.Fprintf(w, "Contact path : %v\n", report.ContactPath)
	}
	fmt.Fprintln(w, "\nFinal counts across replicates:")
	for _, s := range report.Final {
		fmt.Fprintf(w, "  %-12s mean %10.2f  sd %8.2f  min %8.0f  max %8.0f\n", s.Status, s.Mean, s.StdDev, s.Min, s.Max)
	}
	if tmat != nil {
		fmt.Fprintln(w, "\nTransition probabilities (last replicate):")
		fmt.Fprintf(w, "%.4f\n", mat.Formatted(tmat, mat.Prefix(""), mat.Squeeze()))
	}
}
