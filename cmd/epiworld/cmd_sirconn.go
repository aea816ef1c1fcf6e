package main

import (
	"github.com/iti/epiworld"
	"github.com/iti/epiworld/epimodels"
	"github.com/spf13/cobra"
)

func newSIRCONNCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sirconn",
		Short: "Run the fully mixed SIR model",
		Long: `Run a susceptible-infected-recovered model in which every agent may meet
every other one.

Examples:
  epiworld sirconn --agents 10000 --prevalence 0.01 --contact-rate 2 --transmission 0.9 --recovery 0.3
  epiworld sirconn --tool-prevalence 0.3 --tool-recovery 0.5 --replicates 10 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("agents")
			prevalence, _ := cmd.Flags().GetFloat64("prevalence")
			contactRate, _ := cmd.Flags().GetFloat64("contact-rate")
			transmission, _ := cmd.Flags().GetFloat64("transmission")
			recovery, _ := cmd.Flags().GetFloat64("recovery")
			toolPrevalence, _ := cmd.Flags().GetFloat64("tool-prevalence")
			toolRecovery, _ := cmd.Flags().GetFloat64("tool-recovery")
			noQueue, _ := cmd.Flags().GetBool("no-queuing")

			m, err := epimodels.NewSIRCONN("a virus", n, prevalence, contactRate, transmission, recovery)
			if err != nil {
				return err
			}
			if toolPrevalence > 0.0 {
				t := epiworld.CreateTool("treatment")
				t.SetRecoveryEnhancerValue(toolRecovery)
				if err := m.AddTool(t, toolPrevalence); err != nil {
					return err
				}
			}
			if noQueue {
				m.QueuingOff()
			}
			return execute(cmd, m, readRunOptions(cmd))
		},
	}

	cmd.Flags().Int("agents", 10000, "Number of agents")
	cmd.Flags().Float64("prevalence", 0.01, "Initial proportion of infected agents")
	cmd.Flags().Float64("contact-rate", 2.0, "Expected number of contacts per agent per day")
	cmd.Flags().Float64("transmission", 0.9, "Probability of transmission per contact")
	cmd.Flags().Float64("recovery", 0.3, "Daily probability of recovery")
	cmd.Flags().Float64("tool-prevalence", 0.0, "Proportion of agents given a treatment")
	cmd.Flags().Float64("tool-recovery", 0.5, "Recovery enhancement of the treatment")
	cmd.Flags().Bool("no-queuing", false, "Update every agent every day")
	addRunFlags(cmd)
	return cmd
}
