package main

import (
	"fmt"
	"strings"

	"github.com/iti/epiworld"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a model described by a configuration file",
		Long: `Run a model whose parameters, statuses, viruses and tools are described in a
yaml or json configuration file, over a population read from an edge list or
generated as a ring lattice.

Examples:
  epiworld run --config sir.yaml --edgelist net.txt --skip 1
  epiworld run --config sir.yaml --ring-n 1000 --ring-k 8 --rewire 0.1 --replicates 20
  epiworld run --config sir.yaml --ring-n 1000 --ring-k 8 --sqlite out/hist.db --json
  epiworld run --config experiments.yaml --model seir --ring-n 1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			edgelist, _ := cmd.Flags().GetString("edgelist")
			skip, _ := cmd.Flags().GetInt("skip")
			directed, _ := cmd.Flags().GetBool("directed")
			ringN, _ := cmd.Flags().GetInt("ring-n")
			ringK, _ := cmd.Flags().GetInt("ring-k")
			rewire, _ := cmd.Flags().GetFloat64("rewire")

			modelName, _ := cmd.Flags().GetString("model")

			mc, err := loadRunCfg(cfgFile, modelName)
			if err != nil {
				return err
			}

			opts := readRunOptions(cmd)
			opts.pathFrom, _ = cmd.Flags().GetInt("path-from")
			opts.pathTo, _ = cmd.Flags().GetInt("path-to")
			if !cmd.Flags().Changed("days") && mc.NDays > 0 {
				opts.days = mc.NDays
			}
			if !cmd.Flags().Changed("seed") && mc.Seed >= 0 {
				opts.seed = mc.Seed
			}

			m := epiworld.CreateModel(mc.Name)
			// the small world graph draws from the streams, so they follow the seed too
			m.SetSeed(opts.seed)
			opts.seed = int64(m.Seed())

			switch {
			case len(edgelist) > 0:
				al, err := epiworld.ReadAdjList(edgelist, skip, directed, -1, -1)
				if err != nil {
					return err
				}
				if err := m.PopFromAdjList(al); err != nil {
					return err
				}
			case ringN > 0:
				if err := m.PopSmallWorld(ringN, ringK, rewire); err != nil {
					return err
				}
			default:
				return fmt.Errorf("a population is needed: give --edgelist or --ring-n")
			}

			if err := mc.Apply(m); err != nil {
				return err
			}
			return execute(cmd, m, opts)
		},
	}

	cmd.Flags().String("config", "", "Model configuration file (.yaml or .json)")
	cmd.Flags().String("model", "", "Name of the configuration to run when --config is a dictionary")
	cmd.Flags().String("edgelist", "", "Edge list file, one \"source target\" pair per line")
	cmd.Flags().Int("skip", 0, "Lines to skip at the top of the edge list")
	cmd.Flags().Bool("directed", false, "Read the edge list as a directed graph")
	cmd.Flags().Int("ring-n", 0, "Generate a ring lattice of this many agents")
	cmd.Flags().Int("ring-k", 4, "Degree of the generated ring lattice")
	cmd.Flags().Float64("rewire", 0.0, "Proportion of the ring lattice edges rewired before the run")
	cmd.Flags().Int("path-from", -1, "Report a shortest chain of contacts from this agent id")
	cmd.Flags().Int("path-to", -1, "Report a shortest chain of contacts to this agent id")
	_ = cmd.MarkFlagRequired("config")
	addRunFlags(cmd)
	return cmd
}

// loadRunCfg reads a single configuration, or when modelName is given the configuration
// saved under that name in a dictionary
func loadRunCfg(cfgFile, modelName string) (*epiworld.ModelCfg, error) {
	if len(modelName) == 0 {
		mc, err := epiworld.LoadModelCfg(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}
		return mc, nil
	}

	mcd, err := epiworld.LoadModelCfgDict(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration dictionary: %w", err)
	}
	mc, present := mcd.RecoverModelCfg(modelName)
	if !present {
		return nil, fmt.Errorf("no configuration %q in %s (have %s)", modelName, cfgFile,
			strings.Join(mcd.Names(), ", "))
	}
	return mc, nil
}
