package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iti/epiworld"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage model configurations",
		Long: `Collect model configurations into a dictionary file and update their parameters.

A dictionary holds configurations under their names; "epiworld run --model"
picks one of them.

Examples:
  epiworld config add experiments.yaml sir.yaml seir.json   # Save configurations
  epiworld config list experiments.yaml                     # Show what is saved
  epiworld config update sir.yaml tuned.yaml                # Merge parameters`,
	}

	cmd.AddCommand(
		newConfigAddCmd(),
		newConfigListCmd(),
		newConfigUpdateCmd(),
	)
	return cmd
}

func newConfigAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <dict> <config>...",
		Short: "Save configurations into a dictionary, creating it if needed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			overwrite, _ := cmd.Flags().GetBool("overwrite")
			dictFile := args[0]

			mcd, err := epiworld.LoadModelCfgDict(dictFile)
			switch {
			case errors.Is(err, os.ErrNotExist):
				name := strings.TrimSuffix(filepath.Base(dictFile), filepath.Ext(dictFile))
				mcd = epiworld.CreateModelCfgDict(name)
			case err != nil:
				return fmt.Errorf("failed to read configuration dictionary: %w", err)
			}

			for _, cfgFile := range args[1:] {
				mc, err := epiworld.LoadModelCfg(cfgFile)
				if err != nil {
					return fmt.Errorf("failed to read configuration %s: %w", cfgFile, err)
				}
				if err := mcd.AddModelCfg(mc, overwrite); err != nil {
					return err
				}
			}
			if err := mcd.WriteToFile(dictFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s holds %d configurations\n", dictFile, len(mcd.Cfgs))
			return nil
		},
	}
	cmd.Flags().Bool("overwrite", false, "Replace configurations already saved under the same name")
	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <dict>",
		Short: "List the configurations saved in a dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			mcd, err := epiworld.LoadModelCfgDict(args[0])
			if err != nil {
				return fmt.Errorf("failed to read configuration dictionary: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"dictname": mcd.DictName,
					"models":   mcd.Names(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dictionary %s:\n", mcd.DictName)
			for _, name := range mcd.Names() {
				mc, _ := mcd.RecoverModelCfg(name)
				fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %d parameters, %d viruses, %d tools\n",
					name, len(mc.Parameters), len(mc.Viruses), len(mc.Tools))
			}
			return nil
		},
	}
}

func newConfigUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <config> <update>",
		Short: "Merge the parameters of one configuration into another",
		Long: `Copy every parameter of <update> into <config>, replacing the values of
parameters already there, and write <config> back.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := epiworld.UpdateModelCfg(args[0], args[1]); err != nil {
				return fmt.Errorf("failed to update configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", args[0])
			return nil
		},
	}
}
