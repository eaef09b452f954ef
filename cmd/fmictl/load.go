package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoadCmd() *cobra.Command {
	var id string
	var loggingOn bool

	cmd := &cobra.Command{
		Use:   "load <extracted-fmu-dir>",
		Short: "Load an extracted FMU directory into the Model Manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			if id == "" {
				loadedID, fmuType, st, err := manager.LoadByDiscovery(dir, loggingOn)
				if err != nil {
					return err
				}
				printStatusLine("load", st)
				fmt.Printf("loaded %q as %s\n", loadedID, fmuType)
				return nil
			}

			fmuType, st, err := manager.LoadByID(id, dir, loggingOn)
			if err != nil {
				return err
			}
			printStatusLine("load", st)
			fmt.Printf("loaded %q as %s\n", id, fmuType)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "explicit model identifier (defaults to discovery from the model description)")
	cmd.Flags().BoolVar(&loggingOn, "fmi-logging", false, "enable the FMU's own FMI logging callback")
	return cmd
}

func newUnloadCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "unload [model-id]",
		Short: "Unload a loaded FMU, or all of them with --all (stops at the first one in use)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				st := manager.UnloadAll()
				printStatusLine("unload --all", st)
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("unload requires a model-id argument unless --all is given")
			}
			st := manager.UnloadByID(args[0])
			printStatusLine("unload", st)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "unload every loaded FMU, stopping at the first still-referenced one")
	return cmd
}
