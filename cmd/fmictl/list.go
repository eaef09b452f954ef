package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fmigo/fmigo/internal/barefmu"
	"github.com/fmigo/fmigo/internal/modeldescr"
	"github.com/fmigo/fmigo/internal/report"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every FMU currently loaded in the Model Manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			report.PrintRegistry(os.Stdout, manager)
			return nil
		},
	}
}

func bareFMUByID(id string) (*barefmu.BareFMU, error) {
	fmuType, _ := manager.GetTypeOfLoaded(id)
	var b *barefmu.BareFMU
	switch fmuType {
	case modeldescr.ME10:
		b = manager.GetBareFMUv1ME(id)
	case modeldescr.CS10:
		b = manager.GetBareFMUv1CS(id)
	default:
		b = manager.GetBareFMUv2(id)
	}
	if b == nil {
		return nil, fmt.Errorf("fmictl: no loaded FMU with id %q", id)
	}
	return b, nil
}

func newDescribeCmd() *cobra.Command {
	var variables bool

	cmd := &cobra.Command{
		Use:   "describe <model-id>",
		Short: "Print a loaded FMU's model description summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bareFMUByID(args[0])
			if err != nil {
				return err
			}
			defer b.Release()

			report.PrintDescription(os.Stdout, b.Description())
			if variables {
				report.PrintVariables(os.Stdout, b.Description())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&variables, "variables", false, "also print the full model variable table")
	return cmd
}
