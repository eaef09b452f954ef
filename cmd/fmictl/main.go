// Command fmictl is a CLI front end to fmigo's Model Manager and Model
// Exchange Driver, grounded on the teacher binary's single-cobra-root,
// many-subcommand layout.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fmigo/fmigo/internal/modelmanager"
	"github.com/fmigo/fmigo/pkg/logger"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
)

var (
	logLevel = "info"
	log      = logger.NewDefaultLogger("fmictl", logLevel, os.Stdout)
	manager  = modelmanager.Get()
)

func main() {
	root := &cobra.Command{
		Use:   "fmictl",
		Short: "Load, inspect, and drive FMI Model Exchange FMUs",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = logger.NewDefaultLogger("fmictl", logLevel, os.Stdout)
			manager.SetLogger(log)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newLoadCmd(),
		newUnloadCmd(),
		newListCmd(),
		newDescribeCmd(),
		newSimulateCmd(),
	)

	if err := root.Execute(); err != nil {
		errorColor.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printStatusLine(label string, s fmt.Stringer) {
	switch s.String() {
	case "OK":
		successColor.Printf("%s: %s\n", label, s)
	case "Warning", "Discard":
		warningColor.Printf("%s: %s\n", label, s)
	default:
		errorColor.Printf("%s: %s\n", label, s)
	}
}
