// Package report renders the Model Manager's registry and a loaded model's
// variable table to a terminal, the way the teacher's cmd/claude-monitor
// reporting package renders its activity tables: fatih/color for section
// headers and status coloring, olekukonko/tablewriter for the tabular
// layout itself.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/fmigo/fmigo/internal/barefmu"
	"github.com/fmigo/fmigo/internal/modeldescr"
	"github.com/fmigo/fmigo/internal/modelmanager"
)

var (
	headerColor = color.New(color.FgMagenta, color.Bold)
	okColor     = color.New(color.FgGreen, color.Bold)
	warnColor   = color.New(color.FgYellow)
)

// PrintRegistry renders every FMU currently loaded in m as a table of
// model identifier, FMI variant, and state/event-indicator counts.
func PrintRegistry(w io.Writer, m *modelmanager.Manager) {
	headerColor.Fprintln(w, "LOADED FMUs:")

	ids := m.LoadedIDs()
	if len(ids) == 0 {
		warnColor.Fprintln(w, "(none loaded)")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Model ID", "Variant", "States", "Event Indicators"})
	table.SetBorder(false)
	table.SetRowSeparator("-")
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
	)

	for _, id := range ids {
		fmuType, _ := m.GetTypeOfLoaded(id)
		states, indicators := "-", "-"
		if bfmu := bareFMUFor(m, id, fmuType); bfmu != nil {
			desc := bfmu.Description()
			states = fmt.Sprintf("%d", desc.NumberOfContinuousStates())
			indicators = fmt.Sprintf("%d", desc.NumberOfEventIndicators())
			bfmu.Release()
		}
		table.Append([]string{id, fmuType.String(), states, indicators})
	}
	table.Render()
}

// bareFMUFor fetches (and leaves it to the caller to Release) a
// reference-counted handle purely to read description metadata for the
// registry table.
func bareFMUFor(m *modelmanager.Manager, id string, t modeldescr.FMUType) *barefmu.BareFMU {
	switch t {
	case modeldescr.ME10:
		return m.GetBareFMUv1ME(id)
	case modeldescr.CS10:
		return m.GetBareFMUv1CS(id)
	default:
		return m.GetBareFMUv2(id)
	}
}

// PrintVariables renders desc's model variable list as a table of name,
// value reference, type, and causality.
func PrintVariables(w io.Writer, desc *modeldescr.ModelDescription) {
	headerColor.Fprintf(w, "VARIABLES (%s):\n", desc.ModelIdentifiers())

	vars := desc.GetModelVariables()
	if len(vars) == 0 {
		warnColor.Fprintln(w, "(no variables declared)")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Value Ref", "Type", "Causality", "Variability"})
	table.SetBorder(false)
	table.SetRowSeparator("-")
	table.SetColumnColor(
		tablewriter.Colors{tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.FgWhiteColor},
		tablewriter.Colors{tablewriter.FgGreenColor},
		tablewriter.Colors{tablewriter.FgYellowColor},
		tablewriter.Colors{tablewriter.FgBlueColor},
	)

	for _, v := range vars {
		table.Append([]string{
			v.Name,
			fmt.Sprintf("%d", v.ValueRef),
			v.Type.String(),
			v.Causality,
			v.Variability,
		})
	}
	table.Render()
}

// PrintDescription renders a single FMU's summary: variant, GUID,
// counts-by-type, and default experiment, if any.
func PrintDescription(w io.Writer, desc *modeldescr.ModelDescription) {
	headerColor.Fprintln(w, "MODEL DESCRIPTION:")
	fmt.Fprintf(w, "  FMI version:       %s\n", desc.FMIVersion())
	fmt.Fprintf(w, "  Variant:           %s\n", desc.FMUType())
	fmt.Fprintf(w, "  GUID:              %s\n", desc.GUID())
	fmt.Fprintf(w, "  Continuous states: %d\n", desc.NumberOfContinuousStates())
	fmt.Fprintf(w, "  Event indicators:  %d\n", desc.NumberOfEventIndicators())

	counts := desc.NumberOfVariablesByType()
	fmt.Fprintf(w, "  Variables:         %d real, %d integer, %d boolean, %d string\n",
		counts.Real, counts.Integer, counts.Boolean, counts.String)

	if desc.ProvidesJacobian() {
		okColor.Fprintln(w, "  Provides directional derivative: yes")
	} else {
		warnColor.Fprintln(w, "  Provides directional derivative: no")
	}

	if desc.HasDefaultExperiment() {
		exp := desc.GetDefaultExperiment()
		fmt.Fprintf(w, "  Default experiment: start=%g stop=%g tolerance=%g\n",
			exp.StartTime, exp.StopTime, exp.Tolerance)
	}
}
