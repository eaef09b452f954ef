package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fmigo/fmigo/internal/fmu"
	"github.com/fmigo/fmigo/internal/integrator"
	"github.com/fmigo/fmigo/internal/modeldescr"
	"github.com/fmigo/fmigo/internal/status"
)

func parseStepperType(name string) (integrator.StepperType, error) {
	switch strings.ToLower(name) {
	case "euler":
		return integrator.Euler, nil
	case "rk4":
		return integrator.RK4, nil
	case "abm5":
		return integrator.ABM5, nil
	case "cash_karp", "cashkarp":
		return integrator.CashKarp, nil
	case "dormand_prince", "dopri", "dormandprince":
		return integrator.DormandPrince, nil
	case "fehlberg78":
		return integrator.Fehlberg78, nil
	case "bulirsch_stoer", "bulirschstoer":
		return integrator.BulirschStoer, nil
	case "rosenbrock4":
		return integrator.Rosenbrock4, nil
	case "bdf":
		return integrator.BDF, nil
	case "adams_moulton", "adamsmoulton":
		return integrator.AdamsMoulton, nil
	default:
		return integrator.RK4, fmt.Errorf("fmictl: unknown stepper %q", name)
	}
}

// newInstanceFor acquires a reference-counted Bare FMU handle for id and
// wraps it in a fresh Model Exchange driver instance. The returned
// *fmu.Instance owns that reference; callers release it via
// instance.Release() once they are done (it does not also need releasing
// separately).
func newInstanceFor(id string, fmuType modeldescr.FMUType, opts fmu.InstanceOptions) *fmu.Instance {
	switch fmuType {
	case modeldescr.ME10:
		if b := manager.GetBareFMUv1ME(id); b != nil {
			return fmu.New(b, opts)
		}
	default:
		if b := manager.GetBareFMUv2(id); b != nil {
			return fmu.New(b, opts)
		}
	}
	return nil
}

func newSimulateCmd() *cobra.Command {
	var (
		stopTime        float64
		outputInterval  float64
		maxStep         float64
		stepperName     string
		stopBeforeEvent bool
		eventSearchEps  float64
		dymolaWorkaround bool
		instanceName    string
	)

	cmd := &cobra.Command{
		Use:   "simulate <model-id>",
		Short: "Run a Model Exchange simulation from t=0 to --stop-time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			fmuType, st := manager.GetTypeOfLoaded(id)
			if st != status.OK {
				return fmt.Errorf("fmictl: no loaded FMU with id %q", id)
			}
			if !fmuType.IsModelExchange() {
				return fmt.Errorf("fmictl: %q is not a Model Exchange FMU (variant %s)", id, fmuType)
			}

			stepperType, err := parseStepperType(stepperName)
			if err != nil {
				return err
			}

			opts := fmu.InstanceOptions{
				StopBeforeEvent:                       stopBeforeEvent,
				EventSearchEps:                         eventSearchEps,
				DymolaDirectionalDerivativeWorkaround: dymolaWorkaround,
			}
			instance := newInstanceFor(id, fmuType, opts)
			if instance == nil {
				return fmt.Errorf("fmictl: could not acquire a Bare FMU handle for %q", id)
			}
			defer instance.Release()

			if st := instance.Instantiate(instanceName, false); st == status.Fatal {
				return fmt.Errorf("fmictl: instantiate failed: %s", st)
			}
			defer instance.Terminate()

			if st := instance.Initialize(false, 0); st == status.Fatal {
				return fmt.Errorf("fmictl: initialize failed: %s", st)
			}

			props := integrator.Properties{Type: stepperType, AbsTol: 1e-6, RelTol: 1e-6}
			integ := integrator.New(instance, props, log)

			fmt.Println("time,status")
			t := 0.0
			for t < stopTime {
				next := t + outputInterval
				if next > stopTime {
					next = stopTime
				}
				reached, runSt := instance.Integrate(next, maxStep, integ)
				fmt.Printf("%g,%s\n", reached, runSt)
				if runSt == status.Fatal {
					return fmt.Errorf("fmictl: simulation aborted at t=%g: %s", reached, runSt)
				}
				t = reached
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&stopTime, "stop-time", 1.0, "simulation end time")
	cmd.Flags().Float64Var(&outputInterval, "output-interval", 0.1, "time between reported samples")
	cmd.Flags().Float64Var(&maxStep, "max-step", 0.01, "suggested stepper step size")
	cmd.Flags().StringVar(&stepperName, "stepper", "rk4", "ODE stepper family (euler, rk4, abm5, cash_karp, dormand_prince, fehlberg78, bulirsch_stoer, rosenbrock4, bdf, adams_moulton)")
	cmd.Flags().BoolVar(&stopBeforeEvent, "stop-before-event", false, "stop integration at the left limit of an event instead of stepping across it")
	cmd.Flags().Float64Var(&eventSearchEps, "event-search-eps", 1e-9, "bisection precision for locating state events")
	cmd.Flags().BoolVar(&dymolaWorkaround, "dymola-directional-derivative-workaround", false, "swap the known/unknown argument order of the directional-derivative call for non-compliant Dymola-exported FMUs")
	cmd.Flags().StringVar(&instanceName, "instance-name", "fmictl-instance", "FMI instance name")
	return cmd
}
