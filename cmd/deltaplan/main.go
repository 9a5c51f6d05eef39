// Command deltaplan is a CLI front end standing in for the external RPC
// host that would otherwise deliver a GENERATE action (SPEC_FULL.md §2,
// §6): it loads a GENERATE request from a YAML/JSON file, runs one plan
// against a Fake Geometry Provider, and writes the resulting Command File
// to disk as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fiberfield/deltaplan/action"
	"github.com/fiberfield/deltaplan/config"
	"github.com/fiberfield/deltaplan/geometry"
	"github.com/fiberfield/deltaplan/logging"
	"github.com/fiberfield/deltaplan/planerr"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deltaplan",
		Short:         "Plan collision-free delta command sequences for a fibre positioner field",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newGenerateCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	var requestPath, outPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one GENERATE plan from a request file and write the Command File",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requestPath == "" {
				return fmt.Errorf("--request is required")
			}
			return runGenerate(requestPath, outPath)
		},
	}

	cmd.Flags().StringVar(&requestPath, "request", "", "path to a GENERATE request document (YAML or JSON)")
	cmd.Flags().StringVar(&outPath, "out", "plan.json", "path to write the resulting Command File")
	return cmd
}

func runGenerate(requestPath, outPath string) error {
	req, err := config.LoadRequestFile(requestPath)
	if err != nil {
		return err
	}

	instr := geometry.InstrumentForTaskName(req.Name)
	provider := geometry.NewParked(geometry.NewFake(instr, len(req.Constants), len(req.Fiducials)), geometry.Options{})

	driver := action.NewDriver(provider, action.VersionInfo{
		EnqVerNum:   "1.0.0",
		EnqVerDate:  "2026-07-30",
		EnqDevDescr: "deltaplan CLI",
	})

	log := logging.New(nil)
	result, err := driver.Generate(req, log, action.ProgressSinkFunc(func(pct float64) {
		log.Debugf("DELTA_PROG %.1f%%", pct)
	}))
	if err != nil {
		if code := planerr.CodeOf(err); code != planerr.CodeUnknown {
			return fmt.Errorf("%s: %w", code, err)
		}
		return err
	}

	if result.File == nil {
		log.Infof("NO_DELTA set: validation ran, no command file produced")
		return nil
	}

	digest, err := result.File.Digest()
	if err != nil {
		return err
	}

	out := struct {
		PlanDigest string `json:"planDigest"`
		File       any    `json:"file"`
	}{
		PlanDigest: digest,
		File:       result.File,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return err
	}
	log.Infof("wrote %s (%s)", outPath, digest)
	return nil
}
