// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package main is a small bootstrap harness for manually smoke-testing
// the engine API outside of unit tests: boot, run a fixed-step loop for a
// configurable duration, and tear down. Not the terminal-DSL operator
// surface spec.md §1 excludes — this is a bench for the engine itself.
package main

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mayaflux/mayaflux/engine"
)

var (
	sampleRate   int
	frameRate    int
	runDuration  float64
	configPath   string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "mayaflux-bench",
	Short: "Bootstrap harness for the MayaFlux core engine",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot the engine, run for a fixed duration, then shut down",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := engine.DefaultConfig()
		if configPath != "" {
			cfg, err = engine.LoadConfig(configPath)
			if err != nil {
				logrus.Fatalf("failed to load config %s: %v", configPath, err)
			}
		}
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
		if frameRate > 0 {
			cfg.FrameRate = frameRate
		}

		inst, err := engine.Init(cfg)
		if err != nil {
			logrus.Fatalf("engine.Init: %v", err)
		}
		logrus.Infof("engine initialized: sample_rate=%d frame_rate=%d", cfg.SampleRate, cfg.FrameRate)

		dt := 1.0 / float64(cfg.FrameRate)
		go func() {
			time.Sleep(time.Duration(runDuration * float64(time.Second)))
			inst.Stop()
		}()

		if err := inst.Start(dt); err != nil {
			logrus.Fatalf("engine.Start: %v", err)
		}
		inst.End()
		logrus.Info("engine run complete")
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().IntVar(&sampleRate, "sample-rate", 0, "Override the configured sample rate in Hz")
	runCmd.Flags().IntVar(&frameRate, "frame-rate", 0, "Override the configured frame rate in Hz")
	runCmd.Flags().Float64Var(&runDuration, "duration", 5.0, "How long to run before shutting down, in seconds")
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file (defaults baked in if omitted)")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
}

func main() {
	Execute()
}
