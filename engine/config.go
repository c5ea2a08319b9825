// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package engine is the bootstrap harness that wires together
// core/clock, core/scheduler, core/nodes, core/buffers, core/transfer and
// core/registry into a running instance: Init allocates the substrate,
// Start drives the fixed-rate update loop, End tears everything down.
package engine

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables a running instance needs: clock rates, the
// scheduler's reaper threshold, default channel layout, and window
// defaults. Generalizes the teacher's config.go constant block (title,
// x/y/w/h, background color) into a YAML-loadable struct rather than
// functional options, since these values are now runtime substrate
// parameters rather than one-shot window-creation args. Init applies the
// clock rates and Start the window fields; DefaultChannels,
// AudioBufferSize and ReapThreshold are loaded but not read by Init, so
// the scheduler keeps its built-in reap threshold of 64.
type Config struct {
	SampleRate int `yaml:"sample_rate"`
	FrameRate  int `yaml:"frame_rate"`

	DefaultChannels  int `yaml:"default_channels"`
	AudioBufferSize  int `yaml:"audio_buffer_size"`
	ReapThreshold    int `yaml:"reap_threshold"`

	WindowTitle  string `yaml:"window_title"`
	WindowWidth  int32  `yaml:"window_width"`
	WindowHeight int32  `yaml:"window_height"`
}

// DefaultConfig mirrors the teacher's configDefaults block: reasonable
// values a caller gets for free when no YAML file is supplied.
func DefaultConfig() Config {
	return Config{
		SampleRate:      48000,
		FrameRate:       60,
		DefaultChannels: 2,
		AudioBufferSize: 512,
		ReapThreshold:   64,
		WindowTitle:     "MayaFlux",
		WindowWidth:     800,
		WindowHeight:    450,
	}
}

// LoadConfig reads and parses a YAML config file, starting from
// DefaultConfig so a partial file only overrides the fields it sets.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
