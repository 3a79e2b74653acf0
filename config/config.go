// Copyright 2023 Linkall Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads reader configuration from yaml files. Environment
// variables in the file are expanded before parsing, so cache locations can
// be spelled as ${HOME}/... in shared configurations.
package config

import (
	// standard libraries.
	"os"
	"time"

	// third-party libraries.
	"gopkg.in/yaml.v3"

	// this project.
	"github.com/linkall-labs/vrs/progress"
	"github.com/linkall-labs/vrs/reader"
	"github.com/linkall-labs/vrs/vrserrors"
)

// Config is the file-level reader configuration.
type Config struct {
	// DetailsCacheDir holds local details caches of remote files. Empty
	// disables the cache.
	DetailsCacheDir string `yaml:"details_cache_dir"`
	// AutoWriteFixedIndex patches rebuilt indexes back into damaged files.
	AutoWriteFixedIndex bool `yaml:"auto_write_fixed_index"`
	// ProgressUpdateDelay throttles open and reindexing progress logs.
	ProgressUpdateDelay time.Duration `yaml:"progress_update_delay"`
	// SilentProgress drops progress logs entirely.
	SilentProgress bool `yaml:"silent_progress"`
}

func (c *Config) Validate() error {
	if c.ProgressUpdateDelay < 0 {
		return vrserrors.ErrInvalidReq
	}
	if c.DetailsCacheDir != "" {
		info, err := os.Stat(c.DetailsCacheDir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return vrserrors.ErrInvalidReq
		}
	}
	return nil
}

// ReaderOptions translates the configuration into open options.
func (c *Config) ReaderOptions() reader.Options {
	opts := reader.Options{
		DetailsCacheDir:     c.DetailsCacheDir,
		AutoWriteFixedIndex: c.AutoWriteFixedIndex,
	}
	if c.SilentProgress {
		opts.Progress = progress.Silent{}
	} else if c.ProgressUpdateDelay > 0 {
		opts.Progress = &progress.LogLogger{UpdateDelay: c.ProgressUpdateDelay}
	}
	return opts
}

// LoadConfig parses a yaml file into config, expanding environment
// variables first.
func LoadConfig(filename string, config interface{}) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	str := os.ExpandEnv(string(b))
	return yaml.Unmarshal([]byte(str), config)
}

// InitConfig loads and validates a reader configuration file.
func InitConfig(filename string) (*Config, error) {
	c := new(Config)
	if err := LoadConfig(filename, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
