// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the settings used to locate and run gprof.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDir is created under the user's home directory.
	DefaultDir = ".gprofToPprof"
	ConfigFile = "config.yaml"

	// EnvConfig names a config file to use instead of the default one.
	EnvConfig   = "GPROF_CONFIG"
	EnvCommand  = "GPROF_COMMAND"
	EnvWorkDir  = "GPROF_WORKDIR"
	EnvLogLevel = "GPROF_LOG_LEVEL"
)

// Config holds everything needed to produce a gprof report.
type Config struct {
	// GprofCommand is the gprof binary.
	GprofCommand string `yaml:"gprof_command"`
	// Executable is the profiled program, relative to WorkingDirectory.
	Executable string `yaml:"executable"`
	// ProfileData is the gmon.out file written by the profiled program.
	ProfileData      string `yaml:"profile_data"`
	WorkingDirectory string `yaml:"working_directory"`
	LogLevel         string `yaml:"log_level"`
}

// DefaultGprofCommand returns the usual gprof location for goos.
func DefaultGprofCommand(goos string) string {
	if goos == "windows" {
		return "C:/MinGW/bin/gprof.exe"
	}
	return "/usr/bin/gprof"
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		GprofCommand:     DefaultGprofCommand(runtime.GOOS),
		Executable:       "a.out",
		ProfileData:      "gmon.out",
		WorkingDirectory: ".",
		LogLevel:         "info",
	}
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration can be used to run gprof.
func (c *Config) Validate() error {
	var errs []error
	if c.GprofCommand == "" {
		errs = append(errs, errors.New("gprof_command is required"))
	}
	if c.Executable == "" {
		errs = append(errs, errors.New("executable is required"))
	}
	if c.ProfileData == "" {
		errs = append(errs, errors.New("profile_data is required"))
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q is not one of trace, debug, info, warn, error", c.LogLevel))
	}
	return errors.Join(errs...)
}

// MergeFromEnv overrides fields with the GPROF_* environment variables that
// are set.
func MergeFromEnv(c *Config) {
	overrides := []struct {
		env   string
		field *string
	}{
		{EnvCommand, &c.GprofCommand},
		{EnvWorkDir, &c.WorkingDirectory},
		{EnvLogLevel, &c.LogLevel},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.field = v
		}
	}
}

// Loader reads and writes the configuration file.
type Loader struct {
	path string
}

// NewLoader returns a loader for $GPROF_CONFIG, or for
// ~/.gprofToPprof/config.yaml when the variable is unset. Without a home
// directory the loader points at a file that does not exist, so Load returns
// defaults.
func NewLoader() *Loader {
	if path := os.Getenv(EnvConfig); path != "" {
		return NewLoaderForFile(path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = filepath.Join(os.TempDir(), "gprofToPprof-fallback")
	}
	return NewLoaderForFile(filepath.Join(home, DefaultDir, ConfigFile))
}

// NewLoaderForFile returns a loader for an explicit config file.
func NewLoaderForFile(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the config file location.
func (l *Loader) Path() string {
	return l.path
}

// Load reads the config file, falling back to defaults when it does not
// exist, then applies environment overrides. Fields missing from the file
// keep their default value.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	//nolint:gosec // G304: Path is chosen by the user.
	data, err := os.ReadFile(l.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", l.path, err)
		}
	}
	MergeFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", l.path, err)
	}
	return cfg, nil
}

// Save writes cfg to the config file, creating its directory.
func (l *Loader) Save(cfg *Config) error {
	//nolint:gosec // G301: Directory needs standard permissions for traversal
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	//nolint:gosec // G306: Config file is not sensitive
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
