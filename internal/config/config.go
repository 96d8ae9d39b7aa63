// Package config loads the fuzzer's run configuration: flag parsing
// (the CLI surface from §6) plus an optional YAML overrides file,
// matching the teacher's convention of a thin flag.FlagSet binding
// over a config struct.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"luafuzz/internal/fuzzerr"
)

// Config holds every flag from §6's CLI table plus the positional
// interpreter path.
type Config struct {
	InterpreterPath          string        `yaml:"interpreterPath"`
	Jobs                     int           `yaml:"jobs"`
	ConsecutiveMutations     int           `yaml:"consecutiveMutations"`
	StoragePath              string        `yaml:"storagePath"`
	Resume                   bool          `yaml:"resume"`
	Overwrite                bool          `yaml:"overwrite"`
	ExportStatistics         bool          `yaml:"exportStatistics"`
	StatisticsExportInterval time.Duration `yaml:"statisticsExportInterval"`
	SwarmTesting             bool          `yaml:"swarmTesting"`
	Debug                    bool          `yaml:"debug"`
}

// Defaults mirrors what a bare `luafuzz <interpreter>` invocation runs
// with.
func Defaults() Config {
	return Config{
		Jobs:                     1,
		ConsecutiveMutations:     5,
		StoragePath:              "./luafuzz-out",
		StatisticsExportInterval: time.Minute,
	}
}

// Parse builds a Config from args (normally os.Args[1:]), applying an
// optional --config YAML file first, then flag overrides on top.
func Parse(args []string) (Config, error) {
	cfg := Defaults()

	fs := flag.NewFlagSet("luafuzz", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional YAML file of config overrides")
	jobs := fs.Int("jobs", cfg.Jobs, "number of worker fuzzers (1 = single)")
	consecutiveMutations := fs.Int("consecutiveMutations", cfg.ConsecutiveMutations, "mutations per picked corpus sample before re-picking")
	storagePath := fs.String("storagePath", cfg.StoragePath, "directory for corpus / crashes / stats persistence")
	resume := fs.Bool("resume", false, "re-import existing corpus from storagePath/old_corpus")
	overwrite := fs.Bool("overwrite", false, "delete storagePath contents before start")
	exportStatistics := fs.Bool("exportStatistics", false, "periodically write statistics to storagePath")
	statisticsExportInterval := fs.Duration("statisticsExportInterval", cfg.StatisticsExportInterval, "interval between statistics snapshots, requires exportStatistics")
	swarmTesting := fs.Bool("swarmTesting", false, "randomize code-generator weights at startup")
	debug := fs.Bool("debug", false, "replay existing inputs and log coverage over time")

	if err := fs.Parse(args); err != nil {
		return Config{}, fuzzerr.ConfigError("args", err)
	}

	if *configPath != "" {
		overrides, err := loadYAML(*configPath)
		if err != nil {
			return Config{}, err
		}
		cfg = mergeNonZero(cfg, overrides)
		// Re-parse with the merged values as flag defaults, so only flags
		// given explicitly in args override the YAML file.
		*jobs, *consecutiveMutations, *storagePath = cfg.Jobs, cfg.ConsecutiveMutations, cfg.StoragePath
		*resume, *overwrite, *exportStatistics = cfg.Resume, cfg.Overwrite, cfg.ExportStatistics
		*statisticsExportInterval, *swarmTesting, *debug = cfg.StatisticsExportInterval, cfg.SwarmTesting, cfg.Debug
		if err := fs.Parse(args); err != nil {
			return Config{}, fuzzerr.ConfigError("args", err)
		}
	}

	cfg.Jobs = *jobs
	cfg.ConsecutiveMutations = *consecutiveMutations
	cfg.StoragePath = *storagePath
	cfg.Resume = *resume
	cfg.Overwrite = *overwrite
	cfg.ExportStatistics = *exportStatistics
	cfg.StatisticsExportInterval = *statisticsExportInterval
	cfg.SwarmTesting = *swarmTesting
	cfg.Debug = *debug

	if fs.NArg() != 1 {
		return Config{}, fuzzerr.New(fuzzerr.CodeConfigInvalid, "expected exactly one positional argument: path to instrumented interpreter")
	}
	cfg.InterpreterPath = fs.Arg(0)

	return cfg, cfg.Validate()
}

func loadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fuzzerr.Wrap(fuzzerr.CodeConfigParse, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fuzzerr.Wrap(fuzzerr.CodeConfigParse, err)
	}
	return cfg, nil
}

// mergeNonZero overlays override's non-zero fields onto base, so a
// partial YAML file only touches the keys it actually sets.
func mergeNonZero(base, override Config) Config {
	if override.Jobs != 0 {
		base.Jobs = override.Jobs
	}
	if override.ConsecutiveMutations != 0 {
		base.ConsecutiveMutations = override.ConsecutiveMutations
	}
	if override.StoragePath != "" {
		base.StoragePath = override.StoragePath
	}
	if override.StatisticsExportInterval != 0 {
		base.StatisticsExportInterval = override.StatisticsExportInterval
	}
	base.Resume = base.Resume || override.Resume
	base.Overwrite = base.Overwrite || override.Overwrite
	base.ExportStatistics = base.ExportStatistics || override.ExportStatistics
	base.SwarmTesting = base.SwarmTesting || override.SwarmTesting
	base.Debug = base.Debug || override.Debug
	return base
}

// Validate rejects configuration contradictions per §7's
// "Config contradiction (flags)" error kind.
func (c Config) Validate() error {
	if c.InterpreterPath == "" {
		return fuzzerr.New(fuzzerr.CodeConfigInvalid, "interpreter path is required")
	}
	if c.Jobs < 1 {
		return fuzzerr.ConfigError("jobs", fmt.Errorf("must be >= 1, got %d", c.Jobs))
	}
	if c.ConsecutiveMutations < 1 {
		return fuzzerr.ConfigError("consecutiveMutations", fmt.Errorf("must be >= 1, got %d", c.ConsecutiveMutations))
	}
	if c.Overwrite && c.Resume {
		return fuzzerr.New(fuzzerr.CodeConfigInvalid, "--overwrite and --resume are mutually exclusive")
	}
	if c.StatisticsExportInterval <= 0 && c.ExportStatistics {
		return fuzzerr.ConfigError("statisticsExportInterval", fmt.Errorf("must be positive when exportStatistics is set"))
	}
	return nil
}
