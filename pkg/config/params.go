// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	// FlagConfig is the hvtune config flag.
	FlagConfig = "config"

	// FlagVerbose opts in to debug logging.
	FlagVerbose = "verbose"
)

// DefaultPath is where hvtune looks for its configuration when --config is
// not given.
const DefaultPath = "/etc/hvtune/hvtune.yaml"

// Params contains hvtune-wide configuration parameters.
type Params struct {
	// ConfigPath is any flag-specified config path. A missing file is an
	// error only when the path was given explicitly.
	ConfigPath string

	// Verbose tracks the -v flag.
	Verbose bool

	// FlagOverrides are any flag-specified config overrides, in the form
	// key=value.
	FlagOverrides []string
}

// Load returns the effective policy. In order, this
//
//   - Starts from the built-in policy.
//   - Decodes the config file over it, if there is one.
//   - Processes -X flag overrides.
//   - Converts memory.min_free into vm.min_free_kbytes.
//   - Drops unset keys and validates the result.
func (p *Params) Load(fs afero.Fs) (*Config, error) {
	c := Default()
	if err := p.readConfig(fs, c); err != nil {
		return nil, err
	}
	if err := p.processOverrides(c); err != nil {
		return nil, err
	}
	if err := c.applyMemory(); err != nil {
		return nil, err
	}
	c.prune()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func (p *Params) readConfig(fs afero.Fs, c *Config) error {
	path := p.ConfigPath
	if path == "" {
		path = DefaultPath
	}
	file, err := afero.ReadFile(fs, path)
	if err != nil {
		if p.ConfigPath == "" && errors.Is(err, os.ErrNotExist) {
			zap.L().Sugar().Debugf("No config found at %s, using the built-in policy", path)
			return nil
		}
		return fmt.Errorf("unable to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(file, c); err != nil {
		return fmt.Errorf("unable to yaml decode %s: %v", path, err)
	}
	zap.L().Sugar().Debugf("Loaded config %s", path)
	return nil
}

func (c *Config) applyMemory() error {
	if c.Memory.MinFree == "" {
		return nil
	}
	n, err := units.RAMInBytes(c.Memory.MinFree)
	if err != nil {
		return fmt.Errorf("invalid memory.min_free %q: %w", c.Memory.MinFree, err)
	}
	if n < 1024 {
		return fmt.Errorf("invalid memory.min_free %q: must be at least 1KiB", c.Memory.MinFree)
	}
	// An empty sysctl section in the file decodes to a nil map.
	if c.Sysctl == nil {
		c.Sysctl = make(map[string]string)
	}
	c.Sysctl["vm.min_free_kbytes"] = strconv.FormatInt(n/1024, 10)
	return nil
}

func (p *Params) processOverrides(c *Config) error {
	for _, o := range p.FlagOverrides {
		kv := strings.SplitN(o, "=", 2)
		if len(kv) != 2 {
			return fmt.Errorf("invalid override %q: expected key=value", o)
		}
		if err := c.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("invalid override %q: %w", o, err)
		}
	}
	return nil
}

// Set sets a single policy field by its dotted path, such as
// "sysctl.vm.swappiness" or "tuners.disk_scheduler".
func (c *Config) Set(key, value string) error {
	section, rest, _ := strings.Cut(key, ".")
	switch section {
	case "tuners":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		if c.Tuners == nil {
			c.Tuners = make(map[string]bool)
		}
		c.Tuners[rest] = b
	case "sysctl":
		if rest == "" {
			return errors.New("missing sysctl key")
		}
		if c.Sysctl == nil {
			c.Sysctl = make(map[string]string)
		}
		c.Sysctl[rest] = value
	case "io_schedulers":
		if rest == "" {
			return errors.New("missing device pattern")
		}
		if c.IOSchedulers == nil {
			c.IOSchedulers = make(map[string]string)
		}
		c.IOSchedulers[rest] = value
	case "modules":
		c.Modules = nil
		for _, m := range strings.Split(value, ",") {
			if m = strings.TrimSpace(m); m != "" {
				c.Modules = append(c.Modules, m)
			}
		}
	default:
		switch key {
		case "cpu.governor":
			c.CPU.Governor = value
		case "memory.min_free":
			c.Memory.MinFree = value
		case "transparent_hugepages.enabled":
			c.THP.Enabled = value
		case "transparent_hugepages.defrag":
			c.THP.Defrag = value
		default:
			return fmt.Errorf("unknown key %q", key)
		}
	}
	return nil
}

// ParamsHelp returns the long form help of -X.
func ParamsHelp() string {
	return `The -X flag overrides any policy setting, after the config file is read.
Each override is a key=value pair; the flag can be repeated.

tuners.<name>=<bool>
    Enables or disables a tuner: cpu_governor, tcp_bbr, sysctl,
    transparent_hugepages or disk_scheduler.

sysctl.<key>=<value>
    Sets a kernel parameter in the hvtune drop-in. An empty value removes
    the key from the policy.

io_schedulers.<pattern>=<scheduler>
    Sets the scheduler of the block devices matching a kernel name glob,
    e.g. io_schedulers.vd[a-z]=mq-deadline. An empty value removes it.

modules=<name>[,<name>...]
    Replaces the kernel modules loaded at boot.

cpu.governor=<governor>
    The CPU frequency scaling governor.

memory.min_free=<size>
    Memory the kernel keeps free, e.g. 512MiB; sets vm.min_free_kbytes.

transparent_hugepages.enabled=<always|madvise|never>
transparent_hugepages.defrag=<always|defer|defer+madvise|madvise|never>
    Transparent hugepage modes.
`
}

// ParamsList returns the terse form of ParamsHelp.
func ParamsList() string {
	return `tuners.<name>=<bool>
sysctl.<key>=<value>
io_schedulers.<pattern>=<scheduler>
modules=<name>[,<name>...]
cpu.governor=<governor>
memory.min_free=<size>
transparent_hugepages.enabled=<always|madvise|never>
transparent_hugepages.defrag=<always|defer|defer+madvise|madvise|never>
`
}

// Logger returns the logger for the -v setting: debug level when verbose,
// info otherwise, written to stderr so it doesn't mix with command output.
func (p *Params) Logger() *zap.Logger {
	level := zapcore.InfoLevel
	if p.Verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	var opts []zap.Option
	if p.Verbose {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...)
}
