// Package config handles bcvm.toml configuration.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "bcvm.toml"

// Config represents a bcvm.toml file.
type Config struct {
	VM     VM     `toml:"vm"`
	Output Output `toml:"output"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// VM configures interpreter limits and behavior.
type VM struct {
	MaxCallDepth int  `toml:"max-call-depth"`
	MaxSteps     int  `toml:"max-steps"`
	JumpTable    bool `toml:"jump-table"`
	ChainCause   bool `toml:"chain-cause"`
}

// Output configures the CLI's terminal output.
type Output struct {
	Color   bool `toml:"color"`
	Verbose bool `toml:"verbose"`
	Trace   bool `toml:"trace"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		VM: VM{
			MaxCallDepth: 1000,
			ChainCause:   true,
		},
		Output: Output{Color: true},
	}
}

// Parse decodes TOML on top of the defaults.
func Parse(data string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(data, c)
	if err != nil {
		return nil, errors.Wrap(err, "parse error")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown key %s", undecoded[0])
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the configuration at path. An empty path means FileName in the
// working directory, and a missing default file yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = FileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}

	c, err := Parse(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}
	c.Path = path
	return c, nil
}

func (c *Config) validate() error {
	if c.VM.MaxCallDepth <= 0 {
		return errors.Errorf("vm.max-call-depth must be positive, got %d", c.VM.MaxCallDepth)
	}
	if c.VM.MaxSteps < 0 {
		return errors.Errorf("vm.max-steps must not be negative, got %d", c.VM.MaxSteps)
	}
	return nil
}
