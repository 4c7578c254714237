// Package config loads the shell's YAML configuration: the radio and
// amplifier peers to dial, and the MultiplexerConfig to build the engine
// with. The core (pkg/engine, pkg/codec, pkg/translate) never imports this
// package (spec §6: "No CLI, no persisted file format in the core").
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ftl/catmux/pkg/engine"
	"github.com/ftl/catmux/pkg/protocol"
)

// RadioEntry names one radio peer to dial and the dialect it speaks.
type RadioEntry struct {
	Name       string `yaml:"name"`
	Port       string `yaml:"port"`
	Protocol   string `yaml:"protocol"`
	CivAddress string `yaml:"civ_address,omitempty"`
}

// AmplifierEntry names the amplifier peer.
type AmplifierEntry struct {
	Port           string `yaml:"port"`
	Protocol       string `yaml:"protocol"`
	CivAddress     string `yaml:"civ_address,omitempty"`
	CivController  string `yaml:"civ_controller,omitempty"`
	ImpersonatedID string `yaml:"impersonated_id,omitempty"`
}

// Config is the top-level catmux configuration document.
type Config struct {
	SwitchingMode string `yaml:"switching_mode"`
	LockoutMs     uint64 `yaml:"lockout_ms"`

	Radios    []RadioEntry   `yaml:"radios"`
	Amplifier AmplifierEntry `yaml:"amplifier"`

	Telemetry struct {
		ListenAddress string `yaml:"listen_address"`
	} `yaml:"telemetry"`
}

// Load reads and parses a YAML config document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}
	return &cfg, nil
}

// EngineConfig converts the parsed switching mode and lockout into an
// engine.Config, filling in spec-mandated defaults for anything unset.
func (c *Config) EngineConfig() (engine.Config, error) {
	cfg := engine.DefaultConfig()

	if c.LockoutMs != 0 {
		cfg.LockoutMs = c.LockoutMs
	}
	if c.SwitchingMode != "" {
		mode, err := ParseSwitchingMode(c.SwitchingMode)
		if err != nil {
			return engine.Config{}, err
		}
		cfg.SwitchingMode = mode
	}

	if c.Amplifier.Protocol != "" {
		proto, err := ParseProtocol(c.Amplifier.Protocol)
		if err != nil {
			return engine.Config{}, errors.Wrap(err, "amplifier protocol")
		}
		cfg.Amplifier.Protocol = proto
	}
	if c.Amplifier.CivAddress != "" {
		addr, err := parseHexByte(c.Amplifier.CivAddress)
		if err != nil {
			return engine.Config{}, errors.Wrap(err, "amplifier civ_address")
		}
		cfg.Amplifier.CivAddress = addr
	}
	if c.Amplifier.CivController != "" {
		ctrl, err := parseHexByte(c.Amplifier.CivController)
		if err != nil {
			return engine.Config{}, errors.Wrap(err, "amplifier civ_controller")
		}
		cfg.Amplifier.CivController = ctrl
	}
	if c.Amplifier.ImpersonatedID != "" {
		cfg.Amplifier.ImpersonatedID = c.Amplifier.ImpersonatedID
	}

	return cfg, nil
}

// ParseSwitchingMode maps a config string to engine.SwitchingMode.
func ParseSwitchingMode(s string) (engine.SwitchingMode, error) {
	switch s {
	case "manual":
		return engine.Manual, nil
	case "frequency-triggered":
		return engine.FrequencyTriggered, nil
	case "automatic":
		return engine.Automatic, nil
	default:
		return 0, errors.Errorf("unknown switching mode %q", s)
	}
}

// ParseProtocol maps a config string to protocol.Protocol.
func ParseProtocol(s string) (protocol.Protocol, error) {
	switch s {
	case "kenwood":
		return protocol.Kenwood, nil
	case "elecraft":
		return protocol.Elecraft, nil
	case "flexradio":
		return protocol.FlexRadio, nil
	case "icom-civ":
		return protocol.IcomCIV, nil
	case "yaesu-binary":
		return protocol.YaesuBinary, nil
	case "yaesu-ascii":
		return protocol.YaesuAscii, nil
	default:
		return 0, errors.Errorf("unknown protocol %q", s)
	}
}

// RadioMetas converts the configured radio entries into engine.RadioMeta
// values, ready to pass to actor.Shell.RegisterRadio.
func (c *Config) RadioMetas() ([]engine.RadioMeta, error) {
	metas := make([]engine.RadioMeta, 0, len(c.Radios))
	for _, r := range c.Radios {
		proto, err := ParseProtocol(r.Protocol)
		if err != nil {
			return nil, errors.Wrapf(err, "radio %q", r.Name)
		}
		meta := engine.RadioMeta{Name: r.Name, Port: r.Port, Protocol: proto}
		if r.CivAddress != "" {
			addr, err := parseHexByte(r.CivAddress)
			if err != nil {
				return nil, errors.Wrapf(err, "radio %q civ_address", r.Name)
			}
			meta.CivAddress = addr
			meta.HasCiv = true
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

func parseHexByte(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8)
	if err != nil {
		return 0, errors.Wrapf(err, "parse hex byte %q", s)
	}
	return byte(v), nil
}
