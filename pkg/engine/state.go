package engine

import (
	"time"

	"github.com/ftl/catmux/pkg/protocol"
)

// SwitchingMode controls when the engine elects a new active radio
// (spec §4.3).
type SwitchingMode int

const (
	Manual SwitchingMode = iota
	FrequencyTriggered
	Automatic
)

func (m SwitchingMode) String() string {
	switch m {
	case Manual:
		return "manual"
	case FrequencyTriggered:
		return "frequency-triggered"
	case Automatic:
		return "automatic"
	default:
		return "unknown"
	}
}

// AmplifierConfig configures the amplifier-facing side of the engine:
// which protocol it speaks, the CI-V address it should be addressed as,
// and the identity it impersonates (spec §4.5).
type AmplifierConfig struct {
	Protocol         protocol.Protocol
	CivAddress       byte
	CivController    byte
	ImpersonatedID   string
}

// DefaultAmplifierConfig matches spec §4.5's defaults: a Kenwood TS-990S
// impersonation, ID "022".
func DefaultAmplifierConfig() AmplifierConfig {
	return AmplifierConfig{
		Protocol:       protocol.Kenwood,
		CivAddress:     0x94,
		CivController:  0xE0,
		ImpersonatedID: "022",
	}
}

// Config is the MultiplexerConfig of spec §3.
type Config struct {
	SwitchingMode SwitchingMode
	LockoutMs     uint64
	Amplifier     AmplifierConfig
}

// DefaultConfig returns the spec's default lockout (500ms) and a Manual
// switching mode, leaving election to explicit SelectRadio calls until the
// caller opts into FrequencyTriggered or Automatic.
func DefaultConfig() Config {
	return Config{
		SwitchingMode: Manual,
		LockoutMs:     500,
		Amplifier:     DefaultAmplifierConfig(),
	}
}

// RadioMeta identifies a radio at registration time; it never changes for
// the radio's lifetime.
type RadioMeta struct {
	Name       string
	Port       string
	Protocol   protocol.Protocol
	CivAddress byte
	HasCiv     bool
}

// RadioState is the engine's per-radio record (spec §3). Optional fields
// pair a value with a Has* flag, so a never-observed field is
// distinguishable from an observed zero value.
type RadioState struct {
	Handle protocol.RadioHandle
	Meta   RadioMeta

	HasFrequency bool
	FrequencyHz  uint64
	HasMode      bool
	Mode         protocol.OperatingMode
	Ptt          bool
	HasVfo       bool
	Vfo          protocol.Vfo
	Split        bool

	LastActivity   time.Time
	HasLastFreqChg bool
	LastFreqChange time.Time

	HasControlBand bool
	ControlBand    int
	HasTxBand      bool
	TxBand         int
}

// Snapshot returns a copy of the state safe to hand to an observer outside
// the engine (spec §9, "Ownership of state").
func (s *RadioState) Snapshot() RadioState {
	return *s
}
