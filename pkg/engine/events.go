package engine

import "github.com/ftl/catmux/pkg/protocol"

// EventKind tags which variant of MuxEvent is populated.
type EventKind int

const (
	RadioConnected EventKind = iota
	RadioDisconnected
	RadioStateChanged
	ActiveRadioChanged
	RadioDataIn
	RadioDataOut
	AmpDataIn
	AmpDataOut
	AmpConnected
	AmpDisconnected
	SwitchingModeChanged
	SwitchingBlocked
	Error
)

// MuxEvent is the single ordered event stream of spec §3.
type MuxEvent struct {
	Kind EventKind

	Handle protocol.RadioHandle
	Meta   RadioMeta

	// RadioStateChanged: only the fields that actually changed are set,
	// with their Has* companion true.
	HasFreq bool
	Freq    uint64
	HasMode bool
	Mode    protocol.OperatingMode
	HasPtt  bool
	Ptt     bool

	// ActiveRadioChanged
	HasFrom bool
	From    protocol.RadioHandle
	To      protocol.RadioHandle
	HasTo   bool

	Data     []byte
	Protocol protocol.Protocol

	// SwitchingModeChanged
	NewSwitchingMode SwitchingMode

	// SwitchingBlocked
	Requested   protocol.RadioHandle
	Current     protocol.RadioHandle
	RemainingMs int64

	Source  string
	Message string
}
