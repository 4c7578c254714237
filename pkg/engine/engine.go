// Package engine implements the multiplexer core: per-radio state
// tracking, the election/switching state machine, amplifier query
// emulation, and deterministic MuxEvent emission (spec §4.3).
//
// An Engine owns all of its state; it is driven by a single logical task
// per spec §5 and never shares RadioState across goroutines. Callers hold
// only RadioHandles, never references into the engine.
package engine

import (
	"time"

	"github.com/ftl/catmux/pkg/protocol"
	"github.com/ftl/catmux/pkg/translate"
)

// Engine is the sole owner of radios, activeRadio and lockoutUntil. The
// zero value is not usable; construct with New.
type Engine struct {
	config     Config
	translator *translate.Translator
	now        func() time.Time

	radios     map[protocol.RadioHandle]*RadioState
	nextHandle uint64

	hasActive   bool
	activeRadio protocol.RadioHandle

	hasLockout   bool
	lockoutUntil time.Time

	events []MuxEvent
}

// Option configures an Engine at construction. The only current use is
// injecting a deterministic clock for tests; production callers need
// nothing but New(cfg).
type Option func(*Engine)

// WithClock overrides the engine's time source. Tests use this to make
// lockout windows deterministic instead of racing wall-clock time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		config:     cfg,
		translator: translate.New(),
		now:        time.Now,
		radios:     make(map[protocol.RadioHandle]*RadioState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterRadio inserts a new RadioState and emits RadioConnected. The
// first registered radio does not automatically become active (spec §4.3,
// "Public operations"): that needs an explicit SelectRadio or election.
func (e *Engine) RegisterRadio(meta RadioMeta) protocol.RadioHandle {
	e.nextHandle++
	handle := protocol.RadioHandle(e.nextHandle)
	e.radios[handle] = &RadioState{
		Handle:       handle,
		Meta:         meta,
		LastActivity: e.now(),
	}
	e.emit(MuxEvent{Kind: RadioConnected, Handle: handle, Meta: meta})
	return handle
}

// UnregisterRadio removes a radio. If it was active, active_radio becomes
// None and ActiveRadioChanged{from: Some(handle), to: None} is emitted;
// no other radio is auto-promoted (spec §4.3 invariants).
func (e *Engine) UnregisterRadio(handle protocol.RadioHandle) {
	if _, ok := e.radios[handle]; !ok {
		return
	}
	delete(e.radios, handle)
	e.emit(MuxEvent{Kind: RadioDisconnected, Handle: handle})

	if e.hasActive && e.activeRadio == handle {
		from := e.activeRadio
		e.hasActive = false
		e.emit(MuxEvent{Kind: ActiveRadioChanged, HasFrom: true, From: from, HasTo: false})
	}
}

// SelectRadio performs an immediate manual switch, bypassing lockout, and
// still arms a fresh lockout window (spec §4.3).
func (e *Engine) SelectRadio(handle protocol.RadioHandle) {
	if _, ok := e.radios[handle]; !ok {
		return
	}
	e.switchTo(handle, e.now())
}

// SetSwitchingMode changes the election policy and emits
// SwitchingModeChanged.
func (e *Engine) SetSwitchingMode(mode SwitchingMode) {
	e.config.SwitchingMode = mode
	e.emit(MuxEvent{Kind: SwitchingModeChanged, NewSwitchingMode: mode})
}

// DrainEvents returns every event emitted since the last call, in order,
// and clears the buffer.
func (e *Engine) DrainEvents() []MuxEvent {
	out := e.events
	e.events = nil
	return out
}

// State returns a snapshot of one radio's state, or false if handle is not
// registered.
func (e *Engine) State(handle protocol.RadioHandle) (RadioState, bool) {
	s, ok := e.radios[handle]
	if !ok {
		return RadioState{}, false
	}
	return s.Snapshot(), true
}

// ActiveRadio returns the currently active radio's handle, or false if
// none is active.
func (e *Engine) ActiveRadio() (protocol.RadioHandle, bool) {
	return e.activeRadio, e.hasActive
}

func (e *Engine) emit(ev MuxEvent) {
	e.events = append(e.events, ev)
}

// ProcessRadioCommand runs the full pipeline of spec §4.3 for one command
// arriving from one registered radio: apply state evidence, run election,
// and, if that radio is now active, translate and emit AmpDataOut.
func (e *Engine) ProcessRadioCommand(handle protocol.RadioHandle, cmd protocol.RadioCommand) {
	state, ok := e.radios[handle]
	if !ok {
		return
	}
	now := e.now()

	priorFreq, hadFreq := state.FrequencyHz, state.HasFrequency
	priorMode, hadMode := state.Mode, state.HasMode
	priorPtt := state.Ptt

	e.applyEvidence(state, cmd, now)

	wasActive := e.hasActive && e.activeRadio == handle
	if !wasActive {
		e.runElection(handle, cmd, priorFreq, hadFreq, priorMode, hadMode, now)
	}

	e.updateBands(state)
	e.emitStateChangeIfAny(state, priorFreq, hadFreq, priorMode, hadMode, priorPtt)

	isActiveNow := e.hasActive && e.activeRadio == handle
	if isActiveNow {
		e.emitToAmplifier(handle, cmd)
	}
}

// applyEvidence updates RadioState fields from cmd per spec §4.3 step 2.
// Both Set* and *Report commands are treated as state evidence.
func (e *Engine) applyEvidence(state *RadioState, cmd protocol.RadioCommand, now time.Time) {
	switch cmd.Kind {
	case protocol.SetFrequency, protocol.FrequencyReport:
		state.FrequencyHz = cmd.Hz
		state.HasFrequency = true
		state.LastFreqChange = now
		state.HasLastFreqChg = true
		if cmd.Kind == protocol.SetFrequency {
			state.Vfo = cmd.Vfo
			state.HasVfo = true
		}
	case protocol.SetMode, protocol.ModeReport:
		state.Mode = cmd.Mode
		state.HasMode = true
	case protocol.SetPtt, protocol.PttReport:
		state.Ptt = cmd.Ptt
	case protocol.SetVfo, protocol.VfoReport:
		state.Vfo = cmd.Vfo
		state.HasVfo = true
	case protocol.StatusReport:
		if cmd.Status.HasHz {
			state.FrequencyHz = cmd.Status.Hz
			state.HasFrequency = true
			state.LastFreqChange = now
			state.HasLastFreqChg = true
		}
		if cmd.Status.HasMode {
			state.Mode = cmd.Status.Mode
			state.HasMode = true
		}
		if cmd.Status.HasPtt {
			state.Ptt = cmd.Status.Ptt
		}
		if cmd.Status.HasVfo {
			state.Vfo = cmd.Status.Vfo
			state.HasVfo = true
		}
	case protocol.Unknown:
		if on, recognized := recognizeSplitToggle(cmd.Data); recognized {
			state.Split = on
		}
		if band, recognized := recognizeControlBand(cmd.Data); recognized {
			state.ControlBand = band
			state.HasControlBand = true
		}
		if band, recognized := recognizeTxBand(cmd.Data); recognized {
			state.TxBand = band
			state.HasTxBand = true
		}
	}
	state.LastActivity = now
}

// runElection implements spec §4.3 step 3: decide whether to switch to
// handle, subject to the configured SwitchingMode and the lockout window.
func (e *Engine) runElection(
	handle protocol.RadioHandle, cmd protocol.RadioCommand,
	priorFreq uint64, hadFreq bool, priorMode protocol.OperatingMode, hadMode bool,
	now time.Time,
) {
	if !e.shouldSwitch(cmd, priorFreq, hadFreq, priorMode, hadMode) {
		return
	}

	if e.hasLockout && now.Before(e.lockoutUntil) {
		remaining := e.lockoutUntil.Sub(now)
		remainingMs := remaining.Milliseconds()
		if remainingMs <= 0 {
			remainingMs = 1
		}
		current := e.activeRadio
		e.emit(MuxEvent{
			Kind:        SwitchingBlocked,
			Requested:   handle,
			Current:     current,
			RemainingMs: remainingMs,
		})
		return
	}

	e.switchTo(handle, now)
}

func (e *Engine) shouldSwitch(
	cmd protocol.RadioCommand,
	priorFreq uint64, hadFreq bool,
	priorMode protocol.OperatingMode, hadMode bool,
) bool {
	switch e.config.SwitchingMode {
	case Manual:
		return false
	case FrequencyTriggered:
		return isFrequencyChange(cmd, priorFreq, hadFreq)
	case Automatic:
		if isPttOn(cmd) {
			return true
		}
		if isFrequencyChange(cmd, priorFreq, hadFreq) {
			return true
		}
		if isModeChange(cmd, priorMode, hadMode) {
			return true
		}
		return false
	default:
		return false
	}
}

func isFrequencyChange(cmd protocol.RadioCommand, priorFreq uint64, hadFreq bool) bool {
	switch cmd.Kind {
	case protocol.SetFrequency, protocol.FrequencyReport:
		return !hadFreq || cmd.Hz != priorFreq
	default:
		return false
	}
}

func isModeChange(cmd protocol.RadioCommand, priorMode protocol.OperatingMode, hadMode bool) bool {
	switch cmd.Kind {
	case protocol.SetMode, protocol.ModeReport:
		return !hadMode || cmd.Mode != priorMode
	default:
		return false
	}
}

func isPttOn(cmd protocol.RadioCommand) bool {
	switch cmd.Kind {
	case protocol.SetPtt, protocol.PttReport:
		return cmd.Ptt
	default:
		return false
	}
}

// switchTo sets active_radio, arms a fresh lockout window and emits
// ActiveRadioChanged (spec §4.3 invariant: this happens before any
// AmpDataOut caused by commands on the new active radio).
func (e *Engine) switchTo(handle protocol.RadioHandle, now time.Time) {
	var from protocol.RadioHandle
	hasFrom := e.hasActive
	if hasFrom {
		from = e.activeRadio
	}

	e.activeRadio = handle
	e.hasActive = true
	e.lockoutUntil = now.Add(time.Duration(e.config.LockoutMs) * time.Millisecond)
	e.hasLockout = true

	e.emit(MuxEvent{Kind: ActiveRadioChanged, HasFrom: hasFrom, From: from, To: handle, HasTo: true})
}

// emitToAmplifier implements spec §4.3 step 4: filter, translate and
// deliver the command toward the amplifier.
func (e *Engine) emitToAmplifier(handle protocol.RadioHandle, cmd protocol.RadioCommand) {
	state := e.radios[handle]
	filtered, ok := e.filterForAmplifier(state.Meta.Protocol, cmd)
	if !ok {
		return
	}

	if verbatim, ok := translate.TranslateVerbatim(filtered, state.Meta.Protocol, e.config.Amplifier.Protocol); ok {
		if len(verbatim) > 0 {
			e.emit(MuxEvent{Kind: AmpDataOut, Data: verbatim, Protocol: e.config.Amplifier.Protocol})
		}
		return
	}

	encoded := e.translator.Translate(filtered, e.config.Amplifier.Protocol, translate.TargetConfig{
		CivAddress:    e.config.Amplifier.CivAddress,
		CivController: e.config.Amplifier.CivController,
	})
	if len(encoded) == 0 {
		if filtered.Kind != protocol.Unknown {
			e.emit(MuxEvent{Kind: Error, Source: "translator", Message: "unsupported translation for " + e.config.Amplifier.Protocol.String()})
		}
		return
	}
	e.emit(MuxEvent{Kind: AmpDataOut, Data: encoded, Protocol: e.config.Amplifier.Protocol})
}

// filterForAmplifier implements spec §4.3 step 4's pass/drop table.
func (e *Engine) filterForAmplifier(source protocol.Protocol, cmd protocol.RadioCommand) (protocol.RadioCommand, bool) {
	switch cmd.Kind {
	case protocol.SetFrequency, protocol.FrequencyReport, protocol.SetMode, protocol.ModeReport, protocol.SetPtt, protocol.PttReport:
		return cmd, true
	case protocol.Unknown:
		if source == e.config.Amplifier.Protocol {
			return cmd, true
		}
		return protocol.RadioCommand{}, false
	default:
		return protocol.RadioCommand{}, false
	}
}

// updateBands implements spec §4.3 step 5. Directly reported bands (from
// recognized Unknown frames, already applied in applyEvidence) take
// priority; otherwise control_band/tx_band are inferred from vfo/split.
func (e *Engine) updateBands(state *RadioState) {
	if state.HasControlBand && state.HasTxBand {
		return
	}
	if !state.HasVfo {
		return
	}
	controlBand := 0
	if state.Vfo == protocol.VfoB {
		controlBand = 1
	}
	if !state.HasControlBand {
		state.ControlBand = controlBand
		state.HasControlBand = true
	}
	if !state.HasTxBand {
		txBand := controlBand
		if state.Split {
			txBand ^= 1
		}
		state.TxBand = txBand
		state.HasTxBand = true
	}
}

// emitStateChangeIfAny implements spec §4.3 step 6: emit RadioStateChanged
// only for fields that actually changed.
func (e *Engine) emitStateChangeIfAny(
	state *RadioState,
	priorFreq uint64, hadFreq bool,
	priorMode protocol.OperatingMode, hadMode bool,
	priorPtt bool,
) {
	ev := MuxEvent{Kind: RadioStateChanged, Handle: state.Handle}
	changed := false

	if state.HasFrequency && (!hadFreq || state.FrequencyHz != priorFreq) {
		ev.HasFreq = true
		ev.Freq = state.FrequencyHz
		changed = true
	}
	if state.HasMode && (!hadMode || state.Mode != priorMode) {
		ev.HasMode = true
		ev.Mode = state.Mode
		changed = true
	}
	if state.Ptt != priorPtt {
		ev.HasPtt = true
		ev.Ptt = state.Ptt
		changed = true
	}

	if changed {
		e.emit(ev)
	}
}

// recognizeSplitToggle recognizes a protocol-specific Unknown frame as a
// split on/off command. ASCII dialects use "SP0;"/"SP1;"; CI-V uses cmd
// 0x0F with a one-byte state.
func recognizeSplitToggle(data []byte) (on bool, recognized bool) {
	if len(data) == 4 && data[0] == 'S' && data[1] == 'P' && data[3] == ';' {
		switch data[2] {
		case '0':
			return false, true
		case '1':
			return true, true
		}
	}
	if len(data) == 7 && data[0] == 0xFE && data[1] == 0xFE && data[4] == 0x0F {
		return data[5] != 0, true
	}
	return false, false
}

// recognizeControlBand recognizes a radio-reported control-band frame:
// ASCII "CB0;"/"CB1;".
func recognizeControlBand(data []byte) (band int, recognized bool) {
	if len(data) == 4 && data[0] == 'C' && data[1] == 'B' && data[3] == ';' {
		switch data[2] {
		case '0':
			return 0, true
		case '1':
			return 1, true
		}
	}
	return 0, false
}

// recognizeTxBand recognizes a radio-reported transmit-band frame: ASCII
// "TB0;"/"TB1;".
func recognizeTxBand(data []byte) (band int, recognized bool) {
	if len(data) == 4 && data[0] == 'T' && data[1] == 'B' && data[3] == ';' {
		switch data[2] {
		case '0':
			return 0, true
		case '1':
			return 1, true
		}
	}
	return 0, false
}
