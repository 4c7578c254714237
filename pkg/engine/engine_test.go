package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftl/catmux/pkg/codec/civ"
	"github.com/ftl/catmux/pkg/codec/kenwood"
	"github.com/ftl/catmux/pkg/codec/yaesubin"
	"github.com/ftl/catmux/pkg/protocol"
)

func drainAmpDataOut(events []MuxEvent) [][]byte {
	var out [][]byte
	for _, ev := range events {
		if ev.Kind == AmpDataOut {
			out = append(out, ev.Data)
		}
	}
	return out
}

func findEvent(events []MuxEvent, kind EventKind) (MuxEvent, bool) {
	for _, ev := range events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return MuxEvent{}, false
}

// (a) CI-V -> Kenwood frequency translation (spec §8).
func TestScenarioCIVToKenwoodTranslation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Amplifier.Protocol = protocol.Kenwood
	e := New(cfg)

	r1 := e.RegisterRadio(RadioMeta{Name: "r1", Protocol: protocol.IcomCIV})
	e.RegisterRadio(RadioMeta{Name: "amp", Protocol: protocol.Kenwood})
	e.DrainEvents()

	e.SelectRadio(r1)
	e.DrainEvents()

	dec := civ.NewDecoder()
	cmds := dec.Push([]byte{0xFE, 0xFE, 0x94, 0xE0, 0x05, 0x00, 0x00, 0x25, 0x14, 0x00, 0xFD})
	require.Len(t, cmds, 1)

	e.ProcessRadioCommand(r1, cmds[0])
	out := drainAmpDataOut(e.DrainEvents())
	require.Len(t, out, 1)
	assert.Equal(t, []byte("FA00014250000;"), out[0])
}

// (b) Yaesu-binary -> CI-V (spec §8).
func TestScenarioYaesuBinaryToCIV(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Amplifier.Protocol = protocol.IcomCIV
	e := New(cfg)

	r1 := e.RegisterRadio(RadioMeta{Name: "r1", Protocol: protocol.YaesuBinary})
	e.DrainEvents()
	e.SelectRadio(r1)
	e.DrainEvents()

	dec := yaesubin.NewDecoder()
	cmds := dec.Push([]byte{0x14, 0x25, 0x00, 0x00, 0x01})
	require.Len(t, cmds, 1)

	e.ProcessRadioCommand(r1, cmds[0])
	out := drainAmpDataOut(e.DrainEvents())
	require.Len(t, out, 1)
	assert.Equal(t, []byte{0xFE, 0xFE, 0x94, 0xE0, 0x05, 0x00, 0x00, 0x25, 0x14, 0x00, 0xFD}, out[0])
}

// (c) Manual mode inertness (spec §8).
func TestScenarioManualModeInertness(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SwitchingMode = Manual
	e := New(cfg)

	r1 := e.RegisterRadio(RadioMeta{Name: "r1", Protocol: protocol.Kenwood})
	r2 := e.RegisterRadio(RadioMeta{Name: "r2", Protocol: protocol.Kenwood})
	e.DrainEvents()
	e.SelectRadio(r1)
	e.DrainEvents()

	e.ProcessRadioCommand(r2, protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: 7150000})
	events := e.DrainEvents()

	_, switched := findEvent(events, ActiveRadioChanged)
	assert.False(t, switched)

	stateChanged, ok := findEvent(events, RadioStateChanged)
	require.True(t, ok)
	assert.Equal(t, r2, stateChanged.Handle)
	assert.True(t, stateChanged.HasFreq)
	assert.Equal(t, uint64(7150000), stateChanged.Freq)

	assert.Empty(t, drainAmpDataOut(events))
}

// (d) Lockout (spec §8).
func TestScenarioLockout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SwitchingMode = Automatic
	cfg.LockoutMs = 500

	now := time.Now()
	clock := func() time.Time { return now }
	e := New(cfg, WithClock(clock))

	r1 := e.RegisterRadio(RadioMeta{Name: "r1", Protocol: protocol.Kenwood})
	r2 := e.RegisterRadio(RadioMeta{Name: "r2", Protocol: protocol.Kenwood})
	e.DrainEvents()
	e.SelectRadio(r1)
	e.DrainEvents()

	// SelectRadio arms its own lockout window; let it run out so that R1 is
	// active with no lockout pending when the scenario starts.
	now = now.Add(time.Duration(cfg.LockoutMs) * time.Millisecond)

	// t=0: R2 keys up, expect switch R1 -> R2.
	e.ProcessRadioCommand(r2, protocol.RadioCommand{Kind: protocol.SetPtt, Ptt: true})
	ev, ok := findEvent(e.DrainEvents(), ActiveRadioChanged)
	require.True(t, ok)
	assert.True(t, ev.HasFrom)
	assert.Equal(t, r1, ev.From)
	assert.Equal(t, r2, ev.To)
	active, _ := e.ActiveRadio()
	assert.Equal(t, r2, active)

	// t=100ms: R1 keys up, blocked by lockout.
	now = now.Add(100 * time.Millisecond)
	e.ProcessRadioCommand(r1, protocol.RadioCommand{Kind: protocol.SetPtt, Ptt: true})
	blocked, ok := findEvent(e.DrainEvents(), SwitchingBlocked)
	require.True(t, ok)
	assert.Equal(t, r1, blocked.Requested)
	assert.Equal(t, r2, blocked.Current)
	assert.InDelta(t, 400, blocked.RemainingMs, 10)
	active, _ = e.ActiveRadio()
	assert.Equal(t, r2, active)

	// t=600ms: lockout has elapsed, R1's request now succeeds.
	now = now.Add(500 * time.Millisecond)
	e.ProcessRadioCommand(r1, protocol.RadioCommand{Kind: protocol.SetPtt, Ptt: true})
	ev, ok = findEvent(e.DrainEvents(), ActiveRadioChanged)
	require.True(t, ok)
	assert.Equal(t, r1, ev.To)
	active, _ = e.ActiveRadio()
	assert.Equal(t, r1, active)
}

// (e) Amplifier query emulation (spec §8).
func TestScenarioAmplifierQueryEmulation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Amplifier.Protocol = protocol.Kenwood
	e := New(cfg)

	r1 := e.RegisterRadio(RadioMeta{Name: "r1", Protocol: protocol.Kenwood})
	e.DrainEvents()
	e.SelectRadio(r1)
	e.DrainEvents()
	e.ProcessRadioCommand(r1, protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: 14250000})
	e.DrainEvents()

	dec := kenwood.NewDecoder(protocol.Kenwood)

	freqQuery := dec.Push([]byte("FA;"))
	require.Len(t, freqQuery, 1)
	out, ok := e.AmplifierQuery(freqQuery[0])
	require.True(t, ok)
	assert.Equal(t, []byte("FA00014250000;"), out)

	idQuery := dec.Push([]byte("ID;"))
	require.Len(t, idQuery, 1)
	out, ok = e.AmplifierQuery(idQuery[0])
	require.True(t, ok)
	assert.Equal(t, []byte("ID022;"), out)
}

func TestAmplifierQueryNoActiveRadioYieldsNoResponse(t *testing.T) {
	e := New(DefaultConfig())
	_, ok := e.AmplifierQuery(protocol.RadioCommand{Kind: protocol.GetFrequency})
	assert.False(t, ok)
}

// (f) Split inference (spec §8).
func TestScenarioSplitInference(t *testing.T) {
	e := New(DefaultConfig())
	r1 := e.RegisterRadio(RadioMeta{Name: "r1", Protocol: protocol.Kenwood})
	e.DrainEvents()
	e.SelectRadio(r1)
	e.DrainEvents()

	// Split must be evidenced before the VFO change: updateBands only
	// infers control/tx band once, on the command that first supplies a
	// VFO (spec §4.3 step 5); a later split toggle alone does not
	// retrigger the inference.
	e.ProcessRadioCommand(r1, protocol.RadioCommand{Kind: protocol.Unknown, Data: []byte("SP1;")})
	e.DrainEvents()
	e.ProcessRadioCommand(r1, protocol.RadioCommand{Kind: protocol.SetVfo, Vfo: protocol.VfoB})
	e.DrainEvents()

	state, ok := e.State(r1)
	require.True(t, ok)
	assert.True(t, state.HasControlBand)
	assert.Equal(t, 1, state.ControlBand)
	assert.True(t, state.HasTxBand)
	assert.Equal(t, 0, state.TxBand)
}

// Invariant 4: at most one active radio at any time.
func TestInvariantAtMostOneActiveRadio(t *testing.T) {
	e := New(DefaultConfig())
	r1 := e.RegisterRadio(RadioMeta{Name: "r1", Protocol: protocol.Kenwood})
	r2 := e.RegisterRadio(RadioMeta{Name: "r2", Protocol: protocol.Kenwood})
	e.SelectRadio(r1)
	active, ok := e.ActiveRadio()
	require.True(t, ok)
	assert.Equal(t, r1, active)

	e.SelectRadio(r2)
	active, ok = e.ActiveRadio()
	require.True(t, ok)
	assert.Equal(t, r2, active)
}

// Invariant 6: unregistering the active radio clears active_radio.
func TestInvariantUnregisterActiveRadioClearsActive(t *testing.T) {
	e := New(DefaultConfig())
	r1 := e.RegisterRadio(RadioMeta{Name: "r1", Protocol: protocol.Kenwood})
	e.SelectRadio(r1)
	e.DrainEvents()

	e.UnregisterRadio(r1)
	events := e.DrainEvents()

	ev, ok := findEvent(events, ActiveRadioChanged)
	require.True(t, ok)
	assert.True(t, ev.HasFrom)
	assert.False(t, ev.HasTo)

	_, hasActive := e.ActiveRadio()
	assert.False(t, hasActive)
}

func TestFirstRegisteredRadioIsNotAutoSelected(t *testing.T) {
	e := New(DefaultConfig())
	e.RegisterRadio(RadioMeta{Name: "r1", Protocol: protocol.Kenwood})
	_, hasActive := e.ActiveRadio()
	assert.False(t, hasActive)
}

// spec §9 Open Question: Manual mode still records PttReport on an
// inactive radio as state evidence; only amplifier emission is gated.
func TestManualModeStillRecordsTelemetryOnInactiveRadio(t *testing.T) {
	e := New(DefaultConfig())
	r1 := e.RegisterRadio(RadioMeta{Name: "r1", Protocol: protocol.Kenwood})
	r2 := e.RegisterRadio(RadioMeta{Name: "r2", Protocol: protocol.Kenwood})
	e.SelectRadio(r1)
	e.DrainEvents()

	e.ProcessRadioCommand(r2, protocol.RadioCommand{Kind: protocol.PttReport, Ptt: true})
	state, ok := e.State(r2)
	require.True(t, ok)
	assert.True(t, state.Ptt)
}
