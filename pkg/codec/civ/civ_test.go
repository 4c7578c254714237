package civ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftl/catmux/pkg/protocol"
)

func TestDecoderSetFrequency(t *testing.T) {
	d := NewDecoder()
	frame := []byte{0xFE, 0xFE, 0x94, 0xE0, 0x05, 0x00, 0x00, 0x25, 0x14, 0x00, 0xFD}
	cmds := d.Push(frame)
	require.Len(t, cmds, 1)
	assert.Equal(t, protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: 14250000}, cmds[0])
}

func TestDecoderStreamingEquivalence(t *testing.T) {
	frame := []byte{0xFE, 0xFE, 0x94, 0xE0, 0x05, 0x00, 0x00, 0x25, 0x14, 0x00, 0xFD}

	whole := NewDecoder().Push(frame)

	split := NewDecoder()
	var fragmented []protocol.RadioCommand
	for i := range frame {
		fragmented = append(fragmented, split.Push(frame[i:i+1])...)
	}

	assert.Equal(t, whole, fragmented)
}

func TestDecoderResyncsAfterGarbagePrefix(t *testing.T) {
	d := NewDecoder()
	garbage := []byte{0x01, 0x02, 0xFE}
	frame := []byte{0xFE, 0xFE, 0x94, 0xE0, 0x03, 0xFD}
	cmds := d.Push(append(garbage, frame...))
	require.Len(t, cmds, 1)
	assert.Equal(t, protocol.GetFrequency, cmds[0].Kind)
}

func TestDecoderTransceiveEnableAbsorbed(t *testing.T) {
	d := NewDecoder()
	frame := []byte{0xFE, 0xFE, 0x94, 0xE0, 0x1A, 0x05, 0x01, 0xFD}
	cmds := d.Push(frame)
	assert.Empty(t, cmds)
}

func TestDecoderSetPtt(t *testing.T) {
	d := NewDecoder()
	frame := []byte{0xFE, 0xFE, 0x94, 0xE0, 0x1C, 0x00, 0x01, 0xFD}
	cmds := d.Push(frame)
	require.Len(t, cmds, 1)
	assert.Equal(t, protocol.RadioCommand{Kind: protocol.SetPtt, Ptt: true}, cmds[0])
}

func TestDecoderRejectsShortFrame(t *testing.T) {
	d := NewDecoder()
	frame := []byte{0xFE, 0xFE, 0xFD}
	cmds := d.Push(frame)
	assert.Empty(t, cmds)
}

func TestEncoderSetFrequencyMatchesSpecExample(t *testing.T) {
	enc := NewEncoder(DefaultTarget, DefaultController)
	out := enc.Encode(protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: 14250000})
	assert.Equal(t, []byte{0xFE, 0xFE, 0x94, 0xE0, 0x05, 0x00, 0x00, 0x25, 0x14, 0x00, 0xFD}, out)
}

func TestEncoderRoundTrip(t *testing.T) {
	enc := NewEncoder(DefaultTarget, DefaultController)
	dec := NewDecoder()

	cmd := protocol.RadioCommand{Kind: protocol.SetMode, Mode: protocol.ModeUSB}
	encoded := enc.Encode(cmd)
	decoded := dec.Push(encoded)
	require.Len(t, decoded, 1)
	assert.Equal(t, cmd, decoded[0])
}

func TestEncoderUnsupportedModeReturnsEmpty(t *testing.T) {
	enc := NewEncoder(DefaultTarget, DefaultController)
	out := enc.Encode(protocol.RadioCommand{Kind: protocol.SetMode, Mode: protocol.ModeDataLsb})
	assert.Empty(t, out)
}

func TestEncoderCustomAddress(t *testing.T) {
	enc := NewEncoder(0x70, 0xE1)
	out := enc.Encode(protocol.RadioCommand{Kind: protocol.GetFrequency})
	assert.Equal(t, []byte{0xFE, 0xFE, 0x70, 0xE1, 0x03, 0xFD}, out)
}
