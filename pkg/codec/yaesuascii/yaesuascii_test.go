package yaesuascii

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftl/catmux/pkg/protocol"
)

func TestDecoderNineDigitFrequency(t *testing.T) {
	d := NewDecoder()
	cmds := d.Push([]byte("FA014250000;"))
	require.Len(t, cmds, 1)
	assert.Equal(t, protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: 14250000, Vfo: protocol.VfoA}, cmds[0])
}

func TestDecoderStreamingEquivalence(t *testing.T) {
	frame := []byte("FA014250000;MD03;")

	whole := NewDecoder().Push(frame)

	split := NewDecoder()
	var fragmented []protocol.RadioCommand
	for i := range frame {
		fragmented = append(fragmented, split.Push(frame[i:i+1])...)
	}

	assert.Equal(t, whole, fragmented)
}

func TestDecoderHexModeDigit(t *testing.T) {
	d := NewDecoder()
	cmds := d.Push([]byte("MD0E;"))
	require.Len(t, cmds, 1)
	assert.Equal(t, protocol.RadioCommand{Kind: protocol.SetMode, Mode: protocol.ModeC4FM}, cmds[0])
}

func TestDecoderIdQueryAndReport(t *testing.T) {
	d := NewDecoder()
	cmds := d.Push([]byte("ID;ID760;"))
	require.Len(t, cmds, 2)
	assert.Equal(t, protocol.RadioCommand{Kind: protocol.GetId}, cmds[0])
	assert.Equal(t, protocol.RadioCommand{Kind: protocol.IdReport, Id: "760"}, cmds[1])
}

func TestEncoderRoundTrip(t *testing.T) {
	enc := NewEncoder()
	dec := NewDecoder()

	cmd := protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: 7150000, Vfo: protocol.VfoA}
	encoded := enc.Encode(cmd)
	assert.Equal(t, []byte("FA007150000;"), encoded)

	decoded := dec.Push(encoded)
	require.Len(t, decoded, 1)
	assert.Equal(t, cmd, decoded[0])
}

func TestEncoderHexDigitLowercase(t *testing.T) {
	enc := NewEncoder()
	out := enc.Encode(protocol.RadioCommand{Kind: protocol.SetMode, Mode: protocol.ModeDataUsb})
	assert.Equal(t, []byte("MD0c;"), out)
}

func TestEncoderUnsupportedModeReturnsNil(t *testing.T) {
	enc := NewEncoder()
	out := enc.Encode(protocol.RadioCommand{Kind: protocol.SetMode, Mode: protocol.ModeFmNarrow})
	assert.Nil(t, out)
}
