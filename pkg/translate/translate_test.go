package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftl/catmux/pkg/codec"
	"github.com/ftl/catmux/pkg/codec/civ"
	"github.com/ftl/catmux/pkg/protocol"
)

func TestTranslateCIVToKenwoodMatchesSpecScenarioA(t *testing.T) {
	tr := New()
	out := tr.Translate(protocol.RadioCommand{Kind: protocol.FrequencyReport, Hz: 14250000}, protocol.Kenwood, TargetConfig{})
	assert.Equal(t, []byte("FA00014250000;"), out)
}

func TestTranslateYaesuBinaryToCIVMatchesSpecScenarioB(t *testing.T) {
	tr := New()
	out := tr.Translate(protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: 14250000}, protocol.IcomCIV, TargetConfig{})
	assert.Equal(t, []byte{0xFE, 0xFE, 0x94, 0xE0, 0x05, 0x00, 0x00, 0x25, 0x14, 0x00, 0xFD}, out)
}

func TestTranslateHonorsConfiguredCivAddress(t *testing.T) {
	tr := New()
	out := tr.Translate(protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: 1000000}, protocol.IcomCIV,
		TargetConfig{CivAddress: 0x70, CivController: 0xE1})
	assert.Equal(t, byte(0x70), out[2])
	assert.Equal(t, byte(0xE1), out[3])
}

func TestTranslateDefaultsCivAddressWhenUnconfigured(t *testing.T) {
	tr := New()
	out := tr.Translate(protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: 1000000}, protocol.IcomCIV, TargetConfig{})
	assert.Equal(t, byte(civ.DefaultTarget), out[2])
	assert.Equal(t, byte(civ.DefaultController), out[3])
}

func TestTranslateUnsupportedModeReturnsEmpty(t *testing.T) {
	tr := New()
	out := tr.Translate(protocol.RadioCommand{Kind: protocol.SetMode, Mode: protocol.ModeC4FM}, protocol.Kenwood, TargetConfig{})
	assert.Empty(t, out)
}

func TestTranslateFrequencyExactForAllSupportingPairs(t *testing.T) {
	tr := New()
	freqs := []uint64{0, 1, 999, 7150000, 14250000, 9999999999}
	targets := []protocol.Protocol{protocol.Kenwood, protocol.IcomCIV, protocol.YaesuAscii}

	for _, hz := range freqs {
		for _, target := range targets {
			out := tr.Translate(protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: hz}, target, TargetConfig{})
			assert.NotEmpty(t, out, "target %v should encode %d", target, hz)

			c, ok := codec.For(target)
			require.True(t, ok)
			decoded := c.NewDecoder().Push(out)
			require.Len(t, decoded, 1, "target %v should decode %d", target, hz)
			assert.Equal(t, hz, decoded[0].Hz, "target %v should preserve %d", target, hz)
		}
	}
}

func TestTranslateVerbatimSameProtocol(t *testing.T) {
	data := []byte("CB0;")
	out, ok := TranslateVerbatim(protocol.RadioCommand{Kind: protocol.Unknown, Data: data}, protocol.Kenwood, protocol.Kenwood)
	assert.True(t, ok)
	assert.Equal(t, data, out)
}

func TestTranslateVerbatimDifferentProtocolFalls(t *testing.T) {
	data := []byte("CB0;")
	_, ok := TranslateVerbatim(protocol.RadioCommand{Kind: protocol.Unknown, Data: data}, protocol.Kenwood, protocol.IcomCIV)
	assert.False(t, ok)
}
