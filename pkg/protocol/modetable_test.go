package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeTableEncodeDecode(t *testing.T) {
	table := KenwoodModes

	code, ok := table.Encode(ModeUSB)
	assert.True(t, ok)
	assert.Equal(t, 2, code)

	mode := table.Decode(3)
	assert.Equal(t, ModeCW, mode)
}

func TestModeTableUnsupportedMode(t *testing.T) {
	_, ok := YaesuBinaryModes.Encode(ModeRTTY)
	assert.False(t, ok)
}

func TestModeTableUnmappedCodeDecodesUnknown(t *testing.T) {
	assert.Equal(t, ModeUnknown, CIVModes.Decode(0x7F))
}

func TestModeTableSupports(t *testing.T) {
	assert.True(t, KenwoodModes.Supports(ModeDataUsb))
	assert.False(t, KenwoodModes.Supports(ModeC4FM))
}

func TestModeTableForDispatch(t *testing.T) {
	assert.Equal(t, KenwoodModes, ModeTableFor(Kenwood))
	assert.Equal(t, CIVModes, ModeTableFor(IcomCIV))
	assert.Equal(t, YaesuBinaryModes, ModeTableFor(YaesuBinary))
	assert.Equal(t, YaesuAsciiModes, ModeTableFor(YaesuAscii))
}
