package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeBCDLE(t *testing.T) {
	value, ok := DecodeBCDLE([]byte{0x00, 0x00, 0x25, 0x14, 0x00})
	assert.True(t, ok)
	assert.Equal(t, uint64(14250000), value)
}

func TestEncodeBCDLE(t *testing.T) {
	assert.Equal(t, []byte{0x00, 0x00, 0x25, 0x14, 0x00}, EncodeBCDLE(14250000, 5))
}

func TestBCDLERoundTrip(t *testing.T) {
	for _, hz := range []uint64{0, 1, 999, 7150000, 14250000, 9999999999} {
		encoded := EncodeBCDLE(hz, 5)
		decoded, ok := DecodeBCDLE(encoded)
		assert.True(t, ok)
		assert.Equal(t, hz, decoded)
	}
}

func TestDecodeBCDLEInvalidNibble(t *testing.T) {
	_, ok := DecodeBCDLE([]byte{0xFA})
	assert.False(t, ok)
}

func TestDecodeBCDBE(t *testing.T) {
	value, ok := DecodeBCDBE([]byte{0x14, 0x25, 0x00, 0x00})
	assert.True(t, ok)
	assert.Equal(t, uint64(14250000), value)
}

func TestEncodeBCDBE(t *testing.T) {
	assert.Equal(t, []byte{0x14, 0x25, 0x00, 0x00}, EncodeBCDBE(14250000, 4))
}

func TestBCDBERoundTrip(t *testing.T) {
	for _, hz := range []uint64{0, 10, 7150000, 14250000} {
		encoded := EncodeBCDBE(hz, 4)
		decoded, ok := DecodeBCDBE(encoded)
		assert.True(t, ok)
		assert.Equal(t, hz, decoded)
	}
}

func TestDecodeBCDBEInvalidNibble(t *testing.T) {
	_, ok := DecodeBCDBE([]byte{0xAB})
	assert.False(t, ok)
}
