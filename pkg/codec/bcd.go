package codec

// DecodeBCDLE decodes Icom CI-V's little-endian packed-BCD frequency
// encoding: byte 0 holds the least-significant pair of decimal digits,
// each nibble one digit 0-9. ok is false if any nibble exceeds 9 (spec
// §4.1: "out-of-range digits discard frame").
func DecodeBCDLE(b []byte) (value uint64, ok bool) {
	var scale uint64 = 1
	for _, v := range b {
		lo := v & 0x0f
		hi := v >> 4
		if lo > 9 || hi > 9 {
			return 0, false
		}
		value += uint64(lo) * scale
		scale *= 10
		value += uint64(hi) * scale
		scale *= 10
	}
	return value, true
}

// EncodeBCDLE is the exact inverse of DecodeBCDLE, producing n bytes.
func EncodeBCDLE(value uint64, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		lo := byte(value % 10)
		value /= 10
		hi := byte(value % 10)
		value /= 10
		out[i] = lo | (hi << 4)
	}
	return out
}

// DecodeBCDBE decodes a big-endian packed-BCD value (Yaesu legacy binary):
// byte 0 holds the most-significant pair of digits.
func DecodeBCDBE(b []byte) (value uint64, ok bool) {
	for _, v := range b {
		lo := v & 0x0f
		hi := v >> 4
		if lo > 9 || hi > 9 {
			return 0, false
		}
		value = value*100 + uint64(hi)*10 + uint64(lo)
	}
	return value, true
}

// EncodeBCDBE is the exact inverse of DecodeBCDBE, producing n bytes.
func EncodeBCDBE(value uint64, n int) []byte {
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		lo := byte(value % 10)
		value /= 10
		hi := byte(value % 10)
		value /= 10
		out[i] = lo | (hi << 4)
	}
	return out
}
