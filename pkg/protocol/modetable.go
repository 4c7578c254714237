package protocol

// ModeTable maps OperatingMode to a protocol's numeric code. It is the
// authoritative data behind spec §4.7: adding a protocol means adding a
// decoder, an encoder, and an entry here — nothing else needs to change in
// the engine or translator.
type ModeTable struct {
	toCode map[OperatingMode]int
	toMode map[int]OperatingMode
}

// NewModeTable builds a ModeTable from a mode->code map. The inverse map is
// derived automatically; a protocol's missing entries simply never appear
// on either side, so inverse lookups of unmapped codes yield ModeUnknown.
func NewModeTable(codes map[OperatingMode]int) ModeTable {
	t := ModeTable{
		toCode: make(map[OperatingMode]int, len(codes)),
		toMode: make(map[int]OperatingMode, len(codes)),
	}
	for mode, code := range codes {
		t.toCode[mode] = code
		t.toMode[code] = mode
	}
	return t
}

// Encode returns the protocol's numeric code for mode and true, or false if
// the protocol cannot express mode.
func (t ModeTable) Encode(mode OperatingMode) (int, bool) {
	code, ok := t.toCode[mode]
	return code, ok
}

// Decode returns the OperatingMode for a protocol's numeric code. An
// unmapped code yields ModeUnknown, not an error, per spec §3.
func (t ModeTable) Decode(code int) OperatingMode {
	mode, ok := t.toMode[code]
	if !ok {
		return ModeUnknown
	}
	return mode
}

// Supports reports whether the protocol can express mode at all.
func (t ModeTable) Supports(mode OperatingMode) bool {
	_, ok := t.toCode[mode]
	return ok
}

// KenwoodModes is shared by Kenwood, Elecraft and FlexRadio (Kenwood-syntax
// supersets) per spec §4.7.
var KenwoodModes = NewModeTable(map[OperatingMode]int{
	ModeLSB:       1,
	ModeUSB:       2,
	ModeCW:        3,
	ModeFM:        4,
	ModeAM:        5,
	ModeRTTY:      6,
	ModeCwReverse: 7,
	ModeDataUsb:   9,
})

// CIVModes is Icom CI-V's mode byte table.
var CIVModes = NewModeTable(map[OperatingMode]int{
	ModeLSB:       0x00,
	ModeUSB:       0x01,
	ModeAM:        0x02,
	ModeCW:        0x03,
	ModeRTTY:      0x04,
	ModeFM:        0x05,
	ModeCwReverse: 0x07,
	ModeDataUsb:   0x08,
})

// YaesuBinaryModes is the mode byte used in Yaesu legacy binary frames.
var YaesuBinaryModes = NewModeTable(map[OperatingMode]int{
	ModeLSB:       0x00,
	ModeUSB:       0x01,
	ModeCW:        0x02,
	ModeCwReverse: 0x03,
	ModeAM:        0x04,
	ModeFM:        0x08,
})

// YaesuAsciiModes is Yaesu ASCII's single hex-digit mode table.
var YaesuAsciiModes = NewModeTable(map[OperatingMode]int{
	ModeLSB:     1,
	ModeUSB:     2,
	ModeCW:      3,
	ModeAM:      5,
	ModeFM:      4,
	ModeCwReverse: 7,
	ModeRTTY:    6,
	ModeDataLsb: 8,
	ModeDataUsb: 0xC,
	ModeC4FM:    0xE,
})

// ModeTableFor returns the authoritative ModeTable for a protocol.
func ModeTableFor(p Protocol) ModeTable {
	switch p {
	case Kenwood, Elecraft, FlexRadio:
		return KenwoodModes
	case IcomCIV:
		return CIVModes
	case YaesuBinary:
		return YaesuBinaryModes
	case YaesuAscii:
		return YaesuAsciiModes
	default:
		return ModeTable{}
	}
}
