// Package yaesubin implements the Yaesu legacy binary CAT dialect: fixed
// 5-byte frames with no terminator and no auto-info (spec §4.1). The
// decoder never resynchronizes mid-frame; it accumulates exactly 5 bytes
// then interprets them, discarding exactly five bytes on any parse
// failure.
package yaesubin

import (
	"github.com/ftl/catmux/pkg/codec"
	"github.com/ftl/catmux/pkg/protocol"
)

func init() {
	codec.Register(codec.Codec{
		Protocol:   protocol.YaesuBinary,
		NewDecoder: func() codec.Decoder { return NewDecoder() },
		Encoder:    NewEncoder(),
	})
}

const frameLen = 5

type Decoder struct {
	buf []byte
}

func NewDecoder() *Decoder { return &Decoder{} }

func (d *Decoder) Push(data []byte) []protocol.RadioCommand {
	d.buf = append(d.buf, data...)
	var out []protocol.RadioCommand
	for len(d.buf) >= frameLen {
		frame := d.buf[:frameLen]
		d.buf = d.buf[frameLen:]
		if cmd, ok := parseFrame(frame); ok {
			out = append(out, cmd)
		}
	}
	return out
}

// parseFrame interprets one 5-byte [p1 p2 p3 p4 op] frame.
func parseFrame(frame []byte) (protocol.RadioCommand, bool) {
	p := frame[0:4]
	op := frame[4]

	switch op {
	case 0x01:
		hz, ok := codec.DecodeBCDBE(p)
		if !ok {
			return protocol.RadioCommand{}, false
		}
		return protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: hz}, true
	case 0x07:
		mode := protocol.YaesuBinaryModes.Decode(int(p[0]))
		return protocol.RadioCommand{Kind: protocol.SetMode, Mode: mode}, true
	case 0x08:
		if p[0] != 0 && p[0] != 1 {
			return protocol.RadioCommand{}, false
		}
		return protocol.RadioCommand{Kind: protocol.SetPtt, Ptt: p[0] == 1}, true
	case 0x03:
		// spec §9 Open Questions: the decoder cannot distinguish a read
		// request from its own response by opcode alone. Zero parameter
		// bytes is a request; non-zero is the radio's response frame.
		allZero := p[0] == 0 && p[1] == 0 && p[2] == 0 && p[3] == 0
		if allZero {
			return protocol.RadioCommand{Kind: protocol.GetFrequency}, true
		}
		hz, ok := codec.DecodeBCDBE(p)
		if !ok {
			return protocol.RadioCommand{}, false
		}
		return protocol.RadioCommand{Kind: protocol.FrequencyReport, Hz: hz}, true
	}
	return protocol.RadioCommand{}, false
}

// Encoder renders normalized commands into fixed 5-byte Yaesu binary
// frames. Unrepresentable commands (queries other than GetFrequency, and
// anything with no binary opcode) return nil.
type Encoder struct{}

func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) Encode(cmd protocol.RadioCommand) []byte {
	switch cmd.Kind {
	case protocol.SetFrequency, protocol.FrequencyReport:
		p := codec.EncodeBCDBE(cmd.Hz, 4)
		return append(p, 0x01)
	case protocol.GetFrequency:
		return []byte{0x00, 0x00, 0x00, 0x00, 0x03}
	case protocol.SetMode, protocol.ModeReport:
		code, ok := protocol.YaesuBinaryModes.Encode(cmd.Mode)
		if !ok {
			return nil
		}
		return []byte{byte(code), 0x00, 0x00, 0x00, 0x07}
	case protocol.SetPtt, protocol.PttReport:
		var state byte
		if cmd.Ptt {
			state = 0x01
		}
		return []byte{state, 0x00, 0x00, 0x00, 0x08}
	case protocol.Unknown:
		if len(cmd.Data) != frameLen {
			return nil
		}
		out := make([]byte, frameLen)
		copy(out, cmd.Data)
		return out
	default:
		return nil
	}
}
