// Package civ implements Icom's CI-V binary CAT dialect: frames bounded by
// a FE FE preamble and an FD terminator, with packed little-endian BCD
// frequencies (spec §4.1).
package civ

import (
	"github.com/ftl/catmux/pkg/codec"
	"github.com/ftl/catmux/pkg/protocol"
)

func init() {
	codec.Register(codec.Codec{
		Protocol:   protocol.IcomCIV,
		NewDecoder: func() codec.Decoder { return NewDecoder() },
		Encoder:    NewEncoder(DefaultTarget, DefaultController),
	})
}

// DefaultTarget and DefaultController are the CI-V addresses used when a
// radio or the amplifier has not configured its own (spec §9, Open
// Questions: CI-V default target address is 94h).
const (
	DefaultTarget     = 0x94
	DefaultController = 0xE0
)

const preamble0, preamble1 = 0xFE, 0xFE
const terminator = 0xFD

// maxBufferedBytes bounds the scan buffer against a stream that never
// produces FD (spec §5, "Resource discipline").
const maxBufferedBytes = 4096

// Decoder locks onto FE FE and reads to FD; it never resynchronizes by
// counting bytes, only by re-scanning for the next preamble.
type Decoder struct {
	buf []byte
}

func NewDecoder() *Decoder { return &Decoder{} }

func (d *Decoder) Push(data []byte) []protocol.RadioCommand {
	d.buf = append(d.buf, data...)
	var out []protocol.RadioCommand

	for {
		start := findPreamble(d.buf)
		if start < 0 {
			// No preamble at all; keep at most one trailing byte in case
			// it's the first half of a split preamble.
			if len(d.buf) > 1 {
				d.buf = d.buf[len(d.buf)-1:]
			}
			break
		}
		if start > 0 {
			d.buf = d.buf[start:]
		}
		// A run of more than two FE bytes: the frame's preamble is the last
		// FE FE pair, since no address or command byte is FE.
		if len(d.buf) > 2 && d.buf[2] == preamble0 {
			d.buf = d.buf[1:]
			continue
		}
		end := indexByte(d.buf, terminator)
		if end < 0 {
			break
		}
		frame := d.buf[:end+1]
		if cmd, ok := parseFrame(frame); ok {
			out = append(out, cmd)
		}
		d.buf = d.buf[end+1:]
	}

	if len(d.buf) > maxBufferedBytes {
		d.buf = d.buf[len(d.buf)-maxBufferedBytes:]
	}
	return out
}

func findPreamble(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == preamble0 && b[i+1] == preamble1 {
			return i
		}
	}
	return -1
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// parseFrame interprets one FE FE ... FD frame, preamble and terminator
// included. Frames shorter than 6 bytes are rejected per spec §4.1.
func parseFrame(frame []byte) (protocol.RadioCommand, bool) {
	if len(frame) < 6 || frame[0] != preamble0 || frame[1] != preamble1 {
		return protocol.RadioCommand{}, false
	}
	// frame: FE FE to from cmd [sub] [data...] FD
	cmdByte := frame[4]
	rest := frame[5 : len(frame)-1]

	switch cmdByte {
	case 0x00:
		return decodeFreqReport(rest)
	case 0x03:
		return protocol.RadioCommand{Kind: protocol.GetFrequency}, true
	case 0x04:
		return protocol.RadioCommand{Kind: protocol.GetMode}, true
	case 0x05:
		return decodeSetFreq(rest)
	case 0x06:
		return decodeMode(rest)
	case 0x1A:
		if len(rest) >= 1 && rest[0] == 0x05 {
			return protocol.RadioCommand{}, false
		}
		return unknown(frame), true
	case 0x1C:
		if len(rest) >= 2 && rest[0] == 0x00 {
			return protocol.RadioCommand{Kind: protocol.SetPtt, Ptt: rest[1] != 0}, true
		}
		return unknown(frame), true
	}
	return unknown(frame), true
}

func unknown(frame []byte) protocol.RadioCommand {
	data := make([]byte, len(frame))
	copy(data, frame)
	return protocol.RadioCommand{Kind: protocol.Unknown, Data: data}
}

func decodeFreqReport(data []byte) (protocol.RadioCommand, bool) {
	if len(data) != 5 {
		return protocol.RadioCommand{}, false
	}
	hz, ok := codec.DecodeBCDLE(data)
	if !ok {
		return protocol.RadioCommand{}, false
	}
	return protocol.RadioCommand{Kind: protocol.FrequencyReport, Hz: hz}, true
}

func decodeSetFreq(data []byte) (protocol.RadioCommand, bool) {
	if len(data) != 5 {
		return protocol.RadioCommand{}, false
	}
	hz, ok := codec.DecodeBCDLE(data)
	if !ok {
		return protocol.RadioCommand{}, false
	}
	return protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: hz}, true
}

func decodeMode(data []byte) (protocol.RadioCommand, bool) {
	if len(data) < 1 {
		return protocol.RadioCommand{}, false
	}
	mode := protocol.CIVModes.Decode(int(data[0]))
	return protocol.RadioCommand{Kind: protocol.SetMode, Mode: mode}, true
}

// Encoder renders normalized commands into CI-V frames addressed from
// controller to target.
type Encoder struct {
	target     byte
	controller byte
}

func NewEncoder(target, controller byte) *Encoder {
	return &Encoder{target: target, controller: controller}
}

func (e *Encoder) frame(cmdByte byte, data ...byte) []byte {
	out := make([]byte, 0, 6+len(data))
	out = append(out, preamble0, preamble1, e.target, e.controller, cmdByte)
	out = append(out, data...)
	out = append(out, terminator)
	return out
}

func (e *Encoder) Encode(cmd protocol.RadioCommand) []byte {
	switch cmd.Kind {
	case protocol.SetFrequency, protocol.FrequencyReport:
		return e.frame(0x05, codec.EncodeBCDLE(cmd.Hz, 5)...)
	case protocol.GetFrequency:
		return e.frame(0x03)
	case protocol.SetMode, protocol.ModeReport:
		code, ok := protocol.CIVModes.Encode(cmd.Mode)
		if !ok {
			return nil
		}
		return e.frame(0x06, byte(code))
	case protocol.GetMode:
		return e.frame(0x04)
	case protocol.SetPtt, protocol.PttReport:
		var state byte
		if cmd.Ptt {
			state = 0x01
		}
		return e.frame(0x1C, 0x00, state)
	case protocol.GetPtt:
		return e.frame(0x1C, 0x00)
	case protocol.Unknown:
		out := make([]byte, len(cmd.Data))
		copy(out, cmd.Data)
		return out
	default:
		return nil
	}
}
