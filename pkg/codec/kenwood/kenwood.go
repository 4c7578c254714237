// Package kenwood implements the Kenwood/Elecraft/FlexRadio ASCII CAT
// dialect (spec §4.1). Elecraft and FlexRadio are Kenwood-syntax
// supersets; FlexRadio additionally recognizes ZZ-prefixed, extended-width
// tokens. A single decoder/encoder pair serves all three, selected by the
// Dialect flag.
package kenwood

import (
	"strconv"

	"github.com/ftl/catmux/pkg/codec"
	"github.com/ftl/catmux/pkg/protocol"
)

func init() {
	codec.Register(codec.Codec{
		Protocol:   protocol.Kenwood,
		NewDecoder: func() codec.Decoder { return NewDecoder(protocol.Kenwood) },
		Encoder:    NewEncoder(protocol.Kenwood),
	})
	codec.Register(codec.Codec{
		Protocol:   protocol.Elecraft,
		NewDecoder: func() codec.Decoder { return NewDecoder(protocol.Elecraft) },
		Encoder:    NewEncoder(protocol.Elecraft),
	})
	codec.Register(codec.Codec{
		Protocol:   protocol.FlexRadio,
		NewDecoder: func() codec.Decoder { return NewDecoder(protocol.FlexRadio) },
		Encoder:    NewEncoder(protocol.FlexRadio),
	})
}

const terminator = ';'

// maxBufferedBytes bounds the rolling buffer so a malformed stream that
// never produces a terminator cannot grow it without limit (spec §5,
// "Resource discipline").
const maxBufferedBytes = 4096

// Decoder is a streaming Kenwood-family ASCII decoder: a rolling buffer
// split on ';'. It never allocates per byte; the buffer is reused across
// Push calls.
type Decoder struct {
	dialect protocol.Protocol
	buf     []byte
}

// NewDecoder returns a decoder for one Kenwood-family dialect. FlexRadio
// additionally recognizes ZZ-prefixed extended tokens.
func NewDecoder(dialect protocol.Protocol) *Decoder {
	return &Decoder{dialect: dialect}
}

func (d *Decoder) Push(data []byte) []protocol.RadioCommand {
	d.buf = append(d.buf, data...)
	var out []protocol.RadioCommand

	for {
		idx := indexByte(d.buf, terminator)
		if idx < 0 {
			break
		}
		frame := d.buf[:idx+1]
		d.buf = d.buf[idx+1:]
		if cmd, ok := d.parseFrame(frame); ok {
			out = append(out, cmd)
		}
	}

	if len(d.buf) > maxBufferedBytes {
		d.buf = d.buf[len(d.buf)-maxBufferedBytes:]
	}
	return out
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// parseFrame interprets one ';'-terminated frame (terminator included).
func (d *Decoder) parseFrame(frame []byte) (protocol.RadioCommand, bool) {
	body := frame[:len(frame)-1]
	if len(body) < 2 {
		return unknown(frame), true
	}

	extended := d.dialect == protocol.FlexRadio && len(body) >= 4 && body[0] == 'Z' && body[1] == 'Z'
	var token string
	var params string
	if extended {
		token = string(body[2:4])
		params = string(body[4:])
	} else {
		token = string(body[0:2])
		params = string(body[2:])
	}

	switch token {
	case "FA":
		return parseFreq(params, frame, protocol.VfoA)
	case "FB":
		return parseFreq(params, frame, protocol.VfoB)
	case "MD":
		return parseMode(params, frame)
	case "TX":
		if params == "1" || params == "2" || params == "" {
			return protocol.RadioCommand{Kind: protocol.SetPtt, Ptt: true}, true
		}
		if params == "0" {
			return protocol.RadioCommand{Kind: protocol.SetPtt, Ptt: false}, true
		}
		return unknown(frame), true
	case "RX":
		return protocol.RadioCommand{Kind: protocol.SetPtt, Ptt: false}, true
	case "AI":
		return protocol.RadioCommand{}, false
	case "ID":
		if params == "" {
			return protocol.RadioCommand{Kind: protocol.GetId}, true
		}
		return protocol.RadioCommand{Kind: protocol.IdReport, Id: params}, true
	case "IF":
		return parseStatus(params, frame)
	}
	return unknown(frame), true
}

func unknown(frame []byte) protocol.RadioCommand {
	data := make([]byte, len(frame))
	copy(data, frame)
	return protocol.RadioCommand{Kind: protocol.Unknown, Data: data}
}

func parseFreq(params string, frame []byte, vfo protocol.Vfo) (protocol.RadioCommand, bool) {
	if params == "" {
		if vfo == protocol.VfoA {
			return protocol.RadioCommand{Kind: protocol.GetFrequency}, true
		}
		return protocol.RadioCommand{Kind: protocol.GetFrequency, Vfo: vfo}, true
	}
	hz, err := strconv.ParseUint(params, 10, 64)
	if err != nil {
		return unknown(frame), true
	}
	return protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: hz, Vfo: vfo}, true
}

func parseMode(params string, frame []byte) (protocol.RadioCommand, bool) {
	if params == "" {
		return protocol.RadioCommand{Kind: protocol.GetMode}, true
	}
	code, err := strconv.Atoi(params)
	if err != nil {
		return unknown(frame), true
	}
	return protocol.RadioCommand{Kind: protocol.SetMode, Mode: protocol.KenwoodModes.Decode(code)}, true
}

// parseStatus parses the Kenwood "IF" comprehensive-status token: 11-digit
// frequency at offset 0, a single-digit mode, TX flag, VFO, per spec §4.1.
func parseStatus(params string, frame []byte) (protocol.RadioCommand, bool) {
	if len(params) < 25 {
		return unknown(frame), true
	}
	hz, err := strconv.ParseUint(params[0:11], 10, 64)
	if err != nil {
		return unknown(frame), true
	}
	status := protocol.StatusFields{Hz: hz, HasHz: true}

	if modeCode, err := strconv.Atoi(string(params[24:25])); err == nil {
		status.Mode = protocol.KenwoodModes.Decode(modeCode)
		status.HasMode = true
	}
	if len(params) > 28 {
		status.Ptt = params[28] == '1'
		status.HasPtt = true
	}
	if len(params) > 30 {
		if params[30] == '1' {
			status.Vfo = protocol.VfoB
		} else {
			status.Vfo = protocol.VfoA
		}
		status.HasVfo = true
	}
	return protocol.RadioCommand{Kind: protocol.StatusReport, Status: status}, true
}

// Encoder renders normalized commands into Kenwood-family ASCII frames.
type Encoder struct {
	dialect protocol.Protocol
}

func NewEncoder(dialect protocol.Protocol) *Encoder {
	return &Encoder{dialect: dialect}
}

func (e *Encoder) prefix(token string) string {
	if e.dialect == protocol.FlexRadio {
		return "ZZ" + token
	}
	return token
}

func (e *Encoder) Encode(cmd protocol.RadioCommand) []byte {
	switch cmd.Kind {
	case protocol.SetFrequency, protocol.FrequencyReport:
		token := "FA"
		if cmd.Vfo == protocol.VfoB {
			token = "FB"
		}
		width := 11
		return []byte(e.prefix(token) + padDigits(cmd.Hz, width) + ";")
	case protocol.GetFrequency:
		token := "FA"
		if cmd.Vfo == protocol.VfoB {
			token = "FB"
		}
		return []byte(e.prefix(token) + ";")
	case protocol.SetMode, protocol.ModeReport:
		code, ok := protocol.KenwoodModes.Encode(cmd.Mode)
		if !ok {
			return nil
		}
		return []byte(e.prefix("MD") + strconv.Itoa(code) + ";")
	case protocol.GetMode:
		return []byte(e.prefix("MD") + ";")
	case protocol.SetPtt, protocol.PttReport:
		if cmd.Ptt {
			return []byte("TX;")
		}
		return []byte("RX;")
	case protocol.IdReport:
		return []byte("ID" + cmd.Id + ";")
	case protocol.GetId:
		return []byte("ID;")
	case protocol.Unknown:
		out := make([]byte, len(cmd.Data))
		copy(out, cmd.Data)
		return out
	default:
		return nil
	}
}

func padDigits(hz uint64, width int) string {
	s := strconv.FormatUint(hz, 10)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
