// Package yaesuascii implements the Yaesu ASCII CAT dialect: the same
// ';'-terminated framing as Kenwood, but 9-digit (1 Hz) frequencies and a
// receiver-tagged, hex-digit mode token (spec §4.1).
package yaesuascii

import (
	"strconv"

	"github.com/ftl/catmux/pkg/codec"
	"github.com/ftl/catmux/pkg/protocol"
)

func init() {
	codec.Register(codec.Codec{
		Protocol:   protocol.YaesuAscii,
		NewDecoder: func() codec.Decoder { return NewDecoder() },
		Encoder:    NewEncoder(),
	})
}

const terminator = ';'
const maxBufferedBytes = 4096

type Decoder struct {
	buf []byte
}

func NewDecoder() *Decoder { return &Decoder{} }

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
		out = append(out, d.parseFrame(frame))
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

func (d *Decoder) parseFrame(frame []byte) protocol.RadioCommand {
	body := frame[:len(frame)-1]
	if len(body) < 2 {
		return unknown(frame)
	}
	token := string(body[0:2])
	params := string(body[2:])

	switch token {
	case "FA":
		return parseFreq(params, frame, protocol.VfoA)
	case "FB":
		return parseFreq(params, frame, protocol.VfoB)
	case "MD":
		return parseMode(params, frame)
	case "TX":
		return protocol.RadioCommand{Kind: protocol.SetPtt, Ptt: true}
	case "RX":
		return protocol.RadioCommand{Kind: protocol.SetPtt, Ptt: false}
	case "ID":
		if params == "" {
			return protocol.RadioCommand{Kind: protocol.GetId}
		}
		return protocol.RadioCommand{Kind: protocol.IdReport, Id: params}
	}
	return unknown(frame)
}

func unknown(frame []byte) protocol.RadioCommand {
	data := make([]byte, len(frame))
	copy(data, frame)
	return protocol.RadioCommand{Kind: protocol.Unknown, Data: data}
}

func parseFreq(params string, frame []byte, vfo protocol.Vfo) protocol.RadioCommand {
	if params == "" {
		return protocol.RadioCommand{Kind: protocol.GetFrequency, Vfo: vfo}
	}
	hz, err := strconv.ParseUint(params, 10, 64)
	if err != nil {
		return unknown(frame)
	}
	return protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: hz, Vfo: vfo}
}

// parseMode handles "MD<receiver><mode>": receiver in {0,1}, mode a hex
// digit per spec §4.7.
func parseMode(params string, frame []byte) protocol.RadioCommand {
	if params == "" {
		return protocol.RadioCommand{Kind: protocol.GetMode}
	}
	if len(params) < 2 {
		return unknown(frame)
	}
	code, err := strconv.ParseInt(params[1:2], 16, 32)
	if err != nil {
		return unknown(frame)
	}
	return protocol.RadioCommand{Kind: protocol.SetMode, Mode: protocol.YaesuAsciiModes.Decode(int(code))}
}

type Encoder struct{}

func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) Encode(cmd protocol.RadioCommand) []byte {
	switch cmd.Kind {
	case protocol.SetFrequency, protocol.FrequencyReport:
		token := "FA"
		if cmd.Vfo == protocol.VfoB {
			token = "FB"
		}
		return []byte(token + padDigits(cmd.Hz, 9) + ";")
	case protocol.GetFrequency:
		token := "FA"
		if cmd.Vfo == protocol.VfoB {
			token = "FB"
		}
		return []byte(token + ";")
	case protocol.SetMode, protocol.ModeReport:
		code, ok := protocol.YaesuAsciiModes.Encode(cmd.Mode)
		if !ok {
			return nil
		}
		return []byte("MD0" + strconv.FormatInt(int64(code), 16) + ";")
	case protocol.GetMode:
		return []byte("MD0;")
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
