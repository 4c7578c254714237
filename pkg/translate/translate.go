// Package translate re-encodes a normalized RadioCommand into another
// protocol's wire bytes (spec §4.4). It is a pure function: given the same
// inputs it always returns the same bytes, with no state of its own.
package translate

import (
	"github.com/ftl/catmux/pkg/codec"
	"github.com/ftl/catmux/pkg/codec/civ"
	"github.com/ftl/catmux/pkg/protocol"

	_ "github.com/ftl/catmux/pkg/codec/kenwood"
	_ "github.com/ftl/catmux/pkg/codec/yaesuascii"
	_ "github.com/ftl/catmux/pkg/codec/yaesubin"
)

// TargetConfig is the target_config of spec §4.4: the addressing detail a
// target protocol needs beyond its bare protocol tag. Only Icom CI-V uses
// it today; other dialects ignore it.
type TargetConfig struct {
	CivAddress    byte
	CivController byte
}

// Translator encodes RadioCommands for a fixed set of target protocols. It
// holds no mutable state; the same Translator value can serve every peer.
type Translator struct{}

func New() *Translator {
	return &Translator{}
}

// Translate renders cmd in target's wire format using targetConfig's
// addressing. Reports (FrequencyReport, ModeReport, PttReport) are
// re-encoded as the equivalent Set* form, since the amplifier is a
// controller's peer and never expects a report from a downstream
// controller (spec §4.4). An unsupported command or unknown target
// protocol yields an empty slice.
func (t *Translator) Translate(cmd protocol.RadioCommand, target protocol.Protocol, targetConfig TargetConfig) []byte {
	enc := encoderFor(target, targetConfig)
	if enc == nil {
		return nil
	}
	return enc.Encode(asSetForm(cmd))
}

func encoderFor(target protocol.Protocol, cfg TargetConfig) codec.Encoder {
	if target == protocol.IcomCIV {
		addr := cfg.CivAddress
		if addr == 0 {
			addr = civ.DefaultTarget
		}
		ctrl := cfg.CivController
		if ctrl == 0 {
			ctrl = civ.DefaultController
		}
		return civ.NewEncoder(addr, ctrl)
	}
	c, ok := codec.For(target)
	if !ok {
		return nil
	}
	return c.Encoder
}

// TranslateVerbatim short-circuits to the original bytes when source and
// target protocols are identical and cmd carries raw bytes (an Unknown
// command), per spec §4.4's "identical source and target" rule.
func TranslateVerbatim(cmd protocol.RadioCommand, source, target protocol.Protocol) ([]byte, bool) {
	if source != target || cmd.Kind != protocol.Unknown {
		return nil, false
	}
	out := make([]byte, len(cmd.Data))
	copy(out, cmd.Data)
	return out, true
}

func asSetForm(cmd protocol.RadioCommand) protocol.RadioCommand {
	switch cmd.Kind {
	case protocol.FrequencyReport:
		cmd.Kind = protocol.SetFrequency
	case protocol.ModeReport:
		cmd.Kind = protocol.SetMode
	case protocol.PttReport:
		cmd.Kind = protocol.SetPtt
	}
	return cmd
}
