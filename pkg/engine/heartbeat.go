package engine

import (
	"github.com/ftl/catmux/pkg/codec/civ"
	"github.com/ftl/catmux/pkg/protocol"
)

// TickHeartbeats emits one heartbeat RadioDataOut per eligible registered
// radio (spec §4.6). The engine has no internal clock; the actor shell
// calls this once per second so the engine's processing stays driven
// entirely by inbound messages, per spec §5.
func (e *Engine) TickHeartbeats() {
	for handle, state := range e.radios {
		data, ok := heartbeatFrame(state.Meta.Protocol, state.Meta)
		if !ok {
			continue
		}
		e.emit(MuxEvent{Kind: RadioDataOut, Handle: handle, Data: data, Protocol: state.Meta.Protocol})
	}
}

// heartbeatFrame returns the periodic keepalive frame for protocols that
// have one. Kenwood-family dialects and Yaesu ASCII use "AI2;" to recover
// auto-info after a radio reboots; Icom CI-V uses the equivalent
// transceive-enable command. Yaesu legacy binary has no heartbeat.
func heartbeatFrame(p protocol.Protocol, meta RadioMeta) ([]byte, bool) {
	switch {
	case p.IsKenwoodFamily(), p == protocol.YaesuAscii:
		return []byte("AI2;"), true
	case p == protocol.IcomCIV:
		addr := meta.CivAddress
		if !meta.HasCiv {
			addr = civ.DefaultTarget
		}
		return []byte{0xFE, 0xFE, addr, civ.DefaultController, 0x1A, 0x05, 0x01, 0xFD}, true
	default:
		return nil, false
	}
}
