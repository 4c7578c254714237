package engine

import (
	"github.com/ftl/catmux/pkg/protocol"
	"github.com/ftl/catmux/pkg/translate"
)

// AmplifierQuery answers one command decoded from the amplifier's byte
// stream against the engine's cached active-radio state (spec §4.5). It
// never reaches the election logic; the amplifier is a pure query peer.
//
// It returns the encoded response bytes and true, or false if no response
// is due (spec §7: "Amplifier query with no cached state: no response, no
// error").
func (e *Engine) AmplifierQuery(cmd protocol.RadioCommand) ([]byte, bool) {
	targetConfig := translate.TargetConfig{
		CivAddress:    e.config.Amplifier.CivAddress,
		CivController: e.config.Amplifier.CivController,
	}

	switch cmd.Kind {
	case protocol.GetId:
		resp := protocol.RadioCommand{Kind: protocol.IdReport, Id: e.config.Amplifier.ImpersonatedID}
		return e.encodeAmp(resp, targetConfig)

	case protocol.GetFrequency:
		state, ok := e.activeState()
		if !ok || !state.HasFrequency {
			return nil, false
		}
		resp := protocol.RadioCommand{Kind: protocol.SetFrequency, Hz: state.FrequencyHz, Vfo: cmd.Vfo}
		return e.encodeAmp(resp, targetConfig)

	case protocol.GetMode:
		state, ok := e.activeState()
		if !ok || !state.HasMode {
			return nil, false
		}
		resp := protocol.RadioCommand{Kind: protocol.SetMode, Mode: state.Mode}
		return e.encodeAmp(resp, targetConfig)

	case protocol.GetPtt:
		state, ok := e.activeState()
		if !ok {
			return nil, false
		}
		resp := protocol.RadioCommand{Kind: protocol.SetPtt, Ptt: state.Ptt}
		return e.encodeAmp(resp, targetConfig)

	case protocol.GetVfo:
		state, ok := e.activeState()
		if !ok || !state.HasVfo {
			return nil, false
		}
		resp := protocol.RadioCommand{Kind: protocol.SetVfo, Vfo: state.Vfo}
		return e.encodeAmp(resp, targetConfig)

	case protocol.GetStatus:
		state, ok := e.activeState()
		if !ok {
			return nil, false
		}
		resp := protocol.RadioCommand{
			Kind: protocol.StatusReport,
			Status: protocol.StatusFields{
				Hz: state.FrequencyHz, HasHz: state.HasFrequency,
				Mode: state.Mode, HasMode: state.HasMode,
				Ptt: state.Ptt, HasPtt: true,
				Vfo: state.Vfo, HasVfo: state.HasVfo,
			},
		}
		return e.encodeAmp(resp, targetConfig)

	case protocol.Unknown:
		return e.answerControlBandQuery(cmd)
	}
	return nil, false
}

func (e *Engine) activeState() (*RadioState, bool) {
	if !e.hasActive {
		return nil, false
	}
	state, ok := e.radios[e.activeRadio]
	return state, ok
}

func (e *Engine) encodeAmp(resp protocol.RadioCommand, targetConfig translate.TargetConfig) ([]byte, bool) {
	out := e.translator.Translate(resp, e.config.Amplifier.Protocol, targetConfig)
	if len(out) == 0 {
		return nil, false
	}
	e.emit(MuxEvent{Kind: AmpDataOut, Data: out, Protocol: e.config.Amplifier.Protocol})
	return out, true
}

// answerControlBandQuery handles the Kenwood-family "CB;"/"TB;" queries,
// which arrive from the amplifier decoder as Unknown (they carry no
// parameters and are not part of the normalized vocabulary).
func (e *Engine) answerControlBandQuery(cmd protocol.RadioCommand) ([]byte, bool) {
	if len(cmd.Data) != 3 {
		return nil, false
	}
	state, ok := e.activeState()
	if !ok {
		return nil, false
	}

	var band int
	var hasBand bool
	switch {
	case cmd.Data[0] == 'C' && cmd.Data[1] == 'B':
		band, hasBand = state.ControlBand, state.HasControlBand
	case cmd.Data[0] == 'T' && cmd.Data[1] == 'B':
		band, hasBand = state.TxBand, state.HasTxBand
	default:
		return nil, false
	}
	if !hasBand {
		return nil, false
	}

	resp := make([]byte, 0, 4)
	resp = append(resp, cmd.Data[0], cmd.Data[1], byte('0'+band), ';')
	e.emit(MuxEvent{Kind: AmpDataOut, Data: resp, Protocol: e.config.Amplifier.Protocol})
	return resp, true
}
