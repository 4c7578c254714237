// Package actor is the concurrency shell around pkg/engine: one I/O task
// per peer (spec §5) feeding a single inbound queue that a lone goroutine
// drains, so every mutation is processed to completion (state update,
// election, translation, event emission, amp send) before the next is
// accepted. The engine itself never runs on more than one goroutine.
package actor

import (
	"errors"
	"time"

	"github.com/ftl/catmux/pkg/engine"
	"github.com/ftl/catmux/pkg/protocol"
)

var errClosed = errors.New("actor: shell is closed")

// inboxCapacity bounds the shell's inbound queue; a full queue
// back-pressures peer I/O tasks rather than growing without limit (spec
// §5).
const inboxCapacity = 256

// eventsCapacity bounds the externally observed event stream. Once it is
// full, new RadioStateChanged events are dropped; lifecycle and traffic
// events are never dropped.
const eventsCapacity = 256

// heartbeatInterval is the 1 Hz cadence of spec §4.6.
const heartbeatInterval = 1 * time.Second

type msgKind int

const (
	msgRegisterRadio msgKind = iota
	msgUnregisterRadio
	msgSelectRadio
	msgSetSwitchingMode
	msgRadioCommand
	msgRadioDataIn
	msgAmpCommand
	msgAmpDataIn
	msgAmpConnected
	msgAmpDisconnected
	msgHeartbeatTick
)

type shellMsg struct {
	kind msgKind

	handle protocol.RadioHandle
	meta   engine.RadioMeta
	cmd    protocol.RadioCommand
	mode   engine.SwitchingMode
	data   []byte
	proto  protocol.Protocol

	reply chan protocol.RadioHandle
	ampReply chan ampResult
}

type ampResult struct {
	data []byte
	ok   bool
}

// Shell drives one Engine from a single goroutine and fans its MuxEvents
// out to registered peers' outbound channels plus an external Events
// channel for telemetry/UI consumers.
type Shell struct {
	eng *engine.Engine

	inbox chan shellMsg
	done  chan struct{}

	events chan engine.MuxEvent

	radioPeers map[protocol.RadioHandle]*radioPeer
	amp        *ampPeer
}

// New starts a Shell's actor goroutine around a fresh Engine built from
// cfg. Call Close to stop it.
func New(cfg engine.Config) *Shell {
	s := &Shell{
		eng:        engine.New(cfg),
		inbox:      make(chan shellMsg, inboxCapacity),
		done:       make(chan struct{}),
		events:     make(chan engine.MuxEvent, eventsCapacity),
		radioPeers: make(map[protocol.RadioHandle]*radioPeer),
	}
	go s.run()
	go s.heartbeatLoop()
	return s
}

// Events returns the channel external observers (UI/telemetry) read
// MuxEvents from (spec §6).
func (s *Shell) Events() <-chan engine.MuxEvent {
	return s.events
}

// Close stops the actor goroutine and every peer task. The actor goroutine
// exits when done is closed; the inbound queue itself is never closed.
func (s *Shell) Close() {
	select {
	case <-s.done:
		return
	default:
		close(s.done)
	}
	for _, p := range s.radioPeers {
		p.Close()
	}
	if s.amp != nil {
		s.amp.Close()
	}
}

func (s *Shell) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			select {
			case s.inbox <- shellMsg{kind: msgHeartbeatTick}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *Shell) run() {
	for {
		select {
		case <-s.done:
			return
		case m := <-s.inbox:
			s.handle(m)
		}
	}
}

func (s *Shell) handle(m shellMsg) {
	switch m.kind {
	case msgRegisterRadio:
		handle := s.eng.RegisterRadio(m.meta)
		m.reply <- handle
	case msgUnregisterRadio:
		s.eng.UnregisterRadio(m.handle)
		if p, ok := s.radioPeers[m.handle]; ok {
			delete(s.radioPeers, m.handle)
			p.Close()
		}
	case msgSelectRadio:
		s.eng.SelectRadio(m.handle)
	case msgSetSwitchingMode:
		s.eng.SetSwitchingMode(m.mode)
	case msgRadioCommand:
		s.eng.ProcessRadioCommand(m.handle, m.cmd)
	case msgRadioDataIn:
		s.publish(engine.MuxEvent{Kind: engine.RadioDataIn, Handle: m.handle, Data: m.data, Protocol: m.proto})
	case msgAmpDataIn:
		s.publish(engine.MuxEvent{Kind: engine.AmpDataIn, Data: m.data, Protocol: m.proto})
	case msgAmpCommand:
		data, ok := s.eng.AmplifierQuery(m.cmd)
		m.ampReply <- ampResult{data: data, ok: ok}
	case msgAmpConnected:
		s.publish(engine.MuxEvent{Kind: engine.AmpConnected, Meta: m.meta})
	case msgAmpDisconnected:
		s.publish(engine.MuxEvent{Kind: engine.AmpDisconnected})
	case msgHeartbeatTick:
		s.eng.TickHeartbeats()
	}
	s.drainEngineEvents()
}

// drainEngineEvents moves every event the engine emitted while processing
// the last message onto the shell's outbound channels, in order.
func (s *Shell) drainEngineEvents() {
	for _, ev := range s.eng.DrainEvents() {
		s.routeToPeer(ev)
		s.publish(ev)
	}
}

// routeToPeer forwards RadioDataOut/AmpDataOut events to the physical
// connection they belong to.
func (s *Shell) routeToPeer(ev engine.MuxEvent) {
	switch ev.Kind {
	case engine.RadioDataOut:
		if p, ok := s.radioPeers[ev.Handle]; ok {
			select {
			case p.outbound <- ev.Data:
			default:
			}
		}
	case engine.AmpDataOut:
		if s.amp != nil {
			select {
			case s.amp.outbound <- ev.Data:
			default:
			}
		}
	}
}

// publish delivers ev to the external Events channel. RadioStateChanged is
// the only kind that may be lost under backpressure: if the channel is
// full, the new RadioStateChanged is dropped. Queued events are never
// replaced, so the dropped event can be the newest state for its handle.
// Every other kind waits for room, blocking the actor goroutine until the
// consumer reads.
func (s *Shell) publish(ev engine.MuxEvent) {
	select {
	case s.events <- ev:
		return
	default:
	}
	if ev.Kind != engine.RadioStateChanged {
		s.events <- ev
		return
	}
	// Channel full and this is a RadioStateChanged: try once more without
	// blocking and drop the event if there is still no room.
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Shell) reportError(source, message string) {
	s.publish(engine.MuxEvent{Kind: engine.Error, Source: source, Message: message})
}

func (s *Shell) radioCommand(handle protocol.RadioHandle, cmd protocol.RadioCommand) {
	select {
	case s.inbox <- shellMsg{kind: msgRadioCommand, handle: handle, cmd: cmd}:
	case <-s.done:
	}
}

func (s *Shell) radioDataIn(handle protocol.RadioHandle, data []byte, proto protocol.Protocol) {
	select {
	case s.inbox <- shellMsg{kind: msgRadioDataIn, handle: handle, data: data, proto: proto}:
	case <-s.done:
	}
}

func (s *Shell) ampDataIn(data []byte, proto protocol.Protocol) {
	select {
	case s.inbox <- shellMsg{kind: msgAmpDataIn, data: data, proto: proto}:
	case <-s.done:
	}
}

func (s *Shell) ampCommand(cmd protocol.RadioCommand) {
	reply := make(chan ampResult, 1)
	select {
	case s.inbox <- shellMsg{kind: msgAmpCommand, cmd: cmd, ampReply: reply}:
	case <-s.done:
		return
	}
	select {
	case <-reply:
	case <-s.done:
	}
}

func (s *Shell) unregisterRadio(handle protocol.RadioHandle) {
	select {
	case s.inbox <- shellMsg{kind: msgUnregisterRadio, handle: handle}:
	case <-s.done:
	}
}

func (s *Shell) unregisterAmp() {
	select {
	case s.inbox <- shellMsg{kind: msgAmpDisconnected}:
	case <-s.done:
	}
}

// RegisterRadio registers a radio and starts its I/O task against conn.
func (s *Shell) RegisterRadio(meta engine.RadioMeta, conn Conn) (protocol.RadioHandle, error) {
	reply := make(chan protocol.RadioHandle, 1)
	select {
	case s.inbox <- shellMsg{kind: msgRegisterRadio, meta: meta, reply: reply}:
	case <-s.done:
		return 0, errClosed
	}
	handle := <-reply

	peer, err := newRadioPeer(handle, meta.Protocol, conn)
	if err != nil {
		s.UnregisterRadio(handle)
		return 0, err
	}
	s.radioPeers[handle] = peer
	go peer.readLoop(s)
	go peer.writeLoop()
	return handle, nil
}

// UnregisterRadio tears down a radio's I/O task and removes it from the
// engine.
func (s *Shell) UnregisterRadio(handle protocol.RadioHandle) {
	s.unregisterRadio(handle)
}

// SelectRadio performs a manual active-radio switch.
func (s *Shell) SelectRadio(handle protocol.RadioHandle) {
	select {
	case s.inbox <- shellMsg{kind: msgSelectRadio, handle: handle}:
	case <-s.done:
	}
}

// SetSwitchingMode changes the election policy.
func (s *Shell) SetSwitchingMode(mode engine.SwitchingMode) {
	select {
	case s.inbox <- shellMsg{kind: msgSetSwitchingMode, mode: mode}:
	case <-s.done:
	}
}

// RegisterAmplifier starts the amplifier peer's I/O task against conn.
func (s *Shell) RegisterAmplifier(proto protocol.Protocol, conn Conn) error {
	peer, err := newAmpPeer(proto, conn)
	if err != nil {
		return err
	}
	s.amp = peer
	select {
	case s.inbox <- shellMsg{kind: msgAmpConnected, meta: engine.RadioMeta{Name: "amplifier", Protocol: proto}}:
	case <-s.done:
		return errClosed
	}
	go peer.readLoop(s)
	go peer.writeLoop()
	return nil
}
