package actor

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/ftl/catmux/pkg/codec"
	"github.com/ftl/catmux/pkg/protocol"
)

// Conn is the byte-stream interface a peer connects with (spec §6: "a
// byte-stream interface from each peer"). net.Conn satisfies it directly;
// tests use an in-memory pipe.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadDeadline(t time.Time) error
}

// readTimeout is the short per-read deadline of spec §5, chosen so
// cancellation stays responsive and heartbeat scheduling can advance.
const readTimeout = 100 * time.Millisecond

// readBufferSize is the chunk size read per Conn.Read call; it has no
// bearing on decoder framing, which tolerates arbitrary fragment
// boundaries (spec §4.1).
const readBufferSize = 4096

// radioPeer is the I/O task for one registered radio: a reader goroutine
// that pushes bytes through the radio's decoder and forwards each decoded
// RadioCommand to the shell, and a writer goroutine that drains bytes the
// engine wants sent back (heartbeats).
type radioPeer struct {
	handle    protocol.RadioHandle
	proto     protocol.Protocol
	conn      Conn
	decoder   codec.Decoder
	outbound  chan []byte
	closed    chan struct{}
	closeOnce func()

	lastSeen *lastSeenTracker
}

func newRadioPeer(handle protocol.RadioHandle, proto protocol.Protocol, conn Conn) (*radioPeer, error) {
	c, ok := codec.For(proto)
	if !ok {
		return nil, errors.New("actor: no codec registered for protocol " + proto.String())
	}
	return &radioPeer{
		handle:   handle,
		proto:    proto,
		conn:     conn,
		decoder:  c.NewDecoder(),
		outbound: make(chan []byte, 64),
		closed:   make(chan struct{}),
		lastSeen: newLastSeenTracker(),
	}, nil
}

func (p *radioPeer) Close() {
	select {
	case <-p.closed:
	default:
		close(p.closed)
		p.conn.Close()
	}
}

// readLoop pushes bytes into the decoder and reports decoded commands
// (and raw bytes, for RadioDataIn) to the shell until the connection
// fails or the peer is closed.
func (p *radioPeer) readLoop(s *Shell) {
	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-p.closed:
			return
		default:
		}

		p.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := p.conn.Read(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if err != io.EOF {
				s.reportError("radio", err.Error())
			}
			s.unregisterRadio(p.handle)
			p.Close()
			return
		}
		if n == 0 {
			continue
		}
		p.lastSeen.touch()

		chunk := make([]byte, n)
		copy(chunk, buf[:n])
		s.radioDataIn(p.handle, chunk, p.proto)

		for _, cmd := range p.decoder.Push(chunk) {
			s.radioCommand(p.handle, cmd)
		}
	}
}

// writeLoop drains bytes the engine wants written to this radio
// (heartbeats) until the peer is closed.
func (p *radioPeer) writeLoop() {
	for {
		select {
		case <-p.closed:
			return
		case data := <-p.outbound:
			if _, err := p.conn.Write(data); err != nil {
				p.Close()
				return
			}
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// lastSeenTracker records when a peer last delivered inbound bytes. It is
// never fed back into the engine. Nothing in the shell queries it, so
// unresponsiveness is not reported on the event stream or to telemetry.
type lastSeenTracker struct {
	at time.Time
}

func newLastSeenTracker() *lastSeenTracker {
	return &lastSeenTracker{at: time.Now()}
}

func (t *lastSeenTracker) touch() {
	t.at = time.Now()
}

// UnresponsiveThreshold is the duration without inbound traffic after
// which lastSeenTracker.unresponsive reports a peer as unresponsive.
const UnresponsiveThreshold = 2 * time.Second

func (t *lastSeenTracker) unresponsive() bool {
	return time.Since(t.at) > UnresponsiveThreshold
}

// ampPeer is the I/O task for the amplifier peer. Its decoded commands are
// dispatched to the engine's query emulator, never to ProcessRadioCommand
// (spec §4.5).
type ampPeer struct {
	proto    protocol.Protocol
	conn     Conn
	decoder  codec.Decoder
	outbound chan []byte
	closed   chan struct{}
	lastSeen *lastSeenTracker
}

func newAmpPeer(proto protocol.Protocol, conn Conn) (*ampPeer, error) {
	c, ok := codec.For(proto)
	if !ok {
		return nil, errors.New("actor: no codec registered for protocol " + proto.String())
	}
	return &ampPeer{
		proto:    proto,
		conn:     conn,
		decoder:  c.NewDecoder(),
		outbound: make(chan []byte, 64),
		closed:   make(chan struct{}),
		lastSeen: newLastSeenTracker(),
	}, nil
}

func (p *ampPeer) Close() {
	select {
	case <-p.closed:
	default:
		close(p.closed)
		p.conn.Close()
	}
}

func (p *ampPeer) readLoop(s *Shell) {
	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-p.closed:
			return
		default:
		}

		p.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := p.conn.Read(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if err != io.EOF {
				s.reportError("amp", err.Error())
			}
			s.unregisterAmp()
			p.Close()
			return
		}
		if n == 0 {
			continue
		}
		p.lastSeen.touch()

		chunk := make([]byte, n)
		copy(chunk, buf[:n])
		s.ampDataIn(chunk, p.proto)

		for _, cmd := range p.decoder.Push(chunk) {
			s.ampCommand(cmd)
		}
	}
}

func (p *ampPeer) writeLoop() {
	for {
		select {
		case <-p.closed:
			return
		case data := <-p.outbound:
			if _, err := p.conn.Write(data); err != nil {
				p.Close()
				return
			}
		}
	}
}
