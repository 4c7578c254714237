// Package telemetry exposes the engine's MuxEvent stream to external
// observers (spec §6: "consumed by the external observer (UI/telemetry)")
// over a websocket, one JSON frame per event, in emission order.
package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/ftl/catmux/pkg/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Broadcaster fans one engine.MuxEvent stream out to any number of
// connected websocket clients. Events are serialized in order; a slow
// client is dropped rather than allowed to stall the others.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan wireEvent
}

// wireEvent is the JSON shape published on the wire; it flattens
// engine.MuxEvent's internal Has*/value pairs into present-or-omitted
// fields.
type wireEvent struct {
	Kind string `json:"kind"`

	Handle *uint64 `json:"handle,omitempty"`

	FreqHz *uint64 `json:"freq_hz,omitempty"`
	Mode   *string `json:"mode,omitempty"`
	Ptt    *bool   `json:"ptt,omitempty"`

	From *uint64 `json:"from,omitempty"`
	To   *uint64 `json:"to,omitempty"`

	SwitchingMode *string `json:"switching_mode,omitempty"`

	Requested   *uint64 `json:"requested,omitempty"`
	Current     *uint64 `json:"current,omitempty"`
	RemainingMs *int64  `json:"remaining_ms,omitempty"`

	Source  *string `json:"source,omitempty"`
	Message *string `json:"message,omitempty"`

	Protocol *string `json:"protocol,omitempty"`
	DataLen  *int    `json:"data_len,omitempty"`

	At time.Time `json:"at"`
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[*client]struct{})}
}

// ServeHTTP upgrades an HTTP request to a websocket and registers the
// connection as a telemetry subscriber.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("telemetry: upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan wireEvent, 64)}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	go b.writeLoop(c)
	go b.readLoop(c)
}

func (b *Broadcaster) readLoop(c *client) {
	defer b.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) writeLoop(c *client) {
	defer c.conn.Close()
	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

func (b *Broadcaster) remove(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

// Run reads events from src until it closes, publishing each to every
// connected client.
func (b *Broadcaster) Run(src <-chan engine.MuxEvent) {
	for ev := range src {
		wire := toWire(ev)
		b.mu.Lock()
		for c := range b.clients {
			select {
			case c.send <- wire:
			default:
				// Slow client: drop it rather than stall the broadcast.
				delete(b.clients, c)
				close(c.send)
			}
		}
		b.mu.Unlock()
	}
}

func toWire(ev engine.MuxEvent) wireEvent {
	w := wireEvent{Kind: kindName(ev.Kind), At: time.Now()}

	switch ev.Kind {
	case engine.RadioConnected, engine.RadioDisconnected, engine.RadioStateChanged:
		h := uint64(ev.Handle)
		w.Handle = &h
	}
	if ev.HasFreq {
		w.FreqHz = &ev.Freq
	}
	if ev.HasMode {
		m := ev.Mode.String()
		w.Mode = &m
	}
	if ev.HasPtt {
		w.Ptt = &ev.Ptt
	}
	if ev.HasFrom {
		f := uint64(ev.From)
		w.From = &f
	}
	if ev.HasTo {
		t := uint64(ev.To)
		w.To = &t
	}
	if ev.Kind == engine.SwitchingModeChanged {
		m := ev.NewSwitchingMode.String()
		w.SwitchingMode = &m
	}
	if ev.Kind == engine.SwitchingBlocked {
		req := uint64(ev.Requested)
		cur := uint64(ev.Current)
		rem := ev.RemainingMs
		w.Requested, w.Current, w.RemainingMs = &req, &cur, &rem
	}
	if ev.Kind == engine.Error {
		w.Source, w.Message = &ev.Source, &ev.Message
	}
	if ev.Data != nil {
		n := len(ev.Data)
		w.DataLen = &n
		p := ev.Protocol.String()
		w.Protocol = &p
	}
	return w
}

func kindName(k engine.EventKind) string {
	switch k {
	case engine.RadioConnected:
		return "radio_connected"
	case engine.RadioDisconnected:
		return "radio_disconnected"
	case engine.RadioStateChanged:
		return "radio_state_changed"
	case engine.ActiveRadioChanged:
		return "active_radio_changed"
	case engine.RadioDataIn:
		return "radio_data_in"
	case engine.RadioDataOut:
		return "radio_data_out"
	case engine.AmpDataIn:
		return "amp_data_in"
	case engine.AmpDataOut:
		return "amp_data_out"
	case engine.AmpConnected:
		return "amp_connected"
	case engine.AmpDisconnected:
		return "amp_disconnected"
	case engine.SwitchingModeChanged:
		return "switching_mode_changed"
	case engine.SwitchingBlocked:
		return "switching_blocked"
	case engine.Error:
		return "error"
	default:
		return "unknown"
	}
}
