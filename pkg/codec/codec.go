// Package codec defines the streaming decoder / encoder contract shared by
// every CAT dialect, and a small registry so the engine and translator can
// look up a protocol's codec by its protocol.Protocol tag instead of a
// hand-written switch at every call site.
package codec

import "github.com/ftl/catmux/pkg/protocol"

// Decoder turns a byte stream, delivered in arbitrary-sized fragments, into
// a sequence of normalized commands. Push may be called with any slice
// length, including zero, and must never block or fail fatally: malformed
// input is either discarded or surfaced as a protocol.Unknown command.
type Decoder interface {
	// Push feeds newly arrived bytes into the decoder's buffer and returns
	// every complete command recognized so far.
	Push(data []byte) []protocol.RadioCommand
}

// Encoder is the inverse of Decoder: it renders a normalized command back
// into wire bytes for one protocol. An unsupported command yields an empty
// slice, never an error (spec §4.1, "Encoder contract").
type Encoder interface {
	Encode(cmd protocol.RadioCommand) []byte
}

// Codec bundles the decoder/encoder pair for one protocol. Mode tables live
// in pkg/protocol (protocol.ModeTableFor).
type Codec struct {
	Protocol  protocol.Protocol
	NewDecoder func() Decoder
	Encoder    Encoder
}

var registry = map[protocol.Protocol]Codec{}

// Register adds a protocol's codec to the registry. Called from each
// sub-package's init so that importing pkg/codec/<dialect> is sufficient to
// make that dialect available by tag.
func Register(c Codec) {
	registry[c.Protocol] = c
}

// For looks up the codec registered for p. ok is false if no codec
// sub-package for p has been imported.
func For(p protocol.Protocol) (Codec, bool) {
	c, ok := registry[p]
	return c, ok
}
