package ubx

import "log"

// Options are read once when a Factory is built.
type Options struct {
	// HNREnabled turns on HNR-PVT decoding.
	HNREnabled bool
	// SpeedEnabled makes PVT messages report ground speed.
	SpeedEnabled bool
	// Logf receives decode diagnostics. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

func (o Options) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

type decodeFunc func(payload []byte, opts Options) (Message, bool)

var decoders = map[Key]decodeFunc{
	KeyNavPVT:    decodeNavPVT,
	KeyNavOdo:    decodeNavOdo,
	KeyNavSvInfo: decodeNavSvInfo,
	KeyNavSlas:   decodeNavSlas,
	KeyEsfStatus: decodeEsfStatus,
	KeyHnrPVT:    decodeHnrPVT,
}

// Factory selects the decoder for a frame purely from its class and id.
type Factory struct {
	opts Options
}

func NewFactory(opts Options) *Factory {
	return &Factory{opts: opts}
}

// Decode returns the typed message and whether it was parsed. Unmapped
// (class, id) pairs, disabled decoders and short payloads yield a
// NotImplemented message with ok=false; they are never an error.
func (f *Factory) Decode(fr Frame) (msg Message, ok bool) {
	dec, found := decoders[fr.Key()]
	if !found {
		return notImplemented(fr.Key(), fr.Payload), false
	}
	return dec(fr.Payload, f.opts)
}

// Supported reports whether a decoder exists for key.
func Supported(key Key) bool {
	_, ok := decoders[key]
	return ok
}
