package codec

import (
	"io"

	"wsframe/internal/domain"
	"wsframe/pkg/protocol"
	"wsframe/pkg/wsrand"
)

// Writer serializes Frames to a byte buffer or stream, and builds outbound
// frames (including masking-key generation) for callers that construct
// frames rather than parse them.
type Writer struct {
	opts options
	rng  wsrand.Source
}

// NewWriter builds a Writer. A nil rng uses wsrand.Default() (crypto/rand).
func NewWriter(rng wsrand.Source, opts ...Option) *Writer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if rng == nil {
		rng = wsrand.Default()
	}
	return &Writer{opts: o, rng: rng}
}

// Serialize lays out the frame to a single byte buffer in the exact
// MSB-first order from spec §4.6: header, extended length, masking key,
// payload.
func (w *Writer) Serialize(f *domain.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, f.FrameLength())
	buf = append(buf, w.headerBytes(f)...)
	buf = append(buf, f.ExtLen...)
	if f.Mask == domain.Masked {
		buf = append(buf, f.MaskingKey[:]...)
	}
	buf = append(buf, f.Payload...)
	return buf, nil
}

// WriteTo writes the frame to dst. For large payloads (Len7 == 127) the
// payload is written in the same chunked manner as the reader, for
// symmetry with stream-backed sinks (spec §4.6).
func (w *Writer) WriteTo(dst io.Writer, f *domain.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	head := w.headerBytes(f)
	head = append(head, f.ExtLen...)
	if f.Mask == domain.Masked {
		head = append(head, f.MaskingKey[:]...)
	}
	if _, err := dst.Write(head); err != nil {
		return err
	}

	if len(f.Payload) == 0 {
		return nil
	}
	if f.Len7 < protocol.PayloadLen64Bit {
		_, err := dst.Write(f.Payload)
		return err
	}

	chunkSize := w.opts.chunkSize
	for off := 0; off < len(f.Payload); off += chunkSize {
		end := off + chunkSize
		if end > len(f.Payload) {
			end = len(f.Payload)
		}
		if _, err := dst.Write(f.Payload[off:end]); err != nil {
			return err
		}
	}
	return nil
}

// WriteToSink writes the frame through the Sink interface (spec §6),
// letting an async-capable byte sink chunk the payload write itself.
func (w *Writer) WriteToSink(dst Sink, f *domain.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	head := w.headerBytes(f)
	head = append(head, f.ExtLen...)
	if f.Mask == domain.Masked {
		head = append(head, f.MaskingKey[:]...)
	}
	if err := dst.Write(head); err != nil {
		return err
	}
	if len(f.Payload) == 0 {
		return nil
	}
	if f.Len7 < protocol.PayloadLen64Bit {
		return dst.Write(f.Payload)
	}
	return dst.WriteChunked(f.Payload, w.opts.chunkSize)
}

func (w *Writer) headerBytes(f *domain.Frame) []byte {
	first := byte(f.Opcode)
	if f.Fin == domain.Final {
		first |= 0x80
	}
	if f.RSV1 == domain.On {
		first |= 0x40
	}
	if f.RSV2 == domain.On {
		first |= 0x20
	}
	if f.RSV3 == domain.On {
		first |= 0x10
	}

	second := f.Len7
	if f.Mask == domain.Masked {
		second |= 0x80
	}

	return []byte{first, second}
}

// Construct builds an outbound frame per spec §4.7: FIN=Final (callers
// wanting fragmentation use NewContinuationFrame directly), RSV1 set iff
// the opcode is a data frame and compress is requested, and — if mask is
// true — a fresh masking key drawn from the Writer's RNG, applied to the
// payload in place.
func (w *Writer) Construct(opcode domain.Opcode, payload []byte, compress, mask bool) (*domain.Frame, error) {
	f := domain.NewFrame(opcode, payload, compress)

	if mask {
		var key [4]byte
		if err := w.rng.Fill(key[:]); err != nil {
			return nil, err
		}
		f.MaskingKey = key
		f.Mask = domain.Masked
		for i := range f.Payload {
			f.Payload[i] ^= key[i%4]
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
