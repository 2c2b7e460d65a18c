// Package codec implements the WebSocket frame codec: header decoding,
// extended-length and masking-key decoding, chunked payload acquisition,
// and the symmetric serializer, over a borrowed byte source/sink.
package codec

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"wsframe/internal/domain"
	"wsframe/internal/wslog"
	"wsframe/pkg/protocol"
)

// Option configures a Reader or Writer.
type Option func(*options)

type options struct {
	maxPayloadSize uint64
	chunkSize      int
	logger         zerolog.Logger
}

func defaultOptions() options {
	return options{
		maxPayloadSize: protocol.MaxPayloadSize,
		chunkSize:      protocol.PayloadChunkSize,
		logger:         wslog.Nop(),
	}
}

// WithMaxPayloadSize overrides the soft payload-size ceiling (spec §9's
// PAYLOAD_MAX). A value of 0 leaves the default in place.
func WithMaxPayloadSize(n uint64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPayloadSize = n
		}
	}
}

// WithChunkSize overrides the chunk size used for large (64-bit-length)
// payload reads/writes.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithLogger attaches a structured logger; codec failures are logged as a
// single event each, never including payload bytes.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Reader parses Frames from a borrowed byte source, synchronously or via
// the completion-callback pipeline (spec §5).
type Reader struct {
	opts options
}

// NewReader builds a Reader with the given options applied over the
// defaults (32MiB max payload, 1024-byte chunking, no-op logger).
func NewReader(opts ...Option) *Reader {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Reader{opts: o}
}

// ReadFrame performs the staged, blocking read: header, extended length,
// masking key, payload. ctx is only observed between stages, never mid-read
// (spec §5: "no pre-fetch beyond what a stage requires").
func (r *Reader) ReadFrame(ctx context.Context, src io.Reader) (*domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var hdr [2]byte
	if _, err := io.ReadFull(src, hdr[:]); err != nil {
		return nil, r.fail(wrapShortRead(err, true))
	}

	frame, err := decodeHeader(hdr)
	if err != nil {
		return nil, r.fail(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.readExtLen(src, frame); err != nil {
		return nil, r.fail(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.readMaskKey(src, frame); err != nil {
		return nil, r.fail(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.readPayload(src, frame); err != nil {
		return nil, r.fail(err)
	}

	return frame, nil
}

func (r *Reader) readExtLen(src io.Reader, frame *domain.Frame) error {
	w := extLenWidth(frame.Len7)
	if w == 0 {
		return nil
	}
	buf := make([]byte, w)
	if _, err := io.ReadFull(src, buf); err != nil {
		return wrapShortRead(err, false)
	}
	frame.ExtLen = buf
	return nil
}

func (r *Reader) readMaskKey(src io.Reader, frame *domain.Frame) error {
	if frame.Mask != domain.Masked {
		return nil
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(src, buf); err != nil {
		return wrapShortRead(err, false)
	}
	copy(frame.MaskingKey[:], buf)
	return nil
}

func (r *Reader) readPayload(src io.Reader, frame *domain.Frame) error {
	length := frame.ExactPayloadLength()
	if length > r.opts.maxPayloadSize {
		return domain.NewMessageTooBig(fmt.Sprintf("declared length %d exceeds max %d", length, r.opts.maxPayloadSize))
	}
	if length == 0 {
		frame.Payload = nil
		return nil
	}

	// Two strategies (spec §4.4): a single bounded read below 2^16, a
	// chunked accumulation above it, capping intermediate allocation.
	if frame.Len7 < protocol.PayloadLen64Bit {
		buf := make([]byte, length)
		if _, err := io.ReadFull(src, buf); err != nil {
			return wrapShortRead(err, false)
		}
		frame.Payload = buf
		return nil
	}

	chunkSize := uint64(r.opts.chunkSize)
	buf := make([]byte, 0, min(length, chunkSize))
	remaining := length
	for remaining > 0 {
		step := chunkSize
		if step > remaining {
			step = remaining
		}
		chunk := make([]byte, step)
		if _, err := io.ReadFull(src, chunk); err != nil {
			return wrapShortRead(err, false)
		}
		buf = append(buf, chunk...)
		remaining -= step
	}
	frame.Payload = buf
	return nil
}

func (r *Reader) fail(err error) error {
	var fe *domain.FrameError
	if errors.As(err, &fe) {
		r.opts.logger.Warn().
			Err(fe).
			Int("close_code", fe.CloseCode).
			Msg("rejected frame")
	}
	return err
}

// extLenWidth returns how many extended-length bytes follow the header for
// a given 7-bit length field: 0, 2, or 8.
func extLenWidth(len7 byte) int {
	switch len7 {
	case protocol.PayloadLen16Bit:
		return 2
	case protocol.PayloadLen64Bit:
		return 8
	default:
		return 0
	}
}

// wrapShortRead classifies an io error from a read stage into the codec's
// error taxonomy (spec §7): EOF/ErrUnexpectedEOF past the header stage is
// IncompleteFrame (or IncompleteHeader for the header itself); anything
// else is a SourceError propagated from the byte source.
func wrapShortRead(err error, header bool) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if header {
			return domain.NewIncompleteHeader(err.Error())
		}
		return domain.NewIncompleteFrame(err.Error())
	}
	return domain.NewSourceError(err)
}
