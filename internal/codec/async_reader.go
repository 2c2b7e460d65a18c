package codec

import (
	"wsframe/internal/domain"
	"wsframe/pkg/protocol"
)

// asyncState names the four read stages plus the two terminal states, per
// spec §9's design note ("model this as a small state machine with states
// {NeedHeader, NeedExtLen, NeedMask, NeedPayload, Done, Failed}").
type asyncState int

const (
	stateNeedHeader asyncState = iota
	stateNeedExtLen
	stateNeedMask
	stateNeedPayload
	stateDone
	stateFailed
)

// asyncRead holds the in-flight state for one ReadFrameAsync call. A new
// one is allocated per call; it is never shared across frames.
type asyncRead struct {
	r         *Reader
	src       AsyncSource
	frame     *domain.Frame
	state     asyncState
	onSuccess func(*domain.Frame)
	onError   func(error)
}

// ReadFrameAsync drives the four read stages over a callback-driven byte
// source. Exactly one of onSuccess or onError is called once the whole
// frame (or a failure) is resolved; every failure path — including ones
// the teacher's own async pipeline raised out-of-band in some cases —
// is routed through onError exclusively (spec §9's open question,
// resolved).
func (r *Reader) ReadFrameAsync(src AsyncSource, onSuccess func(*domain.Frame), onError func(error)) {
	op := &asyncRead{
		r:         r,
		src:       src,
		frame:     &domain.Frame{},
		state:     stateNeedHeader,
		onSuccess: onSuccess,
		onError:   onError,
	}
	op.driveHeader()
}

func (op *asyncRead) fail(err error) {
	op.state = stateFailed
	op.onError(op.r.fail(err))
}

func (op *asyncRead) driveHeader() {
	op.src.ReadExact(2, func(b []byte) {
		var hdr [2]byte
		copy(hdr[:], b)
		frame, err := decodeHeader(hdr)
		if err != nil {
			op.fail(err)
			return
		}
		op.frame = frame
		op.state = stateNeedExtLen
		op.driveExtLen()
	}, func(err error) {
		op.fail(wrapShortRead(err, true))
	})
}

func (op *asyncRead) driveExtLen() {
	w := extLenWidth(op.frame.Len7)
	if w == 0 {
		op.state = stateNeedMask
		op.driveMask()
		return
	}
	op.src.ReadExact(w, func(b []byte) {
		op.frame.ExtLen = b
		op.state = stateNeedMask
		op.driveMask()
	}, func(err error) {
		op.fail(wrapShortRead(err, false))
	})
}

func (op *asyncRead) driveMask() {
	if op.frame.Mask != domain.Masked {
		op.state = stateNeedPayload
		op.drivePayload()
		return
	}
	op.src.ReadExact(4, func(b []byte) {
		copy(op.frame.MaskingKey[:], b)
		op.state = stateNeedPayload
		op.drivePayload()
	}, func(err error) {
		op.fail(wrapShortRead(err, false))
	})
}

func (op *asyncRead) drivePayload() {
	length := op.frame.ExactPayloadLength()
	if length > op.r.opts.maxPayloadSize {
		op.fail(domain.NewMessageTooBig("declared payload length exceeds configured maximum"))
		return
	}
	if length == 0 {
		op.finish()
		return
	}

	onOK := func(b []byte) {
		op.frame.Payload = b
		op.finish()
	}
	onErr := func(err error) {
		op.fail(wrapShortRead(err, false))
	}

	if op.frame.Len7 < protocol.PayloadLen64Bit {
		op.src.ReadExact(int(length), onOK, onErr)
		return
	}
	op.src.ReadExactChunked(int(length), op.r.opts.chunkSize, onOK, onErr)
}

func (op *asyncRead) finish() {
	op.state = stateDone
	op.onSuccess(op.frame)
}
