package codec

import (
	"bytes"
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"wsframe/internal/domain"
	"wsframe/pkg/wsrand"
)

func TestWriterSerializeTextFrame(t *testing.T) {
	f := domain.NewFrame(domain.OpcodeText, []byte("Hello"), false)
	w := NewWriter(nil)

	out, err := w.Serialize(f)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	want := []byte{0x81, 0x05, 'H', 'e', 'l', 'l', 'o'}
	if !bytes.Equal(out, want) {
		t.Errorf("Serialize() = % X, want % X", out, want)
	}
}

func TestWriterConstructMasksWithInjectedRNG(t *testing.T) {
	key := [4]byte{0x37, 0xFA, 0x21, 0x3D}
	w := NewWriter(wsrand.Fixed(key))

	f, err := w.Construct(domain.OpcodeText, []byte("Hello"), false, true)
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}
	if f.Mask != domain.Masked {
		t.Fatal("expected a masked frame")
	}
	if f.MaskingKey != key {
		t.Errorf("MaskingKey = %v, want %v", f.MaskingKey, key)
	}

	f.Unmask()
	if string(f.Payload) != "Hello" {
		t.Errorf("after Unmask() payload = %q, want %q", f.Payload, "Hello")
	}
}

// TestWriterReaderRoundTrip covers spec scenarios S1/S2: a 5-byte text
// frame written unmasked and masked round-trips through the Reader with
// its original payload recovered once unmasked.
func TestWriterReaderRoundTrip(t *testing.T) {
	for _, masked := range []bool{false, true} {
		f, err := NewWriter(wsrand.Fixed([4]byte{1, 2, 3, 4})).Construct(domain.OpcodeText, []byte("Hello"), false, masked)
		if err != nil {
			t.Fatalf("Construct() error = %v", err)
		}

		raw, err := NewWriter(nil).Serialize(f)
		if err != nil {
			t.Fatalf("Serialize() error = %v", err)
		}

		got, err := NewReader().ReadFrame(context.Background(), bytes.NewReader(raw))
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		got.Unmask()
		if string(got.Payload) != "Hello" {
			t.Errorf("masked=%v: payload = %q, want %q", masked, got.Payload, "Hello")
		}
	}
}

// TestProperty_SerializeParseRoundTrip is spec §8 invariant 1: for any
// well-formed frame, Serialize then ReadFrame recovers the same opcode and
// Fin, and the original payload bytes once the parsed frame is unmasked.
func TestProperty_SerializeParseRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	opcodes := []domain.Opcode{domain.OpcodeText, domain.OpcodeBinary, domain.OpcodeContinuation}

	properties.Property("serialize then parse recovers the frame", prop.ForAll(
		func(opIdx int, payload []byte, masked bool) bool {
			opcode := opcodes[opIdx%len(opcodes)]
			var key [4]byte
			copy(key[:], []byte{0xAA, 0xBB, 0xCC, 0xDD})

			// Construct masks its payload argument in place (it shares the
			// backing array passed in), so keep a separate copy of the
			// original bytes to compare against after the round trip.
			want := append([]byte(nil), payload...)

			f, err := NewWriter(wsrand.Fixed(key)).Construct(opcode, payload, false, masked)
			if err != nil {
				t.Logf("Construct() error: %v", err)
				return false
			}

			raw, err := NewWriter(nil).Serialize(f)
			if err != nil {
				t.Logf("Serialize() error: %v", err)
				return false
			}

			got, err := NewReader(WithMaxPayloadSize(0)).ReadFrame(context.Background(), bytes.NewReader(raw))
			if err != nil {
				t.Logf("ReadFrame() error: %v", err)
				return false
			}

			if got.Opcode != opcode || got.Fin != domain.Final {
				t.Logf("opcode/fin mismatch: %v/%v", got.Opcode, got.Fin)
				return false
			}
			got.Unmask()
			return bytes.Equal(got.Payload, want)
		},
		gen.IntRange(0, 2),
		gen.SliceOf(gen.UInt8Range(0, 255)),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestProperty_MaskUnmaskInvolution is spec §8 invariant 2: masking with a
// key and then unmasking with the same key is the identity on the payload.
func TestProperty_MaskUnmaskInvolution(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("masking twice with the same key recovers the original", prop.ForAll(
		func(payload []byte, k0, k1, k2, k3 byte) bool {
			key := [4]byte{k0, k1, k2, k3}
			original := append([]byte(nil), payload...)

			f := &domain.Frame{Fin: domain.Final, Opcode: domain.OpcodeBinary, Mask: domain.Masked, MaskingKey: key, Payload: append([]byte(nil), payload...)}
			f.Unmask()
			if f.Mask != domain.Unmasked {
				return false
			}
			masked := f.Payload

			f2 := &domain.Frame{Mask: domain.Masked, MaskingKey: key, Payload: masked}
			f2.Unmask()
			return bytes.Equal(f2.Payload, original)
		},
		gen.SliceOf(gen.UInt8Range(0, 255)),
		gen.UInt8Range(0, 255),
		gen.UInt8Range(0, 255),
		gen.UInt8Range(0, 255),
		gen.UInt8Range(0, 255),
	))

	properties.TestingRun(t)
}

// TestProperty_LengthEncodingBoundaries is spec §8 invariant 3: payload
// lengths at and around the 7-bit/16-bit/64-bit boundaries use the
// expected wire encoding.
func TestProperty_LengthEncodingBoundaries(t *testing.T) {
	for _, n := range []int{0, 1, 125, 126, 127, 65535, 65536, 1_000_000} {
		payload := make([]byte, n)
		f := domain.NewFrame(domain.OpcodeBinary, payload, false)

		switch {
		case n < 126:
			if f.Len7 != byte(n) || len(f.ExtLen) != 0 {
				t.Errorf("n=%d: Len7=%d ExtLen=%d, want inline", n, f.Len7, len(f.ExtLen))
			}
		case n <= 0xFFFF:
			if f.Len7 != 126 || len(f.ExtLen) != 2 {
				t.Errorf("n=%d: Len7=%d ExtLen=%d, want 16-bit extended", n, f.Len7, len(f.ExtLen))
			}
		default:
			if f.Len7 != 127 || len(f.ExtLen) != 8 {
				t.Errorf("n=%d: Len7=%d ExtLen=%d, want 64-bit extended", n, f.Len7, len(f.ExtLen))
			}
		}
		if f.ExactPayloadLength() != uint64(n) {
			t.Errorf("n=%d: ExactPayloadLength() = %d", n, f.ExactPayloadLength())
		}
	}
}

// TestProperty_FrameLengthIdentity is spec §8 invariant 4: FrameLength()
// always equals len(Serialize(f)).
func TestProperty_FrameLengthIdentity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("FrameLength equals the serialized byte count", prop.ForAll(
		func(payload []byte, masked bool) bool {
			f, err := NewWriter(wsrand.Fixed([4]byte{9, 9, 9, 9})).Construct(domain.OpcodeBinary, payload, false, masked)
			if err != nil {
				return false
			}
			raw, err := NewWriter(nil).Serialize(f)
			if err != nil {
				return false
			}
			return f.FrameLength() == len(raw)
		},
		gen.SliceOf(gen.UInt8Range(0, 255)),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestWriterRejectsInvalidFrame(t *testing.T) {
	f := &domain.Frame{Fin: domain.More, Opcode: domain.OpcodeClose, Len7: 0}
	if _, err := NewWriter(nil).Serialize(f); err == nil {
		t.Error("expected Serialize() to reject a fragmented control frame")
	}
}

func TestWriterWriteToChunksLargePayload(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 200_000)
	f := domain.NewFrame(domain.OpcodeBinary, payload, false)

	var buf bytes.Buffer
	w := NewWriter(nil, WithChunkSize(4096))
	if err := w.WriteTo(&buf, f); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	got, err := NewReader(WithMaxPayloadSize(0)).ReadFrame(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Error("payload mismatch after chunked WriteTo/ReadFrame round trip")
	}
}

func TestWriterWriteToSink(t *testing.T) {
	payload := []byte("ping")
	f := domain.NewFrame(domain.OpcodePing, payload, false)

	var buf bytes.Buffer
	if err := NewWriter(nil).WriteToSink(BlockingSink{W: &buf}, f); err != nil {
		t.Fatalf("WriteToSink() error = %v", err)
	}

	got, err := NewReader().ReadFrame(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !bytes.Equal(got.Payload, payload) || got.Opcode != domain.OpcodePing {
		t.Error("round trip through WriteToSink/BlockingSink mismatch")
	}
}
