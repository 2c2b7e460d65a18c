package framedump

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"wsframe/internal/domain"
)

// Summary renders the labeled field dump from spec §4.8: FIN, RSV1-3,
// Opcode, MASK, Payload Length, Extended Payload Length, Masking Key,
// Payload Data. It never returns an error — a UTF-8 decode failure on the
// payload falls back to an empty rendering (spec §7) instead of
// propagating.
func Summary(f *domain.Frame) string {
	var b strings.Builder

	fmt.Fprintf(&b, "FIN: %s\n", f.Fin)
	fmt.Fprintf(&b, "RSV1: %s\n", f.RSV1)
	fmt.Fprintf(&b, "RSV2: %s\n", f.RSV2)
	fmt.Fprintf(&b, "RSV3: %s\n", f.RSV3)
	fmt.Fprintf(&b, "Opcode: %s\n", f.Opcode)
	fmt.Fprintf(&b, "MASK: %s\n", f.Mask)
	fmt.Fprintf(&b, "Payload Length: %d\n", f.Len7)
	fmt.Fprintf(&b, "Extended Payload Length: %s\n", extLenString(f))
	fmt.Fprintf(&b, "Masking Key: %s\n", maskingKeyString(f))
	fmt.Fprintf(&b, "Payload Data: %s\n", payloadString(f))

	return b.String()
}

func extLenString(f *domain.Frame) string {
	if len(f.ExtLen) == 0 {
		return ""
	}
	return fmt.Sprintf("%d", f.ExactPayloadLength())
}

func maskingKeyString(f *domain.Frame) string {
	if f.Mask != domain.Masked {
		return ""
	}
	parts := make([]string, len(f.MaskingKey))
	for i, b := range f.MaskingKey {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// payloadString applies the rendering rules from spec §4.8: empty when the
// length is 0; "---" when it exceeds 125 bytes; a UTF-8 decode of the
// payload iff this is a final, unmasked, uncompressed text frame;
// otherwise the payload's own string form.
func payloadString(f *domain.Frame) string {
	length := f.ExactPayloadLength()
	if length == 0 {
		return ""
	}
	if length > 125 {
		return "---"
	}

	if f.Fin == domain.Final && f.Mask == domain.Unmasked && f.RSV1 == domain.Off && f.Opcode == domain.OpcodeText {
		if utf8.Valid(f.Payload) {
			return string(f.Payload)
		}
		return ""
	}

	return fmt.Sprintf("%v", f.Payload)
}
