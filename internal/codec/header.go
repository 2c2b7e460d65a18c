package codec

import (
	"fmt"

	"wsframe/internal/domain"
)

// decodeHeader parses the two mandatory header bytes (spec §4.1) into a
// partially populated Frame (Fin, RSV1-3, Opcode, Mask, Len7) and applies
// the header-stage well-formedness checks. The extended length, masking
// key, and payload are filled in by later stages.
func decodeHeader(b [2]byte) (*domain.Frame, error) {
	f := &domain.Frame{
		Fin:    domain.Fin(b[0]&0x80 != 0),
		RSV1:   domain.Reserved(b[0]&0x40 != 0),
		RSV2:   domain.Reserved(b[0]&0x20 != 0),
		RSV3:   domain.Reserved(b[0]&0x10 != 0),
		Opcode: domain.Opcode(b[0] & 0x0F),
		Mask:   domain.Mask(b[1]&0x80 != 0),
		Len7:   b[1] & 0x7F,
	}

	if !f.Opcode.IsValid() {
		return nil, domain.NewProtocolError(fmt.Sprintf("unsupported opcode 0x%X", byte(f.Opcode)))
	}
	if f.RSV1 == domain.On && f.Opcode != domain.OpcodeText && f.Opcode != domain.OpcodeBinary {
		return nil, domain.NewProtocolError("RSV1 set on non-data frame")
	}
	if f.Opcode.IsControl() {
		if f.Fin != domain.Final {
			return nil, domain.NewProtocolError("control frame fragmented")
		}
		if f.Len7 > 125 {
			return nil, domain.NewProtocolError("control frame payload exceeds 125 bytes")
		}
	}

	return f, nil
}
