// Package handshake validates and performs the HTTP Upgrade handshake that
// precedes any frame exchange. It is one of the codec's "external
// collaborators" (spec §1): the frame codec itself never sees an
// *http.Request, but a complete repository around it needs this adjoining
// piece, so it is kept here rather than re-implemented by every caller.
package handshake

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"wsframe/pkg/protocol"
)

// Validator validates WebSocket handshake requests and performs upgrades.
type Validator struct {
	logger zerolog.Logger
}

// New builds a Validator with the given logger. Pass wslog.Nop() for
// callers that don't want handshake diagnostics.
func New(logger zerolog.Logger) *Validator {
	return &Validator{logger: logger}
}

// ValidateRequest checks that req carries all required WebSocket
// handshake headers with acceptable values.
func (v *Validator) ValidateRequest(req *http.Request) error {
	upgrade := req.Header.Get(protocol.HeaderUpgrade)
	if !strings.EqualFold(upgrade, protocol.HeaderValueWebSocket) {
		return fmt.Errorf("missing or invalid Upgrade header: expected 'websocket', got %q", upgrade)
	}

	connection := req.Header.Get(protocol.HeaderConnection)
	if !containsToken(connection, protocol.HeaderValueUpgrade) {
		return fmt.Errorf("missing or invalid Connection header: expected 'Upgrade', got %q", connection)
	}

	key := req.Header.Get(protocol.HeaderSecWebSocketKey)
	if key == "" {
		return fmt.Errorf("missing Sec-WebSocket-Key header")
	}

	version := req.Header.Get(protocol.HeaderSecWebSocketVersion)
	if version != protocol.WebSocketVersion {
		return fmt.Errorf("unsupported WebSocket version: expected %q, got %q", protocol.WebSocketVersion, version)
	}

	return nil
}

// AcceptKey computes the Sec-WebSocket-Accept value from the client's key,
// per RFC 6455: base64(SHA1(key + "258EAFA5-E914-47DA-95CA-C5AB0DC85B11")).
func (v *Validator) AcceptKey(key string) string {
	hash := sha1.Sum([]byte(key + protocol.WebSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// PerformUpgrade validates req and, if it passes, writes the 101 Switching
// Protocols response. Invalid requests get a 400 response and the
// rejection reason is logged (never the full request).
func (v *Validator) PerformUpgrade(w http.ResponseWriter, req *http.Request) error {
	if err := v.ValidateRequest(req); err != nil {
		v.logger.Warn().Err(err).Str("remote", req.RemoteAddr).Msg("rejected handshake")
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return err
	}

	key := req.Header.Get(protocol.HeaderSecWebSocketKey)
	accept := v.AcceptKey(key)

	w.Header().Set(protocol.HeaderUpgrade, protocol.HeaderValueWebSocket)
	w.Header().Set(protocol.HeaderConnection, protocol.HeaderValueUpgrade)
	w.Header().Set(protocol.HeaderSecWebSocketAccept, accept)
	w.WriteHeader(http.StatusSwitchingProtocols)

	return nil
}

// containsToken reports whether a comma-separated header value contains
// token, case-insensitively.
func containsToken(header, token string) bool {
	for _, t := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(t), token) {
			return true
		}
	}
	return false
}
