package connect

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuthState is the continuation payload carried through the provider
// redirect. It is attacker-observable, so it holds no secrets; the
// HMAC signature and the session binding only guarantee that the
// callback was initiated by the same signed-in session.
type AuthState struct {
	Version     int    `json:"v"`
	ModelID     uint   `json:"model_id"`
	AppID       uint   `json:"app_id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Instruction string `json:"instruction,omitempty"`
	Nonce       string `json:"nonce"`
	SessionHash string `json:"sid"`
	ExpiresAt   int64  `json:"exp"`
}

// StateTTL bounds how long an outbound authorization round trip may
// take before the state is considered stale.
const StateTTL = 15 * time.Minute

var (
	ErrStateMalformed = errors.New("state payload malformed")
	ErrStateSignature = errors.New("state signature mismatch")
	ErrStateExpired   = errors.New("state expired")
	ErrStateSession   = errors.New("state bound to a different session")
)

// StateCodec signs and verifies AuthState payloads.
type StateCodec struct {
	secret []byte
}

func NewStateCodec(secret string) *StateCodec {
	return &StateCodec{secret: []byte(secret)}
}

// Sign seals the state for the given session. The nonce and expiry are
// set here; callers only fill the continuation fields.
func (s *StateCodec) Sign(st AuthState, sessionID string) (string, error) {
	st.Version = 1
	st.Nonce = uuid.NewString()
	st.SessionHash = hashSession(sessionID)
	st.ExpiresAt = time.Now().Add(StateTTL).Unix()

	payload, err := json.Marshal(st)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + s.mac(encoded), nil
}

// Verify checks the signature, expiry and session binding, then
// decodes the payload. Unknown fields and missing required fields are
// rejected rather than trusted.
func (s *StateCodec) Verify(raw, sessionID string) (*AuthState, error) {
	encoded, sig, ok := strings.Cut(raw, ".")
	if !ok {
		return nil, ErrStateMalformed
	}
	if !hmac.Equal([]byte(s.mac(encoded)), []byte(sig)) {
		return nil, ErrStateSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrStateMalformed
	}

	var st AuthState
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&st); err != nil {
		return nil, ErrStateMalformed
	}
	if st.Version != 1 || st.ModelID == 0 || st.AppID == 0 || st.Nonce == "" {
		return nil, ErrStateMalformed
	}
	if time.Now().Unix() > st.ExpiresAt {
		return nil, ErrStateExpired
	}
	if st.SessionHash != hashSession(sessionID) {
		return nil, ErrStateSession
	}
	return &st, nil
}

func (s *StateCodec) mac(encoded string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func hashSession(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:8])
}
