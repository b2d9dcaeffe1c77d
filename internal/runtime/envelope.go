package runtime

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Envelope is the stored form of a submitted job.
type Envelope struct {
	ActionName string          `json:"actionName"`
	Payload    json.RawMessage `json:"payload"`
}

// EncodeEnvelope builds the stored payload for action. payload must already
// be valid JSON; nil is stored as null. The payload is compacted but its
// HTML characters are kept as written.
func EncodeEnvelope(action string, payload []byte) ([]byte, error) {
	if payload == nil {
		payload = []byte("null")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Envelope{ActionName: action, Payload: payload}); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// DecodeEnvelope parses a stored payload.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
