package uniqm

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/bytedance/sonic"
)

// Encoder serializes payloads and callback results. The stored envelope is
// JSON, so Encode must produce valid JSON.
type Encoder interface {
	Encode(any) ([]byte, error)
	Decode([]byte, any) error
}

var errInvalidRaw = errors.New("uniqm: raw payload is not valid JSON")

// JSONEncoder is the default Encoder. A json.RawMessage is stored as is
// after validation; HTML characters are left unescaped unless EscapeHTML
// is set. Decoding goes through sonic.
type JSONEncoder struct {
	EscapeHTML bool
}

func (e *JSONEncoder) Encode(v any) ([]byte, error) {
	if raw, ok := v.(json.RawMessage); ok {
		if raw == nil {
			return []byte("null"), nil
		}
		if !sonic.Valid(raw) {
			return nil, errInvalidRaw
		}
		return raw, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(e.EscapeHTML)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func (*JSONEncoder) Decode(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// Bind decodes a job payload into a value of type T. An empty payload
// yields the zero value.
func Bind[T any](payload []byte) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, nil
	}
	err := sonic.Unmarshal(payload, &v)
	return v, err
}
