package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"custody-vault/go-backend/internal/domains/vault/model"
)

var errInvalidParams = errors.New("invalid params")

// amountParam is a raw amount sent as a JSON integer or a decimal string.
type amountParam uint64

func (a *amountParam) value() model.Amount {
	return model.Amount(*a)
}

func (a *amountParam) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if raw == "null" || raw == "" {
		return errInvalidParams
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return errInvalidParams
		}
		raw = text
	}
	if raw == "" || raw[0] == '+' {
		return errInvalidParams
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return errInvalidParams
	}
	*a = amountParam(value)
	return nil
}

// decodeParams decodes a single params object and rejects unknown fields.
func decodeParams(raw json.RawMessage, target any) error {
	if emptyParams(raw) {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return errInvalidParams
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errInvalidParams
	}
	return nil
}

func emptyParams(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) ||
		bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("[]"))
}
