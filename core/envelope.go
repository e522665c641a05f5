package core

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Envelope is the uniform {success, message, data} wrapper returned by the API.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// HasData reports whether the envelope carries a non-null payload.
func (env *Envelope) HasData() bool {
	d := bytes.TrimSpace(env.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// Decode unmarshals the envelope payload into v. An empty payload leaves v untouched.
func (env *Envelope) Decode(v interface{}) error {
	if !env.HasData() {
		return nil
	}
	return errors.Wrap(json.Unmarshal(env.Data, v), "decoding envelope data")
}

// Field decodes a single top-level key of an object payload into v.
// found is false if the payload is not an object or does not hold the key.
func (env *Envelope) Field(key string, v interface{}) (found bool, err error) {
	if !env.HasData() {
		return false, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &obj); err != nil {
		return false, nil // not an object
	}
	raw, ok := obj[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, errors.Wrapf(err, "decoding envelope field %q", key)
	}
	return true, nil
}

// NewEnvelope builds a successful envelope around data.
func NewEnvelope(message string, data interface{}) (*Envelope, error) {
	env := &Envelope{Success: true, Message: message}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, errors.Wrap(err, "encoding envelope data")
		}
		env.Data = raw
	}
	return env, nil
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// DefaultPagination is the pagination of an empty first page.
func DefaultPagination(limit int) Pagination {
	if limit <= 0 {
		limit = 10
	}
	return Pagination{Page: 1, Limit: limit}
}
