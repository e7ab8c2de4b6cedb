// Package codec serializes nested payload values into the opaque TEXT blobs
// kept on cached rows (senders, recipients, cards, attachment metadata).
package codec

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Placeholder is stored in place of a blob that could not be encoded.
const Placeholder = ""

// Codec converts a value to and from its stored blob form.
type Codec[T any] interface {
	Encode(v T) (string, error)
	Decode(blob string) (T, error)
}

// JSON is a Codec backed by encoding/json.
type JSON[T any] struct{}

func (JSON[T]) Encode(v T) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSON[T]) Decode(blob string) (T, error) {
	var v T
	if blob == "" {
		return v, nil
	}
	err := json.Unmarshal([]byte(blob), &v)
	return v, err
}

// EncodeOr encodes v, logging and returning Placeholder on failure.
func EncodeOr[T any](c Codec[T], v T, field string, logger *zap.Logger) string {
	blob, err := c.Encode(v)
	if err != nil {
		if logger != nil {
			logger.Warn("blob encode failed, storing placeholder", zap.String("field", field), zap.Error(err))
		}
		return Placeholder
	}
	return blob
}
