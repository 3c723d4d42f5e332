package events

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Record headers attached by the outbox dispatcher.
const (
	HeaderEventType     = "event_type"
	HeaderSchemaSubject = "schema_subject"
)

const (
	magicByte       byte = 0
	frameHeaderSize      = 5
)

// ErrInvalidFrame reports a record value that does not carry Schema Registry framing.
var ErrInvalidFrame = errors.New("invalid wire frame")

// Frame prefixes payload with the Schema Registry wire header: a zero magic byte followed by the
// schema id as a big-endian uint32.
func Frame(schemaID int, payload []byte) []byte {
	frame := make([]byte, frameHeaderSize+len(payload))
	frame[0] = magicByte
	binary.BigEndian.PutUint32(frame[1:frameHeaderSize], uint32(schemaID))
	copy(frame[frameHeaderSize:], payload)
	return frame
}

// Unframe splits a framed value into its schema id and a copy of the payload.
func Unframe(value []byte) (int, []byte, error) {
	if len(value) < frameHeaderSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrInvalidFrame, len(value))
	}
	if value[0] != magicByte {
		return 0, nil, fmt.Errorf("%w: magic byte %d", ErrInvalidFrame, value[0])
	}
	schemaID := int(binary.BigEndian.Uint32(value[1:frameHeaderSize]))
	return schemaID, append([]byte(nil), value[frameHeaderSize:]...), nil
}
