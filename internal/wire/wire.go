// Package wire encodes clock snapshots as fixed-size frames.
//
// A frame is 36 bytes, big-endian:
//
//	proc_id    uint32
//	hlc        uint64
//	offset_bmp uint64
//	offsets    uint64
//	counters   uint64
//
// The hex form is the frame in lowercase hexadecimal and is what the CLI
// prints and accepts.
package wire

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/repcl/internal/repcl"
)

// FrameSize is the encoded size of a snapshot in bytes.
const FrameSize = 4 + 4*8

// ErrFrameSize is returned when a frame is not exactly FrameSize bytes.
var ErrFrameSize = errors.New("wire: frame size")

// Encode returns the frame for s.
func Encode(s repcl.Snapshot) ([]byte, error) {
	return Append(make([]byte, 0, FrameSize), s)
}

// Append appends the frame for s to dst.
func Append(dst []byte, s repcl.Snapshot) ([]byte, error) {
	if s.ProcID < 0 || uint64(s.ProcID) > math.MaxUint32 {
		return dst, fmt.Errorf("wire: process id %d not representable", s.ProcID)
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(s.ProcID))
	dst = binary.BigEndian.AppendUint64(dst, s.HLC)
	dst = binary.BigEndian.AppendUint64(dst, s.OffsetBmp)
	dst = binary.BigEndian.AppendUint64(dst, s.Offsets)
	dst = binary.BigEndian.AppendUint64(dst, s.Counters)
	return dst, nil
}

// Decode parses a frame. It checks only the frame size; use DecodeFor to
// check the snapshot against a configuration.
func Decode(frame []byte) (repcl.Snapshot, error) {
	if len(frame) != FrameSize {
		return repcl.Snapshot{}, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(frame), FrameSize)
	}
	return repcl.Snapshot{
		ProcID:    int(binary.BigEndian.Uint32(frame[0:4])),
		HLC:       binary.BigEndian.Uint64(frame[4:12]),
		OffsetBmp: binary.BigEndian.Uint64(frame[12:20]),
		Offsets:   binary.BigEndian.Uint64(frame[20:28]),
		Counters:  binary.BigEndian.Uint64(frame[28:36]),
	}, nil
}

// DecodeFor parses a frame and validates it against cfg. cfg.ProcID is
// ignored; the sender is taken from the frame.
func DecodeFor(frame []byte, cfg repcl.Config) (repcl.Snapshot, error) {
	s, err := Decode(frame)
	if err != nil {
		return repcl.Snapshot{}, err
	}
	if err := s.Validate(cfg); err != nil {
		return repcl.Snapshot{}, fmt.Errorf("wire: %w", err)
	}
	return s, nil
}

// EncodeHex returns the hex form of the frame for s.
func EncodeHex(s repcl.Snapshot) (string, error) {
	frame, err := Encode(s)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(frame), nil
}

// DecodeHex parses the hex form of a frame. Surrounding whitespace and a
// leading "0x" are accepted.
func DecodeHex(text string) (repcl.Snapshot, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	frame, err := hex.DecodeString(text)
	if err != nil {
		return repcl.Snapshot{}, fmt.Errorf("wire: decode hex: %w", err)
	}
	return Decode(frame)
}
