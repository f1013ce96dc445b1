// Package frame implements the wire codec for terminal session messages.
//
// A frame is one logical message on the session connection: either a batch
// of keystroke bytes headed for the shell, or a terminal resize. The wire
// form is JSON with the payload shape determined entirely by the kind:
//
//	{"kind":1,"data":[108,115,10]}            input (byte values 0-255)
//	{"kind":2,"data":{"cols":80,"rows":24}}   resize
//
// Input payloads are serialized as an explicit array of byte values rather
// than a string so that raw terminal control bytes survive a round trip
// without any re-encoding ambiguity.
package frame

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates the two wire message types.
type Kind int

const (
	// KindInput carries keystroke bytes from the terminal to the shell.
	KindInput Kind = 1
	// KindResize announces new terminal dimensions.
	KindResize Kind = 2
)

// ErrMalformed is wrapped by every Decode failure, so callers can test
// errors.Is(err, ErrMalformed) without caring about the specific defect.
var ErrMalformed = errors.New("malformed frame")

// Frame is one decoded wire message. Input is meaningful only for
// KindInput; Cols and Rows only for KindResize.
type Frame struct {
	Kind  Kind
	Input []byte
	Cols  uint16
	Rows  uint16
}

// InputFrame wraps keystroke bytes in a frame.
func InputFrame(p []byte) Frame {
	return Frame{Kind: KindInput, Input: p}
}

// ResizeFrame wraps terminal dimensions in a frame.
func ResizeFrame(cols, rows uint16) Frame {
	return Frame{Kind: KindResize, Cols: cols, Rows: rows}
}

// wireFrame is the JSON envelope. Kind is a pointer so a missing key is
// distinguishable from kind 0.
type wireFrame struct {
	Kind *int            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type wireSize struct {
	Cols *int `json:"cols"`
	Rows *int `json:"rows"`
}

// Encode serializes f. It fails on frames no decoder would accept: an
// unknown kind, or a resize with a zero dimension.
func Encode(f Frame) ([]byte, error) {
	var data []byte
	var err error

	switch f.Kind {
	case KindInput:
		vals := make([]int, len(f.Input))
		for i, b := range f.Input {
			vals[i] = int(b)
		}
		data, err = json.Marshal(vals)
	case KindResize:
		if f.Cols == 0 || f.Rows == 0 {
			return nil, fmt.Errorf("encode frame: resize %dx%d has a zero dimension", f.Cols, f.Rows)
		}
		cols, rows := int(f.Cols), int(f.Rows)
		data, err = json.Marshal(wireSize{Cols: &cols, Rows: &rows})
	default:
		return nil, fmt.Errorf("encode frame: unknown kind %d", f.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("encode frame payload: %w", err)
	}

	kind := int(f.Kind)
	return json.Marshal(wireFrame{Kind: &kind, Data: data})
}

// Decode parses one wire message. Any defect — unparseable JSON, a missing
// or unrecognized kind, or a payload whose shape does not match the kind —
// yields an error wrapping ErrMalformed.
func Decode(p []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(p, &w); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Kind == nil {
		return Frame{}, fmt.Errorf("%w: missing kind", ErrMalformed)
	}

	switch Kind(*w.Kind) {
	case KindInput:
		if len(w.Data) == 0 || string(w.Data) == "null" {
			return Frame{}, fmt.Errorf("%w: input frame without byte array", ErrMalformed)
		}
		var vals []int
		if err := json.Unmarshal(w.Data, &vals); err != nil {
			return Frame{}, fmt.Errorf("%w: input payload is not a byte array: %v", ErrMalformed, err)
		}
		buf := make([]byte, len(vals))
		for i, v := range vals {
			if v < 0 || v > 255 {
				return Frame{}, fmt.Errorf("%w: input byte value %d out of range", ErrMalformed, v)
			}
			buf[i] = byte(v)
		}
		return Frame{Kind: KindInput, Input: buf}, nil

	case KindResize:
		if len(w.Data) == 0 || string(w.Data) == "null" {
			return Frame{}, fmt.Errorf("%w: resize frame without dimensions", ErrMalformed)
		}
		var sz wireSize
		if err := json.Unmarshal(w.Data, &sz); err != nil {
			return Frame{}, fmt.Errorf("%w: resize payload is not an object: %v", ErrMalformed, err)
		}
		if sz.Cols == nil || sz.Rows == nil {
			return Frame{}, fmt.Errorf("%w: resize frame missing cols or rows", ErrMalformed)
		}
		if *sz.Cols <= 0 || *sz.Rows <= 0 || *sz.Cols > 65535 || *sz.Rows > 65535 {
			return Frame{}, fmt.Errorf("%w: resize dimensions %dx%d out of range", ErrMalformed, *sz.Cols, *sz.Rows)
		}
		return Frame{Kind: KindResize, Cols: uint16(*sz.Cols), Rows: uint16(*sz.Rows)}, nil

	default:
		return Frame{}, fmt.Errorf("%w: unrecognized kind %d", ErrMalformed, *w.Kind)
	}
}
