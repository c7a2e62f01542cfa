// Package textcodec reads and writes content trees as indented JSON.
//
// Integers and reals keep their kind across a round trip: reals are always
// written with a fractional part or exponent, and anything spelled that way
// is parsed back as float64. Non-finite reals are written as the bare tokens
// NaN, Infinity and -Infinity. String bytes that are not valid UTF-8 are
// written as \udc80-\udcff escapes and read back as the original bytes.
package textcodec

import (
	"fmt"
	"os"

	"bdsp-batch-editor/internal/datatree"
	"bdsp-batch-editor/internal/errs"
)

// Ext is the extension used for every extracted file.
const Ext = ".json"

// Parse decodes data into a normalized content tree.
func Parse(data []byte) (any, error) {
	d := &decoder{data: data}
	d.skipSpace()
	v, err := d.value(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrParse, err)
	}
	d.skipSpace()
	if d.pos < len(d.data) {
		return nil, fmt.Errorf("%w: trailing data at offset %d", errs.ErrParse, d.pos)
	}
	return v, nil
}

// Format encodes a content tree with four-space indentation, sorted keys and
// a trailing newline.
func Format(tree any) ([]byte, error) {
	norm, err := datatree.Normalize(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrFormat, err)
	}
	e := &encoder{}
	e.value(norm, 0)
	e.buf.WriteByte('\n')
	return e.buf.Bytes(), nil
}

// ReadFile parses the file at path.
func ReadFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap("read", path, fmt.Errorf("%w: %w", errs.ErrExtractedFileMissing, err))
		}
		return nil, errs.Wrap("read", path, fmt.Errorf("%w: %w", errs.ErrIO, err))
	}
	tree, err := Parse(data)
	if err != nil {
		return nil, errs.Wrap("parse", path, err)
	}
	return tree, nil
}

// WriteFile formats tree and writes it to path.
func WriteFile(path string, tree any) error {
	data, err := Format(tree)
	if err != nil {
		return errs.Wrap("format", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Wrap("write", path, fmt.Errorf("%w: %w", errs.ErrIO, err))
	}
	return nil
}
