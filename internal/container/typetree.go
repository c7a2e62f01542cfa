package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"bdsp-batch-editor/internal/datatree"
)

// Value tags of the object payload encoding.
const (
	tagNil byte = iota
	tagFalse
	tagTrue
	tagInt
	tagUint
	tagFloat
	tagString
	tagSequence
	tagMapping
)

const maxDepth = 256

var errTruncated = errors.New("truncated payload")

// encodeTree writes a normalized content tree. Mapping keys are written in
// sorted order so equal trees always produce equal bytes.
func encodeTree(tree any) ([]byte, error) {
	norm, err := datatree.Normalize(tree)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if err := writeValue(buf, norm, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v any, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("tree nested deeper than %d", maxDepth)
	}
	var scratch [8]byte
	switch t := v.(type) {
	case nil:
		buf.WriteByte(tagNil)
	case bool:
		if t {
			buf.WriteByte(tagTrue)
		} else {
			buf.WriteByte(tagFalse)
		}
	case int64:
		buf.WriteByte(tagInt)
		binary.LittleEndian.PutUint64(scratch[:], uint64(t))
		buf.Write(scratch[:])
	case uint64:
		buf.WriteByte(tagUint)
		binary.LittleEndian.PutUint64(scratch[:], t)
		buf.Write(scratch[:])
	case float64:
		buf.WriteByte(tagFloat)
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(t))
		buf.Write(scratch[:])
	case string:
		buf.WriteByte(tagString)
		writeString(buf, t)
	case []any:
		buf.WriteByte(tagSequence)
		writeLen(buf, len(t))
		for _, e := range t {
			if err := writeValue(buf, e, depth+1); err != nil {
				return err
			}
		}
	case map[string]any:
		buf.WriteByte(tagMapping)
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		writeLen(buf, len(keys))
		for _, k := range keys {
			writeString(buf, k)
			if err := writeValue(buf, t[k], depth+1); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

func writeLen(buf *bytes.Buffer, n int) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(n))
	buf.Write(scratch[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeLen(buf, len(s))
	buf.WriteString(s)
}

// decodeTree reads one payload. The whole payload must be consumed.
func decodeTree(payload []byte) (any, error) {
	r := bytes.NewReader(payload)
	v, err := readValue(r, 0)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after value", r.Len())
	}
	return v, nil
}

func readValue(r *bytes.Reader, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("tree nested deeper than %d", maxDepth)
	}
	tag, err := r.ReadByte()
	if err != nil {
		return nil, errTruncated
	}
	switch tag {
	case tagNil:
		return nil, nil
	case tagFalse:
		return false, nil
	case tagTrue:
		return true, nil
	case tagInt:
		u, err := readUint64(r)
		return int64(u), err
	case tagUint:
		return readUint64(r)
	case tagFloat:
		u, err := readUint64(r)
		return math.Float64frombits(u), err
	case tagString:
		return readString(r)
	case tagSequence:
		n, err := readLen(r)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, n)
		for i := 0; i < n; i++ {
			e, err := readValue(r, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	case tagMapping:
		n, err := readLen(r)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, n)
		for i := 0; i < n; i++ {
			k, err := readString(r)
			if err != nil {
				return nil, err
			}
			e, err := readValue(r, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = e
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown value tag 0x%02x", tag)
	}
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var scratch [8]byte
	if _, err := io.ReadFull(r, scratch[:]); err != nil {
		return 0, errTruncated
	}
	return binary.LittleEndian.Uint64(scratch[:]), nil
}

// readLen reads a count and rejects values that cannot fit in what is left.
func readLen(r *bytes.Reader) (int, error) {
	var scratch [4]byte
	if _, err := io.ReadFull(r, scratch[:]); err != nil {
		return 0, errTruncated
	}
	n := int(binary.LittleEndian.Uint32(scratch[:]))
	if n > r.Len() {
		return 0, errTruncated
	}
	return n, nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readLen(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", errTruncated
	}
	return string(b), nil
}
