// Package container reads and writes the binary asset container that holds
// the game's embedded data objects.
//
// Layout (little endian):
//
//	magic        [8]byte  "BDSPCNT\x00"
//	version      uint32
//	dataFlags    uint32
//	blockFlags   uint32   low 6 bits select the payload compression
//	objectCount  uint32
//	objects      objectCount x { pathID int64, typeName string16, size uint32 }
//	rawSize      uint32
//	storedSize   uint32
//	payloads     storedSize bytes, possibly compressed
//
// Object payloads are kept as raw bytes until written, so objects that are
// never rewritten serialize back exactly as they were read.
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"bdsp-batch-editor/internal/datatree"
	"bdsp-batch-editor/internal/errs"
)

const (
	formatVersion   uint32 = 1
	compressionMask uint32 = 0x3f
	maxObjects             = 1 << 20
)

var magic = [8]byte{'B', 'D', 'S', 'P', 'C', 'N', 'T', 0}

// Compression kinds selected by Packer.BlockInfoFlags.
const (
	CompressionNone uint32 = 0
	CompressionZstd uint32 = 2
)

// Packer fixes the flags written into a serialized container. Tools that
// read the output expect DefaultPacker, so rebuilds always use it.
type Packer struct {
	DataFlags      uint32
	BlockInfoFlags uint32
}

// DefaultPacker is the packing configuration used for every rebuild.
var DefaultPacker = Packer{DataFlags: 64, BlockInfoFlags: CompressionZstd}

// Compression returns the compression kind encoded in the block flags.
func (p Packer) Compression() uint32 {
	return p.BlockInfoFlags & compressionMask
}

// ObjectInfo identifies one embedded object.
type ObjectInfo struct {
	PathID   int64
	TypeName string
	Size     int
}

type object struct {
	pathID   int64
	typeName string
	raw      []byte
}

// Container is an ordered set of embedded objects addressed by path id.
type Container struct {
	packer  Packer
	objects []*object
	index   map[int64]*object
}

// New returns an empty container that serializes with DefaultPacker.
func New() *Container {
	return &Container{
		packer: DefaultPacker,
		index:  make(map[int64]*object),
	}
}

// Open reads and decodes the container file at path.
func Open(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap("open container", path, fmt.Errorf("%w: %w", errs.ErrContainerNotFound, err))
		}
		return nil, errs.Wrap("open container", path, fmt.Errorf("%w: %w", errs.ErrIO, err))
	}
	c, err := Decode(data)
	if err != nil {
		return nil, errs.Wrap("open container", path, err)
	}
	return c, nil
}

// Decode parses a serialized container.
func Decode(data []byte) (*Container, error) {
	c, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrContainerUnreadable, err)
	}
	return c, nil
}

func decode(r *bytes.Reader) (*Container, error) {
	var head struct {
		Magic      [8]byte
		Version    uint32
		DataFlags  uint32
		BlockFlags uint32
		Count      uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &head); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if head.Magic != magic {
		return nil, errors.New("bad magic")
	}
	if head.Version != formatVersion {
		return nil, fmt.Errorf("unsupported format version %d", head.Version)
	}
	if head.Count > maxObjects {
		return nil, fmt.Errorf("object count %d out of range", head.Count)
	}

	c := New()
	c.packer = Packer{DataFlags: head.DataFlags, BlockInfoFlags: head.BlockFlags}

	sizes := make([]uint32, head.Count)
	for i := range sizes {
		var pathID int64
		if err := binary.Read(r, binary.LittleEndian, &pathID); err != nil {
			return nil, fmt.Errorf("read object %d: %w", i, err)
		}
		var nameLen uint16
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("read object %d: %w", i, err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("read object %d type name: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &sizes[i]); err != nil {
			return nil, fmt.Errorf("read object %d: %w", i, err)
		}
		if _, dup := c.index[pathID]; dup {
			return nil, fmt.Errorf("duplicate path id %d", pathID)
		}
		obj := &object{pathID: pathID, typeName: string(name)}
		c.objects = append(c.objects, obj)
		c.index[pathID] = obj
	}

	var rawSize, storedSize uint32
	if err := binary.Read(r, binary.LittleEndian, &rawSize); err != nil {
		return nil, fmt.Errorf("read block header: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &storedSize); err != nil {
		return nil, fmt.Errorf("read block header: %w", err)
	}
	if int64(storedSize) != int64(r.Len()) {
		return nil, fmt.Errorf("block size %d does not match remaining %d bytes", storedSize, r.Len())
	}
	stored := make([]byte, storedSize)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, fmt.Errorf("read block: %w", err)
	}
	block, err := decompress(c.packer.Compression(), stored, int(rawSize))
	if err != nil {
		return nil, err
	}

	var off uint64
	for i, obj := range c.objects {
		end := off + uint64(sizes[i])
		if end > uint64(len(block)) {
			return nil, fmt.Errorf("object %d payload exceeds block", obj.pathID)
		}
		obj.raw = block[off:end:end]
		off = end
	}
	if off != uint64(len(block)) {
		return nil, fmt.Errorf("%d unclaimed bytes in block", uint64(len(block))-off)
	}
	return c, nil
}

// Packer returns the packing flags the container was read with.
func (c *Container) Packer() Packer {
	return c.packer
}

// Len returns the number of objects.
func (c *Container) Len() int {
	return len(c.objects)
}

// Objects lists every object in container order.
func (c *Container) Objects() []ObjectInfo {
	out := make([]ObjectInfo, len(c.objects))
	for i, obj := range c.objects {
		out[i] = ObjectInfo{PathID: obj.pathID, TypeName: obj.typeName, Size: len(obj.raw)}
	}
	return out
}

// Add appends a new object.
func (c *Container) Add(pathID int64, typeName string, content any) error {
	if _, dup := c.index[pathID]; dup {
		return fmt.Errorf("add object %d: %w", pathID, errs.ErrDuplicatePathID)
	}
	if len(typeName) > 0xffff {
		return fmt.Errorf("add object %d: type name too long", pathID)
	}
	raw, err := encodeTree(content)
	if err != nil {
		return fmt.Errorf("add object %d: %w", pathID, err)
	}
	obj := &object{pathID: pathID, typeName: typeName, raw: raw}
	c.objects = append(c.objects, obj)
	c.index[pathID] = obj
	return nil
}

// ReadContent decodes the content tree of one object. The returned tree is
// owned by the caller.
func (c *Container) ReadContent(pathID int64) (any, error) {
	obj, ok := c.index[pathID]
	if !ok {
		return nil, fmt.Errorf("read object %d: %w", pathID, errs.ErrNotFound)
	}
	tree, err := decodeTree(obj.raw)
	if err != nil {
		return nil, fmt.Errorf("read object %d: %w: %w", pathID, errs.ErrContainerUnreadable, err)
	}
	return tree, nil
}

// WriteContent replaces the content of an existing object, keeping its path
// id and position.
func (c *Container) WriteContent(pathID int64, tree any) error {
	obj, ok := c.index[pathID]
	if !ok {
		return fmt.Errorf("write object %d: %w", pathID, errs.ErrNotFound)
	}
	raw, err := encodeTree(tree)
	if err != nil {
		return fmt.Errorf("write object %d: %w: %w", pathID, errs.ErrFormat, err)
	}
	obj.raw = raw
	return nil
}

// Serialize packs the container with the given flags.
func (c *Container) Serialize(p Packer) ([]byte, error) {
	var block bytes.Buffer
	for _, obj := range c.objects {
		block.Write(obj.raw)
	}
	if uint64(block.Len()) > 0xffffffff {
		return nil, errors.New("serialize: payload block exceeds 4 GiB")
	}
	stored, err := compress(p.Compression(), block.Bytes())
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}

	out := new(bytes.Buffer)
	out.Write(magic[:])
	for _, v := range []uint32{formatVersion, p.DataFlags, p.BlockInfoFlags, uint32(len(c.objects))} {
		_ = binary.Write(out, binary.LittleEndian, v)
	}
	for _, obj := range c.objects {
		_ = binary.Write(out, binary.LittleEndian, obj.pathID)
		_ = binary.Write(out, binary.LittleEndian, uint16(len(obj.typeName)))
		out.WriteString(obj.typeName)
		_ = binary.Write(out, binary.LittleEndian, uint32(len(obj.raw)))
	}
	_ = binary.Write(out, binary.LittleEndian, uint32(block.Len()))
	_ = binary.Write(out, binary.LittleEndian, uint32(len(stored)))
	out.Write(stored)
	return out.Bytes(), nil
}

// ContentEqual reports whether two containers hold the same objects, in the
// same order, with equal content trees.
func ContentEqual(a, b *Container) (bool, error) {
	if a.Len() != b.Len() {
		return false, nil
	}
	for i, oa := range a.objects {
		ob := b.objects[i]
		if oa.pathID != ob.pathID || oa.typeName != ob.typeName {
			return false, nil
		}
		if bytes.Equal(oa.raw, ob.raw) {
			continue
		}
		ta, err := a.ReadContent(oa.pathID)
		if err != nil {
			return false, err
		}
		tb, err := b.ReadContent(ob.pathID)
		if err != nil {
			return false, err
		}
		if !datatree.Equal(ta, tb) {
			return false, nil
		}
	}
	return true, nil
}
