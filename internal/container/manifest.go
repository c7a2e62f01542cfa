package container

import (
	"fmt"

	"bdsp-batch-editor/internal/datatree"
	"bdsp-batch-editor/internal/errs"
)

// FromManifest builds a container from a parsed manifest tree of the form
//
//	{"packer": {"data_flags": 64, "block_info_flags": 2},
//	 "objects": [{"path_id": 1, "type": "MonoBehaviour", "content": {...}}]}
//
// The packer is optional and defaults to DefaultPacker.
func FromManifest(tree any) (*Container, error) {
	m, ok := datatree.Mapping(tree)
	if !ok {
		return nil, fmt.Errorf("read manifest: %w: top level is %T", errs.ErrInvalidFormat, tree)
	}

	c := New()
	if p, ok := datatree.Mapping(m["packer"]); ok {
		data, okData := datatree.Int(p["data_flags"])
		block, okBlock := datatree.Int(p["block_info_flags"])
		if !okData || !okBlock || data < 0 || block < 0 {
			return nil, fmt.Errorf("read manifest: %w: packer needs data_flags and block_info_flags", errs.ErrInvalidFormat)
		}
		c.packer = Packer{DataFlags: uint32(data), BlockInfoFlags: uint32(block)}
	}

	objects, ok := datatree.Sequence(m["objects"])
	if !ok {
		return nil, fmt.Errorf("read manifest: %w: no objects sequence", errs.ErrInvalidFormat)
	}
	for i, o := range objects {
		obj, ok := datatree.Mapping(o)
		if !ok {
			return nil, fmt.Errorf("read manifest: %w: object %d is not a mapping", errs.ErrInvalidFormat, i)
		}
		id, ok := datatree.Int(obj["path_id"])
		if !ok {
			return nil, fmt.Errorf("read manifest: %w: object %d has no path_id", errs.ErrInvalidFormat, i)
		}
		typeName := datatree.String(obj, "type")
		if typeName == "" {
			return nil, fmt.Errorf("read manifest: %w: object %d has no type", errs.ErrInvalidFormat, i)
		}
		if err := c.Add(id, typeName, obj["content"]); err != nil {
			return nil, fmt.Errorf("read manifest: object %d: %w", i, err)
		}
	}
	return c, nil
}
