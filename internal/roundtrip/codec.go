package roundtrip

import (
	"bdsp-batch-editor/internal/container"
)

// Archive is the view of an opened container that extraction and rebuild
// work against.
type Archive interface {
	Objects() []container.ObjectInfo
	ReadContent(pathID int64) (any, error)
	WriteContent(pathID int64, tree any) error
	Serialize(p container.Packer) ([]byte, error)
}

// Codec opens containers from disk.
type Codec interface {
	Open(path string) (Archive, error)
}

// ContainerCodec opens files with the container package.
type ContainerCodec struct{}

// Open implements Codec.
func (ContainerCodec) Open(path string) (Archive, error) {
	c, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	return c, nil
}

var _ Archive = (*container.Container)(nil)
