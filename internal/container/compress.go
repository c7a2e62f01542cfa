package container

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// maxBlockSize bounds the payload block a header may declare.
const maxBlockSize = 1 << 30

func compress(kind uint32, block []byte) ([]byte, error) {
	switch kind {
	case CompressionNone:
		return block, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("init zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(block, make([]byte, 0, len(block)/2)), nil
	default:
		return nil, fmt.Errorf("unsupported compression kind %d", kind)
	}
}

func decompress(kind uint32, stored []byte, rawSize int) ([]byte, error) {
	switch kind {
	case CompressionNone:
		if len(stored) != rawSize {
			return nil, fmt.Errorf("stored block is %d bytes, header says %d", len(stored), rawSize)
		}
		return stored, nil
	case CompressionZstd:
		if rawSize < 0 || rawSize > maxBlockSize {
			return nil, fmt.Errorf("header declares a %d byte block, limit is %d", rawSize, maxBlockSize)
		}
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(uint64(max(rawSize, 1))))
		if err != nil {
			return nil, fmt.Errorf("init zstd decoder: %w", err)
		}
		defer dec.Close()
		block, err := dec.DecodeAll(stored, make([]byte, 0, min(rawSize, 1<<26)))
		if err != nil {
			return nil, fmt.Errorf("decompress block: %w", err)
		}
		if len(block) != rawSize {
			return nil, fmt.Errorf("decompressed block is %d bytes, header says %d", len(block), rawSize)
		}
		return block, nil
	default:
		return nil, fmt.Errorf("unsupported compression kind %d", kind)
	}
}
