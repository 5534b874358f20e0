package scene

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	glbMagic       = "glTF"
	glbVersion     = 2
	glbHeaderSize  = 12
	glbChunkHeader = 8
	glbChunkJSON   = 0x4E4F534A // "JSON"
)

// IsGLB reports whether data starts with the binary glTF magic
func IsGLB(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], []byte(glbMagic))
}

// GLBJSON extracts the JSON chunk of a binary glTF container
func GLBJSON(data []byte) ([]byte, error) {
	if len(data) < glbHeaderSize+glbChunkHeader {
		return nil, fmt.Errorf("%w: glb container truncated", ErrMalformed)
	}
	if !IsGLB(data) {
		return nil, fmt.Errorf("%w: glb magic missing", ErrMalformed)
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	if version != glbVersion {
		return nil, fmt.Errorf("%w: glb version %d unsupported", ErrMalformed, version)
	}
	total := binary.LittleEndian.Uint32(data[8:12])
	if int(total) > len(data) {
		return nil, fmt.Errorf("%w: glb declares %d bytes, have %d", ErrMalformed, total, len(data))
	}

	chunkLen := binary.LittleEndian.Uint32(data[12:16])
	chunkType := binary.LittleEndian.Uint32(data[16:20])
	if chunkType != glbChunkJSON {
		return nil, fmt.Errorf("%w: first glb chunk is not JSON", ErrMalformed)
	}
	start := glbHeaderSize + glbChunkHeader
	end := start + int(chunkLen)
	if end > int(total) {
		return nil, fmt.Errorf("%w: glb JSON chunk overruns container", ErrMalformed)
	}

	// Trailing space padding is valid JSON whitespace
	return data[start:end], nil
}
