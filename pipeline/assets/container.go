package assets

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/spaghettifunk/atlante/pipeline/core"
)

/** @brief A magic number indicating the file as an atlante binary asset. */
const ContainerMagic uint32 = 0xa71a47e1

/** @brief The asset container format version. */
const ContainerVersion uint8 = 1

/** @brief The maximum number of data chunks an asset can carry. */
const MaxChunks = 16

/** @brief A single typed data chunk of an asset container. */
type Chunk struct {
	Data []byte
}

// Get returns the chunk payload.
func (c *Chunk) Get() []byte {
	return c.Data
}

// Allocate resizes the chunk payload to the given size.
func (c *Chunk) Allocate(size int) {
	c.Data = make([]byte, size)
}

/**
 * @brief A chunked binary asset container: identity, type, a custom data
 * blob for the asset header and up to MaxChunks payload chunks.
 */
type Container struct {
	/** @brief The unique asset identifier. */
	ID uuid.UUID
	/** @brief The asset type name (e.g. "Model", "Shader", "Texture"). */
	TypeName string
	/** @brief The serialized version of the asset type. */
	SerializedVersion uint32
	/** @brief The asset-specific header blob. */
	CustomData []byte
	/** @brief The import metadata document, empty when the import skipped it. */
	Metadata []byte
	/** @brief The payload Chunks. Unallocated entries are nil. */
	Chunks [MaxChunks]*Chunk
}

// NewContainer returns an empty container with a fresh identifier.
func NewContainer(typeName string, serializedVersion uint32) *Container {
	return &Container{
		ID:                uuid.New(),
		TypeName:          typeName,
		SerializedVersion: serializedVersion,
	}
}

// AllocateChunk creates the chunk at the given index.
func (c *Container) AllocateChunk(index int) error {
	if index < 0 || index >= MaxChunks {
		return fmt.Errorf("%w: index %d out of range", core.ErrCannotAllocateChunk, index)
	}
	if c.Chunks[index] != nil {
		return fmt.Errorf("%w: chunk %d is already allocated", core.ErrCannotAllocateChunk, index)
	}
	c.Chunks[index] = &Chunk{}
	return nil
}

// Write serializes the container.
func (c *Container) Write(w io.Writer) error {
	write := func(v any) error { return binary.Write(w, binary.LittleEndian, v) }

	if err := write(ContainerMagic); err != nil {
		return err
	}
	if err := write(ContainerVersion); err != nil {
		return err
	}
	if err := write(c.ID); err != nil {
		return err
	}
	if err := writeString(w, c.TypeName); err != nil {
		return err
	}
	if err := write(c.SerializedVersion); err != nil {
		return err
	}
	if err := write(uint32(len(c.CustomData))); err != nil {
		return err
	}
	if _, err := w.Write(c.CustomData); err != nil {
		return err
	}
	if err := write(uint32(len(c.Metadata))); err != nil {
		return err
	}
	if _, err := w.Write(c.Metadata); err != nil {
		return err
	}

	count := uint8(0)
	for _, chunk := range c.Chunks {
		if chunk != nil {
			count++
		}
	}
	if err := write(count); err != nil {
		return err
	}
	for index, chunk := range c.Chunks {
		if chunk == nil {
			continue
		}
		if err := write(uint8(index)); err != nil {
			return err
		}
		if err := write(uint32(len(chunk.Data))); err != nil {
			return err
		}
		if _, err := w.Write(chunk.Data); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the container to the given file path.
func (c *Container) Save(path string) error {
	var buffer bytes.Buffer
	if err := c.Write(&buffer); err != nil {
		return err
	}
	return os.WriteFile(path, buffer.Bytes(), 0o644)
}

// Read deserializes a container.
func Read(r io.Reader) (*Container, error) {
	read := func(v any) error { return binary.Read(r, binary.LittleEndian, v) }

	var magic uint32
	if err := read(&magic); err != nil {
		return nil, err
	}
	if magic != ContainerMagic {
		return nil, fmt.Errorf("not an atlante asset (magic 0x%08x)", magic)
	}
	var version uint8
	if err := read(&version); err != nil {
		return nil, err
	}
	if version != ContainerVersion {
		return nil, fmt.Errorf("unsupported asset container version %d", version)
	}

	container := &Container{}
	if err := read(&container.ID); err != nil {
		return nil, err
	}
	typeName, err := readString(r)
	if err != nil {
		return nil, err
	}
	container.TypeName = typeName
	if err := read(&container.SerializedVersion); err != nil {
		return nil, err
	}

	var customLen uint32
	if err := read(&customLen); err != nil {
		return nil, err
	}
	container.CustomData = make([]byte, customLen)
	if _, err := io.ReadFull(r, container.CustomData); err != nil {
		return nil, err
	}
	var metadataLen uint32
	if err := read(&metadataLen); err != nil {
		return nil, err
	}
	container.Metadata = make([]byte, metadataLen)
	if _, err := io.ReadFull(r, container.Metadata); err != nil {
		return nil, err
	}

	var count uint8
	if err := read(&count); err != nil {
		return nil, err
	}
	for i := uint8(0); i < count; i++ {
		var index uint8
		if err := read(&index); err != nil {
			return nil, err
		}
		if index >= MaxChunks {
			return nil, fmt.Errorf("chunk index %d out of range", index)
		}
		var length uint32
		if err := read(&length); err != nil {
			return nil, err
		}
		chunk := &Chunk{Data: make([]byte, length)}
		if _, err := io.ReadFull(r, chunk.Data); err != nil {
			return nil, err
		}
		container.Chunks[index] = chunk
	}

	return container, nil
}

// Load reads a container from the given file path.
func Load(path string) (*Container, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file)
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
