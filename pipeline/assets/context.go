package assets

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

/** @brief The result of an asset create/import operation. */
type CreateResult int

const (
	// The asset was created successfully.
	CreateResultOk CreateResult = iota
	// The operation was aborted.
	CreateResultAbort
	// The operation failed.
	CreateResultError
	// The source file path is invalid or unreadable.
	CreateResultInvalidPath
	// A data chunk could not be allocated.
	CreateResultCannotAllocateChunk
	// The source file format or contents are invalid.
	CreateResultInvalidData
)

func (r CreateResult) String() string {
	switch r {
	case CreateResultOk:
		return "Ok"
	case CreateResultAbort:
		return "Abort"
	case CreateResultError:
		return "Error"
	case CreateResultInvalidPath:
		return "InvalidPath"
	case CreateResultCannotAllocateChunk:
		return "CannotAllocateChunk"
	case CreateResultInvalidData:
		return "InvalidData"
	}
	return "Unknown"
}

/**
 * @brief The context of a single asset create/import operation: the source
 * and destination paths and the container being filled.
 */
type CreateAssetContext struct {
	/** @brief The source file path. */
	InputPath string
	/** @brief The destination asset file path. */
	OutputPath string
	/** @brief The asset container being built. */
	Data *Container
	/** @brief Skips writing the source-path metadata into the container. */
	SkipMetadata bool
}

// NewCreateAssetContext builds an import context for the given paths. When
// the destination already exists its asset identifier is preserved so
// reimports keep references valid.
func NewCreateAssetContext(inputPath, outputPath, typeName string, serializedVersion uint32) *CreateAssetContext {
	container := NewContainer(typeName, serializedVersion)
	if previous, err := Load(outputPath); err == nil {
		container.ID = previous.ID
	}
	return &CreateAssetContext{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Data:       container,
	}
}

// AllocateChunk creates the container chunk at the given index.
func (c *CreateAssetContext) AllocateChunk(index int) error {
	return c.Data.AllocateChunk(index)
}

/** @brief The import metadata stored alongside the asset payload. */
type ImportMetadata struct {
	/** @brief The source file the asset was imported from. */
	ImportPath string `toml:"import_path"`
	/** @brief The import timestamp (RFC 3339, UTC). */
	ImportedAt string `toml:"imported_at"`
}

// Save persists the container to the output path, writing the import
// metadata unless the context skips it.
func (c *CreateAssetContext) Save() error {
	if !c.SkipMetadata && c.InputPath != "" {
		metadata, err := toml.Marshal(&ImportMetadata{
			ImportPath: c.InputPath,
			ImportedAt: time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		c.Data.Metadata = metadata
	}
	return c.Data.Save(c.OutputPath)
}

// Metadata decodes the import metadata of a loaded container, or nil when
// the asset carries none.
func Metadata(container *Container) (*ImportMetadata, error) {
	if len(container.Metadata) == 0 {
		return nil, nil
	}
	var metadata ImportMetadata
	if err := toml.Unmarshal(container.Metadata, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

// AssetID returns the identifier of the asset being created.
func (c *CreateAssetContext) AssetID() uuid.UUID {
	return c.Data.ID
}

// AssetName returns a display name for the asset derived from the output path.
func (c *CreateAssetContext) AssetName() string {
	base := filepath.Base(c.OutputPath)
	return base[:len(base)-len(filepath.Ext(base))]
}
