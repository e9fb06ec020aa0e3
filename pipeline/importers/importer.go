package importers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/atlante/pipeline/core"
	"github.com/spaghettifunk/atlante/pipeline/model"
)

/**
 * @brief A model source file import backend. Each backend owns one or more
 * source file formats and fills the unified imported data container.
 */
type Backend interface {
	// Name returns the backend name used for logging.
	Name() string
	// CanImport reports whether the backend handles the given file extension (with leading dot, lowercase).
	CanImport(extension string) bool
	// Import parses the source file and fills the requested data types.
	Import(path string, data *model.ImportedModelData, options *model.Options) error
}

var backends = []Backend{
	&GLTFBackend{},
	&OBJBackend{},
}

// RegisterBackend adds a custom import backend, checked before the built-in ones.
func RegisterBackend(backend Backend) {
	backends = append([]Backend{backend}, backends...)
}

// selectBackend picks the import backend for the source file path.
func selectBackend(path string) (Backend, error) {
	extension := strings.ToLower(filepath.Ext(path))
	for _, backend := range backends {
		if backend.CanImport(extension) {
			return backend, nil
		}
	}
	return nil, fmt.Errorf("%w: '%s'", core.ErrUnsupportedFormat, extension)
}

/**
 * @brief Imports the model source file data. Picks a backend by the file
 * extension, runs it, and leaves the raw data untouched (no post-processing).
 */
func ImportData(path string, data *model.ImportedModelData, options *model.Options) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: '%s'", core.ErrInvalidPath, path)
	}

	backend, err := selectBackend(path)
	if err != nil {
		return err
	}

	clock := core.NewClock()
	clock.Start()

	if err := backend.Import(path, data, options); err != nil {
		core.MetricsRecordFailure()
		return fmt.Errorf("%s backend failed to import '%s': %w", backend.Name(), path, err)
	}

	clock.Update()
	core.MetricsRecordImport("model", clock.ElapsedMS())
	core.LogInfo("Imported '%s' via %s in %.2f ms.", path, backend.Name(), clock.ElapsedMS())

	return nil
}

/**
 * @brief Imports the model: runs ImportData and the post-processing steps,
 * and optionally auto-imports the referenced textures and materials into
 * autoImportOutput.
 */
func ImportModel(path string, data *model.ImportedModelData, options *model.Options, autoImportOutput string) error {
	if data.Types == model.ImportDataTypesNone {
		data.Types = importTypesForOptions(options)
	}

	if err := ImportData(path, data, options); err != nil {
		return err
	}

	if data.Types.Has(model.ImportDataTypesGeometry) {
		empty := true
		for li := range data.LODs {
			if len(data.LODs[li].Meshes) > 0 {
				empty = false
				break
			}
		}
		if empty {
			return fmt.Errorf("%w: '%s'", core.ErrEmptyGeometry, path)
		}
	}

	if err := model.PostProcess(data, options); err != nil {
		return err
	}

	if autoImportOutput != "" && options.ImportTextures && data.Types.Has(model.ImportDataTypesTextures) {
		if err := AutoImportTextures(path, data, autoImportOutput); err != nil {
			// Texture auto-import failures do not abort the model import.
			core.LogWarn("Failed to auto-import textures for '%s': %v", path, err)
		}
	}

	if autoImportOutput != "" && options.ImportMaterials && data.Types.Has(model.ImportDataTypesMaterials) {
		if err := CreateMaterialAssets(data, autoImportOutput, options.RestoreMaterialsOnReimport); err != nil {
			core.LogWarn("Failed to create material assets for '%s': %v", path, err)
		}
	}

	return nil
}

// importTypesForOptions resolves the data types to import for the asset type.
func importTypesForOptions(options *model.Options) model.ImportDataTypes {
	switch options.Type {
	case model.ModelTypeSkinnedModel:
		types := model.ImportDataTypesGeometry | model.ImportDataTypesSkeleton | model.ImportDataTypesNodes
		if options.ImportMaterials {
			types |= model.ImportDataTypesMaterials
		}
		if options.ImportTextures {
			types |= model.ImportDataTypesTextures
		}
		return types
	case model.ModelTypeAnimation:
		return model.ImportDataTypesAnimations | model.ImportDataTypesNodes
	default:
		types := model.ImportDataTypesGeometry | model.ImportDataTypesNodes
		if options.ImportMaterials {
			types |= model.ImportDataTypesMaterials
		}
		if options.ImportTextures {
			types |= model.ImportDataTypesTextures
		}
		return types
	}
}

/**
 * @brief Resolves a texture file referenced by the model source file.
 * Tries the reference as-is, then relative to the source file, then inside
 * common texture subdirectories next to it.
 */
func FindTexture(sourcePath, file string) (string, error) {
	if filepath.IsAbs(file) {
		if _, err := os.Stat(file); err == nil {
			return file, nil
		}
	}

	sourceDir := filepath.Dir(sourcePath)
	candidates := []string{
		filepath.Join(sourceDir, file),
		filepath.Join(sourceDir, filepath.Base(file)),
		filepath.Join(sourceDir, "textures", filepath.Base(file)),
		filepath.Join(sourceDir, "Textures", filepath.Base(file)),
		filepath.Join(sourceDir, "..", "textures", filepath.Base(file)),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("texture '%s' referenced by '%s' was not found", file, sourcePath)
}
