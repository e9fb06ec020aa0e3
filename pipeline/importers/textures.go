package importers

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	stddraw "image/draw"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/image/draw"

	"github.com/spaghettifunk/atlante/pipeline/assets"
	"github.com/spaghettifunk/atlante/pipeline/core"
	"github.com/spaghettifunk/atlante/pipeline/model"
)

const (
	// assetFileExtension is the extension of generated asset containers.
	assetFileExtension = ".atl"

	// maxTextureDimension clamps auto-imported texture sizes.
	maxTextureDimension = 4096

	textureTypeName          = "Atlante.Texture"
	textureSerializedVersion = 1

	materialTypeName          = "Atlante.Material"
	materialSerializedVersion = 1
)

// texturePixelsChunk is the container chunk holding the RGBA pixel data.
const texturePixelsChunk = 0

// textureHeader precedes the pixel data inside the chunk.
type textureHeader struct {
	Width  int32
	Height int32
	// Format is always RGBA8 for now.
	Format int32
}

const textureFormatRGBA8 int32 = 1

/**
 * @brief Imports every texture referenced by the model into standalone
 * texture assets inside outputDir and records their asset identifiers back
 * into the texture entries. A texture that fails to resolve or decode is
 * skipped with a warning so the model import itself can still succeed.
 */
func AutoImportTextures(sourcePath string, data *model.ImportedModelData, outputDir string) error {
	if len(data.Textures) == 0 {
		return nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	for i := range data.Textures {
		entry := &data.Textures[i]
		if err := importTexture(sourcePath, entry, i, outputDir); err != nil {
			core.LogWarn("Skipping texture '%s': %v", entry.FilePath, err)
			core.MetricsRecordFailure()
		}
	}
	return nil
}

// importTexture converts a single texture entry into an asset container.
func importTexture(sourcePath string, entry *model.TextureEntry, index int, outputDir string) error {
	var (
		img  image.Image
		name string
		err  error
	)
	if len(entry.Data) > 0 {
		img, _, err = image.Decode(bytes.NewReader(entry.Data))
		name = fmt.Sprintf("Texture%d", index)
	} else {
		var path string
		path, err = FindTexture(sourcePath, entry.FilePath)
		if err != nil {
			return err
		}
		var file *os.File
		file, err = os.Open(path)
		if err != nil {
			return err
		}
		img, _, err = image.Decode(file)
		file.Close()
		name = assetNameFromFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}

	rgba := toRGBA(img)
	if rgba.Rect.Dx() > maxTextureDimension || rgba.Rect.Dy() > maxTextureDimension {
		rgba = downscale(rgba, maxTextureDimension)
	}

	clock := core.NewClock()
	clock.Start()

	outputPath := filepath.Join(outputDir, name+assetFileExtension)
	context := assets.NewCreateAssetContext("", outputPath, textureTypeName, textureSerializedVersion)
	context.SkipMetadata = true
	if err := context.AllocateChunk(texturePixelsChunk); err != nil {
		return err
	}

	var payload bytes.Buffer
	header := textureHeader{
		Width:  int32(rgba.Rect.Dx()),
		Height: int32(rgba.Rect.Dy()),
		Format: textureFormatRGBA8,
	}
	if err := binary.Write(&payload, binary.LittleEndian, &header); err != nil {
		return err
	}
	payload.Write(rgba.Pix)

	chunk := context.Data.Chunks[texturePixelsChunk]
	chunk.Allocate(payload.Len())
	copy(chunk.Data, payload.Bytes())

	if err := context.Save(); err != nil {
		return err
	}
	entry.AssetID = context.AssetID()

	clock.Update()
	core.MetricsRecordImport("texture", clock.ElapsedMS())
	core.LogDebug("Imported texture '%s' (%dx%d) in %.2f ms.", name, header.Width, header.Height, clock.ElapsedMS())

	return nil
}

// materialDocument is the material asset payload, stored as TOML in chunk 0.
type materialDocument struct {
	Name            string     `toml:"name"`
	DiffuseColor    [4]float32 `toml:"diffuse_color"`
	EmissiveColor   [3]float32 `toml:"emissive_color"`
	Opacity         float32    `toml:"opacity"`
	TwoSided        bool       `toml:"two_sided"`
	DiffuseTexture  string     `toml:"diffuse_texture,omitempty"`
	NormalsTexture  string     `toml:"normals_texture,omitempty"`
	EmissiveTexture string     `toml:"emissive_texture,omitempty"`
	OpacityTexture  string     `toml:"opacity_texture,omitempty"`
}

/**
 * @brief Writes the model material slots out as standalone material assets
 * referencing the auto-imported textures. With restore set, material assets
 * that already exist in outputDir are left untouched so edits made after a
 * previous import survive the reimport.
 */
func CreateMaterialAssets(data *model.ImportedModelData, outputDir string, restore bool) error {
	if len(data.Materials) == 0 {
		return nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	for i := range data.Materials {
		material := &data.Materials[i]
		name := material.Name
		if name == "" {
			name = fmt.Sprintf("Material%d", i)
		}
		outputPath := filepath.Join(outputDir, sanitizeAssetName(name)+assetFileExtension)

		if restore {
			if _, err := os.Stat(outputPath); err == nil {
				core.LogDebug("Keeping existing material asset '%s'.", outputPath)
				continue
			}
		}

		document := materialDocument{
			Name:            name,
			DiffuseColor:    material.DiffuseColor,
			EmissiveColor:   material.EmissiveColor,
			Opacity:         material.Opacity,
			TwoSided:        material.TwoSided,
			DiffuseTexture:  textureReference(data, material.DiffuseTextureIndex),
			NormalsTexture:  textureReference(data, material.NormalsTextureIndex),
			EmissiveTexture: textureReference(data, material.EmissiveTextureIndex),
			OpacityTexture:  textureReference(data, material.OpacityTextureIndex),
		}
		payload, err := toml.Marshal(&document)
		if err != nil {
			return err
		}

		context := assets.NewCreateAssetContext("", outputPath, materialTypeName, materialSerializedVersion)
		context.SkipMetadata = true
		if err := context.AllocateChunk(0); err != nil {
			return err
		}
		chunk := context.Data.Chunks[0]
		chunk.Allocate(len(payload))
		copy(chunk.Data, payload)

		if err := context.Save(); err != nil {
			return err
		}
	}
	return nil
}

// textureReference resolves a texture slot index to its asset identifier.
func textureReference(data *model.ImportedModelData, index int32) string {
	if index < 0 || int(index) >= len(data.Textures) {
		return ""
	}
	id := data.Textures[index].AssetID
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// assetNameFromFile derives an asset name from a source file path.
func assetNameFromFile(path string) string {
	base := filepath.Base(path)
	return sanitizeAssetName(base[: len(base)-len(filepath.Ext(base))])
}

// sanitizeAssetName strips characters that are unsafe in file names.
func sanitizeAssetName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

// toRGBA converts any decoded image to RGBA pixels.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	stddraw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, stddraw.Src)
	return rgba
}

// downscale resizes the image so the largest side fits maxSide.
func downscale(img *image.RGBA, maxSide int) *image.RGBA {
	width, height := img.Rect.Dx(), img.Rect.Dy()
	scale := float64(maxSide) / float64(width)
	if height > width {
		scale = float64(maxSide) / float64(height)
	}
	out := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
	draw.ApproxBiLinear.Scale(out, out.Rect, img, img.Rect, draw.Src, nil)
	return out
}
