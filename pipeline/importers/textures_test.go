package importers

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/atlante/pipeline/assets"
	"github.com/spaghettifunk/atlante/pipeline/model"
)

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAutoImportTextures(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "model.obj")
	writePNG(t, filepath.Join(dir, "stone_d.png"), 8, 4)

	data := model.NewImportedModelData(model.ImportDataTypesTextures)
	data.Textures = append(data.Textures, model.TextureEntry{
		FilePath: "stone_d.png",
		Type:     model.TextureTypeDiffuse,
	})

	outputDir := filepath.Join(dir, "output")
	if err := AutoImportTextures(source, data, outputDir); err != nil {
		t.Fatalf("AutoImportTextures failed: %v", err)
	}

	if data.Textures[0].AssetID == uuid.Nil {
		t.Error("the texture entry should record its asset identifier")
	}

	container, err := assets.Load(filepath.Join(outputDir, "stone_d.atl"))
	if err != nil {
		t.Fatalf("failed to load the texture asset: %v", err)
	}
	if container.TypeName != "Atlante.Texture" {
		t.Errorf("TypeName = %q", container.TypeName)
	}
	if container.ID != data.Textures[0].AssetID {
		t.Error("the container identifier must match the recorded one")
	}

	chunk := container.Chunks[texturePixelsChunk]
	if chunk == nil {
		t.Fatal("pixel chunk missing")
	}
	var header textureHeader
	reader := bytes.NewReader(chunk.Get())
	if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
		t.Fatal(err)
	}
	if header.Width != 8 || header.Height != 4 || header.Format != textureFormatRGBA8 {
		t.Errorf("header = %+v", header)
	}
	if reader.Len() != 8*4*4 {
		t.Errorf("pixel payload = %d bytes, want %d", reader.Len(), 8*4*4)
	}
}

func TestAutoImportTexturesSkipsUnresolved(t *testing.T) {
	dir := t.TempDir()
	data := model.NewImportedModelData(model.ImportDataTypesTextures)
	data.Textures = append(data.Textures, model.TextureEntry{FilePath: "missing.png"})

	if err := AutoImportTextures(filepath.Join(dir, "model.obj"), data, filepath.Join(dir, "output")); err != nil {
		t.Fatalf("AutoImportTextures must not fail on a missing texture: %v", err)
	}
	if data.Textures[0].AssetID != uuid.Nil {
		t.Error("an unresolved texture must not get an asset identifier")
	}
}

func TestCreateMaterialAssets(t *testing.T) {
	dir := t.TempDir()

	data := model.NewImportedModelData(model.ImportDataTypesMaterials | model.ImportDataTypesTextures)
	data.Textures = append(data.Textures, model.TextureEntry{
		FilePath: "stone_d.png",
		AssetID:  uuid.New(),
	})
	material := model.NewMaterialSlotEntry("Stone")
	material.DiffuseTextureIndex = 0
	material.TwoSided = true
	data.Materials = append(data.Materials, material)

	if err := CreateMaterialAssets(data, dir, false); err != nil {
		t.Fatalf("CreateMaterialAssets failed: %v", err)
	}

	container, err := assets.Load(filepath.Join(dir, "Stone.atl"))
	if err != nil {
		t.Fatalf("failed to load the material asset: %v", err)
	}
	if container.TypeName != "Atlante.Material" {
		t.Errorf("TypeName = %q", container.TypeName)
	}

	var document materialDocument
	if err := toml.Unmarshal(container.Chunks[0].Get(), &document); err != nil {
		t.Fatalf("failed to decode the material document: %v", err)
	}
	if document.Name != "Stone" || !document.TwoSided {
		t.Errorf("document = %+v", document)
	}
	if document.DiffuseTexture != data.Textures[0].AssetID.String() {
		t.Errorf("DiffuseTexture = %q, want the texture asset id", document.DiffuseTexture)
	}
	if document.NormalsTexture != "" {
		t.Errorf("NormalsTexture = %q, want empty for an unused slot", document.NormalsTexture)
	}
}

func TestCreateMaterialAssetsRestore(t *testing.T) {
	dir := t.TempDir()

	data := model.NewImportedModelData(model.ImportDataTypesMaterials)
	data.Materials = append(data.Materials, model.NewMaterialSlotEntry("Stone"))

	if err := CreateMaterialAssets(data, dir, false); err != nil {
		t.Fatalf("CreateMaterialAssets failed: %v", err)
	}
	path := filepath.Join(dir, "Stone.atl")
	edited := []byte("user edited")
	if err := os.WriteFile(path, edited, 0o644); err != nil {
		t.Fatal(err)
	}

	// Restore mode keeps the existing asset untouched.
	if err := CreateMaterialAssets(data, dir, true); err != nil {
		t.Fatalf("CreateMaterialAssets failed: %v", err)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, edited) {
		t.Error("restore mode must not overwrite an existing material asset")
	}

	// Without restore the asset is rewritten.
	if err := CreateMaterialAssets(data, dir, false); err != nil {
		t.Fatalf("CreateMaterialAssets failed: %v", err)
	}
	if _, err := assets.Load(path); err != nil {
		t.Errorf("rewritten material asset should load: %v", err)
	}
}
