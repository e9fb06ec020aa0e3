package shaders

import (
	"bytes"
	"encoding/binary"
	"os"
	"unicode/utf16"

	"github.com/spaghettifunk/atlante/pipeline/assets"
	"github.com/spaghettifunk/atlante/pipeline/core"
	"github.com/spaghettifunk/atlante/pipeline/utilities"
)

// SourceCodeChunk is the container chunk index holding the shader source.
const SourceCodeChunk = 15

// TypeName is the asset container type of imported shaders.
const TypeName = "Atlante.Shader"

// SerializedVersion is the shader asset format version.
const SerializedVersion uint32 = 20

// minSourceLength rejects shader files too short to hold any entry point.
const minSourceLength = 10

/**
 * @brief The header stored in the shader asset custom data. Populated by the
 * shader compiler after the first compilation; the importer writes it zeroed.
 */
type Header struct {
	Flags           uint32
	CompiledTargets uint32
	Reserved        [8]uint32
}

/**
 * @brief Imports a shader source file: reads the text, encrypts it and
 * stores it as the source code chunk of a new shader asset. Any compiled
 * shader cache for the asset is invalidated.
 */
func Import(context *assets.CreateAssetContext, cache *assets.ShaderCacheManager) assets.CreateResult {
	context.SkipMetadata = true

	// Read text (any Unicode encoding is folded into plain bytes).
	raw, err := os.ReadFile(context.InputPath)
	if err != nil {
		core.LogError("Failed to read shader source '%s': %v", context.InputPath, err)
		return assets.CreateResultInvalidPath
	}
	sourceCode := normalizeText(raw)

	if len(sourceCode) < minSourceLength {
		core.LogWarn("Empty shader source file.")
		return assets.CreateResultError
	}

	// Load source code.
	if err := context.AllocateChunk(SourceCodeChunk); err != nil {
		return assets.CreateResultCannotAllocateChunk
	}
	chunk := context.Data.Chunks[SourceCodeChunk]
	chunk.Allocate(len(sourceCode) + 1)
	copy(chunk.Get(), sourceCode)

	// Encrypt source code.
	utilities.EncryptBytes(chunk.Get()[:len(sourceCode)])
	chunk.Get()[len(sourceCode)] = 0

	// Set custom data with the zeroed header.
	var header Header
	var buffer bytes.Buffer
	if err := binary.Write(&buffer, binary.LittleEndian, &header); err != nil {
		return assets.CreateResultError
	}
	context.Data.CustomData = buffer.Bytes()

	// Invalidate shader cache.
	if cache != nil {
		cache.RemoveCache(context.AssetID())
	}

	if err := context.Save(); err != nil {
		core.LogError("Failed to save shader asset '%s': %v", context.OutputPath, err)
		return assets.CreateResultError
	}

	return assets.CreateResultOk
}

/**
 * @brief Extracts the decrypted shader source from a shader asset container.
 */
func Source(container *assets.Container) ([]byte, error) {
	chunk := container.Chunks[SourceCodeChunk]
	if chunk == nil || len(chunk.Data) == 0 {
		return nil, core.ErrUnknown
	}
	source := make([]byte, len(chunk.Data)-1)
	copy(source, chunk.Data[:len(chunk.Data)-1])
	utilities.DecryptBytes(source)
	return source, nil
}

// normalizeText strips a BOM and converts UTF-16 encoded sources to UTF-8.
func normalizeText(raw []byte) []byte {
	switch {
	case len(raw) >= 3 && raw[0] == 0xef && raw[1] == 0xbb && raw[2] == 0xbf:
		return raw[3:]
	case len(raw) >= 2 && raw[0] == 0xff && raw[1] == 0xfe:
		return decodeUTF16(raw[2:], binary.LittleEndian)
	case len(raw) >= 2 && raw[0] == 0xfe && raw[1] == 0xff:
		return decodeUTF16(raw[2:], binary.BigEndian)
	}
	return raw
}

func decodeUTF16(raw []byte, order binary.ByteOrder) []byte {
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		units = append(units, order.Uint16(raw[i:]))
	}
	return []byte(string(utf16.Decode(units)))
}
