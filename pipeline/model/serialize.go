package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/spaghettifunk/atlante/pipeline/assets"
	"github.com/spaghettifunk/atlante/pipeline/math"
)

const (
	// ModelTypeName is the asset container type of serialized models.
	ModelTypeName = "Atlante.Model"
	// ModelSerializedVersion is the current model asset layout version.
	ModelSerializedVersion = 1

	// ModelHeaderChunk holds the material slots and LOD table.
	ModelHeaderChunk = 0
	// ModelLODChunkBase is the chunk of LOD0 geometry; LOD n lives at base+n.
	ModelLODChunkBase = 1
	// ModelSDFChunk holds the optional signed distance field stream.
	ModelSDFChunk = 15
)

/**
 * @brief Serializes the imported model into the asset container: the header
 * chunk with material slots, skeleton and the LOD table, and one geometry
 * chunk per LOD. The SDF chunk is left to the caller.
 */
func WriteModelAsset(context *assets.CreateAssetContext, data *ImportedModelData) error {
	if len(data.LODs) == 0 {
		return fmt.Errorf("model '%s' has no geometry to serialize", context.AssetName())
	}
	if len(data.LODs) > ModelSDFChunk-ModelLODChunkBase {
		return fmt.Errorf("model '%s' has too many LODs (%d)", context.AssetName(), len(data.LODs))
	}

	var header bytes.Buffer
	if err := writeModelHeader(&header, data); err != nil {
		return err
	}
	if err := fillChunk(context, ModelHeaderChunk, header.Bytes()); err != nil {
		return err
	}

	for li := range data.LODs {
		var payload bytes.Buffer
		if err := writeLOD(&payload, &data.LODs[li]); err != nil {
			return err
		}
		if err := fillChunk(context, ModelLODChunkBase+li, payload.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

// ReadModelAsset deserializes a container written by WriteModelAsset.
func ReadModelAsset(container *assets.Container) (*ImportedModelData, error) {
	chunk := container.Chunks[ModelHeaderChunk]
	if chunk == nil {
		return nil, fmt.Errorf("model asset is missing the header chunk")
	}

	data := NewImportedModelData(ImportDataTypesNone)
	reader := bytes.NewReader(chunk.Get())
	lodCount, err := readModelHeader(reader, data)
	if err != nil {
		return nil, err
	}

	for li := 0; li < lodCount; li++ {
		chunk := container.Chunks[ModelLODChunkBase+li]
		if chunk == nil {
			return nil, fmt.Errorf("model asset is missing the LOD%d chunk", li)
		}
		lod, err := readLOD(bytes.NewReader(chunk.Get()))
		if err != nil {
			return nil, err
		}
		data.LODs = append(data.LODs, lod)
	}

	data.Types = ImportDataTypesGeometry
	if len(data.Materials) > 0 {
		data.Types |= ImportDataTypesMaterials
	}
	if len(data.Skeleton.Bones) > 0 {
		data.Types |= ImportDataTypesSkeleton
	}

	return data, nil
}

func writeModelHeader(w io.Writer, data *ImportedModelData) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data.LODs))); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(data.Materials))); err != nil {
		return err
	}
	for i := range data.Materials {
		material := &data.Materials[i]
		if err := writeString(w, material.Name); err != nil {
			return err
		}
		fields := []interface{}{
			material.DiffuseColor, material.EmissiveColor, material.Opacity,
			material.TwoSided,
			material.DiffuseTextureIndex, material.NormalsTextureIndex,
			material.EmissiveTextureIndex, material.OpacityTextureIndex,
		}
		for _, field := range fields {
			if err := binary.Write(w, binary.LittleEndian, field); err != nil {
				return err
			}
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(data.Skeleton.Bones))); err != nil {
		return err
	}
	for i := range data.Skeleton.Bones {
		bone := &data.Skeleton.Bones[i]
		if err := writeString(w, bone.Name); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, bone.ParentIndex); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, bone.OffsetMatrix); err != nil {
			return err
		}
		if err := writeTransform(w, &bone.LocalTransform); err != nil {
			return err
		}
	}

	return nil
}

func readModelHeader(r io.Reader, data *ImportedModelData) (int, error) {
	var lodCount, materialCount uint32
	if err := binary.Read(r, binary.LittleEndian, &lodCount); err != nil {
		return 0, err
	}
	if err := binary.Read(r, binary.LittleEndian, &materialCount); err != nil {
		return 0, err
	}
	for i := uint32(0); i < materialCount; i++ {
		name, err := readString(r)
		if err != nil {
			return 0, err
		}
		material := NewMaterialSlotEntry(name)
		fields := []interface{}{
			&material.DiffuseColor, &material.EmissiveColor, &material.Opacity,
			&material.TwoSided,
			&material.DiffuseTextureIndex, &material.NormalsTextureIndex,
			&material.EmissiveTextureIndex, &material.OpacityTextureIndex,
		}
		for _, field := range fields {
			if err := binary.Read(r, binary.LittleEndian, field); err != nil {
				return 0, err
			}
		}
		data.Materials = append(data.Materials, material)
	}

	var boneCount uint32
	if err := binary.Read(r, binary.LittleEndian, &boneCount); err != nil {
		return 0, err
	}
	for i := uint32(0); i < boneCount; i++ {
		name, err := readString(r)
		if err != nil {
			return 0, err
		}
		bone := SkeletonBone{Name: name}
		if err := binary.Read(r, binary.LittleEndian, &bone.ParentIndex); err != nil {
			return 0, err
		}
		if err := binary.Read(r, binary.LittleEndian, &bone.OffsetMatrix); err != nil {
			return 0, err
		}
		if err := readTransform(r, &bone.LocalTransform); err != nil {
			return 0, err
		}
		data.Skeleton.Bones = append(data.Skeleton.Bones, bone)
	}

	return int(lodCount), nil
}

func writeLOD(w io.Writer, lod *LOD) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(lod.Meshes))); err != nil {
		return err
	}
	for _, mesh := range lod.Meshes {
		if err := writeString(w, mesh.Name); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, mesh.MaterialSlotIndex); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, mesh.NodeIndex); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(mesh.Vertices))); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, mesh.Vertices); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(mesh.Indices))); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, mesh.Indices); err != nil {
			return err
		}

		// Optional per-vertex streams, a zero count marks an absent stream.
		if err := binary.Write(w, binary.LittleEndian, uint32(len(mesh.LightmapUVs))); err != nil {
			return err
		}
		if len(mesh.LightmapUVs) > 0 {
			if err := binary.Write(w, binary.LittleEndian, mesh.LightmapUVs); err != nil {
				return err
			}
		}
		if len(mesh.BlendIndices) != len(mesh.BlendWeights) {
			return fmt.Errorf("mesh '%s' has mismatched skinning streams (%d indices, %d weights)",
				mesh.Name, len(mesh.BlendIndices), len(mesh.BlendWeights))
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(mesh.BlendIndices))); err != nil {
			return err
		}
		if len(mesh.BlendIndices) > 0 {
			if err := binary.Write(w, binary.LittleEndian, mesh.BlendIndices); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, mesh.BlendWeights); err != nil {
				return err
			}
		}
	}
	return nil
}

func readLOD(r io.Reader) (LOD, error) {
	var lod LOD
	var meshCount uint32
	if err := binary.Read(r, binary.LittleEndian, &meshCount); err != nil {
		return lod, err
	}
	for i := uint32(0); i < meshCount; i++ {
		mesh := &MeshData{}
		name, err := readString(r)
		if err != nil {
			return lod, err
		}
		mesh.Name = name
		if err := binary.Read(r, binary.LittleEndian, &mesh.MaterialSlotIndex); err != nil {
			return lod, err
		}
		if err := binary.Read(r, binary.LittleEndian, &mesh.NodeIndex); err != nil {
			return lod, err
		}
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return lod, err
		}
		mesh.Vertices = make([]math.Vertex3D, count)
		if err := binary.Read(r, binary.LittleEndian, mesh.Vertices); err != nil {
			return lod, err
		}
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return lod, err
		}
		mesh.Indices = make([]uint32, count)
		if err := binary.Read(r, binary.LittleEndian, mesh.Indices); err != nil {
			return lod, err
		}

		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return lod, err
		}
		if count > 0 {
			mesh.LightmapUVs = make([]math.Vec2, count)
			if err := binary.Read(r, binary.LittleEndian, mesh.LightmapUVs); err != nil {
				return lod, err
			}
		}
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return lod, err
		}
		if count > 0 {
			mesh.BlendIndices = make([][4]int32, count)
			if err := binary.Read(r, binary.LittleEndian, mesh.BlendIndices); err != nil {
				return lod, err
			}
			mesh.BlendWeights = make([]math.Vec4, count)
			if err := binary.Read(r, binary.LittleEndian, mesh.BlendWeights); err != nil {
				return lod, err
			}
		}
		lod.Meshes = append(lod.Meshes, mesh)
	}
	return lod, nil
}

func writeTransform(w io.Writer, t *math.Transform) error {
	fields := []interface{}{t.Position, t.Rotation, t.Scale}
	for _, field := range fields {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	return nil
}

func readTransform(r io.Reader, t *math.Transform) error {
	fields := []interface{}{&t.Position, &t.Rotation, &t.Scale}
	for _, field := range fields {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", err
	}
	return string(payload), nil
}

// fillChunk allocates the container chunk and copies the payload in.
func fillChunk(context *assets.CreateAssetContext, index int, payload []byte) error {
	if err := context.AllocateChunk(index); err != nil {
		return err
	}
	chunk := context.Data.Chunks[index]
	chunk.Allocate(len(payload))
	copy(chunk.Data, payload)
	return nil
}
