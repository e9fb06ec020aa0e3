package model

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spaghettifunk/atlante/pipeline/assets"
	"github.com/spaghettifunk/atlante/pipeline/math"
)

func buildTestModel() *ImportedModelData {
	data := NewImportedModelData(ImportDataTypesGeometry | ImportDataTypesMaterials | ImportDataTypesSkeleton)
	data.Materials = append(data.Materials, NewMaterialSlotEntry("Stone"))
	data.Materials[0].DiffuseColor = math.Vec4{0.5, 0.4, 0.3, 1}
	data.Materials[0].DiffuseTextureIndex = 2

	data.Skeleton.Bones = append(data.Skeleton.Bones, SkeletonBone{
		Name:        "Root",
		ParentIndex: -1,
		LocalTransform: math.Transform{
			Position: math.Vec3{0, 1, 0},
			Rotation: math.Quaternion{W: 1},
			Scale:    math.Vec3{1, 1, 1},
		},
		OffsetMatrix: math.Mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, -1, 0, 1},
	})

	mesh := &MeshData{
		Name:              "Cube",
		MaterialSlotIndex: 0,
		NodeIndex:         3,
		Vertices: []math.Vertex3D{
			{Position: math.Vec3{0, 0, 0}, Normal: math.Vec3{0, 0, 1}, Texcoord: math.Vec2{0, 0}},
			{Position: math.Vec3{1, 0, 0}, Normal: math.Vec3{0, 0, 1}, Texcoord: math.Vec2{1, 0}},
			{Position: math.Vec3{0, 1, 0}, Normal: math.Vec3{0, 0, 1}, Texcoord: math.Vec2{0, 1}},
		},
		Indices: []uint32{0, 1, 2},
	}
	coarse := &MeshData{
		Name:              "Cube",
		MaterialSlotIndex: 0,
		NodeIndex:         3,
		Vertices:          append([]math.Vertex3D(nil), mesh.Vertices...),
		Indices:           append([]uint32(nil), mesh.Indices...),
	}
	data.LODs = append(data.LODs, LOD{Meshes: []*MeshData{mesh}})
	data.LODs = append(data.LODs, LOD{Meshes: []*MeshData{coarse}})
	return data
}

func TestModelAssetRoundtrip(t *testing.T) {
	data := buildTestModel()
	path := filepath.Join(t.TempDir(), "cube.atl")

	context := assets.NewCreateAssetContext("cube.gltf", path, ModelTypeName, ModelSerializedVersion)
	if err := WriteModelAsset(context, data); err != nil {
		t.Fatalf("WriteModelAsset failed: %v", err)
	}
	if err := context.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	container, err := assets.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := ReadModelAsset(container)
	if err != nil {
		t.Fatalf("ReadModelAsset failed: %v", err)
	}

	if len(got.LODs) != 2 {
		t.Fatalf("len(LODs) = %d, want 2", len(got.LODs))
	}
	if !reflect.DeepEqual(got.LODs[0].Meshes, data.LODs[0].Meshes) {
		t.Errorf("LOD0 meshes mismatch:\n got %+v\nwant %+v", got.LODs[0].Meshes[0], data.LODs[0].Meshes[0])
	}
	if !reflect.DeepEqual(got.Materials, data.Materials) {
		t.Errorf("materials mismatch:\n got %+v\nwant %+v", got.Materials, data.Materials)
	}
	if !reflect.DeepEqual(got.Skeleton, data.Skeleton) {
		t.Errorf("skeleton mismatch:\n got %+v\nwant %+v", got.Skeleton, data.Skeleton)
	}
	if !got.Types.Has(ImportDataTypesGeometry) || !got.Types.Has(ImportDataTypesMaterials) || !got.Types.Has(ImportDataTypesSkeleton) {
		t.Errorf("Types = %v, expected geometry, materials and skeleton", got.Types)
	}
}

func TestModelAssetRoundtripKeepsSkinningAndLightmapUVs(t *testing.T) {
	data := buildTestModel()
	mesh := data.LODs[0].Meshes[0]
	mesh.LightmapUVs = []math.Vec2{{0, 0}, {0.5, 0}, {0, 0.5}}
	mesh.BlendIndices = [][4]int32{{0, 0, 0, 0}, {0, 1, 0, 0}, {1, 0, 0, 0}}
	mesh.BlendWeights = []math.Vec4{{1, 0, 0, 0}, {0.5, 0.5, 0, 0}, {1, 0, 0, 0}}

	path := filepath.Join(t.TempDir(), "skinned.atl")
	context := assets.NewCreateAssetContext("skinned.gltf", path, ModelTypeName, ModelSerializedVersion)
	if err := WriteModelAsset(context, data); err != nil {
		t.Fatalf("WriteModelAsset failed: %v", err)
	}
	if err := context.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	container, err := assets.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := ReadModelAsset(container)
	if err != nil {
		t.Fatalf("ReadModelAsset failed: %v", err)
	}

	gotMesh := got.LODs[0].Meshes[0]
	if !reflect.DeepEqual(gotMesh.BlendIndices, mesh.BlendIndices) {
		t.Errorf("BlendIndices mismatch:\n got %v\nwant %v", gotMesh.BlendIndices, mesh.BlendIndices)
	}
	if !reflect.DeepEqual(gotMesh.BlendWeights, mesh.BlendWeights) {
		t.Errorf("BlendWeights mismatch:\n got %v\nwant %v", gotMesh.BlendWeights, mesh.BlendWeights)
	}
	if !reflect.DeepEqual(gotMesh.LightmapUVs, mesh.LightmapUVs) {
		t.Errorf("LightmapUVs mismatch:\n got %v\nwant %v", gotMesh.LightmapUVs, mesh.LightmapUVs)
	}
	if gotMesh.NodeIndex != mesh.NodeIndex {
		t.Errorf("NodeIndex = %d, want %d", gotMesh.NodeIndex, mesh.NodeIndex)
	}

	// The second LOD carries no optional streams and must stay empty.
	plain := got.LODs[1].Meshes[0]
	if len(plain.BlendIndices) != 0 || len(plain.LightmapUVs) != 0 {
		t.Errorf("unskinned mesh grew optional streams: %d blend, %d lightmap",
			len(plain.BlendIndices), len(plain.LightmapUVs))
	}
}

func TestWriteModelAssetRejectsMismatchedSkinning(t *testing.T) {
	data := buildTestModel()
	mesh := data.LODs[0].Meshes[0]
	mesh.BlendIndices = [][4]int32{{0, 0, 0, 0}}
	mesh.BlendWeights = nil

	context := assets.NewCreateAssetContext("bad.gltf", filepath.Join(t.TempDir(), "bad.atl"), ModelTypeName, ModelSerializedVersion)
	if err := WriteModelAsset(context, data); err == nil {
		t.Error("expected an error for mismatched skinning streams")
	}
}

func TestWriteModelAssetRequiresGeometry(t *testing.T) {
	data := NewImportedModelData(ImportDataTypesGeometry)
	context := assets.NewCreateAssetContext("empty.gltf", filepath.Join(t.TempDir(), "empty.atl"), ModelTypeName, ModelSerializedVersion)
	if err := WriteModelAsset(context, data); err == nil {
		t.Error("expected an error for a model without LODs")
	}
}
