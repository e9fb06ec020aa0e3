package model

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/atlante/pipeline/math"
)

/** @brief The model file import data types (used as flags). */
type ImportDataTypes int32

const (
	ImportDataTypesNone ImportDataTypes = 0
	/** @brief Imports materials and meshes. */
	ImportDataTypesGeometry ImportDataTypes = 1 << 0
	/** @brief Imports the skeleton bones hierarchy. */
	ImportDataTypesSkeleton ImportDataTypes = 1 << 1
	/** @brief Imports the animations. */
	ImportDataTypesAnimations ImportDataTypes = 1 << 2
	/** @brief Imports the scene nodes hierarchy. */
	ImportDataTypesNodes ImportDataTypes = 1 << 3
	/** @brief Imports the materials. */
	ImportDataTypesMaterials ImportDataTypes = 1 << 4
	/** @brief Imports the textures. */
	ImportDataTypesTextures ImportDataTypes = 1 << 5

	ImportDataTypesAll = ImportDataTypesGeometry | ImportDataTypesSkeleton |
		ImportDataTypesAnimations | ImportDataTypesNodes |
		ImportDataTypesMaterials | ImportDataTypesTextures
)

// Has reports whether all the given flags are set.
func (t ImportDataTypes) Has(flags ImportDataTypes) bool {
	return t&flags == flags
}

/** @brief The texture slot usage within a material. */
type TextureType int32

const (
	TextureTypeDiffuse TextureType = iota
	TextureTypeNormals
	TextureTypeEmissive
	TextureTypeOpacity
)

/** @brief A texture slot referenced by the source file materials. */
type TextureEntry struct {
	/** @brief The path to the texture file, relative to the model source or absolute. */
	FilePath string
	/** @brief The texture usage. */
	Type TextureType
	/** @brief The identifier of the imported texture asset, if auto-import ran. */
	AssetID uuid.UUID
	/** @brief Embedded pixel data (glTF buffers), nil when the texture is an external file. */
	Data []byte
}

/** @brief A material slot populated from the source file. */
type MaterialSlotEntry struct {
	/** @brief The material Name. */
	Name string
	/** @brief The base colour of the material. */
	DiffuseColor math.Vec4
	/** @brief The emissive colour of the material. */
	EmissiveColor math.Vec3
	/** @brief The opacity factor. */
	Opacity float32
	/** @brief Marks the material as rendered on both sides. */
	TwoSided bool

	// Texture slot indices into ImportedModelData.Textures, -1 when unused.
	DiffuseTextureIndex  int32
	NormalsTextureIndex  int32
	EmissiveTextureIndex int32
	OpacityTextureIndex  int32

	/** @brief The identifier of the material asset created on auto-import. */
	AssetID uuid.UUID
}

// NewMaterialSlotEntry returns a slot with all texture indices unused.
func NewMaterialSlotEntry(name string) MaterialSlotEntry {
	return MaterialSlotEntry{
		Name:                 name,
		DiffuseColor:         math.Vec4{1, 1, 1, 1},
		Opacity:              1,
		DiffuseTextureIndex:  -1,
		NormalsTextureIndex:  -1,
		EmissiveTextureIndex: -1,
		OpacityTextureIndex:  -1,
	}
}

/** @brief A single mesh extracted from the source file. */
type MeshData struct {
	/** @brief The mesh Name. */
	Name string
	/** @brief Index into the material slots array. */
	MaterialSlotIndex int32
	/** @brief Index of the scene node this mesh is attached to, -1 when unknown. */
	NodeIndex int32
	/** @brief The vertex data. */
	Vertices []math.Vertex3D
	/** @brief The triangle list index data. */
	Indices []uint32
	/** @brief The lightmap texture coordinates, empty when not generated/imported. */
	LightmapUVs []math.Vec2
	/** @brief Per-vertex bone indices for skinned meshes (4 per vertex). */
	BlendIndices [][4]int32
	/** @brief Per-vertex bone weights for skinned meshes (4 per vertex). */
	BlendWeights []math.Vec4
}

// TriangleCount returns the number of triangles in the mesh.
func (m *MeshData) TriangleCount() int {
	return len(m.Indices) / 3
}

// Box returns the local bounds of the mesh positions.
func (m *MeshData) Box() math.Extents3D {
	if len(m.Vertices) == 0 {
		return math.Extents3D{}
	}
	box := math.Extents3D{Min: m.Vertices[0].Position, Max: m.Vertices[0].Position}
	for i := 1; i < len(m.Vertices); i++ {
		box = box.Merge(m.Vertices[i].Position)
	}
	return box
}

/** @brief A single level of detail: a set of meshes rendered together. */
type LOD struct {
	Meshes []*MeshData
}

// Box returns the combined local bounds of all meshes in the LOD.
func (l *LOD) Box() math.Extents3D {
	if len(l.Meshes) == 0 {
		return math.Extents3D{}
	}
	box := l.Meshes[0].Box()
	for i := 1; i < len(l.Meshes); i++ {
		mb := l.Meshes[i].Box()
		box = box.Merge(mb.Min)
		box = box.Merge(mb.Max)
	}
	return box
}

// TriangleCount returns the total triangle count across the LOD meshes.
func (l *LOD) TriangleCount() int {
	count := 0
	for _, m := range l.Meshes {
		count += m.TriangleCount()
	}
	return count
}

/** @brief A scene hierarchy node. */
type Node struct {
	/** @brief The parent node index. The root node uses value -1. */
	ParentIndex int32
	/** @brief The local transformation of the node, relative to the parent node. */
	LocalTransform math.Transform
	/** @brief The name of this node. */
	Name string
}

/** @brief A bone within the skeleton hierarchy. */
type SkeletonBone struct {
	/** @brief The parent bone index. The root bone uses value -1. */
	ParentIndex int32
	/** @brief Index of the scene node this bone maps to. */
	NodeIndex int32
	/** @brief The local transformation of the bone, relative to the parent bone. */
	LocalTransform math.Transform
	/** @brief The matrix that transforms from mesh space to bone space in bind pose. */
	OffsetMatrix math.Mat4
	/** @brief The bone Name. */
	Name string
}

/** @brief The skeleton bones hierarchy. */
type SkeletonData struct {
	Bones []SkeletonBone
}

// FindBone returns the index of the bone mapped to the given node, or -1.
func (s *SkeletonData) FindBone(nodeIndex int32) int32 {
	for i := range s.Bones {
		if s.Bones[i].NodeIndex == nodeIndex {
			return int32(i)
		}
	}
	return -1
}

/** @brief A single keyframe of an animation curve. */
type Keyframe[T any] struct {
	Time  float32
	Value T
}

/** @brief Animation of a single scene node. */
type NodeAnimationData struct {
	/** @brief The name of the animated node. */
	NodeName string
	/** @brief The position channel keyframes. */
	Position []Keyframe[math.Vec3]
	/** @brief The rotation channel keyframes. */
	Rotation []Keyframe[math.Quaternion]
	/** @brief The scale channel keyframes. */
	Scale []Keyframe[math.Vec3]
}

// IsEmpty reports whether the track carries no keyframes at all.
func (n *NodeAnimationData) IsEmpty() bool {
	return len(n.Position) == 0 && len(n.Rotation) == 0 && len(n.Scale) == 0
}

/** @brief The node animations of a single clip. */
type AnimationData struct {
	/** @brief The clip Name. */
	Name string
	/** @brief The clip duration in frames. */
	Duration float64
	/** @brief The clip sampling rate in frames per second. */
	FramesPerSecond float64
	/** @brief Per-node animation tracks. */
	Channels []NodeAnimationData
}

/**
 * @brief Imported model data container. Represents unified model source file
 * data (meshes, animations, skeleton, materials).
 */
type ImportedModelData struct {
	/** @brief The import data types. */
	Types ImportDataTypes
	/** @brief The textures slots. */
	Textures []TextureEntry
	/** @brief The material slots. */
	Materials []MaterialSlotEntry
	/** @brief The level of details data. */
	LODs []LOD
	/** @brief Meshes imported as collision-only data, excluded from rendering. */
	Collision []*MeshData
	/** @brief The skeleton data. */
	Skeleton SkeletonData
	/** @brief The scene nodes. */
	Nodes []Node
	/** @brief The node animations. */
	Animation AnimationData
}

// NewImportedModelData returns a container accepting the given data types.
func NewImportedModelData(types ImportDataTypes) *ImportedModelData {
	return &ImportedModelData{Types: types}
}

/**
 * @brief Gets the local transformations to go from rootIndex to index.
 */
func CombineTransformsFromNodeIndices(nodes []Node, rootIndex, index int32) math.Transform {
	if index == -1 || index == rootIndex {
		return math.NewTransform()
	}

	result := nodes[index].LocalTransform
	if index != rootIndex {
		parentTransform := CombineTransformsFromNodeIndices(nodes, rootIndex, nodes[index].ParentIndex)
		result = parentTransform.LocalToWorld(result)
	}

	return result
}
