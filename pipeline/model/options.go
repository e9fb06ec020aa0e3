package model

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/atlante/pipeline/math"
)

/** @brief Declares the imported data type. */
type ModelType int32

const (
	// The model asset.
	ModelTypeModel ModelType = iota
	// The skinned model asset.
	ModelTypeSkinnedModel
	// The animation asset.
	ModelTypeAnimation
)

/** @brief Declares the imported animation clip duration. */
type AnimationDuration int32

const (
	// The imported duration.
	AnimationDurationImported AnimationDuration = iota
	// The custom duration specified via keyframes range.
	AnimationDurationCustom
)

/** @brief The lightmap UVs source. */
type LightmapUVsSource int32

const (
	// No lightmap UVs.
	LightmapUVsSourceDisable LightmapUVsSource = iota
	// Generate lightmap UVs from model geometry.
	LightmapUVsSourceGenerate
	// Use input mesh texture coordinates channel 0.
	LightmapUVsSourceChannel0
	// Use input mesh texture coordinates channel 1.
	LightmapUVsSourceChannel1
)

/**
 * @brief Model import options. Persisted next to the imported asset so a
 * reimport runs with the same settings.
 */
type Options struct {
	// Type of the imported asset.
	Type ModelType `toml:"type"`

	// Geometry

	// Enable model normal vectors recalculating.
	CalculateNormals bool `toml:"calculate_normals"`
	// The maximum angle (in degrees) between two face normals at the same vertex position for them to be smoothed together.
	SmoothingNormalsAngle float32 `toml:"smoothing_normals_angle"`
	// If checked, the imported normal vectors of the mesh will be flipped (scaled by -1).
	FlipNormals bool `toml:"flip_normals"`
	// Enable model tangent vectors recalculating.
	CalculateTangents bool `toml:"calculate_tangents"`
	// The maximum angle (in degrees) between two vertex tangents for them to be smoothed together.
	SmoothingTangentsAngle float32 `toml:"smoothing_tangents_angle"`
	// Enable/disable meshes geometry optimization.
	OptimizeMeshes bool `toml:"optimize_meshes"`
	// Enable/disable geometry merge for meshes with the same materials.
	MergeMeshes bool `toml:"merge_meshes"`
	// Enable/disable importing meshes Level of Details.
	ImportLODs bool `toml:"import_lods"`
	// Enable/disable importing vertex colors (channel 0 only).
	ImportVertexColors bool `toml:"import_vertex_colors"`
	// Enable/disable importing blend shapes (morph targets).
	ImportBlendShapes bool `toml:"import_blend_shapes"`
	// The lightmap UVs source.
	LightmapUVsSource LightmapUVsSource `toml:"lightmap_uvs_source"`
	// If specified, all meshes which name starts with this prefix will be imported as a separate collision data (excluded from rendering).
	CollisionMeshesPrefix string `toml:"collision_meshes_prefix"`

	// Transform

	// Custom uniform import scale.
	Scale float32 `toml:"scale"`
	// Custom import geometry rotation (Euler angles, in degrees).
	Rotation math.Vec3 `toml:"rotation"`
	// Custom import geometry offset.
	Translation math.Vec3 `toml:"translation"`
	// If checked, the imported geometry will be shifted to the center of mass.
	CenterGeometry bool `toml:"center_geometry"`

	// Animation

	// Imported animation duration mode. Can use the original value or overriden by settings.
	Duration AnimationDuration `toml:"duration"`
	// Imported animation first/last frame index. Used only if Duration mode is set to Custom.
	FramesRange math.Vec2 `toml:"frames_range"`
	// The default frames per second for the imported animation. If value is 0 then the original animation frame rate will be used.
	DefaultFrameRate float32 `toml:"default_frame_rate"`
	// The imported animation sampling rate. If value is 0 then the original animation speed will be used.
	SamplingRate float32 `toml:"sampling_rate"`
	// The imported animation will have removed tracks with no keyframes or unspecified data.
	SkipEmptyCurves bool `toml:"skip_empty_curves"`
	// The imported animation channels will be optimized to remove redundant keyframes.
	OptimizeKeyframes bool `toml:"optimize_keyframes"`
	// If checked, the importer will import scale animation tracks (otherwise scale animation will be ignored).
	ImportScaleTracks bool `toml:"import_scale_tracks"`
	// Enables root motion extraction support from this animation.
	EnableRootMotion bool `toml:"enable_root_motion"`
	// The custom node name to be used as a root motion source. If not specified the actual root node will be used.
	RootNodeName string `toml:"root_node_name"`

	// Level Of Detail

	// If checked, the importer will generate a sequence of LODs based on the base LOD index.
	GenerateLODs bool `toml:"generate_lods"`
	// The index of the LOD from the source model data to use as a reference for following LODs generation.
	BaseLOD int32 `toml:"base_lod"`
	// The amount of LODs to include in the model (all remaining ones starting from Base LOD will be generated).
	LODCount int32 `toml:"lod_count"`
	// The target amount of triangles for the generated LOD (based on the higher LOD). Normalized to range 0-1.
	TriangleReduction float32 `toml:"triangle_reduction"`

	// Materials

	// If checked, the importer will create materials for model meshes as specified in the file.
	ImportMaterials bool `toml:"import_materials"`
	// If checked, the importer will import texture files used by the model and any embedded texture resources.
	ImportTextures bool `toml:"import_textures"`
	// If checked, the importer will try to restore the model material slots.
	RestoreMaterialsOnReimport bool `toml:"restore_materials_on_reimport"`

	// SDF

	// If checked, enables generation of Signed Distance Field (SDF).
	GenerateSDF bool `toml:"generate_sdf"`
	// Resolution scale for generated Signed Distance Field (SDF) texture. Higher values improve accuracy but increase memory usage and reduce performance.
	SDFResolution float32 `toml:"sdf_resolution"`

	// Splitting

	// If checked, the imported mesh/animations are splitted into separate assets. Used if ObjectIndex is set to -1.
	SplitObjects bool `toml:"split_objects"`
	// The zero-based index for the mesh/animation clip to import. Default -1 imports all objects.
	ObjectIndex int32 `toml:"object_index"`
}

// NewOptions returns import options with the default values.
func NewOptions() Options {
	return Options{
		Type:                       ModelTypeModel,
		SmoothingNormalsAngle:      175.0,
		SmoothingTangentsAngle:     45.0,
		OptimizeMeshes:             true,
		MergeMeshes:                true,
		ImportLODs:                 true,
		ImportVertexColors:         true,
		LightmapUVsSource:          LightmapUVsSourceDisable,
		Scale:                      1.0,
		Duration:                   AnimationDurationImported,
		SkipEmptyCurves:            true,
		OptimizeKeyframes:          true,
		BaseLOD:                    0,
		LODCount:                   4,
		TriangleReduction:          0.5,
		ImportMaterials:            true,
		ImportTextures:             true,
		RestoreMaterialsOnReimport: true,
		SDFResolution:              1.0,
		ObjectIndex:                -1,
	}
}

// Serialize writes the options as TOML.
func (o *Options) Serialize() ([]byte, error) {
	return toml.Marshal(o)
}

// Deserialize loads the options from TOML, on top of the defaults.
func (o *Options) Deserialize(data []byte) error {
	*o = NewOptions()
	return toml.Unmarshal(data, o)
}

// Save persists the options to the given path.
func (o *Options) Save(path string) error {
	data, err := o.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadOptions reads persisted options from the given path.
func LoadOptions(path string) (Options, error) {
	options := NewOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return options, err
	}
	if err := options.Deserialize(data); err != nil {
		return options, err
	}
	return options, nil
}
