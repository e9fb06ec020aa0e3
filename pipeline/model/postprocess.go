package model

import (
	m "math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/atlante/pipeline/core"
	"github.com/spaghettifunk/atlante/pipeline/math"
)

/**
 * @brief Runs the post-import processing steps over freshly imported data,
 * in place, according to the options: collision split, normals/tangents,
 * transform, lightmap UVs, mesh merging, optimization, LOD generation and
 * object splitting.
 */
func PostProcess(data *ImportedModelData, options *Options) error {
	if options.CollisionMeshesPrefix != "" {
		splitCollisionMeshes(data, options.CollisionMeshesPrefix)
	}

	if options.ObjectIndex >= 0 {
		selectObject(data, options.ObjectIndex)
	}

	for li := range data.LODs {
		for _, mesh := range data.LODs[li].Meshes {
			processMesh(mesh, options)
		}
	}
	for _, mesh := range data.Collision {
		processMesh(mesh, options)
	}

	if options.CenterGeometry && len(data.LODs) > 0 {
		centerGeometry(data)
	}

	if options.MergeMeshes {
		for li := range data.LODs {
			mergeMeshesByMaterial(&data.LODs[li])
		}
	}

	if options.OptimizeMeshes {
		for li := range data.LODs {
			for _, mesh := range data.LODs[li].Meshes {
				before := len(mesh.Vertices)
				mesh.Vertices = math.GeometryDeduplicateVertices(mesh.Vertices, mesh.Indices)
				if removed := before - len(mesh.Vertices); removed > 0 {
					core.LogDebug("Mesh '%s': removed %d duplicated vertices, %d remain.", mesh.Name, removed, len(mesh.Vertices))
				}
			}
		}
	}

	if !options.ImportVertexColors {
		for li := range data.LODs {
			for _, mesh := range data.LODs[li].Meshes {
				for i := range mesh.Vertices {
					mesh.Vertices[i].Colour = math.Vec4{1, 1, 1, 1}
				}
			}
		}
	}

	if options.GenerateLODs && len(data.LODs) > 0 {
		generateLODs(data, options)
	}

	if options.Type == ModelTypeAnimation {
		processAnimation(data, options)
	}

	return nil
}

// processMesh runs the per-mesh geometry steps.
func processMesh(mesh *MeshData, options *Options) {
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return
	}

	if options.CalculateNormals {
		math.GeometryGenerateNormals(mesh.Vertices, mesh.Indices, options.SmoothingNormalsAngle)
	}
	if options.FlipNormals {
		math.GeometryFlipNormals(mesh.Vertices)
	}
	if options.CalculateTangents {
		math.GeometryGenerateTangents(mesh.Vertices, mesh.Indices, options.SmoothingTangentsAngle)
	}

	applyTransform(mesh, options)

	switch options.LightmapUVsSource {
	case LightmapUVsSourceDisable:
		mesh.LightmapUVs = nil
	case LightmapUVsSourceChannel0, LightmapUVsSourceChannel1:
		// A single UV channel survives the backends, reuse it.
		mesh.LightmapUVs = make([]math.Vec2, len(mesh.Vertices))
		for i := range mesh.Vertices {
			mesh.LightmapUVs[i] = mesh.Vertices[i].Texcoord
		}
	case LightmapUVsSourceGenerate:
		mesh.LightmapUVs = generateLightmapUVs(mesh)
	}
}

// applyTransform bakes the custom import scale/rotation/translation into the vertices.
func applyTransform(mesh *MeshData, options *Options) {
	hasRotation := options.Rotation != (math.Vec3{})
	if options.Scale == 1 && !hasRotation && options.Translation == (math.Vec3{}) {
		return
	}

	rotation := mgl32.QuatIdent()
	if hasRotation {
		rotation = mgl32.AnglesToQuat(
			options.Rotation.X()*math.K_DEG2RAD,
			options.Rotation.Y()*math.K_DEG2RAD,
			options.Rotation.Z()*math.K_DEG2RAD,
			mgl32.XYZ)
	}

	for i := range mesh.Vertices {
		v := &mesh.Vertices[i]
		v.Position = rotation.Rotate(v.Position.Mul(options.Scale)).Add(options.Translation)
		if hasRotation {
			v.Normal = rotation.Rotate(v.Normal)
			v.Tangent = rotation.Rotate(v.Tangent)
		}
	}
}

// splitCollisionMeshes moves prefix-matching meshes out of the render LODs.
func splitCollisionMeshes(data *ImportedModelData, prefix string) {
	for li := range data.LODs {
		lod := &data.LODs[li]
		kept := lod.Meshes[:0]
		for _, mesh := range lod.Meshes {
			if strings.HasPrefix(mesh.Name, prefix) {
				data.Collision = append(data.Collision, mesh)
			} else {
				kept = append(kept, mesh)
			}
		}
		lod.Meshes = kept
	}
}

// selectObject keeps only the mesh (across all LODs) at the given index.
func selectObject(data *ImportedModelData, objectIndex int32) {
	if len(data.LODs) == 0 {
		return
	}
	if objectIndex >= int32(len(data.LODs[0].Meshes)) {
		core.LogWarn("Object index %d is out of range, importing all objects.", objectIndex)
		return
	}
	for li := range data.LODs {
		lod := &data.LODs[li]
		if objectIndex < int32(len(lod.Meshes)) {
			lod.Meshes = []*MeshData{lod.Meshes[objectIndex]}
		}
	}
}

// centerGeometry shifts all vertices so the LOD0 bounds center lands at the origin.
func centerGeometry(data *ImportedModelData) {
	center := data.LODs[0].Box().Center()
	if center == (math.Vec3{}) {
		return
	}
	for li := range data.LODs {
		for _, mesh := range data.LODs[li].Meshes {
			for i := range mesh.Vertices {
				mesh.Vertices[i].Position = mesh.Vertices[i].Position.Sub(center)
			}
		}
	}
	for _, mesh := range data.Collision {
		for i := range mesh.Vertices {
			mesh.Vertices[i].Position = mesh.Vertices[i].Position.Sub(center)
		}
	}
}

// mergeMeshesByMaterial merges meshes sharing a material slot into one.
func mergeMeshesByMaterial(lod *LOD) {
	if len(lod.Meshes) < 2 {
		return
	}

	merged := make([]*MeshData, 0, len(lod.Meshes))
	bySlot := make(map[int32]*MeshData)

	for _, mesh := range lod.Meshes {
		target, ok := bySlot[mesh.MaterialSlotIndex]
		if !ok {
			bySlot[mesh.MaterialSlotIndex] = mesh
			merged = append(merged, mesh)
			continue
		}

		// Skinned meshes keep their own blend data layout, skip merging those.
		if len(mesh.BlendIndices) > 0 || len(target.BlendIndices) > 0 {
			merged = append(merged, mesh)
			continue
		}

		base := uint32(len(target.Vertices))
		target.Vertices = append(target.Vertices, mesh.Vertices...)
		for _, index := range mesh.Indices {
			target.Indices = append(target.Indices, base+index)
		}
		target.LightmapUVs = append(target.LightmapUVs, mesh.LightmapUVs...)
	}

	if len(merged) < len(lod.Meshes) {
		core.LogDebug("Merged %d meshes into %d by material slot.", len(lod.Meshes), len(merged))
	}
	lod.Meshes = merged
}

// generateLightmapUVs produces a planar box-projection UV set as a cheap
// stand-in for a full unwrap.
func generateLightmapUVs(mesh *MeshData) []math.Vec2 {
	box := mesh.Box()
	size := box.Size()
	for i := 0; i < 3; i++ {
		if size[i] < math.K_FLOAT_EPSILON {
			size[i] = 1
		}
	}

	uvs := make([]math.Vec2, len(mesh.Vertices))
	for i := range mesh.Vertices {
		v := &mesh.Vertices[i]
		n := v.Normal
		ax, ay, az := math.Abs32(n.X()), math.Abs32(n.Y()), math.Abs32(n.Z())
		p := v.Position.Sub(box.Min)
		switch {
		case az >= ax && az >= ay:
			uvs[i] = math.Vec2{p.X() / size.X(), p.Y() / size.Y()}
		case ay >= ax:
			uvs[i] = math.Vec2{p.X() / size.X(), p.Z() / size.Z()}
		default:
			uvs[i] = math.Vec2{p.Y() / size.Y(), p.Z() / size.Z()}
		}
	}
	return uvs
}

// generateLODs builds a chain of reduced LODs starting at the base LOD.
func generateLODs(data *ImportedModelData, options *Options) {
	baseLOD := math.Clamp(options.BaseLOD, 0, int32(len(data.LODs)-1))
	lodCount := math.Clamp(options.LODCount, 1, MaxLODs)

	// Drop everything past the base so the chain is regenerated clean.
	data.LODs = data.LODs[:baseLOD+1]

	for lodIndex := baseLOD + 1; lodIndex < baseLOD+lodCount; lodIndex++ {
		prev := &data.LODs[lodIndex-1]
		next := LOD{}
		for _, mesh := range prev.Meshes {
			reduced := reduceMesh(mesh, options.TriangleReduction)
			if reduced.TriangleCount() > 0 {
				next.Meshes = append(next.Meshes, reduced)
			}
		}
		if len(next.Meshes) == 0 {
			break
		}
		core.LogDebug("Generated LOD%d with %d triangles (from %d).",
			lodIndex, next.TriangleCount(), prev.TriangleCount())
		data.LODs = append(data.LODs, next)
	}
}

/**
 * @brief Reduces the mesh triangle count towards the given ratio using
 * grid-based vertex clustering: vertices falling into the same cell collapse
 * to a single representative and triangles that degenerate are dropped.
 */
func reduceMesh(mesh *MeshData, triangleReduction float32) *MeshData {
	ratio := math.Clamp(triangleReduction, 0.001, 1.0)
	box := mesh.Box()
	size := box.Size()
	maxSize := math.Max(size.X(), math.Max(size.Y(), size.Z()))
	if maxSize < math.K_FLOAT_EPSILON {
		return &MeshData{Name: mesh.Name, MaterialSlotIndex: mesh.MaterialSlotIndex, NodeIndex: mesh.NodeIndex}
	}

	// Pick a cluster-grid resolution so the expected triangle count lands
	// near the target: a surface crossing a cells^3 grid spans about
	// 2*cells^2 triangles.
	targetTriangles := float64(mesh.TriangleCount()) * float64(ratio)
	cells := int(m.Ceil(m.Sqrt(targetTriangles / 2)))
	if cells < 2 {
		cells = 2
	}
	cellSize := maxSize / float32(cells)

	type cellKey struct{ x, y, z int32 }
	cellOf := func(p math.Vec3) cellKey {
		rel := p.Sub(box.Min)
		return cellKey{
			int32(rel.X() / cellSize),
			int32(rel.Y() / cellSize),
			int32(rel.Z() / cellSize),
		}
	}

	remap := make([]uint32, len(mesh.Vertices))
	representatives := make(map[cellKey]uint32)
	out := &MeshData{Name: mesh.Name, MaterialSlotIndex: mesh.MaterialSlotIndex, NodeIndex: mesh.NodeIndex}

	for i := range mesh.Vertices {
		key := cellOf(mesh.Vertices[i].Position)
		rep, ok := representatives[key]
		if !ok {
			rep = uint32(len(out.Vertices))
			representatives[key] = rep
			out.Vertices = append(out.Vertices, mesh.Vertices[i])
		}
		remap[i] = rep
	}

	for t := 0; t < len(mesh.Indices); t += 3 {
		i0 := remap[mesh.Indices[t+0]]
		i1 := remap[mesh.Indices[t+1]]
		i2 := remap[mesh.Indices[t+2]]
		if i0 == i1 || i1 == i2 || i0 == i2 {
			continue
		}
		out.Indices = append(out.Indices, i0, i1, i2)
	}

	return out
}

// processAnimation applies the animation options to the imported clip.
func processAnimation(data *ImportedModelData, options *Options) {
	anim := &data.Animation

	if options.DefaultFrameRate > 0 && anim.FramesPerSecond == 0 {
		anim.FramesPerSecond = float64(options.DefaultFrameRate)
	}
	if options.SamplingRate > 0 {
		anim.FramesPerSecond = float64(options.SamplingRate)
	}

	if options.Duration == AnimationDurationCustom {
		first := float64(options.FramesRange.X())
		last := float64(options.FramesRange.Y())
		if last > first {
			anim.Duration = last - first
			for ci := range anim.Channels {
				clampChannel(&anim.Channels[ci], float32(first), float32(last))
			}
		}
	}

	if !options.ImportScaleTracks {
		for ci := range anim.Channels {
			anim.Channels[ci].Scale = nil
		}
	}

	if options.OptimizeKeyframes {
		for ci := range anim.Channels {
			ch := &anim.Channels[ci]
			ch.Position = optimizeKeyframes(ch.Position, func(a, b math.Vec3) bool {
				return math.Vec3Compare(a, b, math.K_FLOAT_EPSILON)
			})
			ch.Rotation = optimizeKeyframes(ch.Rotation, func(a, b math.Quaternion) bool {
				return a == b
			})
			ch.Scale = optimizeKeyframes(ch.Scale, func(a, b math.Vec3) bool {
				return math.Vec3Compare(a, b, math.K_FLOAT_EPSILON)
			})
		}
	}

	if options.SkipEmptyCurves {
		kept := anim.Channels[:0]
		for ci := range anim.Channels {
			if !anim.Channels[ci].IsEmpty() {
				kept = append(kept, anim.Channels[ci])
			}
		}
		anim.Channels = kept
	}
}

// clampChannel drops keyframes outside [first, last] and rebases time to first.
func clampChannel(ch *NodeAnimationData, first, last float32) {
	clampKeys := func(keys []Keyframe[math.Vec3]) []Keyframe[math.Vec3] {
		out := keys[:0]
		for _, k := range keys {
			if k.Time >= first && k.Time <= last {
				k.Time -= first
				out = append(out, k)
			}
		}
		return out
	}
	ch.Position = clampKeys(ch.Position)
	ch.Scale = clampKeys(ch.Scale)

	rotation := ch.Rotation[:0]
	for _, k := range ch.Rotation {
		if k.Time >= first && k.Time <= last {
			k.Time -= first
			rotation = append(rotation, k)
		}
	}
	ch.Rotation = rotation
}

// optimizeKeyframes removes interior keyframes equal to both neighbours.
func optimizeKeyframes[T any](keys []Keyframe[T], equal func(a, b T) bool) []Keyframe[T] {
	if len(keys) < 3 {
		return keys
	}
	out := keys[:1]
	for i := 1; i < len(keys)-1; i++ {
		if equal(keys[i-1].Value, keys[i].Value) && equal(keys[i].Value, keys[i+1].Value) {
			continue
		}
		out = append(out, keys[i])
	}
	return append(out, keys[len(keys)-1])
}
