package importers

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/spaghettifunk/atlante/pipeline/core"
	"github.com/spaghettifunk/atlante/pipeline/math"
	"github.com/spaghettifunk/atlante/pipeline/model"
)

/**
 * @brief Imports glTF 2.0 and GLB source files. Parsing is carried by
 * qmuntal/gltf; this backend only maps the document onto the unified
 * imported data container.
 */
type GLTFBackend struct{}

func (b *GLTFBackend) Name() string {
	return "glTF"
}

func (b *GLTFBackend) CanImport(extension string) bool {
	return extension == ".gltf" || extension == ".glb"
}

func (b *GLTFBackend) Import(path string, data *model.ImportedModelData, options *model.Options) error {
	doc, err := gltf.Open(path)
	if err != nil {
		return err
	}

	nodeOfMesh := map[int]int32{}
	if data.Types.Has(model.ImportDataTypesNodes) {
		nodeOfMesh = importNodes(doc, data)
	}

	if data.Types.Has(model.ImportDataTypesMaterials) {
		importMaterials(doc, data)
	}
	if data.Types.Has(model.ImportDataTypesTextures) {
		if err := importTextures(doc, data); err != nil {
			return err
		}
	}

	if data.Types.Has(model.ImportDataTypesGeometry) {
		if err := importMeshes(doc, data, options, nodeOfMesh); err != nil {
			return err
		}
	}

	if data.Types.Has(model.ImportDataTypesSkeleton) {
		if err := importSkeleton(doc, data); err != nil {
			return err
		}
	}

	if data.Types.Has(model.ImportDataTypesAnimations) {
		if err := importAnimations(doc, data, options); err != nil {
			return err
		}
	}

	return nil
}

// nodeTransform builds the local transform of a glTF node from its TRS fields.
func nodeTransform(node *gltf.Node) math.Transform {
	transform := math.NewTransform()
	transform.Position = math.Vec3{
		float32(node.Translation[0]),
		float32(node.Translation[1]),
		float32(node.Translation[2]),
	}
	if node.Rotation != [4]float64{} {
		transform.Rotation = mgl32.Quat{
			W: float32(node.Rotation[3]),
			V: math.Vec3{
				float32(node.Rotation[0]),
				float32(node.Rotation[1]),
				float32(node.Rotation[2]),
			},
		}.Normalize()
	}
	if node.Scale != [3]float64{} {
		transform.Scale = math.Vec3{
			float32(node.Scale[0]),
			float32(node.Scale[1]),
			float32(node.Scale[2]),
		}
	}
	return transform
}

// importNodes flattens the node hierarchy into the container, returning the
// mapping of glTF mesh index to owning scene node index.
func importNodes(doc *gltf.Document, data *model.ImportedModelData) map[int]int32 {
	nodeOfMesh := make(map[int]int32)
	parents := make([]int32, len(doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i, node := range doc.Nodes {
		for _, child := range node.Children {
			parents[child] = int32(i)
		}
	}

	for i, node := range doc.Nodes {
		name := node.Name
		if name == "" {
			name = fmt.Sprintf("Node_%d", i)
		}
		data.Nodes = append(data.Nodes, model.Node{
			ParentIndex:    parents[i],
			LocalTransform: nodeTransform(node),
			Name:           name,
		})
		if node.Mesh != nil {
			nodeOfMesh[*node.Mesh] = int32(i)
		}
	}

	return nodeOfMesh
}

// importMaterials maps the glTF material slots onto the container.
func importMaterials(doc *gltf.Document, data *model.ImportedModelData) {
	for i, gltfMat := range doc.Materials {
		name := gltfMat.Name
		if name == "" {
			name = fmt.Sprintf("Material_%d", i)
		}
		slot := model.NewMaterialSlotEntry(name)
		slot.TwoSided = gltfMat.DoubleSided
		slot.EmissiveColor = math.Vec3{
			float32(gltfMat.EmissiveFactor[0]),
			float32(gltfMat.EmissiveFactor[1]),
			float32(gltfMat.EmissiveFactor[2]),
		}

		if pbr := gltfMat.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				color := *pbr.BaseColorFactor
				slot.DiffuseColor = math.Vec4{
					float32(color[0]),
					float32(color[1]),
					float32(color[2]),
					float32(color[3]),
				}
				slot.Opacity = float32(color[3])
			}
			if texture := pbr.BaseColorTexture; texture != nil {
				if source := doc.Textures[texture.Index].Source; source != nil {
					slot.DiffuseTextureIndex = int32(*source)
				}
			}
		}
		if normal := gltfMat.NormalTexture; normal != nil && normal.Index != nil {
			if source := doc.Textures[*normal.Index].Source; source != nil {
				slot.NormalsTextureIndex = int32(*source)
			}
		}
		if emissive := gltfMat.EmissiveTexture; emissive != nil {
			if source := doc.Textures[emissive.Index].Source; source != nil {
				slot.EmissiveTextureIndex = int32(*source)
			}
		}

		data.Materials = append(data.Materials, slot)
	}
}

// importTextures collects the texture slots, resolving embedded image buffers.
func importTextures(doc *gltf.Document, data *model.ImportedModelData) error {
	for _, image := range doc.Images {
		entry := model.TextureEntry{
			FilePath: image.URI,
			Type:     model.TextureTypeDiffuse,
		}
		if image.URI == "" && image.BufferView != nil {
			pixels, err := modeler.ReadBufferView(doc, doc.BufferViews[*image.BufferView])
			if err != nil {
				return fmt.Errorf("failed to read embedded texture '%s': %w", image.Name, err)
			}
			entry.Data = pixels
			entry.FilePath = image.Name
		}
		data.Textures = append(data.Textures, entry)
	}

	// Refine usage types from the material slot references.
	for _, slot := range data.Materials {
		if slot.NormalsTextureIndex >= 0 && int(slot.NormalsTextureIndex) < len(data.Textures) {
			data.Textures[slot.NormalsTextureIndex].Type = model.TextureTypeNormals
		}
		if slot.EmissiveTextureIndex >= 0 && int(slot.EmissiveTextureIndex) < len(data.Textures) {
			data.Textures[slot.EmissiveTextureIndex].Type = model.TextureTypeEmissive
		}
	}
	return nil
}

// importMeshes extracts one MeshData per glTF primitive.
func importMeshes(doc *gltf.Document, data *model.ImportedModelData, options *model.Options, nodeOfMesh map[int]int32) error {
	for meshIndex, gltfMesh := range doc.Meshes {
		name := gltfMesh.Name
		if name == "" {
			name = fmt.Sprintf("Mesh_%d", meshIndex)
		}

		nodeIndex := int32(-1)
		if ni, ok := nodeOfMesh[meshIndex]; ok {
			nodeIndex = ni
		}

		lodIndex := int32(0)
		if options.ImportLODs && nodeIndex >= 0 {
			lodIndex = model.DetectLodIndex(data.Nodes[nodeIndex].Name)
		}

		for primIndex, prim := range gltfMesh.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				core.LogWarn("Mesh '%s' primitive %d uses a non-triangle mode and was skipped.", name, primIndex)
				continue
			}

			mesh, err := extractPrimitive(doc, prim, options)
			if err != nil {
				return fmt.Errorf("mesh '%s' primitive %d: %w", name, primIndex, err)
			}
			mesh.Name = name
			if primIndex > 0 {
				mesh.Name = fmt.Sprintf("%s_%d", name, primIndex)
			}
			mesh.NodeIndex = nodeIndex

			data.EnsureLOD(lodIndex).Meshes = append(data.EnsureLOD(lodIndex).Meshes, mesh)
		}
	}
	return nil
}

// extractPrimitive reads the accessor data of one primitive into a MeshData.
func extractPrimitive(doc *gltf.Document, prim *gltf.Primitive, options *model.Options) (*model.MeshData, error) {
	posAccessor, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posAccessor], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	mesh := &model.MeshData{MaterialSlotIndex: -1}
	if prim.Material != nil {
		mesh.MaterialSlotIndex = int32(*prim.Material)
	}

	mesh.Vertices = make([]math.Vertex3D, len(positions))
	for i, position := range positions {
		mesh.Vertices[i].Position = math.Vec3(position)
		mesh.Vertices[i].Colour = math.Vec4{1, 1, 1, 1}
	}

	if normalAccessor, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[normalAccessor], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read normals: %w", err)
		}
		for i := range normals {
			mesh.Vertices[i].Normal = math.Vec3(normals[i])
		}
	}

	if uvAccessor, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[uvAccessor], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read texture coordinates: %w", err)
		}
		for i := range uvs {
			mesh.Vertices[i].Texcoord = math.Vec2(uvs[i])
		}
	}

	if options.ImportVertexColors {
		if colorAccessor, ok := prim.Attributes[gltf.COLOR_0]; ok {
			colors, err := modeler.ReadColor(doc, doc.Accessors[colorAccessor], nil)
			if err != nil {
				return nil, fmt.Errorf("failed to read vertex colors: %w", err)
			}
			for i := range colors {
				mesh.Vertices[i].Colour = math.Vec4{
					float32(colors[i][0]) / 255.0,
					float32(colors[i][1]) / 255.0,
					float32(colors[i][2]) / 255.0,
					float32(colors[i][3]) / 255.0,
				}
			}
		}
	}

	if jointsAccessor, ok := prim.Attributes[gltf.JOINTS_0]; ok {
		joints, err := modeler.ReadJoints(doc, doc.Accessors[jointsAccessor], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read joints: %w", err)
		}
		weightsAccessor, ok := prim.Attributes[gltf.WEIGHTS_0]
		if !ok {
			return nil, fmt.Errorf("primitive has JOINTS_0 but no WEIGHTS_0 attribute")
		}
		weights, err := modeler.ReadWeights(doc, doc.Accessors[weightsAccessor], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read weights: %w", err)
		}

		mesh.BlendIndices = make([][4]int32, len(joints))
		mesh.BlendWeights = make([]math.Vec4, len(weights))
		for i := range joints {
			mesh.BlendIndices[i] = [4]int32{
				int32(joints[i][0]),
				int32(joints[i][1]),
				int32(joints[i][2]),
				int32(joints[i][3]),
			}
		}
		for i := range weights {
			mesh.BlendWeights[i] = math.Vec4(weights[i])
		}
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
		mesh.Indices = indices
	} else {
		// Non-indexed geometry, synthesize a sequential index buffer.
		mesh.Indices = make([]uint32, len(mesh.Vertices))
		for i := range mesh.Indices {
			mesh.Indices[i] = uint32(i)
		}
	}

	return mesh, nil
}

// importSkeleton builds the bones hierarchy from the first skin.
func importSkeleton(doc *gltf.Document, data *model.ImportedModelData) error {
	if len(doc.Skins) == 0 {
		return nil
	}
	if len(doc.Skins) > 1 {
		core.LogWarn("Source file has %d skins, only the first one is imported.", len(doc.Skins))
	}
	skin := doc.Skins[0]

	var bindMatrices [][4][4]float32
	if skin.InverseBindMatrices != nil {
		raw, err := modeler.ReadAccessor(doc, doc.Accessors[*skin.InverseBindMatrices], nil)
		if err != nil {
			return fmt.Errorf("failed to read inverse bind matrices: %w", err)
		}
		matrices, ok := raw.([][4][4]float32)
		if !ok {
			return fmt.Errorf("unexpected inverse bind matrices layout")
		}
		bindMatrices = matrices
	}

	jointSet := make(map[int]int32, len(skin.Joints))
	for boneIndex, joint := range skin.Joints {
		jointSet[joint] = int32(boneIndex)
	}

	for boneIndex, joint := range skin.Joints {
		node := doc.Nodes[joint]

		// Walk up the node hierarchy until another joint (or the root) is found.
		parent := int32(-1)
		if int(joint) < len(data.Nodes) {
			ancestor := data.Nodes[joint].ParentIndex
			for ancestor != -1 {
				if bi, ok := jointSet[int(ancestor)]; ok {
					parent = bi
					break
				}
				ancestor = data.Nodes[ancestor].ParentIndex
			}
		}

		bone := model.SkeletonBone{
			ParentIndex:    parent,
			NodeIndex:      int32(joint),
			LocalTransform: nodeTransform(node),
			OffsetMatrix:   mgl32.Ident4(),
			Name:           node.Name,
		}
		if boneIndex < len(bindMatrices) {
			matrix := bindMatrices[boneIndex]
			for col := 0; col < 4; col++ {
				for row := 0; row < 4; row++ {
					bone.OffsetMatrix[col*4+row] = matrix[col][row]
				}
			}
		}
		data.Skeleton.Bones = append(data.Skeleton.Bones, bone)
	}

	return nil
}

// importAnimations extracts the node animation clip selected by the options.
func importAnimations(doc *gltf.Document, data *model.ImportedModelData, options *model.Options) error {
	if len(doc.Animations) == 0 {
		return nil
	}

	clipIndex := 0
	if options.ObjectIndex >= 0 && int(options.ObjectIndex) < len(doc.Animations) {
		clipIndex = int(options.ObjectIndex)
	}
	gltfAnim := doc.Animations[clipIndex]

	channels := map[string]*model.NodeAnimationData{}
	var order []string
	channelOf := func(name string) *model.NodeAnimationData {
		if ch, ok := channels[name]; ok {
			return ch
		}
		ch := &model.NodeAnimationData{NodeName: name}
		channels[name] = ch
		order = append(order, name)
		return ch
	}

	length := float32(0)
	for _, channel := range gltfAnim.Channels {
		if channel.Target.Node == nil {
			continue
		}
		sampler := gltfAnim.Samplers[channel.Sampler]

		rawTimes, err := modeler.ReadAccessor(doc, doc.Accessors[sampler.Input], nil)
		if err != nil {
			return fmt.Errorf("failed to read animation input: %w", err)
		}
		times, ok := rawTimes.([]float32)
		if !ok {
			return fmt.Errorf("unexpected animation input layout")
		}

		rawValues, err := modeler.ReadAccessor(doc, doc.Accessors[sampler.Output], nil)
		if err != nil {
			return fmt.Errorf("failed to read animation output: %w", err)
		}

		ch := channelOf(doc.Nodes[*channel.Target.Node].Name)

		switch channel.Target.Path {
		case gltf.TRSTranslation:
			values, ok := rawValues.([][3]float32)
			if !ok {
				return fmt.Errorf("unexpected translation output layout")
			}
			for i := range times {
				ch.Position = append(ch.Position, model.Keyframe[math.Vec3]{Time: times[i], Value: math.Vec3(values[i])})
			}
		case gltf.TRSRotation:
			values, ok := rawValues.([][4]float32)
			if !ok {
				return fmt.Errorf("unexpected rotation output layout")
			}
			for i := range times {
				q := mgl32.Quat{
					W: values[i][3],
					V: math.Vec3{values[i][0], values[i][1], values[i][2]},
				}
				ch.Rotation = append(ch.Rotation, model.Keyframe[math.Quaternion]{Time: times[i], Value: q})
			}
		case gltf.TRSScale:
			values, ok := rawValues.([][3]float32)
			if !ok {
				return fmt.Errorf("unexpected scale output layout")
			}
			for i := range times {
				ch.Scale = append(ch.Scale, model.Keyframe[math.Vec3]{Time: times[i], Value: math.Vec3(values[i])})
			}
		}

		if len(times) > 0 && times[len(times)-1] > length {
			length = times[len(times)-1]
		}
	}

	for _, name := range order {
		data.Animation.Channels = append(data.Animation.Channels, *channels[name])
	}

	data.Animation.Name = gltfAnim.Name
	fps := 30.0
	data.Animation.FramesPerSecond = fps
	data.Animation.Duration = float64(length) * fps

	return nil
}
