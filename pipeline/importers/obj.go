package importers

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spaghettifunk/atlante/pipeline/core"
	"github.com/spaghettifunk/atlante/pipeline/math"
	"github.com/spaghettifunk/atlante/pipeline/model"
)

/**
 * @brief Imports Wavefront OBJ source files, with material slots from the
 * companion MTL library when one is referenced.
 */
type OBJBackend struct{}

func (b *OBJBackend) Name() string {
	return "OBJ"
}

func (b *OBJBackend) CanImport(extension string) bool {
	return extension == ".obj"
}

// objFaceVertex is a single v/vt/vn corner reference of a face.
type objFaceVertex struct {
	position int
	texcoord int
	normal   int
}

// objBuilder accumulates the faces of a single output mesh.
type objBuilder struct {
	name         string
	materialName string
	faces        []objFaceVertex
}

func (b *OBJBackend) Import(path string, data *model.ImportedModelData, options *model.Options) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var positions []math.Vec3
	var texcoords []math.Vec2
	var normals []math.Vec3
	var builders []*objBuilder
	var materialLib string

	current := &objBuilder{name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	builders = append(builders, current)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			v, err := parseFloats3(fields[1:])
			if err != nil {
				return fmt.Errorf("line %d: invalid vertex position: %w", line, err)
			}
			positions = append(positions, v)
		case "vn":
			v, err := parseFloats3(fields[1:])
			if err != nil {
				return fmt.Errorf("line %d: invalid vertex normal: %w", line, err)
			}
			normals = append(normals, v)
		case "vt":
			if len(fields) < 3 {
				return fmt.Errorf("line %d: invalid texture coordinate", line)
			}
			u, err0 := strconv.ParseFloat(fields[1], 32)
			v, err1 := strconv.ParseFloat(fields[2], 32)
			if err0 != nil || err1 != nil {
				return fmt.Errorf("line %d: invalid texture coordinate", line)
			}
			texcoords = append(texcoords, math.Vec2{float32(u), float32(v)})
		case "f":
			corners := make([]objFaceVertex, 0, len(fields)-1)
			for _, field := range fields[1:] {
				corner, err := parseFaceVertex(field, len(positions), len(texcoords), len(normals))
				if err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}
				corners = append(corners, corner)
			}
			if len(corners) < 3 {
				return fmt.Errorf("line %d: face with less than 3 vertices", line)
			}
			// Fan-triangulate polygons.
			for i := 2; i < len(corners); i++ {
				current.faces = append(current.faces, corners[0], corners[i-1], corners[i])
			}
		case "o", "g":
			name := current.name
			if len(fields) > 1 {
				name = fields[1]
			}
			if len(current.faces) > 0 {
				current = &objBuilder{name: name, materialName: current.materialName}
				builders = append(builders, current)
			} else {
				current.name = name
			}
		case "usemtl":
			if len(fields) > 1 {
				if len(current.faces) > 0 {
					current = &objBuilder{name: current.name + "_" + fields[1]}
					builders = append(builders, current)
				}
				current.materialName = fields[1]
			}
		case "mtllib":
			if len(fields) > 1 {
				materialLib = fields[1]
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	materialSlots := map[string]int32{}
	if data.Types.Has(model.ImportDataTypesMaterials) && materialLib != "" {
		if err := importMaterialLib(filepath.Join(filepath.Dir(path), materialLib), data, materialSlots); err != nil {
			core.LogWarn("Failed to read material library '%s': %v", materialLib, err)
		}
	}

	if data.Types.Has(model.ImportDataTypesGeometry) {
		for _, builder := range builders {
			if len(builder.faces) == 0 {
				continue
			}
			mesh := builder.build(positions, texcoords, normals, materialSlots)

			lodIndex := int32(0)
			if options.ImportLODs {
				lodIndex = model.DetectLodIndex(builder.name)
			}
			lod := data.EnsureLOD(lodIndex)
			lod.Meshes = append(lod.Meshes, mesh)
		}
	}

	if data.Types.Has(model.ImportDataTypesNodes) {
		// OBJ has no scene hierarchy, emit a single root node.
		data.Nodes = append(data.Nodes, model.Node{
			ParentIndex:    -1,
			LocalTransform: math.NewTransform(),
			Name:           strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		})
	}

	return nil
}

// build assembles the MeshData from the accumulated face corners.
func (b *objBuilder) build(positions []math.Vec3, texcoords []math.Vec2, normals []math.Vec3, materialSlots map[string]int32) *model.MeshData {
	mesh := &model.MeshData{
		Name:              b.name,
		MaterialSlotIndex: -1,
	}
	if slot, ok := materialSlots[b.materialName]; ok {
		mesh.MaterialSlotIndex = slot
	}

	// OBJ indexes positions/texcoords/normals independently, re-index to a
	// single vertex stream.
	seen := map[objFaceVertex]uint32{}
	for _, corner := range b.faces {
		index, ok := seen[corner]
		if !ok {
			vertex := math.Vertex3D{Colour: math.Vec4{1, 1, 1, 1}}
			if corner.position >= 0 && corner.position < len(positions) {
				vertex.Position = positions[corner.position]
			}
			if corner.texcoord >= 0 && corner.texcoord < len(texcoords) {
				vertex.Texcoord = texcoords[corner.texcoord]
			}
			if corner.normal >= 0 && corner.normal < len(normals) {
				vertex.Normal = normals[corner.normal]
			}
			index = uint32(len(mesh.Vertices))
			mesh.Vertices = append(mesh.Vertices, vertex)
			seen[corner] = index
		}
		mesh.Indices = append(mesh.Indices, index)
	}

	return mesh
}

// parseFaceVertex parses a face corner reference: "v", "v/vt", "v//vn" or "v/vt/vn".
// OBJ indices are one-based; negative values reference from the end.
func parseFaceVertex(field string, positionCount, texcoordCount, normalCount int) (objFaceVertex, error) {
	corner := objFaceVertex{position: -1, texcoord: -1, normal: -1}
	parts := strings.Split(field, "/")

	resolve := func(raw string, count int) (int, error) {
		if raw == "" {
			return -1, nil
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return -1, fmt.Errorf("invalid face index '%s'", raw)
		}
		if value < 0 {
			value = count + value + 1
		}
		if value < 1 || value > count {
			return -1, fmt.Errorf("face index %d out of range", value)
		}
		return value - 1, nil
	}

	var err error
	if corner.position, err = resolve(parts[0], positionCount); err != nil {
		return corner, err
	}
	if len(parts) > 1 {
		if corner.texcoord, err = resolve(parts[1], texcoordCount); err != nil {
			return corner, err
		}
	}
	if len(parts) > 2 {
		if corner.normal, err = resolve(parts[2], normalCount); err != nil {
			return corner, err
		}
	}

	return corner, nil
}

func parseFloats3(fields []string) (math.Vec3, error) {
	if len(fields) < 3 {
		return math.Vec3{}, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	var v math.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}

// importMaterialLib parses the MTL file, filling material and texture slots.
func importMaterialLib(path string, data *model.ImportedModelData, materialSlots map[string]int32) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	textureSlots := map[string]int32{}
	textureSlot := func(file string, usage model.TextureType) int32 {
		if index, ok := textureSlots[file]; ok {
			return index
		}
		index := int32(len(data.Textures))
		data.Textures = append(data.Textures, model.TextureEntry{FilePath: file, Type: usage})
		textureSlots[file] = index
		return index
	}

	slotIndex := int32(-1)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "newmtl":
			slotIndex = int32(len(data.Materials))
			materialSlots[fields[1]] = slotIndex
			data.Materials = append(data.Materials, model.NewMaterialSlotEntry(fields[1]))
		case "Kd":
			if slotIndex >= 0 {
				if v, err := parseFloats3(fields[1:]); err == nil {
					slot := &data.Materials[slotIndex]
					slot.DiffuseColor = math.Vec4{v.X(), v.Y(), v.Z(), slot.DiffuseColor.W()}
				}
			}
		case "Ke":
			if slotIndex >= 0 {
				if v, err := parseFloats3(fields[1:]); err == nil {
					data.Materials[slotIndex].EmissiveColor = v
				}
			}
		case "d":
			if slotIndex >= 0 {
				if opacity, err := strconv.ParseFloat(fields[1], 32); err == nil {
					data.Materials[slotIndex].Opacity = float32(opacity)
				}
			}
		case "map_Kd":
			if slotIndex >= 0 && data.Types.Has(model.ImportDataTypesTextures) {
				data.Materials[slotIndex].DiffuseTextureIndex = textureSlot(fields[len(fields)-1], model.TextureTypeDiffuse)
			}
		case "map_bump", "bump", "norm":
			if slotIndex >= 0 && data.Types.Has(model.ImportDataTypesTextures) {
				data.Materials[slotIndex].NormalsTextureIndex = textureSlot(fields[len(fields)-1], model.TextureTypeNormals)
			}
		}
	}
	return scanner.Err()
}
