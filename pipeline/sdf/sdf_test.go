package sdf

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/spaghettifunk/atlante/pipeline/jobs"
	"github.com/spaghettifunk/atlante/pipeline/math"
	"github.com/spaghettifunk/atlante/pipeline/model"
)

// buildBoxModel builds a closed axis-aligned box mesh with outward winding.
func buildBoxModel(min, max math.Vec3) *model.ImportedModelData {
	corners := [8]math.Vec3{
		{min.X(), min.Y(), min.Z()},
		{max.X(), min.Y(), min.Z()},
		{max.X(), max.Y(), min.Z()},
		{min.X(), max.Y(), min.Z()},
		{min.X(), min.Y(), max.Z()},
		{max.X(), min.Y(), max.Z()},
		{max.X(), max.Y(), max.Z()},
		{min.X(), max.Y(), max.Z()},
	}
	// Two counter-clockwise triangles per face, seen from outside.
	faces := [][4]int{
		{0, 3, 2, 1}, // -z
		{4, 5, 6, 7}, // +z
		{0, 4, 7, 3}, // -x
		{1, 2, 6, 5}, // +x
		{0, 1, 5, 4}, // -y
		{3, 7, 6, 2}, // +y
	}

	mesh := &model.MeshData{Name: "box"}
	for _, c := range corners {
		mesh.Vertices = append(mesh.Vertices, math.Vertex3D{Position: c})
	}
	for _, f := range faces {
		mesh.Indices = append(mesh.Indices,
			uint32(f[0]), uint32(f[1]), uint32(f[2]),
			uint32(f[0]), uint32(f[2]), uint32(f[3]),
		)
	}

	data := model.NewImportedModelData(model.ImportDataTypesGeometry)
	data.LODs = append(data.LODs, model.LOD{Meshes: []*model.MeshData{mesh}})
	return data
}

func TestGenerateModelSDFBoxSigns(t *testing.T) {
	data := buildBoxModel(math.Vec3{-1, -1, -1}, math.Vec3{1, 1, 1})

	sdf, err := GenerateModelSDF(data, 1.0, 0, 0, "box", nil)
	if err != nil {
		t.Fatalf("GenerateModelSDF failed: %v", err)
	}

	if sdf.Width < minResolution || sdf.Height < minResolution || sdf.Depth < minResolution {
		t.Fatalf("unexpected volume dimensions %dx%dx%d", sdf.Width, sdf.Height, sdf.Depth)
	}
	if len(sdf.Mips) == 0 {
		t.Fatal("no mips generated")
	}

	center := sdf.Sample(0, sdf.Width/2, sdf.Height/2, sdf.Depth/2)
	if center >= 0 {
		t.Errorf("center of a solid box should be inside, got distance %v", center)
	}

	corner := sdf.Sample(0, 0, 0, 0)
	if corner <= 0 {
		t.Errorf("volume corner should be outside the box, got distance %v", corner)
	}

	// The center of a 2x2x2 box is one unit from every face, well past the
	// encoding range, so the stored distance saturates at MaxDistance.
	if math.Abs32(math.Abs32(center)-sdf.MaxDistance) > 2*sdf.MaxDistance/65535 {
		t.Errorf("center distance magnitude = %v, want the MaxDistance clamp %v", math.Abs32(center), sdf.MaxDistance)
	}
}

func TestGenerateModelSDFVoxelSpacing(t *testing.T) {
	data := buildBoxModel(math.Vec3{-1, -1, -1}, math.Vec3{1, 1, 1})

	sdf, err := GenerateModelSDF(data, 1.0, 0, 0, "box", nil)
	if err != nil {
		t.Fatalf("GenerateModelSDF failed: %v", err)
	}

	// The sampled region is the local bounds plus a one-voxel margin on each
	// side; the dimensions must span it at WorldUnitsPerVoxel spacing.
	spans := [3]float32{
		sdf.LocalBoundsMax.X() - sdf.LocalBoundsMin.X(),
		sdf.LocalBoundsMax.Y() - sdf.LocalBoundsMin.Y(),
		sdf.LocalBoundsMax.Z() - sdf.LocalBoundsMin.Z(),
	}
	dims := [3]int32{sdf.Width, sdf.Height, sdf.Depth}
	for i := 0; i < 3; i++ {
		covered := float32(dims[i]) * sdf.WorldUnitsPerVoxel
		want := spans[i] + 2*sdf.WorldUnitsPerVoxel
		if math.Abs32(covered-want) > sdf.WorldUnitsPerVoxel*0.01 {
			t.Errorf("axis %d covers %v world units with %d voxels, want %v", i, covered, dims[i], want)
		}
	}
}

func TestGenerateModelSDFWithJobSystem(t *testing.T) {
	data := buildBoxModel(math.Vec3{-0.5, -0.5, -0.5}, math.Vec3{0.5, 0.5, 0.5})

	pool := jobs.NewDefaultJobSystem()
	defer pool.Shutdown()

	sdf, err := GenerateModelSDF(data, 1.0, 0, 0, "box", pool)
	if err != nil {
		t.Fatalf("GenerateModelSDF failed: %v", err)
	}
	serial, err := GenerateModelSDF(data, 1.0, 0, 0, "box", nil)
	if err != nil {
		t.Fatalf("GenerateModelSDF failed: %v", err)
	}
	if !reflect.DeepEqual(sdf.Mips, serial.Mips) {
		t.Error("parallel and serial generation should produce identical volumes")
	}
}

func TestGenerateModelSDFResolutionScale(t *testing.T) {
	data := buildBoxModel(math.Vec3{-1, -1, -1}, math.Vec3{1, 1, 1})

	low, err := GenerateModelSDF(data, 0.25, 0, 0, "box", nil)
	if err != nil {
		t.Fatalf("GenerateModelSDF failed: %v", err)
	}
	high, err := GenerateModelSDF(data, 1.0, 0, 0, "box", nil)
	if err != nil {
		t.Fatalf("GenerateModelSDF failed: %v", err)
	}
	if low.Width >= high.Width {
		t.Errorf("scale 0.25 width %d should be below scale 1.0 width %d", low.Width, high.Width)
	}
	if low.WorldUnitsPerVoxel <= high.WorldUnitsPerVoxel {
		t.Errorf("lower resolution should mean bigger voxels: %v vs %v", low.WorldUnitsPerVoxel, high.WorldUnitsPerVoxel)
	}
}

func TestGenerateModelSDFEmptyGeometry(t *testing.T) {
	data := model.NewImportedModelData(model.ImportDataTypesGeometry)
	if _, err := GenerateModelSDF(data, 1.0, 0, 0, "empty", nil); err == nil {
		t.Error("expected an error for a model without LODs")
	}

	data.LODs = append(data.LODs, model.LOD{Meshes: []*model.MeshData{{Name: "empty"}}})
	if _, err := GenerateModelSDF(data, 1.0, 0, 0, "empty", nil); err == nil {
		t.Error("expected an error for a LOD without triangles")
	}
}

func TestSDFMipChain(t *testing.T) {
	data := buildBoxModel(math.Vec3{-1, -1, -1}, math.Vec3{1, 1, 1})

	sdf, err := GenerateModelSDF(data, 1.0, 0, 0, "box", nil)
	if err != nil {
		t.Fatalf("GenerateModelSDF failed: %v", err)
	}
	if len(sdf.Mips) < 2 {
		t.Fatalf("expected a mip chain for a %dx%dx%d volume, got %d mips", sdf.Width, sdf.Height, sdf.Depth, len(sdf.Mips))
	}
	for i, data := range sdf.Mips {
		w, h, d := sdf.MipDimensions(i)
		want := int(w) * int(h) * int(d) * sdf.Format.BytesPerVoxel()
		if len(data) != want {
			t.Errorf("mip %d has %d bytes, want %d", i, len(data), want)
		}
	}
	// The downsample keeps the min magnitude sample, so the box interior
	// stays negative in every mip.
	for i := range sdf.Mips {
		w, h, d := sdf.MipDimensions(i)
		if sample := sdf.Sample(i, w/2, h/2, d/2); sample >= 0 {
			t.Errorf("mip %d center should stay inside, got %v", i, sample)
		}
	}
}

func TestSDFStreamRoundtrip(t *testing.T) {
	data := buildBoxModel(math.Vec3{-1, -2, -3}, math.Vec3{1, 2, 3})

	sdf, err := GenerateModelSDF(data, 0.5, 0, 0.6, "box", nil)
	if err != nil {
		t.Fatalf("GenerateModelSDF failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteStream(sdf, &buf); err != nil {
		t.Fatalf("WriteStream failed: %v", err)
	}
	got, err := ReadStream(&buf)
	if err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	if !reflect.DeepEqual(got, sdf) {
		t.Error("stream roundtrip should preserve the volume")
	}
}

func TestReadStreamRejectsGarbage(t *testing.T) {
	if _, err := ReadStream(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8})); err == nil {
		t.Error("expected an error for a bad magic")
	}
}
