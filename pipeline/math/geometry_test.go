package math

import (
	"testing"
)

func TestFaceNormal(t *testing.T) {
	n := FaceNormal(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0})
	if !Vec3Compare(n, Vec3{0, 0, 1}, 1e-6) {
		t.Errorf("FaceNormal = %v, want +z", n)
	}
}

func TestGeometryGenerateNormalsSmoothed(t *testing.T) {
	// Two triangles sharing an edge, folded 90 degrees along the y axis:
	// one facing +z, one facing +x.
	vertices := []Vertex3D{
		{Position: Vec3{0, 0, 0}},
		{Position: Vec3{0, 1, 0}},
		{Position: Vec3{-1, 0, 0}},
		{Position: Vec3{0, 0, -1}},
	}
	indices := []uint32{2, 0, 1, 0, 3, 1}

	GeometryGenerateNormals(vertices, indices, 175)

	// The shared edge vertices smooth across both faces.
	want := Vec3{1, 0, 1}.Normalize()
	if !Vec3Compare(vertices[0].Normal, want, 1e-5) {
		t.Errorf("shared Normal = %v, want %v", vertices[0].Normal, want)
	}
	// The outer vertices keep their face normal.
	if !Vec3Compare(vertices[2].Normal, Vec3{0, 0, 1}, 1e-5) {
		t.Errorf("outer Normal = %v, want +z", vertices[2].Normal)
	}
	if !Vec3Compare(vertices[3].Normal, Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("outer Normal = %v, want +x", vertices[3].Normal)
	}
}

func TestGeometryGenerateNormalsHardEdge(t *testing.T) {
	vertices := []Vertex3D{
		{Position: Vec3{0, 0, 0}},
		{Position: Vec3{0, 1, 0}},
		{Position: Vec3{-1, 0, 0}},
		{Position: Vec3{0, 0, -1}},
	}
	indices := []uint32{2, 0, 1, 0, 3, 1}

	// A 45 degree threshold keeps the 90 degree fold as a hard edge: the
	// shared vertex ends up with one pure face normal, never the blend.
	GeometryGenerateNormals(vertices, indices, 45)

	got := vertices[0].Normal
	if !Vec3Compare(got, Vec3{0, 0, 1}, 1e-5) && !Vec3Compare(got, Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("Normal = %v, want an unsmoothed face normal", got)
	}
}

func TestGeometryFlipNormals(t *testing.T) {
	vertices := []Vertex3D{{Normal: Vec3{0, 0, 1}}, {Normal: Vec3{0, 1, 0}}}
	GeometryFlipNormals(vertices)
	if !Vec3Compare(vertices[0].Normal, Vec3{0, 0, -1}, 1e-6) {
		t.Errorf("Normal = %v, want -z", vertices[0].Normal)
	}
	if !Vec3Compare(vertices[1].Normal, Vec3{0, -1, 0}, 1e-6) {
		t.Errorf("Normal = %v, want -y", vertices[1].Normal)
	}
}

func TestGeometryGenerateTangents(t *testing.T) {
	// A quad in the xy plane with UVs aligned to it: the tangent must follow
	// the u direction (+x).
	vertices := []Vertex3D{
		{Position: Vec3{0, 0, 0}, Normal: Vec3{0, 0, 1}, Texcoord: Vec2{0, 0}},
		{Position: Vec3{1, 0, 0}, Normal: Vec3{0, 0, 1}, Texcoord: Vec2{1, 0}},
		{Position: Vec3{1, 1, 0}, Normal: Vec3{0, 0, 1}, Texcoord: Vec2{1, 1}},
		{Position: Vec3{0, 1, 0}, Normal: Vec3{0, 0, 1}, Texcoord: Vec2{0, 1}},
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}

	GeometryGenerateTangents(vertices, indices, 45)

	for i, v := range vertices {
		if !Vec3Compare(v.Tangent, Vec3{1, 0, 0}, 1e-4) {
			t.Errorf("vertex %d Tangent = %v, want +x", i, v.Tangent)
		}
	}
}

func TestGeometryDeduplicateVertices(t *testing.T) {
	vertices := []Vertex3D{
		{Position: Vec3{0, 0, 0}},
		{Position: Vec3{1, 0, 0}},
		{Position: Vec3{0, 1, 0}},
		{Position: Vec3{0, 0, 0}}, // duplicate of 0
		{Position: Vec3{1, 0, 0}}, // duplicate of 1
	}
	indices := []uint32{0, 1, 2, 3, 4, 2}

	got := GeometryDeduplicateVertices(vertices, indices)
	if len(got) != 3 {
		t.Fatalf("len(vertices) = %d, want 3", len(got))
	}
	want := []uint32{0, 1, 2, 0, 1, 2}
	for i, index := range indices {
		if index != want[i] {
			t.Errorf("indices[%d] = %d, want %d", i, index, want[i])
		}
	}
}

func TestGeometryDeduplicateKeepsDistinctNormals(t *testing.T) {
	vertices := []Vertex3D{
		{Position: Vec3{0, 0, 0}, Normal: Vec3{0, 0, 1}},
		{Position: Vec3{0, 0, 0}, Normal: Vec3{1, 0, 0}},
		{Position: Vec3{1, 0, 0}},
	}
	indices := []uint32{0, 1, 2}

	got := GeometryDeduplicateVertices(vertices, indices)
	if len(got) != 3 {
		t.Errorf("len(vertices) = %d, vertices differing in normals must not collapse", len(got))
	}
}

func TestExtents3DMerge(t *testing.T) {
	e := Extents3D{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}
	e = e.Merge(Vec3{-1, 2, 0.5})
	if !Vec3Compare(e.Min, Vec3{-1, 0, 0}, 1e-6) || !Vec3Compare(e.Max, Vec3{1, 2, 1}, 1e-6) {
		t.Errorf("Merge = %+v", e)
	}
	if !Vec3Compare(e.Size(), Vec3{2, 2, 1}, 1e-6) {
		t.Errorf("Size = %v", e.Size())
	}
	if !Vec3Compare(e.Center(), Vec3{0, 1, 0.5}, 1e-6) {
		t.Errorf("Center = %v", e.Center())
	}
}

func TestClampMinMax(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Errorf("Clamp(5, 0, 3) = %d", got)
	}
	if got := Clamp(-1.5, 0.0, 3.0); got != 0 {
		t.Errorf("Clamp(-1.5, 0, 3) = %v", got)
	}
	if got := Clamp(int32(2), int32(0), int32(3)); got != 2 {
		t.Errorf("Clamp(2, 0, 3) = %d", got)
	}
	if Max(2, 7) != 7 || Min(2, 7) != 2 {
		t.Error("Max/Min disagree")
	}
}

func TestTransformLocalToWorld(t *testing.T) {
	parent := Transform{
		Position: Vec3{1, 0, 0},
		Rotation: Quaternion{W: 1},
		Scale:    Vec3{2, 2, 2},
	}
	child := Transform{
		Position: Vec3{0, 1, 0},
		Rotation: Quaternion{W: 1},
		Scale:    Vec3{1, 1, 1},
	}

	world := parent.LocalToWorld(child)
	if !Vec3Compare(world.Position, Vec3{1, 2, 0}, 1e-6) {
		t.Errorf("Position = %v, want (1, 2, 0)", world.Position)
	}
	if !Vec3Compare(world.Scale, Vec3{2, 2, 2}, 1e-6) {
		t.Errorf("Scale = %v, want (2, 2, 2)", world.Scale)
	}

	p := world.TransformPoint(Vec3{0, 0, 1})
	if !Vec3Compare(p, Vec3{1, 2, 2}, 1e-6) {
		t.Errorf("TransformPoint = %v, want (1, 2, 2)", p)
	}
}

func TestNewTransformIsIdentity(t *testing.T) {
	if !NewTransform().IsIdentity() {
		t.Error("NewTransform must be the identity")
	}
	moved := NewTransform()
	moved.Position = Vec3{1, 0, 0}
	if moved.IsIdentity() {
		t.Error("a translated transform is not the identity")
	}
}
