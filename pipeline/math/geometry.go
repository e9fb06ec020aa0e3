package math

import (
	m "math"
)

// FaceNormal returns the unnormalized normal of the triangle (p0, p1, p2).
func FaceNormal(p0, p1, p2 Vec3) Vec3 {
	edge1 := p1.Sub(p0)
	edge2 := p2.Sub(p0)
	return edge1.Cross(edge2)
}

/**
 * @brief Recalculates vertex normals from the triangle faces. Face normals
 * of triangles sharing a vertex position are smoothed together when the
 * angle between them is below smoothingAngle (in degrees).
 */
func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32, smoothingAngle float32) {
	faceCount := len(indices) / 3
	faceNormals := make([]Vec3, faceCount)
	sharedFaces := make(map[Vec3][]int, len(vertices))

	for f := 0; f < faceCount; f++ {
		i0 := indices[f*3+0]
		i1 := indices[f*3+1]
		i2 := indices[f*3+2]

		n := FaceNormal(vertices[i0].Position, vertices[i1].Position, vertices[i2].Position)
		if n.Len() > K_FLOAT_EPSILON {
			n = n.Normalize()
		}
		faceNormals[f] = n

		sharedFaces[vertices[i0].Position] = append(sharedFaces[vertices[i0].Position], f)
		sharedFaces[vertices[i1].Position] = append(sharedFaces[vertices[i1].Position], f)
		sharedFaces[vertices[i2].Position] = append(sharedFaces[vertices[i2].Position], f)
	}

	cosThreshold := float32(m.Cos(float64(smoothingAngle * K_DEG2RAD)))

	for f := 0; f < faceCount; f++ {
		for c := 0; c < 3; c++ {
			vi := indices[f*3+c]
			v := &vertices[vi]

			smoothed := Vec3{}
			for _, g := range sharedFaces[v.Position] {
				// A face always smooths with itself.
				if g == f || faceNormals[f].Dot(faceNormals[g]) >= cosThreshold {
					smoothed = smoothed.Add(faceNormals[g])
				}
			}
			if smoothed.Len() > K_FLOAT_EPSILON {
				v.Normal = smoothed.Normalize()
			} else {
				v.Normal = faceNormals[f]
			}
		}
	}
}

/** @brief Scales every vertex normal by -1. */
func GeometryFlipNormals(vertices []Vertex3D) {
	for i := range vertices {
		vertices[i].Normal = vertices[i].Normal.Mul(-1)
	}
}

/**
 * @brief Recalculates vertex tangents from the triangle faces and texture
 * coordinates. Tangents of faces sharing a vertex position are smoothed
 * together when the angle between them is below smoothingAngle (in degrees).
 */
func GeometryGenerateTangents(vertices []Vertex3D, indices []uint32, smoothingAngle float32) {
	faceCount := len(indices) / 3
	faceTangents := make([]Vec3, faceCount)
	sharedFaces := make(map[Vec3][]int, len(vertices))

	for f := 0; f < faceCount; f++ {
		i0 := indices[f*3+0]
		i1 := indices[f*3+1]
		i2 := indices[f*3+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		deltaU1 := vertices[i1].Texcoord.X() - vertices[i0].Texcoord.X()
		deltaV1 := vertices[i1].Texcoord.Y() - vertices[i0].Texcoord.Y()
		deltaU2 := vertices[i2].Texcoord.X() - vertices[i0].Texcoord.X()
		deltaV2 := vertices[i2].Texcoord.Y() - vertices[i0].Texcoord.Y()

		dividend := deltaU1*deltaV2 - deltaU2*deltaV1
		if Abs32(dividend) < K_FLOAT_EPSILON {
			// Degenerate UVs, fall back to an edge direction.
			if edge1.Len() > K_FLOAT_EPSILON {
				faceTangents[f] = edge1.Normalize()
			}
			continue
		}
		fc := 1.0 / dividend

		tangent := Vec3{
			fc * (deltaV2*edge1.X() - deltaV1*edge2.X()),
			fc * (deltaV2*edge1.Y() - deltaV1*edge2.Y()),
			fc * (deltaV2*edge1.Z() - deltaV1*edge2.Z()),
		}
		if tangent.Len() > K_FLOAT_EPSILON {
			faceTangents[f] = tangent.Normalize()
		}

		sharedFaces[vertices[i0].Position] = append(sharedFaces[vertices[i0].Position], f)
		sharedFaces[vertices[i1].Position] = append(sharedFaces[vertices[i1].Position], f)
		sharedFaces[vertices[i2].Position] = append(sharedFaces[vertices[i2].Position], f)
	}

	cosThreshold := float32(m.Cos(float64(smoothingAngle * K_DEG2RAD)))

	for f := 0; f < faceCount; f++ {
		for c := 0; c < 3; c++ {
			vi := indices[f*3+c]
			v := &vertices[vi]

			smoothed := Vec3{}
			for _, g := range sharedFaces[v.Position] {
				if g == f || faceTangents[f].Dot(faceTangents[g]) >= cosThreshold {
					smoothed = smoothed.Add(faceTangents[g])
				}
			}
			if smoothed.Len() > K_FLOAT_EPSILON {
				v.Tangent = smoothed.Normalize()
			} else {
				v.Tangent = faceTangents[f]
			}
		}
	}
}

func Vertex3dEqual(vert0 Vertex3D, vert1 Vertex3D) bool {
	return Vec3Compare(vert0.Position, vert1.Position, K_FLOAT_EPSILON) &&
		Vec3Compare(vert0.Normal, vert1.Normal, K_FLOAT_EPSILON) &&
		Compare(vert0.Texcoord.X(), vert1.Texcoord.X(), K_FLOAT_EPSILON) &&
		Compare(vert0.Texcoord.Y(), vert1.Texcoord.Y(), K_FLOAT_EPSILON) &&
		Vec3Compare(vert0.Tangent, vert1.Tangent, K_FLOAT_EPSILON)
}

/**
 * @brief Removes duplicate vertices, remapping the index buffer in place.
 * Returns the deduplicated vertex array.
 */
func GeometryDeduplicateVertices(vertices []Vertex3D, indices []uint32) []Vertex3D {
	uniqueVerts := make([]Vertex3D, 0, len(vertices))
	remap := make([]uint32, len(vertices))
	seen := make(map[Vertex3D]uint32, len(vertices))

	for v := range vertices {
		if u, ok := seen[vertices[v]]; ok {
			remap[v] = u
			continue
		}
		u := uint32(len(uniqueVerts))
		seen[vertices[v]] = u
		uniqueVerts = append(uniqueVerts, vertices[v])
		remap[v] = u
	}

	for i := range indices {
		indices[i] = remap[indices[i]]
	}

	return uniqueVerts
}
