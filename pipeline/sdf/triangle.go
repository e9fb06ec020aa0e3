package sdf

import (
	"github.com/spaghettifunk/atlante/pipeline/math"
)

// Triangle is a single triangle prepared for distance and ray queries.
type Triangle struct {
	V0, V1, V2 math.Vec3
	Normal     math.Vec3
}

func NewTriangle(v0, v1, v2 math.Vec3) Triangle {
	t := Triangle{V0: v0, V1: v1, V2: v2}
	n := math.FaceNormal(v0, v1, v2)
	if n.Len() > math.K_FLOAT_EPSILON {
		t.Normal = n.Normalize()
	}
	return t
}

// IsDegenerate reports whether the triangle has no usable surface.
func (t *Triangle) IsDegenerate() bool {
	return t.Normal == (math.Vec3{})
}

// Bounds returns the triangle bounding box.
func (t *Triangle) Bounds() math.Extents3D {
	box := math.Extents3D{Min: t.V0, Max: t.V0}
	box = box.Merge(t.V1)
	box = box.Merge(t.V2)
	return box
}

/**
 * @brief Returns the closest point to p on the triangle (Ericson,
 * Real-Time Collision Detection 5.1.5).
 */
func (t *Triangle) ClosestPoint(p math.Vec3) math.Vec3 {
	ab := t.V1.Sub(t.V0)
	ac := t.V2.Sub(t.V0)
	ap := p.Sub(t.V0)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return t.V0
	}

	bp := p.Sub(t.V1)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return t.V1
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return t.V0.Add(ab.Mul(v))
	}

	cp := p.Sub(t.V2)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return t.V2
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return t.V0.Add(ac.Mul(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return t.V1.Add(t.V2.Sub(t.V1).Mul(w))
	}

	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return t.V0.Add(ab.Mul(v)).Add(ac.Mul(w))
}

// DistanceSquared returns the squared distance from p to the triangle.
func (t *Triangle) DistanceSquared(p math.Vec3) float32 {
	closest := t.ClosestPoint(p)
	diff := p.Sub(closest)
	return diff.Dot(diff)
}

/**
 * @brief Ray/triangle intersection (Moller-Trumbore). Returns the hit
 * distance along the ray and whether the triangle was hit from behind
 * (the ray direction and the face normal point the same way).
 */
func (t *Triangle) Raycast(origin, direction math.Vec3) (distance float32, backface bool, hit bool) {
	edge1 := t.V1.Sub(t.V0)
	edge2 := t.V2.Sub(t.V0)

	pvec := direction.Cross(edge2)
	det := edge1.Dot(pvec)
	if math.Abs32(det) < 1e-9 {
		return 0, false, false
	}
	invDet := 1.0 / det

	tvec := origin.Sub(t.V0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, false, false
	}

	qvec := tvec.Cross(edge1)
	v := direction.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, false, false
	}

	distance = edge2.Dot(qvec) * invDet
	if distance < 0 {
		return 0, false, false
	}

	return distance, direction.Dot(t.Normal) > 0, true
}
