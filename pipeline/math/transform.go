package math

/**
 * @brief Transforms the child transform by the parent one, producing the
 * combined transform in the parent's space.
 */
func (t Transform) LocalToWorld(child Transform) Transform {
	return Transform{
		Position: t.Position.Add(t.Rotation.Rotate(Vec3{
			child.Position.X() * t.Scale.X(),
			child.Position.Y() * t.Scale.Y(),
			child.Position.Z() * t.Scale.Z(),
		})),
		Rotation: t.Rotation.Mul(child.Rotation).Normalize(),
		Scale: Vec3{
			t.Scale.X() * child.Scale.X(),
			t.Scale.Y() * child.Scale.Y(),
			t.Scale.Z() * child.Scale.Z(),
		},
	}
}

// TransformPoint applies the transform to a point in local space.
func (t Transform) TransformPoint(p Vec3) Vec3 {
	return t.Position.Add(t.Rotation.Rotate(Vec3{
		p.X() * t.Scale.X(),
		p.Y() * t.Scale.Y(),
		p.Z() * t.Scale.Z(),
	}))
}

// IsIdentity reports whether the transform has no effect.
func (t Transform) IsIdentity() bool {
	ident := NewTransform()
	return t.Position == ident.Position &&
		t.Rotation == ident.Rotation &&
		t.Scale == ident.Scale
}
