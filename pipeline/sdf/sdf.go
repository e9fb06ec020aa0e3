package sdf

import (
	"fmt"
	m "math"

	"github.com/spaghettifunk/atlante/pipeline/core"
	"github.com/spaghettifunk/atlante/pipeline/jobs"
	"github.com/spaghettifunk/atlante/pipeline/math"
	"github.com/spaghettifunk/atlante/pipeline/model"
)

var inf32 = float32(m.Inf(1))

/** @brief The voxel storage format of a generated SDF volume. */
type PixelFormat int32

const (
	PixelFormatUnknown PixelFormat = iota
	/** @brief 8-bit normalized single channel. */
	PixelFormatR8UNorm
	/** @brief 16-bit normalized single channel. */
	PixelFormatR16UNorm
)

// BytesPerVoxel returns the storage size of a single voxel.
func (f PixelFormat) BytesPerVoxel() int {
	if f == PixelFormatR16UNorm {
		return 2
	}
	return 1
}

const (
	// DefaultBackfacesThreshold is the back-face hit fraction above which a
	// voxel is considered inside the mesh.
	DefaultBackfacesThreshold float32 = 0.6

	// minResolution/maxResolution clamp the largest volume axis.
	minResolution = 8
	maxResolution = 256

	// baseResolution is the largest-axis voxel count at resolution scale 1.
	baseResolution = 64

	// maxMips caps the generated mip chain.
	maxMips = 6

	// smallVolumeVoxels switches small volumes to 8-bit storage.
	smallVolumeVoxels = 16 * 16 * 16
)

/**
 * @brief A generated signed distance field volume: the encoded voxel data of
 * every mip plus the metadata needed to sample it at runtime.
 */
type SDF struct {
	/** @brief Transforms a local-space position to volume UVW (multiply part). */
	LocalToUVWMul math.Vec3
	/** @brief Transforms a local-space position to volume UVW (add part). */
	LocalToUVWAdd math.Vec3
	/** @brief The size of a single voxel in world units. */
	WorldUnitsPerVoxel float32
	/** @brief The distance (world units) mapped to the encoding range ends. */
	MaxDistance float32
	/** @brief The local bounds minimum of the source geometry. */
	LocalBoundsMin math.Vec3
	/** @brief The local bounds maximum of the source geometry. */
	LocalBoundsMax math.Vec3
	/** @brief The resolution scale used during generation. */
	ResolutionScale float32
	/** @brief The model LOD index the volume was built from. */
	LOD int32
	/** @brief The top mip dimensions. */
	Width, Height, Depth int32
	/** @brief The voxel storage format. */
	Format PixelFormat
	/** @brief The encoded voxel data, mip 0 first. */
	Mips [][]byte
}

// MipDimensions returns the dimensions of the given mip level.
func (s *SDF) MipDimensions(mip int) (int32, int32, int32) {
	w := math.Max(s.Width>>mip, 1)
	h := math.Max(s.Height>>mip, 1)
	d := math.Max(s.Depth>>mip, 1)
	return w, h, d
}

// DecodeDistance converts an encoded voxel value back to world units.
func (s *SDF) DecodeDistance(encoded float32) float32 {
	return (encoded - 0.5) * 2.0 * s.MaxDistance
}

// Sample returns the decoded distance of the voxel at (x, y, z) of the mip.
func (s *SDF) Sample(mip int, x, y, z int32) float32 {
	w, h, _ := s.MipDimensions(mip)
	data := s.Mips[mip]
	index := int(z)*int(w)*int(h) + int(y)*int(w) + int(x)
	switch s.Format {
	case PixelFormatR16UNorm:
		raw := uint16(data[index*2]) | uint16(data[index*2+1])<<8
		return s.DecodeDistance(float32(raw) / 65535.0)
	default:
		return s.DecodeDistance(float32(data[index]) / 255.0)
	}
}

/**
 * @brief Generates a signed distance field volume approximation of the
 * model geometry at the given LOD.
 *
 * Every voxel stores the distance to the closest triangle, negative inside
 * the mesh. The sign is recovered by casting rays along the six axis
 * directions and measuring the fraction of back-face hits against
 * backfacesThreshold (pass <= 0 for the default). The volume resolution
 * follows the geometry bounds scaled by resolutionScale, and a mip chain is
 * built by 2x downsampling with a min-magnitude filter.
 */
func GenerateModelSDF(data *model.ImportedModelData, resolutionScale float32, lodIndex int32, backfacesThreshold float32, assetName string, pool *jobs.JobSystem) (*SDF, error) {
	if len(data.LODs) == 0 {
		return nil, fmt.Errorf("%w: no LODs to generate SDF for '%s'", core.ErrEmptyGeometry, assetName)
	}
	lodIndex = math.Clamp(lodIndex, 0, int32(len(data.LODs)-1))
	if backfacesThreshold <= 0 {
		backfacesThreshold = DefaultBackfacesThreshold
	}
	if resolutionScale <= 0 {
		resolutionScale = 1
	}

	clock := core.NewClock()
	clock.Start()

	triangles := collectTriangles(&data.LODs[lodIndex])
	if len(triangles) == 0 {
		return nil, fmt.Errorf("%w: LOD%d of '%s' has no triangles", core.ErrEmptyGeometry, lodIndex, assetName)
	}

	bounds := data.LODs[lodIndex].Box()
	size := bounds.Size()
	maxSize := math.Max(size.X(), math.Max(size.Y(), size.Z()))
	if maxSize < math.K_FLOAT_EPSILON {
		return nil, fmt.Errorf("%w: LOD%d of '%s' has empty bounds", core.ErrEmptyGeometry, lodIndex, assetName)
	}

	// Resolution per axis follows the bounds proportions; the largest axis
	// gets baseResolution voxels at scale 1. Two extra voxels per axis cover
	// the margin so the sample spacing stays at voxelSize.
	largest := math.Clamp(int32(float32(baseResolution)*resolutionScale), minResolution, maxResolution)
	voxelSize := maxSize / float32(largest)
	var dims [3]int32
	for i := 0; i < 3; i++ {
		dims[i] = math.Clamp(int32(m.Ceil(float64(size[i]/voxelSize)))+2, 4, maxResolution)
	}

	// Expand the sampled region by one voxel so the surface never touches
	// the volume border.
	margin := math.Vec3{voxelSize, voxelSize, voxelSize}
	gridBounds := math.Extents3D{Min: bounds.Min.Sub(margin), Max: bounds.Max.Add(margin)}

	sdf := &SDF{
		WorldUnitsPerVoxel: voxelSize,
		MaxDistance:        math.Max(maxSize*0.1, voxelSize*4),
		LocalBoundsMin:     bounds.Min,
		LocalBoundsMax:     bounds.Max,
		ResolutionScale:    resolutionScale,
		LOD:                lodIndex,
		Width:              dims[0],
		Height:             dims[1],
		Depth:              dims[2],
		Format:             PixelFormatR16UNorm,
	}
	if int(dims[0])*int(dims[1])*int(dims[2]) <= smallVolumeVoxels {
		sdf.Format = PixelFormatR8UNorm
	}

	gridSize := gridBounds.Size()
	sdf.LocalToUVWMul = math.Vec3{1 / gridSize.X(), 1 / gridSize.Y(), 1 / gridSize.Z()}
	sdf.LocalToUVWAdd = math.Vec3{
		-gridBounds.Min.X() / gridSize.X(),
		-gridBounds.Min.Y() / gridSize.Y(),
		-gridBounds.Min.Z() / gridSize.Z(),
	}

	// Accelerate queries with a triangle grid roughly one cell per 4 voxels.
	var accelDims [3]int
	for i := 0; i < 3; i++ {
		accelDims[i] = int(math.Clamp(dims[i]/4, 2, 64))
	}
	accel := newTriangleGrid(triangles, gridBounds, accelDims)

	distances := voxelizeField(accel, gridBounds, dims, backfacesThreshold, sdf.MaxDistance, pool)

	sdf.Mips = append(sdf.Mips, encodeField(distances, sdf))
	buildMipChain(sdf, distances, dims)

	clock.Update()
	core.MetricsRecordImport("sdf", clock.ElapsedMS())
	core.LogInfo("Generated SDF for '%s': %dx%dx%d, %d mips, %d triangles in %.2f ms.",
		assetName, dims[0], dims[1], dims[2], len(sdf.Mips), len(triangles), clock.ElapsedMS())

	return sdf, nil
}

// collectTriangles flattens the LOD meshes into a triangle soup.
func collectTriangles(lod *model.LOD) []Triangle {
	var triangles []Triangle
	for _, mesh := range lod.Meshes {
		for i := 0; i+2 < len(mesh.Indices); i += 3 {
			t := NewTriangle(
				mesh.Vertices[mesh.Indices[i+0]].Position,
				mesh.Vertices[mesh.Indices[i+1]].Position,
				mesh.Vertices[mesh.Indices[i+2]].Position,
			)
			if !t.IsDegenerate() {
				triangles = append(triangles, t)
			}
		}
	}
	return triangles
}

// voxelizeField computes the signed distance of every voxel center, fanning
// the z-slices out across the job system (or inline when pool is nil).
func voxelizeField(accel *triangleGrid, bounds math.Extents3D, dims [3]int32, backfacesThreshold, maxDistance float32, pool *jobs.JobSystem) []float32 {
	distances := make([]float32, int(dims[0])*int(dims[1])*int(dims[2]))
	size := bounds.Size()

	slice := func(z int32) {
		scratch := accel.newScratch()
		for y := int32(0); y < dims[1]; y++ {
			for x := int32(0); x < dims[0]; x++ {
				p := math.Vec3{
					bounds.Min.X() + (float32(x)+0.5)/float32(dims[0])*size.X(),
					bounds.Min.Y() + (float32(y)+0.5)/float32(dims[1])*size.Y(),
					bounds.Min.Z() + (float32(z)+0.5)/float32(dims[2])*size.Z(),
				}

				distance := accel.ClosestDistance(p)
				if distance > maxDistance {
					distance = maxDistance
				}

				hits, backHits := 0, 0
				for axis := 0; axis < 3; axis++ {
					h, b := accel.RaycastAxis(p, axis, true, scratch)
					hits += h
					backHits += b
					h, b = accel.RaycastAxis(p, axis, false, scratch)
					hits += h
					backHits += b
				}
				if hits > 0 && float32(backHits) > backfacesThreshold*float32(hits) {
					distance = -distance
				}

				distances[(int(z)*int(dims[1])+int(y))*int(dims[0])+int(x)] = distance
			}
		}
	}

	if pool == nil {
		for z := int32(0); z < dims[2]; z++ {
			slice(z)
		}
		return distances
	}

	for z := int32(0); z < dims[2]; z++ {
		z := z
		pool.Submit(jobs.JobTask{OnStart: func() error {
			slice(z)
			return nil
		}})
	}
	pool.WaitIdle()

	return distances
}

// encodeField packs a distance field into the SDF storage format, mapping
// [-maxDistance, maxDistance] onto [0, 1] with the surface at 0.5.
func encodeField(distances []float32, sdf *SDF) []byte {
	bpp := sdf.Format.BytesPerVoxel()
	out := make([]byte, len(distances)*bpp)
	for i, distance := range distances {
		encoded := math.Clamp(distance/(2*sdf.MaxDistance)+0.5, 0, 1)
		if sdf.Format == PixelFormatR16UNorm {
			raw := uint16(encoded*65535 + 0.5)
			out[i*2] = byte(raw)
			out[i*2+1] = byte(raw >> 8)
		} else {
			out[i] = byte(encoded*255 + 0.5)
		}
	}
	return out
}

// buildMipChain appends downsampled mips until a dimension gets too small.
func buildMipChain(sdf *SDF, distances []float32, dims [3]int32) {
	for len(sdf.Mips) < maxMips {
		if dims[0] < 8 || dims[1] < 8 || dims[2] < 8 {
			break
		}
		next := [3]int32{math.Max(dims[0]/2, 1), math.Max(dims[1]/2, 1), math.Max(dims[2]/2, 1)}
		downsampled := make([]float32, int(next[0])*int(next[1])*int(next[2]))

		for z := int32(0); z < next[2]; z++ {
			for y := int32(0); y < next[1]; y++ {
				for x := int32(0); x < next[0]; x++ {
					// Keep the sample closest to the surface so thin features
					// survive the reduction.
					best := inf32
					for dz := int32(0); dz < 2; dz++ {
						for dy := int32(0); dy < 2; dy++ {
							for dx := int32(0); dx < 2; dx++ {
								sx := math.Min(x*2+dx, dims[0]-1)
								sy := math.Min(y*2+dy, dims[1]-1)
								sz := math.Min(z*2+dz, dims[2]-1)
								sample := distances[(int(sz)*int(dims[1])+int(sy))*int(dims[0])+int(sx)]
								if math.Abs32(sample) < math.Abs32(best) {
									best = sample
								}
							}
						}
					}
					downsampled[(int(z)*int(next[1])+int(y))*int(next[0])+int(x)] = best
				}
			}
		}

		sdf.Mips = append(sdf.Mips, encodeField(downsampled, sdf))
		distances = downsampled
		dims = next
	}
}
