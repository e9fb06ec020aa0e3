package sdf

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/spaghettifunk/atlante/pipeline/math"
)

const (
	// streamMagic marks serialized SDF volume streams.
	streamMagic uint32 = 0x53444631 // "SDF1"
	// streamVersion is the current stream layout version.
	streamVersion uint32 = 1
)

/** @brief The fixed-size header of a serialized SDF stream. */
type StreamHeader struct {
	LocalToUVWMul      math.Vec3
	WorldUnitsPerVoxel float32
	LocalToUVWAdd      math.Vec3
	MaxDistance        float32
	LocalBoundsMin     math.Vec3
	MipLevels          int32
	LocalBoundsMax     math.Vec3
	Width              int32
	Height             int32
	Depth              int32
	Format             PixelFormat
	ResolutionScale    float32
	LOD                int32
}

/** @brief A per-mip record preceding the mip voxel data in the stream. */
type StreamMip struct {
	MipIndex   int32
	RowPitch   uint32
	SlicePitch uint32
	DataSize   uint32
}

// WriteStream serializes the volume as a header followed by per-mip records
// and their voxel data, all little-endian.
func WriteStream(s *SDF, w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, streamMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, streamVersion); err != nil {
		return err
	}
	header := StreamHeader{
		LocalToUVWMul:      s.LocalToUVWMul,
		WorldUnitsPerVoxel: s.WorldUnitsPerVoxel,
		LocalToUVWAdd:      s.LocalToUVWAdd,
		MaxDistance:        s.MaxDistance,
		LocalBoundsMin:     s.LocalBoundsMin,
		MipLevels:          int32(len(s.Mips)),
		LocalBoundsMax:     s.LocalBoundsMax,
		Width:              s.Width,
		Height:             s.Height,
		Depth:              s.Depth,
		Format:             s.Format,
		ResolutionScale:    s.ResolutionScale,
		LOD:                s.LOD,
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	for i, data := range s.Mips {
		w32, h32, _ := s.MipDimensions(i)
		rowPitch := uint32(w32) * uint32(s.Format.BytesPerVoxel())
		record := StreamMip{
			MipIndex:   int32(i),
			RowPitch:   rowPitch,
			SlicePitch: rowPitch * uint32(h32),
			DataSize:   uint32(len(data)),
		}
		if err := binary.Write(w, binary.LittleEndian, &record); err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// ReadStream deserializes a volume written by WriteStream.
func ReadStream(r io.Reader) (*SDF, error) {
	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != streamMagic {
		return nil, fmt.Errorf("invalid SDF stream magic 0x%08x", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != streamVersion {
		return nil, fmt.Errorf("unsupported SDF stream version %d", version)
	}
	var header StreamHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	s := &SDF{
		LocalToUVWMul:      header.LocalToUVWMul,
		LocalToUVWAdd:      header.LocalToUVWAdd,
		WorldUnitsPerVoxel: header.WorldUnitsPerVoxel,
		MaxDistance:        header.MaxDistance,
		LocalBoundsMin:     header.LocalBoundsMin,
		LocalBoundsMax:     header.LocalBoundsMax,
		ResolutionScale:    header.ResolutionScale,
		LOD:                header.LOD,
		Width:              header.Width,
		Height:             header.Height,
		Depth:              header.Depth,
		Format:             header.Format,
	}
	for i := int32(0); i < header.MipLevels; i++ {
		var record StreamMip
		if err := binary.Read(r, binary.LittleEndian, &record); err != nil {
			return nil, err
		}
		if record.MipIndex != i {
			return nil, fmt.Errorf("out of order SDF mip record %d, expected %d", record.MipIndex, i)
		}
		data := make([]byte, record.DataSize)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		s.Mips = append(s.Mips, data)
	}
	return s, nil
}
