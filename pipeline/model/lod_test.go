package model

import "testing"

func TestDetectLodIndex(t *testing.T) {
	tests := []struct {
		name     string
		nodeName string
		want     int32
	}{
		{"no marker", "Rock", 0},
		{"lod0", "Rock_LOD0", 0},
		{"lod1", "Rock_LOD1", 1},
		{"lod5", "Rock_LOD5", 5},
		{"lowercase", "rock_lod2", 2},
		{"marker without index", "Rock_LOD", 0},
		{"malformed index", "Rock_LODx", 0},
		{"out of range", "Rock_LOD9", 0},
		{"negative", "Rock_LOD-1", 0},
		{"lod in the middle", "LOD3_Rock", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectLodIndex(tc.nodeName); got != tc.want {
				t.Errorf("DetectLodIndex(%q) = %d, want %d", tc.nodeName, got, tc.want)
			}
		})
	}
}

func TestEnsureLOD(t *testing.T) {
	data := NewImportedModelData(ImportDataTypesGeometry)

	lod := data.EnsureLOD(2)
	if len(data.LODs) != 3 {
		t.Fatalf("len(LODs) = %d, want 3", len(data.LODs))
	}
	if lod != &data.LODs[2] {
		t.Error("EnsureLOD must return the addressed entry")
	}

	// Growing never shrinks.
	data.EnsureLOD(0)
	if len(data.LODs) != 3 {
		t.Errorf("len(LODs) = %d, want 3", len(data.LODs))
	}
}
