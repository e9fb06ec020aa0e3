package assets

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestContainerRoundtrip(t *testing.T) {
	container := NewContainer("Atlante.Test", 3)
	container.CustomData = []byte{1, 2, 3, 4}
	if err := container.AllocateChunk(0); err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	container.Chunks[0].Allocate(5)
	copy(container.Chunks[0].Data, "hello")
	if err := container.AllocateChunk(15); err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}

	var buf bytes.Buffer
	if err := container.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if got.ID != container.ID {
		t.Errorf("ID = %v, want %v", got.ID, container.ID)
	}
	if got.TypeName != "Atlante.Test" {
		t.Errorf("TypeName = %q, want %q", got.TypeName, "Atlante.Test")
	}
	if got.SerializedVersion != 3 {
		t.Errorf("SerializedVersion = %d, want 3", got.SerializedVersion)
	}
	if !bytes.Equal(got.CustomData, container.CustomData) {
		t.Errorf("CustomData = %v, want %v", got.CustomData, container.CustomData)
	}
	if got.Chunks[0] == nil || string(got.Chunks[0].Get()) != "hello" {
		t.Errorf("chunk 0 payload lost: %v", got.Chunks[0])
	}
	if got.Chunks[15] == nil {
		t.Error("empty chunk 15 should survive the roundtrip")
	}
	if got.Chunks[1] != nil {
		t.Error("unallocated chunk 1 should stay nil")
	}
}

func TestContainerAllocateChunkBounds(t *testing.T) {
	container := NewContainer("Atlante.Test", 1)
	if err := container.AllocateChunk(-1); err == nil {
		t.Error("expected an error for a negative chunk index")
	}
	if err := container.AllocateChunk(MaxChunks); err == nil {
		t.Error("expected an error for a chunk index past the limit")
	}
	if err := container.AllocateChunk(2); err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	if err := container.AllocateChunk(2); err == nil {
		t.Error("expected an error for a double allocation")
	}
}

func TestContainerReadRejectsBadMagic(t *testing.T) {
	if _, err := Read(bytes.NewReader(make([]byte, 64))); err == nil {
		t.Error("expected an error for a zeroed stream")
	}
}

func TestContainerSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset.atl")

	container := NewContainer("Atlante.Test", 1)
	if err := container.AllocateChunk(0); err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	container.Chunks[0].Allocate(3)
	if err := container.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.ID != container.ID {
		t.Errorf("ID = %v, want %v", got.ID, container.ID)
	}
}

func TestCreateAssetContextPreservesID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset.atl")

	first := NewCreateAssetContext("input.gltf", path, "Atlante.Test", 1)
	if first.AssetID() == uuid.Nil {
		t.Fatal("new asset should get an identifier")
	}
	if err := first.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := NewCreateAssetContext("input.gltf", path, "Atlante.Test", 1)
	if second.AssetID() != first.AssetID() {
		t.Errorf("reimport changed the asset identifier: %v != %v", second.AssetID(), first.AssetID())
	}
}

func TestCreateAssetContextWritesMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset.atl")

	context := NewCreateAssetContext("models/rock.gltf", path, "Atlante.Test", 1)
	if err := context.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	container, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	metadata, err := Metadata(container)
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if metadata == nil {
		t.Fatal("the asset should carry import metadata")
	}
	if metadata.ImportPath != "models/rock.gltf" {
		t.Errorf("ImportPath = %q, want %q", metadata.ImportPath, "models/rock.gltf")
	}
	if metadata.ImportedAt == "" {
		t.Error("ImportedAt should be recorded")
	}
}

func TestCreateAssetContextSkipMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset.atl")

	context := NewCreateAssetContext("shaders/lit.shader", path, "Atlante.Test", 1)
	context.SkipMetadata = true
	if err := context.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	container, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	metadata, err := Metadata(container)
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if metadata != nil {
		t.Errorf("metadata should be skipped, got %+v", metadata)
	}
}

func TestCreateAssetContextAssetName(t *testing.T) {
	context := NewCreateAssetContext("in.gltf", filepath.Join("out", "Rock.atl"), "Atlante.Test", 1)
	if got := context.AssetName(); got != "Rock" {
		t.Errorf("AssetName() = %q, want %q", got, "Rock")
	}
}
