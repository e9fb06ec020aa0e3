package assets

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/spaghettifunk/atlante/pipeline/core"
)

/**
 * @brief Manages the compiled shader cache on disk. Cache entries are keyed
 * by the shader asset identifier; reimporting a shader invalidates its entry.
 */
type ShaderCacheManager struct {
	dir string
}

func NewShaderCacheManager(dir string) *ShaderCacheManager {
	return &ShaderCacheManager{dir: dir}
}

// cachePath returns the cache file location for the given asset.
func (m *ShaderCacheManager) cachePath(id uuid.UUID) string {
	return filepath.Join(m.dir, id.String()+".cache")
}

// HasCache reports whether a cache entry exists for the given asset.
func (m *ShaderCacheManager) HasCache(id uuid.UUID) bool {
	_, err := os.Stat(m.cachePath(id))
	return err == nil
}

// RemoveCache drops the cache entry for the given asset, if any.
func (m *ShaderCacheManager) RemoveCache(id uuid.UUID) {
	path := m.cachePath(id)
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			core.LogWarn("Failed to remove shader cache '%s': %v", path, err)
		}
		return
	}
	core.LogDebug("Invalidated shader cache for asset %s.", id)
}
