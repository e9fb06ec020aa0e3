package model

import (
	"strconv"
	"strings"

	"github.com/spaghettifunk/atlante/pipeline/core"
)

// MaxLODs is the maximum amount of levels of detail a model can carry.
const MaxLODs = 6

/**
 * @brief Detects the target LOD index from a node name suffix such as
 * "_LOD1". Returns 0 when the name carries no LOD marker, and warns on a
 * malformed one.
 */
func DetectLodIndex(nodeName string) int32 {
	idx := strings.LastIndex(strings.ToUpper(nodeName), "LOD")
	if idx == -1 {
		return 0
	}

	lodIndex, err := strconv.Atoi(nodeName[idx+3:])
	if err != nil {
		core.LogWarn("Invalid LOD index in node name '%s'.", nodeName)
		return 0
	}
	if lodIndex < 0 || lodIndex >= MaxLODs {
		core.LogWarn("LOD index %d in node name '%s' is out of range.", lodIndex, nodeName)
		return 0
	}
	return int32(lodIndex)
}

// EnsureLOD grows the LODs array so the given index is addressable.
func (d *ImportedModelData) EnsureLOD(lodIndex int32) *LOD {
	for int32(len(d.LODs)) <= lodIndex {
		d.LODs = append(d.LODs, LOD{})
	}
	return &d.LODs[lodIndex]
}
