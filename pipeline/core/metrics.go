package core

import "sync"

type MetricsState struct {
	ImportedModels   int32
	ImportedShaders  int32
	ImportedTextures int32
	GeneratedSDFs    int32
	FailedImports    int32
	TotalImportMS    float64

	mutex sync.Mutex
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{}
	})
	return nil
}

func MetricsRecordImport(kind string, elapsedMS float64) {
	if metricsState == nil {
		return
	}
	metricsState.mutex.Lock()
	defer metricsState.mutex.Unlock()

	switch kind {
	case "model":
		metricsState.ImportedModels++
	case "shader":
		metricsState.ImportedShaders++
	case "texture":
		metricsState.ImportedTextures++
	case "sdf":
		metricsState.GeneratedSDFs++
	}
	metricsState.TotalImportMS += elapsedMS
}

func MetricsRecordFailure() {
	if metricsState == nil {
		return
	}
	metricsState.mutex.Lock()
	defer metricsState.mutex.Unlock()
	metricsState.FailedImports++
}

func MetricsReport() (int32, int32, float64) {
	if metricsState == nil {
		return 0, 0, 0
	}
	metricsState.mutex.Lock()
	defer metricsState.mutex.Unlock()
	total := metricsState.ImportedModels + metricsState.ImportedShaders +
		metricsState.ImportedTextures + metricsState.GeneratedSDFs
	return total, metricsState.FailedImports, metricsState.TotalImportMS
}
