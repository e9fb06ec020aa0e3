package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/atlante/pipeline/assets"
	"github.com/spaghettifunk/atlante/pipeline/config"
	"github.com/spaghettifunk/atlante/pipeline/core"
	"github.com/spaghettifunk/atlante/pipeline/importers"
	"github.com/spaghettifunk/atlante/pipeline/jobs"
	"github.com/spaghettifunk/atlante/pipeline/model"
	"github.com/spaghettifunk/atlante/pipeline/sdf"
	"github.com/spaghettifunk/atlante/pipeline/shaders"
	"github.com/spaghettifunk/atlante/pipeline/watcher"
)

type Stage uint8

const (
	// Pipeline is in an uninitialized state
	PipelineStageUninitialized Stage = iota
	// Pipeline is currently initializing
	PipelineStageInitializing
	// Pipeline initialization is complete
	PipelineStageInitialized
	// Pipeline is currently running in watch mode
	PipelineStageRunning
	// Pipeline is in the process of shutting down
	PipelineStageShuttingDown
)

/**
 * @brief The content pipeline: turns model, shader and texture source files
 * into asset containers under the configured output directory.
 */
type Pipeline struct {
	currentStage Stage
	config       *config.Config
	jobSystem    *jobs.JobSystem
	shaderCache  *assets.ShaderCacheManager
	watcher      *watcher.SourceWatcher
	clock        *core.Clock
	done         chan struct{}
}

func New(cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}

	return &Pipeline{
		currentStage: PipelineStageUninitialized,
		config:       cfg,
		clock:        core.NewClock(),
		done:         make(chan struct{}),
	}, nil
}

func (p *Pipeline) Initialize() error {
	p.currentStage = PipelineStageInitializing

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	if err := os.MkdirAll(p.config.OutputDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(p.config.CacheDir, 0o755); err != nil {
		return err
	}

	workers := p.config.WorkerCount()
	jobSystem, err := jobs.NewJobSystem(workers, workers*2)
	if err != nil {
		return err
	}
	p.jobSystem = jobSystem
	p.shaderCache = assets.NewShaderCacheManager(p.config.CacheDir)

	p.currentStage = PipelineStageInitialized
	return nil
}

/**
 * @brief Imports a single model source file: parses and post-processes the
 * geometry, serializes it into a model asset and generates the SDF volume
 * when the options request one.
 */
func (p *Pipeline) ImportModelFile(path string) error {
	options := p.loadOptions(path)

	data := model.NewImportedModelData(model.ImportDataTypesNone)
	if err := importers.ImportModel(path, data, options, p.config.OutputDir); err != nil {
		return err
	}

	outputPath := p.outputPathFor(path)
	context := assets.NewCreateAssetContext(path, outputPath, model.ModelTypeName, model.ModelSerializedVersion)
	if err := model.WriteModelAsset(context, data); err != nil {
		return err
	}

	if options.GenerateSDF {
		volume, err := sdf.GenerateModelSDF(
			data,
			options.SDFResolution*p.config.SDF.ResolutionScale,
			0,
			p.config.SDF.BackfacesThreshold,
			context.AssetName(),
			p.jobSystem,
		)
		if err != nil {
			return err
		}
		if err := context.AllocateChunk(model.ModelSDFChunk); err != nil {
			return err
		}
		var payload bytes.Buffer
		if err := sdf.WriteStream(volume, &payload); err != nil {
			return err
		}
		chunk := context.Data.Chunks[model.ModelSDFChunk]
		chunk.Allocate(payload.Len())
		copy(chunk.Data, payload.Bytes())
	}

	if err := context.Save(); err != nil {
		return err
	}

	core.LogInfo("Created model asset '%s'.", outputPath)
	return nil
}

// ImportShaderFile imports a shader source file into a shader asset.
func (p *Pipeline) ImportShaderFile(path string) error {
	outputPath := p.outputPathFor(path)
	context := assets.NewCreateAssetContext(path, outputPath, shaders.TypeName, shaders.SerializedVersion)
	clock := core.NewClock()
	clock.Start()
	if result := shaders.Import(context, p.shaderCache); result != assets.CreateResultOk {
		core.MetricsRecordFailure()
		return fmt.Errorf("shader import of '%s' failed: %s", path, result)
	}
	clock.Update()
	core.MetricsRecordImport("shader", clock.ElapsedMS())
	core.LogInfo("Created shader asset '%s'.", outputPath)
	return nil
}

// ImportTextureFile imports a standalone texture file into a texture asset.
func (p *Pipeline) ImportTextureFile(path string) error {
	data := model.NewImportedModelData(model.ImportDataTypesTextures)
	data.Textures = append(data.Textures, model.TextureEntry{
		FilePath: filepath.Base(path),
		Type:     model.TextureTypeDiffuse,
	})
	return importers.AutoImportTextures(path, data, p.config.OutputDir)
}

// ImportSource dispatches a source file to the importer for its kind.
func (p *Pipeline) ImportSource(path string, kind watcher.SourceKind) error {
	switch kind {
	case watcher.SourceKindModel:
		return p.ImportModelFile(path)
	case watcher.SourceKindShader:
		return p.ImportShaderFile(path)
	case watcher.SourceKindTexture:
		return p.ImportTextureFile(path)
	}
	return fmt.Errorf("%w: '%s'", core.ErrUnsupportedFormat, path)
}

/**
 * @brief Runs the pipeline in watch mode: imports every source currently in
 * the source directory, then blocks reimporting files as they change until
 * Shutdown is called.
 */
func (p *Pipeline) Run() error {
	sw, err := watcher.NewSourceWatcher(func(path string, kind watcher.SourceKind) {
		p.jobSystem.Submit(jobs.JobTask{
			OnStart: func() error {
				return p.ImportSource(path, kind)
			},
			OnFailure: func(err error) {
				core.LogError("Reimport of '%s' failed: %v", path, err)
			},
		})
	})
	if err != nil {
		return err
	}
	p.watcher = sw

	if err := p.watcher.Initialize(p.config.SourceDir); err != nil {
		return err
	}

	for _, source := range p.watcher.Sources() {
		path, kind := source.Path, source.Kind
		p.jobSystem.Submit(jobs.JobTask{
			OnStart: func() error {
				return p.ImportSource(path, kind)
			},
			OnFailure: func(err error) {
				core.LogError("Import of '%s' failed: %v", path, err)
			},
		})
	}

	p.currentStage = PipelineStageRunning
	<-p.done
	return nil
}

func (p *Pipeline) Shutdown() error {
	p.currentStage = PipelineStageShuttingDown

	if p.watcher != nil {
		p.watcher.Shutdown()
	}
	if p.jobSystem != nil {
		p.jobSystem.WaitIdle()
		if err := p.jobSystem.Shutdown(); err != nil {
			return err
		}
	}

	imported, failed, elapsedMS := core.MetricsReport()
	core.LogInfo("Pipeline done: %d imported, %d failed, %.2f ms total.", imported, failed, elapsedMS)

	close(p.done)
	return nil
}

// loadOptions reads the per-source options sidecar, falling back to the
// project defaults.
func (p *Pipeline) loadOptions(path string) *model.Options {
	sidecar := path + ".options"
	if _, err := os.Stat(sidecar); err == nil {
		options, err := model.LoadOptions(sidecar)
		if err == nil {
			return &options
		}
		core.LogWarn("Ignoring malformed options file '%s': %v", sidecar, err)
	}
	options := p.config.Model
	return &options
}

// outputPathFor maps a source file to its asset container path.
func (p *Pipeline) outputPathFor(sourcePath string) string {
	base := filepath.Base(sourcePath)
	name := base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(p.config.OutputDir, name+".atl")
}
