package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/atlante/pipeline/core"
)

/** @brief The kind of pipeline source file a watched path holds. */
type SourceKind int

const (
	SourceKindNone SourceKind = iota
	SourceKindModel
	SourceKindShader
	SourceKindTexture
)

func (k SourceKind) String() string {
	switch k {
	case SourceKindModel:
		return "model"
	case SourceKindShader:
		return "shader"
	case SourceKindTexture:
		return "texture"
	}
	return "none"
}

// ReimportFunc is invoked for every settled source file change.
type ReimportFunc func(path string, kind SourceKind)

// debounceDelay lets editors finish writing before a reimport fires.
const debounceDelay = 250 * time.Millisecond

type sourceInfo struct {
	Path       string
	Kind       SourceKind
	LastChange time.Time
}

/**
 * @brief Watches a source directory tree and triggers reimports of models,
 * shaders and textures when their files change on disk.
 */
type SourceWatcher struct {
	sources  map[string]sourceInfo
	pending  map[string]*time.Timer
	reimport ReimportFunc

	mutex sync.RWMutex
	// inflight tracks reimport callbacks that already fired their timer,
	// so Shutdown can wait for them instead of racing their Submit calls.
	inflight sync.WaitGroup

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewSourceWatcher(reimport ReimportFunc) (*SourceWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &SourceWatcher{
		sources:  make(map[string]sourceInfo),
		pending:  make(map[string]*time.Timer),
		reimport: reimport,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

// Initialize indexes the source directory and starts the watch loop.
func (sw *SourceWatcher) Initialize(sourceDir string) error {
	go sw.start()

	if err := sw.addRecursive(sourceDir); err != nil {
		return err
	}

	core.LogInfo("Watching '%s' for source changes.", sourceDir)
	return nil
}

// Sources returns a snapshot of the indexed source files.
func (sw *SourceWatcher) Sources() []sourceInfo {
	sw.mutex.RLock()
	defer sw.mutex.RUnlock()
	out := make([]sourceInfo, 0, len(sw.sources))
	for _, info := range sw.sources {
		out = append(out, info)
	}
	return out
}

// Shutdown stops the watch loop, cancels pending reimports and waits for
// reimport callbacks that already fired.
func (sw *SourceWatcher) Shutdown() {
	sw.mutex.Lock()
	for path, timer := range sw.pending {
		timer.Stop()
		delete(sw.pending, path)
	}
	sw.isClosed = true
	sw.mutex.Unlock()
	sw.inflight.Wait()
	close(sw.done)
}

// addRecursive starts watching the named directory and all sub-directories.
func (sw *SourceWatcher) addRecursive(name string) error {
	if sw.isClosed {
		return errors.New("watcher instance already closed")
	}
	return sw.watchRecursive(name, false)
}

func (sw *SourceWatcher) start() {
	for {
		select {

		case e := <-sw.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					sw.watchRecursive(e.Name, false)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				sw.handleFileEvent(e.Name, true)
			}
			if e.Op&fsnotify.Remove != 0 {
				sw.removeSource(e.Name)
				sw.fsnotify.Remove(e.Name)
			}

		case e := <-sw.fsnotify.Errors:
			core.LogError(e.Error())

		case <-sw.done:
			sw.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files found on the way.
func (sw *SourceWatcher) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return sw.fsnotify.Remove(walkPath)
			}
			return sw.fsnotify.Add(walkPath)
		}
		sw.handleFileEvent(walkPath, false)
		return nil
	})
}

// handleFileEvent indexes the file and, for live changes, schedules a
// debounced reimport.
func (sw *SourceWatcher) handleFileEvent(path string, triggerReimport bool) {
	kind := DetermineSourceKind(path)
	if kind == SourceKindNone {
		return
	}

	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	sw.sources[path] = sourceInfo{
		Path:       path,
		Kind:       kind,
		LastChange: time.Now(),
	}

	if !triggerReimport || sw.reimport == nil || sw.isClosed {
		return
	}
	if timer, ok := sw.pending[path]; ok {
		timer.Stop()
	}
	sw.pending[path] = time.AfterFunc(debounceDelay, func() {
		sw.mutex.Lock()
		if sw.isClosed {
			sw.mutex.Unlock()
			return
		}
		delete(sw.pending, path)
		sw.inflight.Add(1)
		sw.mutex.Unlock()
		defer sw.inflight.Done()
		core.LogInfo("Source '%s' changed, reimporting.", path)
		sw.reimport(path, kind)
	})
}

// removeSource drops a deleted file from the index.
func (sw *SourceWatcher) removeSource(path string) {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if timer, ok := sw.pending[path]; ok {
		timer.Stop()
		delete(sw.pending, path)
	}
	delete(sw.sources, path)
}

// DetermineSourceKind classifies a source file by its extension.
func DetermineSourceKind(path string) SourceKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb", ".obj":
		return SourceKindModel
	case ".shader", ".hlsl", ".glsl":
		return SourceKindShader
	case ".png", ".jpg", ".jpeg":
		return SourceKindTexture
	default:
		return SourceKindNone
	}
}
