/*
Command line entry point of the atlante content pipeline. Imports model,
shader and texture source files into asset containers, or runs in watch
mode reimporting sources as they change.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/atlante/pipeline"
	"github.com/spaghettifunk/atlante/pipeline/config"
	"github.com/spaghettifunk/atlante/pipeline/core"
	"github.com/spaghettifunk/atlante/pipeline/watcher"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: atlante [flags] <command> [files...]

Commands:
  model    import model source files (gltf, glb, obj)
  shader   import shader source files
  texture  import texture files
  import   import files of any supported kind
  watch    watch the source directory and reimport on change

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "project configuration file")
	outputDir := flag.String("output", "", "override the output directory")
	sourceDir := flag.String("source", "", "override the watched source directory")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg := config.NewConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			core.LogFatal("Failed to load configuration '%s': %v", *configPath, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *sourceDir != "" {
		cfg.SourceDir = *sourceDir
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		core.LogFatal(err.Error())
		os.Exit(1)
	}
	if err := p.Initialize(); err != nil {
		core.LogFatal(err.Error())
		os.Exit(1)
	}

	command, files := args[0], args[1:]

	if command == "watch" {
		// signal channel to capture system calls
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

		// start shutdown goroutine
		go func() {
			<-sigCh
			_ = p.Shutdown()
		}()

		if err := p.Run(); err != nil {
			core.LogFatal(err.Error())
			os.Exit(1)
		}
		return
	}

	if len(files) == 0 {
		usage()
		os.Exit(2)
	}

	failures := 0
	for _, file := range files {
		var err error
		switch command {
		case "model":
			err = p.ImportModelFile(file)
		case "shader":
			err = p.ImportShaderFile(file)
		case "texture":
			err = p.ImportTextureFile(file)
		case "import":
			err = p.ImportSource(file, watcher.DetermineSourceKind(file))
		default:
			usage()
			os.Exit(2)
		}
		if err != nil {
			core.LogError("Import of '%s' failed: %v", file, err)
			failures++
		}
	}

	if err := p.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if failures > 0 {
		os.Exit(1)
	}
}
