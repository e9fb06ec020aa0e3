//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the pipeline in watch mode against the default project layout.
func (Run) Watch() error {
	fmt.Println("Run pipeline in watch mode...")
	if _, err := executeCmd("go", withArgs("run", "main.go", "watch"), withStream()); err != nil {
		return err
	}
	return nil
}
