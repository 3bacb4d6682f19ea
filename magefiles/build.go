//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every GLSL shader into SPIR-V under assets/shaders.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and builds the testbed binary.
func (Build) Testbed() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/tremor", "."), withStream()); err != nil {
		return err
	}
	return nil
}
