//go:build mage

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type cmdOptions struct {
	args   []string
	dir    string
	stream bool
}

type cmdOption func(*cmdOptions)

func withArgs(args ...string) cmdOption {
	return func(o *cmdOptions) {
		o.args = args
	}
}

func withDir(dir string) cmdOption {
	return func(o *cmdOptions) {
		o.dir = dir
	}
}

func withStream() cmdOption {
	return func(o *cmdOptions) {
		o.stream = true
	}
}

func executeCmd(command string, options ...cmdOption) (string, error) {
	opts := &cmdOptions{}
	for _, o := range options {
		o(opts)
	}

	fmt.Printf("Executing: %s %s\n", command, strings.Join(opts.args, " "))
	cmd := exec.Command(command, opts.args...)
	if opts.dir != "" {
		cmd.Dir = opts.dir
	}

	streamOutput := mg.Verbose() || opts.stream

	var b bytes.Buffer
	if streamOutput {
		cmd.Stdout = io.MultiWriter(&b, os.Stdout)
		cmd.Stderr = io.MultiWriter(&b, os.Stderr)
	} else {
		cmd.Stdout = &b
		cmd.Stderr = &b
	}
	err := cmd.Run()
	if err != nil {
		if !streamOutput {
			fmt.Println("... failed command output:")
			fmt.Println(b.String())
		}
		return "", fmt.Errorf("error executing %s: %w", command, err)
	}
	return b.String(), nil
}

const (
	shaderSourceDir = "shaders"
	shaderOutputDir = "assets/shaders"
)

// buildShaders compiles every shader in shaderSourceDir with glslc. The
// output keeps the source name: gamma.comp becomes gamma.comp.spv.
func buildShaders() error {
	var sources []string
	for _, pattern := range []string{"*.vert", "*.frag", "*.comp"} {
		matches, err := filepath.Glob(filepath.Join(shaderSourceDir, pattern))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no shaders found in %s", shaderSourceDir)
	}
	if err := os.MkdirAll(shaderOutputDir, 0o755); err != nil {
		return err
	}
	for _, source := range sources {
		output := filepath.Join(shaderOutputDir, filepath.Base(source)+".spv")
		if _, err := executeCmd("glslc", withArgs("--target-env=vulkan1.0", source, "-o", output)); err != nil {
			return fmt.Errorf("failed to compile %s: %w", source, err)
		}
	}
	return nil
}
