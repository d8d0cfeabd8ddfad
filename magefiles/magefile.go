//go:build mage

// Package main contains Mage build targets for filmstats.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "filmstats"
	cmdPkg  = "./cmd/filmstats"
	jobDir  = "job"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet over the module.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Init creates an empty job directory for local runs.
func Init() error {
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", jobDir, err)
	}
	fmt.Println("  ", jobDir)
	return nil
}

// Scrape builds the binary and refreshes job/metadata.txt from the source page.
func Scrape() error {
	mg.Deps(Build, Init)
	return sh.RunV(filepath.Join(binDir, binName), "scrape", jobDir)
}

// Analyze builds the binary and analyzes job/page.html.
func Analyze() error {
	mg.Deps(Build, Init)
	return sh.RunV(filepath.Join(binDir, binName), "analyze", "html", jobDir)
}

// Check runs the vet and test targets.
func Check() {
	mg.SerialDeps(Vet, Test)
}
