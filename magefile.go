//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles the specfit binary with version metadata baked in.
func Build() error {
	mg.Deps(BuildSpecfit)
	fmt.Println("Compilation finished")
	return nil
}

func BuildSpecfit() error {
	fmt.Println("Building specfit executable...")
	cmd := exec.Command("go", "build", "-ldflags", versionLDFlags(), "-o", "./bin/specfit", "./cmd/specfit")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Test runs the full test suite.
func Test() error {
	fmt.Println("Running tests...")
	cmd := exec.Command("go", "test", "./...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func versionLDFlags() string {
	const pkg = "github.com/gammalab-data/specfit/internal/version"

	sha := "unknown"
	if out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output(); err == nil {
		sha = strings.TrimSpace(string(out))
	}
	version := os.Getenv("SPECFIT_VERSION")
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("-X %s.Version=%s -X %s.GitSHA=%s -X %s.BuildTime=%s",
		pkg, version, pkg, sha, pkg, time.Now().UTC().Format(time.RFC3339))
}
