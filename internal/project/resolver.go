package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmr-tortoise/devloop/internal/model"
	"github.com/mmr-tortoise/devloop/internal/platform"
)

// EnvVarProjectDir is the environment variable that overrides project
// root resolution when no --project flag is given.
const EnvVarProjectDir = "PROJECT_DIR"

// Resolver determines the project root and derives the ProjectEnvironment
// for a run. Resolution never provisions anything: a missing or invalid
// root is reported as a configuration error before any side effect.
type Resolver struct {
	// Platform supplies the environment layout for the resolved root.
	Platform platform.Platform

	// Override is an explicit root directory (the --project flag). It
	// wins over PROJECT_DIR and the working directory.
	Override string
}

// NewResolver creates a Resolver for the given platform. override may be
// empty, in which case PROJECT_DIR and the working directory are consulted.
func NewResolver(p platform.Platform, override string) *Resolver {
	return &Resolver{Platform: p, Override: override}
}

// Resolve determines the project root, loads its manifest, and returns
// the environment description for this run. The returned environment has
// Exists unset; only the provisioner may set it after verifying the
// completion marker.
func (r *Resolver) Resolve() (model.ProjectEnvironment, *Manifest, error) {
	root, err := r.resolveRoot()
	if err != nil {
		return model.ProjectEnvironment{}, nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return model.ProjectEnvironment{}, nil, model.NewWorkflowError(model.KindConfiguration,
				fmt.Sprintf("project root does not exist: %s", root))
		}
		return model.ProjectEnvironment{}, nil, model.WrapWorkflowError(model.KindConfiguration,
			fmt.Sprintf("cannot access project root %s", root), err)
	}
	if !info.IsDir() {
		return model.ProjectEnvironment{}, nil, model.NewWorkflowError(model.KindConfiguration,
			fmt.Sprintf("project root is not a directory: %s", root))
	}

	manifest, err := LoadManifest(root)
	if err != nil {
		return model.ProjectEnvironment{}, nil, err
	}

	env := model.ProjectEnvironment{
		RootPath: root,
		Platform: r.Platform.Kind(),
		EnvPath:  filepath.Join(root, manifest.EnvDir),
	}
	return env, manifest, nil
}

// resolveRoot picks the root directory by precedence (Override >
// PROJECT_DIR > working directory) and normalizes it to an absolute,
// cleaned path.
func (r *Resolver) resolveRoot() (string, error) {
	root := r.Override
	if root == "" {
		root = os.Getenv(EnvVarProjectDir)
	}
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", model.WrapWorkflowError(model.KindConfiguration,
				"failed to determine working directory", err)
		}
		root = cwd
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", model.WrapWorkflowError(model.KindConfiguration,
			fmt.Sprintf("failed to resolve project root %q", root), err)
	}
	return filepath.Clean(abs), nil
}
