package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/mmr-tortoise/devloop/internal/model"
)

// Manifest filename candidates, checked in order. Both live in the
// project root; the dotted variant suits projects that want the file
// hidden from directory listings.
const (
	ManifestFileName       = "devloop.json"
	HiddenManifestFileName = ".devloop.json"
)

// Defaults applied for absent manifest fields. They mirror what the tool
// assumes about a typical Streamlit project so that a bare directory with
// main.py and requirements.txt needs no manifest at all.
const (
	DefaultEntryPoint     = "main.py"
	DefaultRequirements   = "requirements.txt"
	DefaultPort           = 8501
	DefaultRemote         = "origin"
	DefaultEnvDir         = "venv"
	DefaultContainerImage = "python:3.12-slim"
)

// DefaultPackages are installed into the environment in addition to the
// requirements manifest. watchdog backs the application server's
// file-watch reload.
var DefaultPackages = []string{"watchdog"}

// Manifest is the parsed devloop.json configuration. All fields are
// optional in the file; absent fields keep the defaults set by
// DefaultManifest. The file is parsed as JSONC, so comments and trailing
// commas are tolerated.
type Manifest struct {
	// Name identifies the project in container labels and names.
	// Defaults to the base name of the project root.
	Name string `json:"name"`

	// EntryPoint is the application's main script, relative to the root.
	EntryPoint string `json:"entrypoint"`

	// Requirements is the pip requirements file, relative to the root.
	Requirements string `json:"requirements"`

	// Packages are extra pip packages installed beyond Requirements.
	// An explicit empty array disables the default set.
	Packages []string `json:"packages"`

	// Port is the TCP port the application server listens on.
	Port int `json:"port"`

	// AutoReload enables file-watch reload in the application server.
	AutoReload bool `json:"autoReload"`

	// Headless suppresses the server's browser auto-open behavior.
	Headless bool `json:"headless"`

	// Remote is the git remote that publish pushes to.
	Remote string `json:"remote"`

	// EnvDir is the virtual environment directory, relative to the root.
	EnvDir string `json:"envDir"`

	// ContainerImage is the base image for containerized runs.
	ContainerImage string `json:"containerImage"`
}

// DefaultManifest returns a manifest populated with every default for the
// given project root. Loading a manifest file overlays onto this, so only
// fields present in the file override defaults.
func DefaultManifest(rootPath string) *Manifest {
	return &Manifest{
		Name:           filepath.Base(rootPath),
		EntryPoint:     DefaultEntryPoint,
		Requirements:   DefaultRequirements,
		Packages:       append([]string(nil), DefaultPackages...),
		Port:           DefaultPort,
		AutoReload:     true,
		Headless:       false,
		Remote:         DefaultRemote,
		EnvDir:         DefaultEnvDir,
		ContainerImage: DefaultContainerImage,
	}
}

// FindManifest returns the path of the project's manifest file, or ""
// when the project has none. A missing manifest is not an error: every
// field has a default.
func FindManifest(rootPath string) string {
	candidates := []string{
		filepath.Join(rootPath, ManifestFileName),
		filepath.Join(rootPath, HiddenManifestFileName),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadManifest loads and validates the project manifest, falling back to
// pure defaults when no manifest file exists. Parse and validation
// failures are configuration errors: a present-but-broken manifest must
// stop the run rather than be silently ignored.
func LoadManifest(rootPath string) (*Manifest, error) {
	manifest := DefaultManifest(rootPath)

	path := FindManifest(rootPath)
	if path == "" {
		return manifest, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapWorkflowError(model.KindConfiguration,
			fmt.Sprintf("failed to read manifest %s", path), err)
	}

	// jsonc.ToJSON strips comments and trailing commas while preserving
	// character positions for accurate error offsets.
	if err := json.Unmarshal(jsonc.ToJSON(data), manifest); err != nil {
		return nil, model.WrapWorkflowError(model.KindConfiguration,
			fmt.Sprintf("failed to parse manifest %s", path), err)
	}

	if err := manifest.Validate(); err != nil {
		return nil, model.WrapWorkflowError(model.KindConfiguration,
			fmt.Sprintf("invalid manifest %s", path), err)
	}
	return manifest, nil
}
