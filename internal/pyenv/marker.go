package pyenv

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// markerFileName is the completion marker written into the environment
// directory after a fully successful provisioning run. Its presence is
// the validity signal: interrupted runs never have one because the
// marker is written last.
const markerFileName = ".devloop-state.yaml"

// markerSchemaVersion guards against reading markers written by
// incompatible versions of the tool.
const markerSchemaVersion = 1

// markerHeader explains the file's purpose to anyone who finds it inside
// their environment directory.
const markerHeader = `# Auto-generated by devloop after a successful provisioning run.
# DO NOT EDIT - devloop reads this file to decide whether the
# environment is valid and can be reused.
`

// Marker records what a provisioning run installed. It doubles as the
// idempotence receipt: a parseable marker with a matching schema version
// marks the environment as complete.
type Marker struct {
	// SchemaVersion is the marker format version.
	SchemaVersion int `yaml:"schemaVersion"`

	// ProvisionedAt is when the provisioning run completed (UTC).
	ProvisionedAt time.Time `yaml:"provisionedAt"`

	// Interpreter is the host interpreter that created the environment.
	Interpreter string `yaml:"interpreter"`

	// PythonVersion is the environment interpreter's reported version.
	PythonVersion string `yaml:"pythonVersion,omitempty"`

	// Requirements is the dependency manifest installed, relative to the
	// project root.
	Requirements string `yaml:"requirements"`

	// RequirementsSHA256 is the manifest content hash at install time,
	// letting status report drift without triggering a reinstall.
	RequirementsSHA256 string `yaml:"requirementsSha256"`

	// ExtraPackages are the packages installed beyond the manifest.
	ExtraPackages []string `yaml:"extraPackages,omitempty"`
}

// MarkerPath returns the marker location inside an environment directory.
func MarkerPath(envPath string) string {
	return filepath.Join(envPath, markerFileName)
}

// WriteMarker serializes the marker with a generated-file header and
// writes it into the environment directory. Callers invoke this only
// after every provisioning step has succeeded.
func WriteMarker(envPath string, m *Marker) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to serialize provisioning marker: %w", err)
	}
	if err := os.WriteFile(MarkerPath(envPath), append([]byte(markerHeader), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write provisioning marker: %w", err)
	}
	return nil
}

// ReadMarker loads and parses the completion marker of an environment.
// Any failure (missing file, malformed YAML, unknown schema version)
// means the environment cannot be trusted as complete.
func ReadMarker(envPath string) (*Marker, error) {
	data, err := os.ReadFile(MarkerPath(envPath))
	if err != nil {
		return nil, err
	}

	var m Marker
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("malformed provisioning marker: %w", err)
	}
	if m.SchemaVersion != markerSchemaVersion {
		return nil, fmt.Errorf("unsupported provisioning marker schema version %d (expected %d)",
			m.SchemaVersion, markerSchemaVersion)
	}
	return &m, nil
}

// HashFile returns the hex SHA-256 of a file's contents. Used to record
// the dependency manifest state at provisioning time.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
