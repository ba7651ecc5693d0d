package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/devloop/internal/model"
)

// writeManifest writes manifest content into a temp project root and
// returns the root path.
func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	return root
}

// TestLoadManifestDefaults verifies a project without a manifest file
// resolves to pure defaults, including the project name from the root
// directory.
func TestLoadManifestDefaults(t *testing.T) {
	root := t.TempDir()

	m, err := LoadManifest(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Base(root), m.Name)
	assert.Equal(t, "main.py", m.EntryPoint)
	assert.Equal(t, "requirements.txt", m.Requirements)
	assert.Equal(t, []string{"watchdog"}, m.Packages)
	assert.Equal(t, 8501, m.Port)
	assert.True(t, m.AutoReload)
	assert.False(t, m.Headless)
	assert.Equal(t, "origin", m.Remote)
	assert.Equal(t, "venv", m.EnvDir)
	assert.Equal(t, "python:3.12-slim", m.ContainerImage)
}

// TestLoadManifestOverrides verifies fields present in the file override
// defaults while absent fields keep them.
func TestLoadManifestOverrides(t *testing.T) {
	root := writeManifest(t, ManifestFileName, `{
		"name": "pricing-dashboard",
		"entrypoint": "app.py",
		"port": 9000,
		"autoReload": false
	}`)

	m, err := LoadManifest(root)
	require.NoError(t, err)

	assert.Equal(t, "pricing-dashboard", m.Name)
	assert.Equal(t, "app.py", m.EntryPoint)
	assert.Equal(t, 9000, m.Port)
	assert.False(t, m.AutoReload)
	// Absent fields keep their defaults.
	assert.Equal(t, "requirements.txt", m.Requirements)
	assert.Equal(t, []string{"watchdog"}, m.Packages)
	assert.Equal(t, "origin", m.Remote)
}

// TestLoadManifestJSONC verifies comments and trailing commas are
// tolerated in the manifest file.
func TestLoadManifestJSONC(t *testing.T) {
	root := writeManifest(t, ManifestFileName, `{
		// entry point lives under src
		"entrypoint": "src/main.py",
		/* reload is handled by the IDE */
		"autoReload": false,
		"port": 8600,
	}`)

	m, err := LoadManifest(root)
	require.NoError(t, err)

	assert.Equal(t, "src/main.py", m.EntryPoint)
	assert.False(t, m.AutoReload)
	assert.Equal(t, 8600, m.Port)
}

// TestLoadManifestEmptyPackages verifies an explicit empty packages array
// disables the default extra packages.
func TestLoadManifestEmptyPackages(t *testing.T) {
	root := writeManifest(t, ManifestFileName, `{"packages": []}`)

	m, err := LoadManifest(root)
	require.NoError(t, err)

	assert.Empty(t, m.Packages)
}

// TestFindManifestCandidates verifies the hidden variant is found when
// the plain one is absent, and that the plain one wins when both exist.
func TestFindManifestCandidates(t *testing.T) {
	t.Run("no manifest", func(t *testing.T) {
		assert.Equal(t, "", FindManifest(t.TempDir()))
	})

	t.Run("hidden variant", func(t *testing.T) {
		root := writeManifest(t, HiddenManifestFileName, `{}`)
		assert.Equal(t, filepath.Join(root, HiddenManifestFileName), FindManifest(root))
	})

	t.Run("plain wins over hidden", func(t *testing.T) {
		root := writeManifest(t, ManifestFileName, `{}`)
		require.NoError(t, os.WriteFile(filepath.Join(root, HiddenManifestFileName), []byte(`{}`), 0o644))
		assert.Equal(t, filepath.Join(root, ManifestFileName), FindManifest(root))
	})
}

// TestLoadManifestMalformed verifies a present-but-broken manifest is a
// configuration error rather than being silently ignored.
func TestLoadManifestMalformed(t *testing.T) {
	root := writeManifest(t, ManifestFileName, `{"port": }`)

	_, err := LoadManifest(root)
	require.Error(t, err)

	var wfErr *model.WorkflowError
	require.True(t, errors.As(err, &wfErr))
	assert.Equal(t, model.KindConfiguration, wfErr.Kind)
}

// TestValidateManifest checks field validation rules:
// - Paths must be relative and stay inside the project root
// - Port must be in the valid TCP range
// - Name, remote, and image must not be blank
func TestValidateManifest(t *testing.T) {
	valid := DefaultManifest("/home/dev/app")

	tests := []struct {
		name   string
		mutate func(m *Manifest)
		field  string
	}{
		{"absolute entrypoint", func(m *Manifest) { m.EntryPoint = "/etc/passwd" }, "entrypoint"},
		{"escaping requirements", func(m *Manifest) { m.Requirements = "../other/reqs.txt" }, "requirements"},
		{"empty envDir", func(m *Manifest) { m.EnvDir = "" }, "envDir"},
		{"port zero", func(m *Manifest) { m.Port = 0 }, "port"},
		{"port too high", func(m *Manifest) { m.Port = 70000 }, "port"},
		{"blank remote", func(m *Manifest) { m.Remote = "  " }, "remote"},
		{"blank name", func(m *Manifest) { m.Name = "" }, "name"},
		{"blank package", func(m *Manifest) { m.Packages = []string{"watchdog", ""} }, "packages[1]"},
		{"blank image", func(m *Manifest) { m.ContainerImage = "" }, "containerImage"},
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.Empty(t, ValidateManifest(valid))
		assert.NoError(t, valid.Validate())
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultManifest("/home/dev/app")
			tt.mutate(m)

			errs := ValidateManifest(m)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Error(t, m.Validate())
		})
	}
}

// TestLoadManifestInvalid verifies validation failures from a loaded file
// surface as configuration errors with the offending field named.
func TestLoadManifestInvalid(t *testing.T) {
	root := writeManifest(t, ManifestFileName, `{"port": 99999}`)

	_, err := LoadManifest(root)
	require.Error(t, err)

	var wfErr *model.WorkflowError
	require.True(t, errors.As(err, &wfErr))
	assert.Equal(t, model.KindConfiguration, wfErr.Kind)
	assert.Contains(t, err.Error(), "port")
}
