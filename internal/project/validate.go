package project

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidationError represents a specific validation failure in a project
// manifest.
type ValidationError struct {
	// Field is the JSON field that failed validation (e.g., "port").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation error: %s: %s", e.Field, e.Message)
}

// ValidateManifest checks a manifest for values that cannot work at
// runtime. It returns a list of validation errors (empty list = valid
// manifest). Paths must stay inside the project root: entrypoint,
// requirements, and envDir are all resolved relative to it.
func ValidateManifest(m *Manifest) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(m.Name) == "" {
		errors = append(errors, ValidationError{
			Field:   "name",
			Message: "name must not be empty",
		})
	}

	errors = append(errors, validateRelativePath("entrypoint", m.EntryPoint)...)
	errors = append(errors, validateRelativePath("requirements", m.Requirements)...)
	errors = append(errors, validateRelativePath("envDir", m.EnvDir)...)

	if m.Port < 1 || m.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "port",
			Message: fmt.Sprintf("port %d out of range (1-65535)", m.Port),
		})
	}

	if strings.TrimSpace(m.Remote) == "" {
		errors = append(errors, ValidationError{
			Field:   "remote",
			Message: "remote must not be empty",
		})
	}

	for i, pkg := range m.Packages {
		if strings.TrimSpace(pkg) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("packages[%d]", i),
				Message: "package name must not be empty",
			})
		}
	}

	if strings.TrimSpace(m.ContainerImage) == "" {
		errors = append(errors, ValidationError{
			Field:   "containerImage",
			Message: "containerImage must not be empty",
		})
	}

	return errors
}

// validateRelativePath checks that a manifest path stays relative to the
// project root: non-empty, not absolute, and no parent-directory escape.
func validateRelativePath(field, value string) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(value) == "" {
		errors = append(errors, ValidationError{
			Field:   field,
			Message: "path must not be empty",
		})
		return errors
	}
	if filepath.IsAbs(value) {
		errors = append(errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("path must be relative to the project root, got %q", value),
		})
	}
	if value == ".." || strings.HasPrefix(filepath.ToSlash(filepath.Clean(value)), "../") {
		errors = append(errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("path must not escape the project root, got %q", value),
		})
	}
	return errors
}

// Validate reports the manifest's problems as a single error, or nil
// when the manifest is valid. All problems are joined into one message
// so a broken manifest surfaces every issue at once.
func (m *Manifest) Validate() error {
	errs := ValidateManifest(m)
	if len(errs) == 0 {
		return nil
	}
	messages := make([]string, 0, len(errs))
	for i := range errs {
		messages = append(messages, fmt.Sprintf("%s: %s", errs[i].Field, errs[i].Message))
	}
	return fmt.Errorf("%s", strings.Join(messages, "; "))
}
