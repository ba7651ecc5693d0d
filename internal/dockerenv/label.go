package dockerenv

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Label keys attached to every container this tool creates. The labels
// are the only persistent state: rediscovery after a restart works by
// querying the daemon for them, no local bookkeeping file exists.
const (
	// LabelPrefix namespaces all labels written by this tool.
	LabelPrefix = "devloop."

	// LabelManagedBy marks a container as created by this tool. Its value
	// is always ManagedByValue; list queries filter on the pair.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelProject holds the project name from the manifest.
	LabelProject = LabelPrefix + "project"

	// LabelRoot holds the absolute host path of the project root.
	LabelRoot = LabelPrefix + "root"

	// LabelPort holds the published application port in decimal.
	LabelPort = LabelPrefix + "port"

	// LabelCreatedAt holds the creation timestamp in RFC 3339 UTC.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the fixed value of LabelManagedBy.
const ManagedByValue = "devloop"

// AppContainer describes a managed application container reconstructed
// from daemon state and labels.
type AppContainer struct {
	ID        string
	Name      string
	Project   string
	RootPath  string
	Port      int
	Status    string
	CreatedAt time.Time
}

// BuildLabels produces the label set for a new container.
func BuildLabels(project, rootPath string, port int, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   project,
		LabelRoot:      rootPath,
		LabelPort:      strconv.Itoa(port),
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels reconstructs container metadata from a label map. Containers
// missing required labels or carrying a foreign managed-by value are
// rejected so that unrelated containers never surface in listings.
func ParseLabels(labels map[string]string) (AppContainer, error) {
	var missing []string
	for _, key := range []string{LabelManagedBy, LabelProject, LabelRoot, LabelPort, LabelCreatedAt} {
		if labels[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return AppContainer{}, fmt.Errorf("missing required labels: %s", strings.Join(missing, ", "))
	}

	if labels[LabelManagedBy] != ManagedByValue {
		return AppContainer{}, fmt.Errorf("container not managed by this tool: %s=%q", LabelManagedBy, labels[LabelManagedBy])
	}

	port, err := strconv.Atoi(labels[LabelPort])
	if err != nil {
		return AppContainer{}, fmt.Errorf("invalid port label %q: %w", labels[LabelPort], err)
	}

	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return AppContainer{}, fmt.Errorf("invalid created-at label %q: %w", labels[LabelCreatedAt], err)
	}

	return AppContainer{
		Project:   labels[LabelProject],
		RootPath:  labels[LabelRoot],
		Port:      port,
		CreatedAt: createdAt,
	}, nil
}

// ContainerName derives the container name for a project. Docker rejects
// duplicate names, which doubles as a one-container-per-project guard.
func ContainerName(project string) string {
	return "devloop-" + project
}
