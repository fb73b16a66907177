// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

func LoadRegistry(path string) (*WorkerRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg WorkerRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &reg, nil
}

// Validate reports the first structural problem: duplicate task types or
// config keys, missing fields, or a config key that viper would nest.
func (r *WorkerRegistry) Validate() error {
	if len(r.Workers) == 0 {
		return fmt.Errorf("registry contains no workers")
	}

	taskTypes := make(map[string]bool)
	keys := make(map[string]bool)
	for _, w := range r.Workers {
		if w.TaskType == "" {
			return fmt.Errorf("worker missing required field: taskType")
		}
		if taskTypes[w.TaskType] {
			return fmt.Errorf("duplicate taskType: %s", w.TaskType)
		}
		taskTypes[w.TaskType] = true

		if w.ConfigKey == "" || w.DisplayName == "" || w.Category == "" {
			return fmt.Errorf("worker %s missing configKey, displayName or category", w.TaskType)
		}
		if strings.Contains(w.ConfigKey, ".") {
			return fmt.Errorf("worker %s: configKey %q must not contain dots", w.TaskType, w.ConfigKey)
		}
		if keys[w.ConfigKey] {
			return fmt.Errorf("duplicate configKey: %s", w.ConfigKey)
		}
		keys[w.ConfigKey] = true
	}
	return nil
}

// Lookup returns the worker registered for taskType.
func (r *WorkerRegistry) Lookup(taskType string) (Worker, bool) {
	for _, w := range r.Workers {
		if w.TaskType == taskType {
			return w, true
		}
	}
	return Worker{}, false
}

// Missing lists the task types not present in the registry.
func (r *WorkerRegistry) Missing(taskTypes ...string) []string {
	var missing []string
	for _, tt := range taskTypes {
		if _, ok := r.Lookup(tt); !ok {
			missing = append(missing, tt)
		}
	}
	return missing
}
