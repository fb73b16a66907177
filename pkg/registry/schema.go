// pkg/registry/schema.go
package registry

// WorkerRegistry documents the job workers the onboarding processes call.
type WorkerRegistry struct {
	Version     string   `json:"version"`
	LastUpdated string   `json:"lastUpdated"`
	Workers     []Worker `json:"workers"`
}

type Worker struct {
	TaskType    string   `json:"taskType"`
	ConfigKey   string   `json:"configKey"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Inputs      []string `json:"inputs"`
	Outputs     []string `json:"outputs"`
	ErrorCodes  []string `json:"errorCodes"`
	Processes   []string `json:"processes"`
}
