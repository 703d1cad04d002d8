package api

// HealthResponse reports daemon, queue, and dependency health in one payload.
type HealthResponse struct {
	Status       string             `json:"status"`
	Running      bool               `json:"running"`
	Queue        QueueHealth        `json:"queue"`
	Database     DatabaseHealth     `json:"database"`
	Handlers     []HandlerHealth    `json:"handlers"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// QueueHealth carries aggregate job counts per lifecycle state.
type QueueHealth struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// DatabaseHealth carries job database diagnostics.
type DatabaseHealth struct {
	Path           string   `json:"path"`
	Readable       bool     `json:"readable"`
	IntegrityCheck bool     `json:"integrityCheck"`
	MissingTables  []string `json:"missingTables,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// HandlerHealth reports the readiness of a single job handler.
type HandlerHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus reports the availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}
