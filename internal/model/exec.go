package model

// ExecRequest is a command the embedded service wants to run.
// Argv[0] is the program. Argv is not validated: an empty Argv produces a
// malformed command line, not an error.
type ExecRequest struct {
	Argv []string          `json:"argv"`
	Dir  string            `json:"cwd"`
	Env  map[string]string `json:"env,omitempty"`
}

// ExecResult is the outcome of a command. Output holds the raw bytes the
// command produced (not necessarily valid UTF-8) and is always owned by the
// receiver.
type ExecResult struct {
	ExitCode int    `json:"exit_code"`
	Output   []byte `json:"output"`
}
