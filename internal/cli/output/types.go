package output

// CheckSummary is the summary block of check output.
type CheckSummary struct {
	Files    int `json:"files"`
	Models   int `json:"models"`
	Cached   int `json:"cached"`
	Issues   int `json:"issues"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
	Hints    int `json:"hints"`
	Fixable  int `json:"fixable"`
}

// CheckOutput is the JSON document written by check and fix.
type CheckOutput struct {
	Summary CheckSummary      `json:"summary"`
	Files   []CheckFileResult `json:"files"`
}

// CheckFileResult lists the diagnostics of one file.
type CheckFileResult struct {
	Path        string            `json:"path"`
	Fixed       bool              `json:"fixed,omitempty"`
	Diagnostics []CheckDiagnostic `json:"diagnostics"`
}

// CheckDiagnostic is one diagnostic in JSON output.
type CheckDiagnostic struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Model    string `json:"model"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Fixable  bool   `json:"fixable"`
}
