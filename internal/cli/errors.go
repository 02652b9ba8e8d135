package cli

// PreflightError reports a precondition that failed before any work started.
type PreflightError struct {
	Message string
	Hint    string
}

func (e *PreflightError) Error() string {
	if e.Hint == "" {
		return e.Message
	}
	return e.Message + " (hint: " + e.Hint + ")"
}
