package types

// InputError marks malformed or empty run input (transcript, media path).
// It is fatal to the whole run and is raised before any expensive work.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return "input: " + e.Reason }
