package document

// ReferenceState describes what is known about a stored document.
type ReferenceState string

const (
	// StateMissing means the probe completed and found no object.
	StateMissing ReferenceState = "MISSING"
	// StatePending means resolution has not completed for this document yet.
	StatePending ReferenceState = "PENDING"
	// StateAvailable means the object exists and a signed URL was issued.
	StateAvailable ReferenceState = "AVAILABLE"
)

// Reference is the tagged result of resolving a document: missing, still
// pending, or available behind a time-limited URL. Modelling the three states
// explicitly keeps the rendering layer from guessing at nil fields.
type Reference struct {
	State ReferenceState
	URL   string
}

// Missing returns a resolved-absent reference.
func Missing() Reference {
	return Reference{State: StateMissing}
}

// Pending returns a not-yet-resolved reference.
func Pending() Reference {
	return Reference{State: StatePending}
}

// Available returns a resolved reference carrying a signed URL.
func Available(url string) Reference {
	return Reference{State: StateAvailable, URL: url}
}

// IsAvailable reports whether the document exists and has a usable URL.
func (r Reference) IsAvailable() bool {
	return r.State == StateAvailable && r.URL != ""
}
