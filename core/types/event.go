package types

// Event represents a typed event emitted during state transitions. The
// executor stamps ID, Height and Time when the emitting call commits.
type Event struct {
	ID         string            `json:"id,omitempty"`
	Type       string            `json:"type"`
	Height     uint64            `json:"height"`
	Time       uint64            `json:"time"`
	Caller     string            `json:"caller,omitempty"`
	Attributes map[string]string `json:"attributes"`
}

// Attr returns the attribute value or the empty string.
func (e *Event) Attr(key string) string {
	if e == nil || e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	out.Attributes = make(map[string]string, len(e.Attributes))
	for k, v := range e.Attributes {
		out.Attributes[k] = v
	}
	return &out
}
