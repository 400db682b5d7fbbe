package identity

// Kind is the call context a person was extracted from. It selects the
// generic display name used when the name field turns out to hold a phone
// number, and the placeholder wording for phone-derived contacts.
type Kind string

const (
	KindParticipant Kind = "participant"
	KindCaller      Kind = "caller"
	KindCallee      Kind = "callee"
)

// GenericName returns the display name used when no usable name exists.
func (k Kind) GenericName() string {
	switch k {
	case KindCaller:
		return "Caller"
	case KindCallee:
		return "Callee"
	default:
		return "Meeting Participant"
	}
}

// RawPerson carries identifying fields exactly as they arrived in an event
// payload. Different event categories populate different subsets.
type RawPerson struct {
	Email             string
	EmailAddress      string
	FirstName         string
	LastName          string
	Name              string
	UserName          string
	DisplayName       string
	Phone             string
	UserID            string
	ParticipantUserID string
	ParticipantUUID   string
}

// Descriptor is the normalized set of identifying fields for one person.
// It lives only for the duration of a single event-processing call.
type Descriptor struct {
	Email             string
	Phone             string
	FirstName         string
	LastName          string
	UserID            string
	ParticipantUserID string
	ParticipantUUID   string
	Kind              Kind
}

// HasIdentifier reports whether the descriptor carries at least one field
// usable for resolution. Placeholder emails count: they are stable per
// identifier and were synthesized from a real one.
func (d Descriptor) HasIdentifier() bool {
	return d.Email != "" || d.Phone != "" || d.FirstName != "" || d.UserID != ""
}
