package crm

import "strings"

// Contact is a CRM contact record as returned by the REST API. The CRM owns
// this data; the bridge only reads and writes it through the client.
type Contact struct {
	ID           string        `json:"id"`
	Email        string        `json:"email,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	FirstName    string        `json:"firstName,omitempty"`
	LastName     string        `json:"lastName,omitempty"`
	Status       string        `json:"status,omitempty"`
	DeletedAt    string        `json:"deletedAt,omitempty"`
	ArchivedAt   string        `json:"archivedAt,omitempty"`
	DND          bool          `json:"dnd,omitempty"`
	CustomFields []CustomField `json:"customFields,omitempty"`
}

// CustomField is a key/value attribute attached to a contact.
type CustomField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ContactRequest is the outgoing create/update payload.
type ContactRequest struct {
	FirstName    string        `json:"firstName"`
	LastName     string        `json:"lastName"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone"`
	Source       string        `json:"source"`
	CustomFields []CustomField `json:"customFields,omitempty"`
}

// IsActive reports whether a contact may be used as a match target. A
// contact with a deleted/archived/inactive status or a non-empty deletedAt
// or archivedAt stamp is never matched and never implicitly reactivated.
func IsActive(c Contact) bool {
	switch strings.ToLower(c.Status) {
	case "deleted", "archived", "inactive":
		return false
	}
	if c.DeletedAt != "" || c.ArchivedAt != "" {
		return false
	}
	return true
}
