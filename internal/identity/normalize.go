// Package identity turns raw event participant fields into canonical person
// descriptors for contact resolution.
package identity

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// PlaceholderDomain is the domain of synthesized contact emails.
const PlaceholderDomain = "placeholder.com"

// Normalize builds a canonical descriptor from raw payload fields. It is a
// pure function: name coalescing, phone-in-name-field detection, display name
// splitting, and placeholder email synthesis when no real email exists.
func Normalize(raw RawPerson, kind Kind) Descriptor {
	d := Descriptor{
		Phone:             strings.TrimSpace(raw.Phone),
		UserID:            strings.TrimSpace(raw.UserID),
		ParticipantUserID: strings.TrimSpace(raw.ParticipantUserID),
		ParticipantUUID:   strings.TrimSpace(raw.ParticipantUUID),
		Kind:              kind,
	}

	d.Email = strings.TrimSpace(firstNonEmpty(raw.Email, raw.EmailAddress))

	first := strings.TrimSpace(raw.FirstName)
	last := strings.TrimSpace(raw.LastName)
	if first == "" {
		if full := strings.TrimSpace(firstNonEmpty(raw.Name, raw.DisplayName)); full != "" {
			first, last = splitName(full, last)
		} else {
			first = strings.TrimSpace(raw.UserName)
		}
	}
	if LooksLikePhone(first) {
		// Some payloads put the phone number where the name belongs.
		if d.Phone == "" {
			d.Phone = first
		}
		first = kind.GenericName()
	}
	d.FirstName = first
	d.LastName = last

	if d.Email == "" {
		d.Email = placeholderEmail(d, raw)
	}

	return d
}

// NormalizePhone strips the separators Zoom mixes into numbers ("+", "-",
// spaces, parentheses). Applied only at comparison time; stored descriptors
// keep the number as received.
func NormalizePhone(phone string) string {
	return strings.NewReplacer("+", "", "-", "", " ", "", "(", "", ")", "").Replace(phone)
}

// LooksLikePhone reports whether text is a phone number: after stripping
// separators it is all digits with at least 10 of them.
func LooksLikePhone(text string) bool {
	clean := NormalizePhone(text)
	if len(clean) < 10 {
		return false
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// placeholderEmail synthesizes an address from the strongest identifier
// available, so a contact can be created in a CRM that requires an email.
func placeholderEmail(d Descriptor, raw RawPerson) string {
	switch {
	case d.ParticipantUUID != "":
		return "zoom_participant_" + d.ParticipantUUID + "@" + PlaceholderDomain
	case d.ParticipantUserID != "":
		return "zoom_participant_" + d.ParticipantUserID + "@" + PlaceholderDomain
	case d.UserID != "":
		return "zoom_user_" + d.UserID + "@" + PlaceholderDomain
	case d.FirstName != "" && d.FirstName != d.Kind.GenericName():
		name := d.FirstName
		if d.LastName != "" {
			name += "_" + d.LastName
		}
		return "zoom_participant_" + slug(name) + "@" + PlaceholderDomain
	case d.Phone != "":
		return "phone_" + NormalizePhone(d.Phone) + "@" + PlaceholderDomain
	default:
		return fmt.Sprintf("zoom_unknown_%d@%s", recordHash(raw)%10000, PlaceholderDomain)
	}
}

// PhonePlaceholderEmail is the address used when creating a contact known
// only by phone number.
func PhonePlaceholderEmail(phone string) string {
	return "phone_" + NormalizePhone(phone) + "@" + PlaceholderDomain
}

func splitName(full, last string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", last
	}
	if last == "" && len(parts) > 1 {
		return parts[0], strings.Join(parts[1:], " ")
	}
	return parts[0], last
}

func slug(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}

// recordHash gives a stable small hash of the raw record; FNV-1a so it does
// not change across processes.
func recordHash(raw RawPerson) uint32 {
	h := fnv.New32a()
	for _, field := range []string{
		raw.Email, raw.EmailAddress, raw.FirstName, raw.LastName,
		raw.Name, raw.UserName, raw.DisplayName, raw.Phone,
		raw.UserID, raw.ParticipantUserID, raw.ParticipantUUID,
	} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return h.Sum32()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
