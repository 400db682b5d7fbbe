package dedup

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/syncwell/zoomcrm/internal/zoom"
)

// keyFields are the payload fields that participate in event keys. Each
// event category reads a different subset; unknown fields decode to zero.
type keyFields struct {
	CallID       string `json:"call_id"`
	CallerNumber string `json:"caller_number"`
	CalleeNumber string `json:"callee_number"`
	FileID       string `json:"id"`
	MessageID    string `json:"message_id"`
	Sender       struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"sender"`
	UUID   string `json:"uuid"`
	HostID string `json:"host_id"`
}

// EventKey derives the dedup key for an event. Keys are stable across
// redelivery of the identical event and distinct across distinct events;
// each category uses the payload fields least likely to vary between
// retransmissions.
func EventKey(evt zoom.Event) string {
	var f keyFields
	if len(evt.Payload.Object) > 0 {
		// Best effort: an undecodable object falls through to the generic key.
		_ = json.Unmarshal(evt.Payload.Object, &f)
	}

	kind := strings.ToLower(evt.Event)
	switch {
	case strings.Contains(kind, "phone.call"):
		return fmt.Sprintf("%s_%s_%s_%s_%d", evt.Event, f.CallerNumber, f.CalleeNumber, f.CallID, evt.EventTS)
	case strings.Contains(kind, "phone.recording"):
		return fmt.Sprintf("%s_%s_%s_%s_%d", evt.Event, f.CallerNumber, f.CalleeNumber, f.FileID, evt.EventTS)
	case strings.Contains(kind, "sms"):
		return fmt.Sprintf("%s_%s_%s_%d", evt.Event, f.Sender.PhoneNumber, f.MessageID, evt.EventTS)
	case strings.Contains(kind, "meeting"):
		return fmt.Sprintf("%s_%s_%s_%d", evt.Event, f.UUID, f.HostID, evt.EventTS)
	default:
		return fmt.Sprintf("%s_%d_%d", evt.Event, evt.EventTS, payloadHash(evt.Payload.Object))
	}
}

// NoteKey derives the dedup key for a rendered note body targeted at a
// contact: the contact id joined with a truncated content hash, so the same
// logical activity reached through two different event paths still
// deduplicates.
func NoteKey(contactID, body string) string {
	sum := md5.Sum([]byte(body))
	return fmt.Sprintf("%s_%x", contactID, sum[:4])
}

// payloadHash is a small stable hash of the raw payload for events with no
// category-specific identifying fields.
func payloadHash(raw json.RawMessage) uint32 {
	h := fnv.New32a()
	h.Write(raw)
	return h.Sum32() % 10000
}
