package dedup

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncwell/zoomcrm/internal/zoom"
)

func makeEvent(t *testing.T, kind string, ts int64, object map[string]any) zoom.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return zoom.Event{
		Event:   kind,
		EventTS: ts,
		Payload: zoom.EventPayload{Object: raw},
	}
}

func TestEventKeyStableAcrossRedelivery(t *testing.T) {
	obj := map[string]any{"uuid": "mtg-1", "host_id": "host-1", "topic": "Sync"}
	first := EventKey(makeEvent(t, "meeting.ended", 1700000000, obj))
	second := EventKey(makeEvent(t, "meeting.ended", 1700000000, obj))
	assert.Equal(t, first, second)
}

func TestEventKeyDistinctMeetings(t *testing.T) {
	a := EventKey(makeEvent(t, "meeting.ended", 1700000000, map[string]any{"uuid": "mtg-1", "host_id": "h"}))
	b := EventKey(makeEvent(t, "meeting.ended", 1700000000, map[string]any{"uuid": "mtg-2", "host_id": "h"}))
	assert.NotEqual(t, a, b)
}

func TestEventKeyPerCategoryFields(t *testing.T) {
	call := EventKey(makeEvent(t, "phone.call.caller_ended", 5, map[string]any{
		"caller_number": "+15551112222", "callee_number": "+15553334444", "call_id": "c-9",
	}))
	assert.Equal(t, "phone.call.caller_ended_+15551112222_+15553334444_c-9_5", call)

	rec := EventKey(makeEvent(t, "phone.recording_completed", 6, map[string]any{
		"caller_number": "+15551112222", "callee_number": "+15553334444", "id": "file-1",
	}))
	assert.Equal(t, "phone.recording_completed_+15551112222_+15553334444_file-1_6", rec)

	sms := EventKey(makeEvent(t, "phone.sms_received", 7, map[string]any{
		"message_id": "m-1", "sender": map[string]any{"phone_number": "+15550001111"},
	}))
	assert.Equal(t, "phone.sms_received_+15550001111_m-1_7", sms)
}

func TestEventKeyGenericCategoryHashesPayload(t *testing.T) {
	a := EventKey(makeEvent(t, "user.updated", 9, map[string]any{"id": "u-1"}))
	b := EventKey(makeEvent(t, "user.updated", 9, map[string]any{"id": "u-2"}))
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "user.updated_9_")
}

func TestNoteKeyJoinsContactAndContentHash(t *testing.T) {
	a := NoteKey("contact-1", "body text")
	assert.Equal(t, a, NoteKey("contact-1", "body text"))
	assert.NotEqual(t, a, NoteKey("contact-2", "body text"))
	assert.NotEqual(t, a, NoteKey("contact-1", "other text"))
	assert.Contains(t, a, "contact-1_")
}

func TestSetSeenAfterMark(t *testing.T) {
	s := NewSet(10)
	assert.False(t, s.Seen("k"))
	s.Mark("k")
	assert.True(t, s.Seen("k"))
}

func TestSetClearsAtCapacity(t *testing.T) {
	s := NewSet(5)
	for i := 0; i < 5; i++ {
		s.Mark(fmt.Sprintf("k%d", i))
	}
	assert.Equal(t, 5, s.Len())
	assert.True(t, s.Seen("k0"))

	// The insert that pushes the set past capacity clears everything.
	s.Mark("overflow")
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Seen("k0"))
	assert.False(t, s.Seen("overflow"))
}

func TestSetDefaultCapacity(t *testing.T) {
	s := NewSet(0)
	s.Mark("k")
	assert.True(t, s.Seen("k"))
	assert.Equal(t, 1, s.Len())
}
