package zoom

import (
	"encoding/json"
	"fmt"
)

// EventURLValidation is the URL-ownership handshake Zoom sends when a
// webhook endpoint is registered. It must be answered before any event
// processing happens.
const EventURLValidation = "endpoint.url_validation"

// Event is the envelope of every webhook delivery.
type Event struct {
	Event   string       `json:"event"`
	EventTS int64        `json:"event_ts"`
	Payload EventPayload `json:"payload"`
}

// EventPayload carries either the handshake token or the event object.
type EventPayload struct {
	PlainToken string          `json:"plainToken,omitempty"`
	AccountID  string          `json:"account_id,omitempty"`
	Object     json.RawMessage `json:"object,omitempty"`
}

// ParseEvent decodes a raw webhook body into an event envelope.
func ParseEvent(raw []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		return Event{}, fmt.Errorf("parse webhook event: %w", err)
	}
	return evt, nil
}

// ParticipantPayload is a person as embedded in meeting payloads and as
// returned by the past-meeting participants API. Field coverage is
// inconsistent across event categories; all fields are optional.
type ParticipantPayload struct {
	Email             string `json:"email,omitempty"`
	EmailAddress      string `json:"email_address,omitempty"`
	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	Name              string `json:"name,omitempty"`
	UserName          string `json:"user_name,omitempty"`
	Phone             string `json:"phone,omitempty"`
	UserID            string `json:"user_id,omitempty"`
	ParticipantUserID string `json:"participant_user_id,omitempty"`
	ParticipantUUID   string `json:"participant_uuid,omitempty"`
}

// ParticipantList accepts both a single participant object and an array,
// which Zoom sends interchangeably depending on the event.
type ParticipantList []ParticipantPayload

// UnmarshalJSON implements the object-or-array decoding.
func (l *ParticipantList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '{' {
		var single ParticipantPayload
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*l = ParticipantList{single}
		return nil
	}
	var many []ParticipantPayload
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// MeetingObject is the payload object of meeting and meeting-recording events.
type MeetingObject struct {
	UUID           string              `json:"uuid"`
	Topic          string              `json:"topic"`
	StartTime      string              `json:"start_time"`
	HostID         string              `json:"host_id"`
	HostEmail      string              `json:"host_email"`
	Host           *ParticipantPayload `json:"host,omitempty"`
	Participant    ParticipantList     `json:"participant,omitempty"`
	ShareURL       string              `json:"share_url,omitempty"`
	RecordingFiles []RecordingFile     `json:"recording_files,omitempty"`
}

// RecordingFile is one file attached to a completed meeting recording.
type RecordingFile struct {
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
	PlayURL  string `json:"play_url"`
}

// CallObject is the payload object of phone.call.* events.
type CallObject struct {
	CallID       string `json:"call_id"`
	CallerNumber string `json:"caller_number"`
	CalleeNumber string `json:"callee_number"`
	Duration     int    `json:"duration"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
}

// PhoneRecording is one completed phone call recording.
type PhoneRecording struct {
	ID           string `json:"id"`
	CallID       string `json:"call_id"`
	CallLogID    string `json:"call_log_id"`
	CallerNumber string `json:"caller_number"`
	CallerName   string `json:"caller_name"`
	CalleeNumber string `json:"callee_number"`
	CalleeName   string `json:"callee_name"`
	Direction    string `json:"direction"`
	DownloadURL  string `json:"download_url"`
	DateTime     string `json:"date_time"`
	Duration     int    `json:"duration"`
}

// PhoneRecordingObject is the payload object of phone recording events.
// Zoom sends either a recordings array or a single recording inline.
type PhoneRecordingObject struct {
	PhoneRecording
	Recordings []PhoneRecording `json:"recordings,omitempty"`
}

// All returns the recordings as a list, treating a bare single recording as
// a one-element list.
func (o PhoneRecordingObject) All() []PhoneRecording {
	if len(o.Recordings) > 0 {
		return o.Recordings
	}
	if o.ID != "" {
		return []PhoneRecording{o.PhoneRecording}
	}
	return nil
}

// SMSMember is a sender or recipient of an SMS event.
type SMSMember struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// SMSObject is the payload object of phone.sms_* events.
type SMSObject struct {
	MessageID   string      `json:"message_id"`
	Message     string      `json:"message,omitempty"`
	Content     string      `json:"content,omitempty"`
	MessageType string      `json:"message_type,omitempty"`
	DateTime    string      `json:"date_time,omitempty"`
	Timestamp   string      `json:"timestamp,omitempty"`
	Sender      SMSMember   `json:"sender"`
	Recipient   *SMSMember  `json:"recipient,omitempty"`
	ToMembers   []SMSMember `json:"to_members,omitempty"`
}
