package bridge

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syncwell/zoomcrm/internal/zoom"
)

const loggedTimeLayout = "2006-01-02 15:04:05"

// MeetingNote renders the activity note for a meeting lifecycle event.
func MeetingNote(eventType string, obj zoom.MeetingObject, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Zoom %s Activity:\n", titleWords(eventType))
	fmt.Fprintf(&b, "- Topic: %s\n", orNA(obj.Topic))
	fmt.Fprintf(&b, "- Start Time: %s\n", orNA(obj.StartTime))
	fmt.Fprintf(&b, "- Meeting ID: %s\n", orNA(obj.UUID))
	fmt.Fprintf(&b, "- Meeting URL: %s\n", meetingURL(obj.UUID))
	b.WriteString("- Source: Zoom Integration\n")
	fmt.Fprintf(&b, "- Logged: %s", at.Format(loggedTimeLayout))
	return b.String()
}

// RecordingNote renders the note for a completed meeting recording.
// participantInfo names the person the note is attached for; it is empty
// when the note goes to the host fallback.
func RecordingNote(obj zoom.MeetingObject, participantInfo string, at time.Time) string {
	var b strings.Builder
	b.WriteString("Zoom Meeting Recording Completed:\n")
	fmt.Fprintf(&b, "- Topic: %s\n", orNA(obj.Topic))
	fmt.Fprintf(&b, "- Meeting ID: %s\n", orNA(obj.UUID))
	fmt.Fprintf(&b, "- Meeting URL: %s\n", meetingURL(obj.UUID))
	fmt.Fprintf(&b, "- Public Share URL: %s\n", orNA(obj.ShareURL))
	if participantInfo != "" {
		fmt.Fprintf(&b, "- Participant: %s\n", participantInfo)
	}
	b.WriteString("- Recording Files:\n")
	if len(obj.RecordingFiles) == 0 {
		b.WriteString("- No recording files available\n")
	}
	for _, f := range obj.RecordingFiles {
		if f.PlayURL == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s (%d bytes)\n", strings.ToUpper(f.FileType), f.PlayURL, f.FileSize)
	}
	b.WriteString("- Source: Zoom Integration\n")
	fmt.Fprintf(&b, "- Logged: %s", at.Format(loggedTimeLayout))
	return b.String()
}

// PhoneCallNote renders the note for a caller or callee side of a call.
func PhoneCallNote(eventType string, obj zoom.CallObject, role string, at time.Time) string {
	minutes, seconds := obj.Duration/60, obj.Duration%60
	var b strings.Builder
	fmt.Fprintf(&b, "Zoom Phone Call Activity - %s:\n", strings.ToUpper(eventType))
	fmt.Fprintf(&b, "- Caller Number: %s\n", orNA(obj.CallerNumber))
	fmt.Fprintf(&b, "- Callee Number: %s\n", orNA(obj.CalleeNumber))
	fmt.Fprintf(&b, "- Call ID: %s\n", orNA(obj.CallID))
	fmt.Fprintf(&b, "- Duration: %dm %ds\n", minutes, seconds)
	fmt.Fprintf(&b, "- Start Time: %s\n", orNA(obj.StartTime))
	fmt.Fprintf(&b, "- End Time: %s\n", orNA(obj.EndTime))
	fmt.Fprintf(&b, "- Role: %s\n", role)
	fmt.Fprintf(&b, "- Event Type: %s\n", eventType)
	b.WriteString("- Source: Zoom Phone Integration\n")
	fmt.Fprintf(&b, "- Logged: %s", at.Format(loggedTimeLayout))
	return b.String()
}

// PhoneRecordingNote renders the note for one completed call recording,
// embedding a proxy download link when the recording carries a usable file id.
func PhoneRecordingNote(eventType string, rec zoom.PhoneRecording, role, downloadLink string, at time.Time) string {
	minutes, seconds := rec.Duration/60, rec.Duration%60
	recordingLine := "- No recording available for this call"
	if downloadLink != "" {
		recordingLine = "- Download Recording: " + downloadLink
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Zoom Phone Call Recording Completed - %s:\n", strings.ToUpper(eventType))
	fmt.Fprintf(&b, "- Caller Number: %s (%s)\n", orNA(rec.CallerNumber), orNA(rec.CallerName))
	fmt.Fprintf(&b, "- Callee Number: %s (%s)\n", orNA(rec.CalleeNumber), orNA(rec.CalleeName))
	fmt.Fprintf(&b, "- Call ID: %s\n", orNA(rec.CallID))
	fmt.Fprintf(&b, "- File ID: %s\n", orNA(rec.ID))
	fmt.Fprintf(&b, "- Call Log ID: %s\n", orNA(rec.CallLogID))
	fmt.Fprintf(&b, "- Duration: %dm %ds\n", minutes, seconds)
	fmt.Fprintf(&b, "- Start Time: %s\n", orNA(rec.DateTime))
	b.WriteString(recordingLine + "\n")
	fmt.Fprintf(&b, "- Role: %s\n", role)
	fmt.Fprintf(&b, "- Event Type: %s\n", eventType)
	b.WriteString("- Source: Zoom Phone Integration\n")
	fmt.Fprintf(&b, "- Logged: %s", at.Format(loggedTimeLayout))
	return b.String()
}

// SMSNote renders the note for one side of an SMS exchange.
func SMSNote(eventType string, obj zoom.SMSObject, role string, at time.Time) string {
	content := obj.Message
	if content == "" {
		content = obj.Content
	}
	senderPhone := "N/A"
	if role == "sender" {
		senderPhone = orNA(obj.Sender.PhoneNumber)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Zoom SMS Activity - %s:\n", strings.ToUpper(eventType))
	fmt.Fprintf(&b, "- Message Content: %s\n", orNA(content))
	fmt.Fprintf(&b, "- Message Type: %s\n", orNA(obj.MessageType))
	fmt.Fprintf(&b, "- Direction: %s\n", role)
	fmt.Fprintf(&b, "- Timestamp: %s\n", orNA(firstNonEmpty(obj.DateTime, obj.Timestamp)))
	fmt.Fprintf(&b, "- Message ID: %s\n", orNA(obj.MessageID))
	fmt.Fprintf(&b, "- Phone Number: %s\n", senderPhone)
	fmt.Fprintf(&b, "- Event Type: %s\n", eventType)
	b.WriteString("- Source: Zoom Integration\n")
	fmt.Fprintf(&b, "- Logged: %s", at.Format(loggedTimeLayout))
	return b.String()
}

// RecordingLink builds the public proxy URL for a phone recording file. The
// token encodes account and file id so the download endpoint can fetch the
// file with server-side credentials; the query id defeats link-preview
// caches in CRM note views.
func RecordingLink(publicBaseURL, accountID, fileID string) string {
	token := base64.StdEncoding.EncodeToString([]byte(accountID + "|" + fileID))
	return fmt.Sprintf("%s/download/%s?v=%s", strings.TrimSuffix(publicBaseURL, "/"), token, uuid.NewString())
}

// DecodeRecordingToken reverses RecordingLink's token into account and file id.
func DecodeRecordingToken(token string) (accountID, fileID string, err error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("decode recording token: %w", err)
	}
	account, file, ok := strings.Cut(string(raw), "|")
	if !ok || account == "" || file == "" {
		return "", "", fmt.Errorf("malformed recording token")
	}
	return account, file, nil
}

// downloadFileID extracts the file id the download API expects. The id the
// payload carries is not always the one embedded in the download URL, and
// the URL wins when both are present.
func downloadFileID(rec zoom.PhoneRecording) string {
	if rec.DownloadURL != "" {
		if _, after, ok := strings.Cut(rec.DownloadURL, "download/"); ok {
			return after
		}
	}
	return rec.ID
}

func meetingURL(meetingUUID string) string {
	if meetingUUID == "" {
		return "N/A"
	}
	return "https://zoom.us/j/" + meetingUUID
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// titleWords uppercases the first letter of every word, treating any
// non-letter as a word boundary. "meeting.ended" becomes "Meeting.Ended".
func titleWords(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if isLetter && !prevLetter && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		b.WriteRune(r)
		prevLetter = isLetter
	}
	return b.String()
}
