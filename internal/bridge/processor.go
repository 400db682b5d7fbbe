// Package bridge turns verified webhook events into CRM writes: it resolves
// every person an event mentions to a contact, attaches an activity note,
// and keeps redelivered events from writing twice.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/syncwell/zoomcrm/internal/dedup"
	"github.com/syncwell/zoomcrm/internal/identity"
	"github.com/syncwell/zoomcrm/internal/resolve"
	"github.com/syncwell/zoomcrm/internal/zoom"
)

// ContactResolver maps a person descriptor to a CRM contact id.
type ContactResolver interface {
	ResolveOrCreate(ctx context.Context, d identity.Descriptor, policy resolve.Policy) string
}

// NoteWriter appends an activity note to a contact.
type NoteWriter interface {
	CreateNote(ctx context.Context, contactID, body string) error
}

// ParticipantSource lists the attendees of a finished meeting.
type ParticipantSource interface {
	GetMeetingParticipants(ctx context.Context, meetingUUID string) ([]zoom.ParticipantPayload, error)
}

// LinkConfig configures the public proxy links embedded in recording notes.
type LinkConfig struct {
	PublicBaseURL string
	AccountID     string
}

// Processor routes one webhook event to its category handler. Events and
// notes that already produced a CRM write are skipped on redelivery; the
// seen-marks are only set after the write succeeded, so a failed delivery
// stays retriable.
type Processor struct {
	logger       *slog.Logger
	resolver     ContactResolver
	notes        NoteWriter
	participants ParticipantSource
	links        LinkConfig

	events    *dedup.Set
	notesSeen *dedup.Set

	now func() time.Time
}

// NewProcessor wires a processor. participants may be nil when no API
// credentials are configured; recording events then fall back to the host.
func NewProcessor(log *slog.Logger, resolver ContactResolver, notes NoteWriter, participants ParticipantSource, links LinkConfig, events, notesSeen *dedup.Set) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		logger:       log.With("component", "sync"),
		resolver:     resolver,
		notes:        notes,
		participants: participants,
		links:        links,
		events:       events,
		notesSeen:    notesSeen,
		now:          time.Now,
	}
}

// ProcessEvent handles one verified, parsed event. It returns false only
// when the payload itself is unusable. Per-contact write failures are
// logged and still count as success, but they withhold the event's
// seen-mark, so an identical redelivery reprocesses the event and the
// note-level marks skip whatever was already written.
func (p *Processor) ProcessEvent(ctx context.Context, evt zoom.Event) bool {
	key := dedup.EventKey(evt)
	if p.events.Seen(key) {
		p.logger.Info("skipping duplicate event", "event", evt.Event, "key", key)
		return true
	}

	kind := strings.ToLower(evt.Event)
	var accepted, complete bool
	switch {
	case strings.Contains(kind, "sms") || strings.Contains(kind, "message"):
		accepted, complete = p.processSMS(ctx, evt)
	case strings.Contains(kind, "phone.call.caller") || strings.Contains(kind, "phone.call.callee"):
		accepted, complete = p.processPhoneCall(ctx, evt)
	case strings.Contains(kind, "phone.recording") || strings.Contains(kind, "call.recording"):
		accepted, complete = p.processPhoneRecording(ctx, evt)
	case strings.Contains(kind, "recording"):
		accepted, complete = p.processMeetingRecording(ctx, evt)
	default:
		accepted, complete = p.processMeeting(ctx, evt)
	}

	if accepted && complete {
		p.events.Mark(key)
		p.logger.Info("event processed", "event", evt.Event, "key", key)
	}
	return accepted
}

func (p *Processor) processMeeting(ctx context.Context, evt zoom.Event) (accepted, complete bool) {
	var obj zoom.MeetingObject
	if err := decodeObject(evt, &obj); err != nil {
		p.logger.Error("bad meeting payload", "event", evt.Event, "error", err)
		return false, false
	}

	participants := []zoom.ParticipantPayload(obj.Participant)
	if len(participants) == 0 && obj.Host != nil {
		participants = []zoom.ParticipantPayload{*obj.Host}
	}
	if len(participants) == 0 {
		p.logger.Warn("meeting event without participants", "event", evt.Event, "meeting", obj.UUID)
		return true, true
	}

	processed := map[string]struct{}{}
	complete = true
	for _, part := range participants {
		d := identity.Normalize(rawFromParticipant(part), identity.KindParticipant)
		contactID := p.resolver.ResolveOrCreate(ctx, d, resolve.PolicyGeneral)
		if contactID == "" {
			p.logger.Warn("participant unresolved", "event", evt.Event, "meeting", obj.UUID)
			continue
		}
		if _, dup := processed[contactID]; dup {
			continue
		}
		processed[contactID] = struct{}{}
		if !p.writeNote(ctx, contactID, MeetingNote(evt.Event, obj, p.now())) {
			complete = false
		}
	}
	p.logger.Info("meeting contacts processed", "event", evt.Event, "meeting", obj.UUID, "contacts", len(processed))
	return true, complete
}

func (p *Processor) processMeetingRecording(ctx context.Context, evt zoom.Event) (accepted, complete bool) {
	var obj zoom.MeetingObject
	if err := decodeObject(evt, &obj); err != nil {
		p.logger.Error("bad recording payload", "event", evt.Event, "error", err)
		return false, false
	}

	var participants []zoom.ParticipantPayload
	if p.participants != nil && obj.UUID != "" {
		var err error
		participants, err = p.participants.GetMeetingParticipants(ctx, obj.UUID)
		if err != nil {
			p.logger.Warn("participant fetch failed, falling back to host",
				"meeting", obj.UUID, "error", err)
		}
	}

	processed := map[string]struct{}{}
	complete = true
	if len(participants) == 0 {
		d := identity.Normalize(identity.RawPerson{
			Email:     obj.HostEmail,
			FirstName: "Host",
			UserID:    obj.HostID,
		}, identity.KindParticipant)
		contactID := p.resolver.ResolveOrCreate(ctx, d, resolve.PolicyGeneral)
		if contactID == "" {
			p.logger.Warn("host unresolved", "meeting", obj.UUID, "host", obj.HostID)
			return true, true
		}
		processed[contactID] = struct{}{}
		complete = p.writeNote(ctx, contactID, RecordingNote(obj, "Host", p.now()))
	} else {
		for _, part := range participants {
			d := identity.Normalize(rawFromParticipant(part), identity.KindParticipant)
			contactID := p.resolver.ResolveOrCreate(ctx, d, resolve.PolicyGeneral)
			if contactID == "" {
				p.logger.Warn("recording participant unresolved", "meeting", obj.UUID)
				continue
			}
			if _, dup := processed[contactID]; dup {
				continue
			}
			processed[contactID] = struct{}{}
			if !p.writeNote(ctx, contactID, RecordingNote(obj, participantLabel(d), p.now())) {
				complete = false
			}
		}
	}
	p.logger.Info("recording contacts processed", "event", evt.Event, "meeting", obj.UUID, "contacts", len(processed))
	return true, complete
}

func (p *Processor) processPhoneCall(ctx context.Context, evt zoom.Event) (accepted, complete bool) {
	var obj zoom.CallObject
	if err := decodeObject(evt, &obj); err != nil {
		p.logger.Error("bad call payload", "event", evt.Event, "error", err)
		return false, false
	}

	kind := strings.ToLower(evt.Event)
	type target struct {
		raw  identity.RawPerson
		kind identity.Kind
		role string
	}
	var targets []target
	if strings.Contains(kind, "caller") && obj.CallerNumber != "" {
		targets = append(targets, target{
			raw:  identity.RawPerson{FirstName: "Caller", Phone: obj.CallerNumber},
			kind: identity.KindCaller,
			role: "caller",
		})
	}
	if strings.Contains(kind, "callee") && obj.CalleeNumber != "" {
		targets = append(targets, target{
			raw:  identity.RawPerson{FirstName: "Callee", Phone: obj.CalleeNumber},
			kind: identity.KindCallee,
			role: "callee",
		})
	}

	processed := map[string]struct{}{}
	complete = true
	for _, t := range targets {
		d := identity.Normalize(t.raw, t.kind)
		contactID := p.resolver.ResolveOrCreate(ctx, d, resolve.PolicyPhoneOnly)
		if contactID == "" {
			p.logger.Warn("call participant unresolved", "event", evt.Event, "role", t.role)
			continue
		}
		if _, dup := processed[contactID]; dup {
			continue
		}
		processed[contactID] = struct{}{}
		if !p.writeNote(ctx, contactID, PhoneCallNote(evt.Event, obj, t.role, p.now())) {
			complete = false
		}
	}
	p.logger.Info("call contacts processed", "event", evt.Event, "call", obj.CallID, "contacts", len(processed))
	return true, complete
}

func (p *Processor) processPhoneRecording(ctx context.Context, evt zoom.Event) (accepted, complete bool) {
	var obj zoom.PhoneRecordingObject
	if err := decodeObject(evt, &obj); err != nil {
		p.logger.Error("bad phone recording payload", "event", evt.Event, "error", err)
		return false, false
	}
	recordings := obj.All()
	if len(recordings) == 0 {
		p.logger.Warn("phone recording event without recordings", "event", evt.Event)
		return false, false
	}

	complete = true
	for _, rec := range recordings {
		if !p.processOneRecording(ctx, evt.Event, rec) {
			complete = false
		}
	}
	return true, complete
}

// processOneRecording reports whether every attempted note write for this
// recording succeeded.
func (p *Processor) processOneRecording(ctx context.Context, eventType string, rec zoom.PhoneRecording) bool {
	type target struct {
		raw  identity.RawPerson
		kind identity.Kind
		role string
	}
	var targets []target
	if rec.CallerNumber != "" {
		raw := identity.RawPerson{Name: rec.CallerName, Phone: rec.CallerNumber}
		if rec.CallerName == "" {
			raw.FirstName = "Caller"
		}
		targets = append(targets, target{raw: raw, kind: identity.KindCaller, role: "caller"})
	}
	// Inbound calls credit only the external caller; attaching the note to
	// the receiving line would spam the owner's own contact record.
	if rec.Direction != "inbound" && rec.CalleeNumber != "" {
		raw := identity.RawPerson{Name: rec.CalleeName, Phone: rec.CalleeNumber}
		if rec.CalleeName == "" {
			raw.FirstName = "Callee"
		}
		targets = append(targets, target{raw: raw, kind: identity.KindCallee, role: "callee"})
	}

	link := ""
	if fileID := downloadFileID(rec); len(fileID) > 5 {
		link = RecordingLink(p.links.PublicBaseURL, p.links.AccountID, fileID)
	}

	processed := map[string]struct{}{}
	complete := true
	for _, t := range targets {
		d := identity.Normalize(t.raw, t.kind)
		contactID := p.resolver.ResolveOrCreate(ctx, d, resolve.PolicyPhoneOnly)
		if contactID == "" {
			p.logger.Warn("recording participant unresolved", "event", eventType, "role", t.role)
			continue
		}
		if _, dup := processed[contactID]; dup {
			continue
		}
		processed[contactID] = struct{}{}
		if !p.writeNote(ctx, contactID, PhoneRecordingNote(eventType, rec, t.role, link, p.now())) {
			complete = false
		}
	}
	p.logger.Info("phone recording contacts processed", "event", eventType, "call", rec.CallID, "contacts", len(processed))
	return complete
}

func (p *Processor) processSMS(ctx context.Context, evt zoom.Event) (accepted, complete bool) {
	var obj zoom.SMSObject
	if err := decodeObject(evt, &obj); err != nil {
		p.logger.Error("bad sms payload", "event", evt.Event, "error", err)
		return false, false
	}

	type target struct {
		raw  identity.RawPerson
		role string
	}
	var targets []target
	if evt.Event == "phone.sms_sent" {
		if obj.Sender.PhoneNumber != "" || obj.Sender.DisplayName != "" {
			targets = append(targets, target{
				raw: identity.RawPerson{
					DisplayName: obj.Sender.DisplayName,
					Phone:       obj.Sender.PhoneNumber,
					UserID:      obj.Sender.ID,
				},
				role: "sender",
			})
		}
		for _, member := range obj.ToMembers {
			targets = append(targets, target{
				raw: identity.RawPerson{
					FirstName: "SMS",
					LastName:  "Recipient",
					Phone:     member.PhoneNumber,
				},
				role: "recipient",
			})
		}
	} else {
		if obj.Sender.PhoneNumber != "" || obj.Sender.DisplayName != "" {
			targets = append(targets, target{
				raw: identity.RawPerson{
					DisplayName: obj.Sender.DisplayName,
					Phone:       obj.Sender.PhoneNumber,
					UserID:      obj.Sender.ID,
				},
				role: "sender",
			})
		}
		if obj.Recipient != nil {
			targets = append(targets, target{
				raw: identity.RawPerson{
					DisplayName: obj.Recipient.DisplayName,
					Phone:       obj.Recipient.PhoneNumber,
					UserID:      obj.Recipient.ID,
				},
				role: "recipient",
			})
		}
	}

	processed := map[string]struct{}{}
	complete = true
	for _, t := range targets {
		d := identity.Normalize(t.raw, identity.KindParticipant)
		contactID := p.resolver.ResolveOrCreate(ctx, d, resolve.PolicyGeneral)
		if contactID == "" {
			p.logger.Warn("sms participant unresolved", "event", evt.Event, "role", t.role)
			continue
		}
		if _, dup := processed[contactID]; dup {
			continue
		}
		processed[contactID] = struct{}{}
		if !p.writeNote(ctx, contactID, SMSNote(evt.Event, obj, t.role, p.now())) {
			complete = false
		}
	}
	p.logger.Info("sms contacts processed", "event", evt.Event, "message", obj.MessageID, "contacts", len(processed))
	return true, complete
}

// writeNote posts a note unless an identical one was already written for
// this contact. The mark follows the successful write.
func (p *Processor) writeNote(ctx context.Context, contactID, body string) bool {
	key := dedup.NoteKey(contactID, body)
	if p.notesSeen.Seen(key) {
		p.logger.Info("skipping duplicate note", "contact", contactID, "key", key)
		return true
	}
	if err := p.notes.CreateNote(ctx, contactID, body); err != nil {
		p.logger.Error("note write failed", "contact", contactID, "error", err)
		return false
	}
	p.notesSeen.Mark(key)
	return true
}

func decodeObject(evt zoom.Event, out any) error {
	if len(evt.Payload.Object) == 0 {
		return fmt.Errorf("event %q has no payload object", evt.Event)
	}
	return json.Unmarshal(evt.Payload.Object, out)
}

func rawFromParticipant(p zoom.ParticipantPayload) identity.RawPerson {
	return identity.RawPerson{
		Email:             p.Email,
		EmailAddress:      p.EmailAddress,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		Name:              p.Name,
		UserName:          p.UserName,
		Phone:             p.Phone,
		UserID:            p.UserID,
		ParticipantUserID: p.ParticipantUserID,
		ParticipantUUID:   p.ParticipantUUID,
	}
}

// participantLabel is the human identifier embedded in recording notes.
func participantLabel(d identity.Descriptor) string {
	if d.Email != "" && !strings.HasSuffix(d.Email, "@"+identity.PlaceholderDomain) {
		return d.Email
	}
	if name := strings.TrimSpace(d.FirstName + " " + d.LastName); name != "" {
		return name
	}
	if d.UserID != "" {
		return "User " + d.UserID
	}
	return "Unknown Participant"
}
