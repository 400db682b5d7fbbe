// Package resolve maps person descriptors to exactly one CRM contact,
// creating one when no active match exists. It never reuses or reactivates
// soft-deleted contacts, and it never lets a CRM failure for one person
// abort processing of the rest of an event.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/syncwell/zoomcrm/internal/crm"
	"github.com/syncwell/zoomcrm/internal/identity"
)

// Directory is the CRM surface the resolver needs. Keyed searches return
// raw candidate lists including soft-deleted records and widen to the
// broad query search when no active candidate turns up; SearchGeneral
// pre-filters to active substring matches.
type Directory interface {
	SearchByEmail(ctx context.Context, email string) ([]crm.Contact, error)
	SearchByPhone(ctx context.Context, phone string) ([]crm.Contact, error)
	SearchByName(ctx context.Context, name string) ([]crm.Contact, error)
	SearchGeneral(ctx context.Context, query string) ([]crm.Contact, error)
	CreateContact(ctx context.Context, req crm.ContactRequest) (crm.Contact, error)
	UpdateContact(ctx context.Context, contactID string, req crm.ContactRequest) (crm.Contact, error)
}

// Policy selects which identifying fields participate in matching.
type Policy int

const (
	// PolicyGeneral matches on email, then phone, then name, then a broad
	// general search. Used for meetings and SMS.
	PolicyGeneral Policy = iota
	// PolicyPhoneOnly establishes identity from the phone number alone;
	// name and email are still used when creating. Used for telephony.
	PolicyPhoneOnly
)

// Resolver finds or creates CRM contacts for descriptors.
type Resolver struct {
	dir    Directory
	logger *slog.Logger
	now    func() time.Time
}

// NewResolver builds a resolver over the given contact directory.
func NewResolver(log *slog.Logger, dir Directory) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		dir:    dir,
		logger: log.With(slog.String("component", "resolver")),
		now:    time.Now,
	}
}

// matcher is one step of the search cascade: a key name and a search over
// the directory. Steps with an empty key are skipped; steps that find only
// inactive candidates count as misses and the cascade continues.
type matcher struct {
	key    string
	value  string
	search func(ctx context.Context, value string) ([]crm.Contact, error)
}

// ResolveOrCreate returns the contact id for the descriptor, creating or
// updating a contact as needed. The empty string means the descriptor could
// not be resolved; CRM failures are logged and degrade to "", never
// propagated. Calling twice with an unchanged descriptor and unchanged CRM
// state yields the same id.
func (r *Resolver) ResolveOrCreate(ctx context.Context, d identity.Descriptor, policy Policy) string {
	if policy == PolicyPhoneOnly {
		if d.Phone == "" {
			r.logger.Warn("no phone number for phone contact, skipping")
			return ""
		}
	} else if !d.HasIdentifier() {
		r.logger.Warn("no identifying information, skipping contact resolution")
		return ""
	}

	if id := r.findActive(ctx, d, policy); id != "" {
		return id
	}
	return r.create(ctx, d, policy)
}

func (r *Resolver) findActive(ctx context.Context, d identity.Descriptor, policy Policy) string {
	for _, m := range r.matchers(d, policy) {
		if m.value == "" {
			continue
		}
		candidates, err := m.search(ctx, m.value)
		if err != nil {
			// A failed search step is a miss, not a failure of the event.
			r.logger.Warn("contact search failed",
				slog.String("key", m.key),
				slog.String("value", m.value),
				slog.Any("error", err),
			)
			continue
		}
		for _, candidate := range candidates {
			if crm.IsActive(candidate) {
				r.logger.Debug("contact matched",
					slog.String("key", m.key),
					slog.String("contact_id", candidate.ID),
				)
				return candidate.ID
			}
		}
	}
	return ""
}

func (r *Resolver) matchers(d identity.Descriptor, policy Policy) []matcher {
	if policy == PolicyPhoneOnly {
		return []matcher{
			{key: "phone", value: d.Phone, search: r.dir.SearchByPhone},
			{key: "general", value: d.Phone, search: r.dir.SearchGeneral},
		}
	}
	return []matcher{
		{key: "email", value: d.Email, search: r.dir.SearchByEmail},
		{key: "phone", value: d.Phone, search: r.dir.SearchByPhone},
		{key: "name", value: d.FirstName, search: r.dir.SearchByName},
		{key: "general", value: generalQuery(d), search: r.dir.SearchGeneral},
	}
}

// generalQuery picks the strongest present identifier for the final broad
// search.
func generalQuery(d identity.Descriptor) string {
	switch {
	case d.Email != "":
		return d.Email
	case d.Phone != "":
		return d.Phone
	default:
		return d.FirstName
	}
}

// create builds the outgoing contact and writes it, first checking for
// collisions: an active collision becomes an update; a soft-deleted
// collision forces a fresh unique email so the CRM creates a brand-new
// record instead of resurrecting the deleted one.
func (r *Resolver) create(ctx context.Context, d identity.Descriptor, policy Policy) string {
	req := r.buildRequest(d, policy)

	type collisionCheck struct {
		key      string
		value    string
		search   func(ctx context.Context, value string) ([]crm.Contact, error)
		fallback func() string
	}
	checks := []collisionCheck{
		{
			key: "email", search: r.dir.SearchByEmail,
			value:    realEmail(d.Email),
			fallback: func() string { return uniqueEmail(d.Email, r.now().Unix()) },
		},
		{
			key: "phone", search: r.dir.SearchByPhone,
			value: d.Phone,
			fallback: func() string {
				if e := realEmail(d.Email); e != "" {
					return uniqueEmail(e, r.now().Unix())
				}
				return uniquePhoneEmail(d.Phone, r.now().Unix())
			},
		},
		{
			key: "name", search: r.dir.SearchByName,
			value: d.FirstName,
			fallback: func() string {
				if e := realEmail(d.Email); e != "" {
					return uniqueEmail(e, r.now().Unix())
				}
				return uniqueNameEmail(d.FirstName, r.now().Unix())
			},
		},
	}

	for _, check := range checks {
		if check.value == "" {
			continue
		}
		candidates, err := check.search(ctx, check.value)
		if err != nil {
			r.logger.Warn("collision check failed",
				slog.String("key", check.key),
				slog.Any("error", err),
			)
			continue
		}
		if len(candidates) == 0 {
			continue
		}
		for _, candidate := range candidates {
			if crm.IsActive(candidate) {
				updated, err := r.dir.UpdateContact(ctx, candidate.ID, req)
				if err != nil {
					r.logger.Warn("contact update failed",
						slog.String("contact_id", candidate.ID),
						slog.Any("error", err),
					)
					return ""
				}
				if updated.ID != "" {
					return updated.ID
				}
				return candidate.ID
			}
		}
		// Only soft-deleted contacts collide on this key: force a unique
		// email so the CRM cannot restore the deleted record.
		req.Email = check.fallback()
		r.logger.Info("soft-deleted collision, using unique email",
			slog.String("key", check.key),
			slog.String("email", req.Email),
		)
	}

	contact, err := r.dir.CreateContact(ctx, req)
	if err != nil {
		r.logger.Warn("contact create failed",
			slog.String("email", req.Email),
			slog.String("phone", req.Phone),
			slog.Any("error", err),
		)
		return ""
	}
	return contact.ID
}

func (r *Resolver) buildRequest(d identity.Descriptor, policy Policy) crm.ContactRequest {
	req := crm.ContactRequest{
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Email:     d.Email,
		Phone:     d.Phone,
		Source:    crm.NoteSource,
	}
	if policy == PolicyPhoneOnly {
		if req.FirstName == "" {
			req.FirstName = d.Phone
		}
		if req.Email == "" {
			req.Email = identity.PhonePlaceholderEmail(d.Phone)
		}
		req.CustomFields = []crm.CustomField{{Key: "phone_source", Value: "zoom_phone"}}
		return req
	}

	if realEmail(d.Email) == "" {
		switch {
		case d.UserID != "":
			req.CustomFields = []crm.CustomField{{Key: "zoom_user_id", Value: d.UserID}}
		case d.Phone != "":
			req.CustomFields = []crm.CustomField{{Key: "phone_source", Value: "zoom_phone"}}
		}
	}
	return req
}

// realEmail returns email unless it is empty or synthesized.
func realEmail(email string) string {
	if email == "" || strings.Contains(email, "@"+identity.PlaceholderDomain) {
		return ""
	}
	return email
}

// uniqueEmail suffixes the local part with a timestamp so the address can
// never collide with the soft-deleted record's.
func uniqueEmail(email string, unix int64) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return fmt.Sprintf("%s_%d@%s", email, unix, identity.PlaceholderDomain)
	}
	return fmt.Sprintf("%s_%d@%s", local, unix, domain)
}

func uniquePhoneEmail(phone string, unix int64) string {
	return fmt.Sprintf("phone_%s_%d@%s", identity.NormalizePhone(phone), unix, identity.PlaceholderDomain)
}

func uniqueNameEmail(name string, unix int64) string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	return fmt.Sprintf("name_%s_%d@%s", slug, unix, identity.PlaceholderDomain)
}
