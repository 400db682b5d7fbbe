// Package crm is the REST client for the CRM contact database
// (GoHighLevel-shaped API): contact search, creation, update, and notes.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/syncwell/zoomcrm/internal/identity"
)

// DefaultBaseURL is the production CRM REST endpoint.
const DefaultBaseURL = "https://rest.gohighlevel.com/v1"

// NoteSource marks every record this bridge writes.
const NoteSource = "Zoom Integration"

const generalSearchLimit = 20

// Client calls the CRM REST API.
type Client struct {
	apiKey     string
	locationID string
	baseURL    string
	logger     *slog.Logger
	http       *http.Client
}

// NewClient builds a CRM client; baseURL defaults to DefaultBaseURL if empty.
func NewClient(log *slog.Logger, apiKey, locationID, baseURL string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		locationID: locationID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     log.With(slog.String("client", "crm")),
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

type searchResponse struct {
	Contacts []Contact `json:"contacts"`
}

type contactResponse struct {
	Contact Contact `json:"contact"`
}

// SearchByEmail returns all candidates the CRM reports for an email,
// including soft-deleted ones; callers filter with IsActive. When the keyed
// search surfaces no active candidate it widens to SearchGeneral, so a
// contact stored under a differently-formatted identifier is still found.
func (c *Client) SearchByEmail(ctx context.Context, email string) ([]Contact, error) {
	return c.searchKeyed(ctx, "email", email)
}

// SearchByPhone returns all candidates for a phone number, widening to
// SearchGeneral when the keyed search surfaces no active candidate.
func (c *Client) SearchByPhone(ctx context.Context, phone string) ([]Contact, error) {
	return c.searchKeyed(ctx, "phone", phone)
}

// SearchByName returns all candidates for a name, widening to SearchGeneral
// when the keyed search surfaces no active candidate.
func (c *Client) SearchByName(ctx context.Context, name string) ([]Contact, error) {
	return c.searchKeyed(ctx, "name", name)
}

// searchKeyed runs the exact-key search and falls back to the broad query
// search when it yields no active contact. Inactive keyed hits stay at the
// front of the result so callers can still detect soft-deleted collisions.
func (c *Client) searchKeyed(ctx context.Context, key, value string) ([]Contact, error) {
	contacts, err := c.search(ctx, url.Values{key: {value}})
	if err != nil {
		c.logger.Warn("keyed search failed, falling back to general",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return c.SearchGeneral(ctx, value)
	}
	for _, contact := range contacts {
		if IsActive(contact) {
			return contacts, nil
		}
	}
	general, err := c.SearchGeneral(ctx, value)
	if err != nil {
		c.logger.Warn("general fallback search failed",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return contacts, nil
	}
	return append(contacts, general...), nil
}

func (c *Client) search(ctx context.Context, params url.Values) ([]Contact, error) {
	var out searchResponse
	if err := c.do(ctx, http.MethodGet, "/contacts/search?"+params.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Contacts, nil
}

// SearchGeneral runs the CRM's broad query search and filters the result
// client-side: active contacts whose email, full name, or normalized phone
// contains the query. Substring matching can false-positive on short
// queries; that looseness is intentional, it is the final catch-all after
// the keyed searches miss.
func (c *Client) SearchGeneral(ctx context.Context, query string) ([]Contact, error) {
	params := url.Values{
		"query": {query},
		"limit": {fmt.Sprint(generalSearchLimit)},
	}
	var out searchResponse
	if err := c.do(ctx, http.MethodGet, "/contacts?"+params.Encode(), nil, &out); err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(strings.TrimSpace(query))
	queryClean := identity.NormalizePhone(queryLower)

	var matches []Contact
	for _, contact := range out.Contacts {
		if !IsActive(contact) {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(contact.Email))
		name := strings.ToLower(strings.TrimSpace(contact.FirstName + " " + contact.LastName))
		phone := identity.NormalizePhone(strings.TrimSpace(contact.Phone))

		if strings.Contains(email, queryLower) ||
			strings.Contains(name, queryLower) ||
			(queryClean != "" && strings.Contains(phone, queryClean)) {
			matches = append(matches, contact)
		}
	}
	return matches, nil
}

// CreateContact creates a new contact record.
func (c *Client) CreateContact(ctx context.Context, req ContactRequest) (Contact, error) {
	if req.Source == "" {
		req.Source = NoteSource
	}
	var out contactResponse
	if err := c.do(ctx, http.MethodPost, "/contacts", req, &out); err != nil {
		return Contact{}, err
	}
	c.logger.Info("contact created", slog.String("contact_id", out.Contact.ID))
	return out.Contact, nil
}

// UpdateContact overwrites the identifying fields of an existing contact.
func (c *Client) UpdateContact(ctx context.Context, contactID string, req ContactRequest) (Contact, error) {
	if req.Source == "" {
		req.Source = NoteSource
	}
	var out contactResponse
	if err := c.do(ctx, http.MethodPut, "/contacts/"+url.PathEscape(contactID), req, &out); err != nil {
		return Contact{}, err
	}
	c.logger.Info("contact updated", slog.String("contact_id", contactID))
	return out.Contact, nil
}

// CreateNote attaches a note body to a contact.
func (c *Client) CreateNote(ctx context.Context, contactID, body string) error {
	payload := map[string]string{"body": body}
	path := "/contacts/" + url.PathEscape(contactID) + "/notes"
	if err := c.do(ctx, http.MethodPost, path, payload, nil); err != nil {
		return err
	}
	c.logger.Info("note logged", slog.String("contact_id", contactID))
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("crm %s %s: marshal: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("crm %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crm %s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("crm: close response body failed", slog.Any("error", err))
		}
	}()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("crm %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("crm %s %s: decode: %w", method, path, err)
	}
	return nil
}
