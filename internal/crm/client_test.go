package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(nil, "test-key", "loc-1", srv.URL, time.Second)
}

func TestIsActive(t *testing.T) {
	assert.True(t, IsActive(Contact{ID: "1", Status: "active"}))
	assert.True(t, IsActive(Contact{ID: "1"}))
	assert.False(t, IsActive(Contact{ID: "1", Status: "Deleted"}))
	assert.False(t, IsActive(Contact{ID: "1", Status: "archived"}))
	assert.False(t, IsActive(Contact{ID: "1", Status: "inactive"}))
	assert.False(t, IsActive(Contact{ID: "1", DeletedAt: "2026-01-01T00:00:00Z"}))
	assert.False(t, IsActive(Contact{ID: "1", ArchivedAt: "2026-01-01T00:00:00Z"}))
	// DND suppresses outreach, not matching.
	assert.True(t, IsActive(Contact{ID: "1", DND: true}))
}

func TestSearchByEmailReturnsAllCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contacts/search", r.URL.Path)
		assert.Equal(t, "a@x.com", r.URL.Query().Get("email"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(searchResponse{Contacts: []Contact{
			{ID: "c1", Email: "a@x.com", Status: "deleted"},
			{ID: "c2", Email: "a@x.com"},
		}})
	})

	contacts, err := client.SearchByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	// Soft-deleted candidates are returned; the resolver decides what to do.
	require.Len(t, contacts, 2)
	assert.Equal(t, "c1", contacts[0].ID)
}

func TestSearchGeneralFiltersInactiveAndNonMatching(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contacts", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(searchResponse{Contacts: []Contact{
			{ID: "c1", Email: "ada@x.com", FirstName: "Ada"},
			{ID: "c2", Email: "ada@x.com", Status: "deleted"},
			{ID: "c3", Email: "bob@y.com", FirstName: "Bob"},
		}})
	})

	contacts, err := client.SearchGeneral(context.Background(), "ada")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "c1", contacts[0].ID)
}

func TestSearchGeneralMatchesNormalizedPhone(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(searchResponse{Contacts: []Contact{
			{ID: "c1", Phone: "+1 (555) 123-4567"},
		}})
	})

	contacts, err := client.SearchGeneral(context.Background(), "555-123-4567")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
}

func TestSearchByPhoneFallsBackToGeneralOnFormatMismatch(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/contacts/search" {
			// The exact-key search misses because the stored number is
			// formatted differently.
			_ = json.NewEncoder(w).Encode(searchResponse{Contacts: nil})
			return
		}
		assert.Equal(t, "/contacts", r.URL.Path)
		assert.Equal(t, "+1 (555) 123-4567", r.URL.Query().Get("query"))
		_ = json.NewEncoder(w).Encode(searchResponse{Contacts: []Contact{
			{ID: "c-1", Phone: "+1-555-123-4567"},
		}})
	})

	contacts, err := client.SearchByPhone(context.Background(), "+1 (555) 123-4567")
	require.NoError(t, err)
	assert.Equal(t, []string{"/contacts/search", "/contacts"}, paths)
	require.Len(t, contacts, 1)
	assert.Equal(t, "c-1", contacts[0].ID)
}

func TestSearchByEmailKeepsDeletedHitAheadOfGeneralMatches(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/contacts/search" {
			_ = json.NewEncoder(w).Encode(searchResponse{Contacts: []Contact{
				{ID: "c-del", Email: "a@x.com", Status: "deleted"},
			}})
			return
		}
		_ = json.NewEncoder(w).Encode(searchResponse{Contacts: []Contact{
			{ID: "c-live", Email: "team+a@x.com"},
		}})
	})

	contacts, err := client.SearchByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	// The soft-deleted keyed hit must stay visible for collision checks,
	// with the general matches appended after it.
	require.Len(t, contacts, 2)
	assert.Equal(t, "c-del", contacts[0].ID)
	assert.Equal(t, "c-live", contacts[1].ID)
}

func TestSearchByNameFallsBackToGeneralOnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/contacts/search" {
			http.Error(w, "upstream down", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(searchResponse{Contacts: []Contact{
			{ID: "c-2", FirstName: "Ada", LastName: "Lovelace"},
		}})
	})

	contacts, err := client.SearchByName(context.Background(), "Ada")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "c-2", contacts[0].ID)
}

func TestSearchByPhoneActiveKeyedHitSkipsGeneral(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = json.NewEncoder(w).Encode(searchResponse{Contacts: []Contact{
			{ID: "c-1", Phone: "+15551234567"},
		}})
	})

	contacts, err := client.SearchByPhone(context.Background(), "+15551234567")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, []string{"/contacts/search"}, paths)
}

func TestCreateContactPostsPayloadAndSource(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/contacts", r.URL.Path)
		var req ContactRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ada", req.FirstName)
		assert.Equal(t, NoteSource, req.Source)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(contactResponse{Contact: Contact{ID: "new-1", Email: req.Email}})
	})

	contact, err := client.CreateContact(context.Background(), ContactRequest{FirstName: "Ada", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "new-1", contact.ID)
}

func TestUpdateContactPutsToContactPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/contacts/c-9", r.URL.Path)
		_ = json.NewEncoder(w).Encode(contactResponse{Contact: Contact{ID: "c-9"}})
	})

	contact, err := client.UpdateContact(context.Background(), "c-9", ContactRequest{FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "c-9", contact.ID)
}

func TestCreateNote(t *testing.T) {
	var gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contacts/c-1/notes", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotBody = payload["body"]
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, client.CreateNote(context.Background(), "c-1", "note text"))
	assert.Equal(t, "note text", gotBody)
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.SearchByPhone(context.Background(), "+15551234567")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}
