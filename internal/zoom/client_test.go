package zoom

import (
	"context"
	"encoding/json"
	"io"
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
	return NewClient(nil,
		Credentials{AccountID: "acc-1", ClientID: "cid", ClientSecret: "secret"},
		Endpoints{API: srv.URL, OAuth: srv.URL + "/oauth/token", Download: srv.URL},
		time.Second,
	)
}

func serveToken(t *testing.T, w http.ResponseWriter, r *http.Request) {
	t.Helper()
	user, pass, ok := r.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "cid", user)
	assert.Equal(t, "secret", pass)
	require.NoError(t, r.ParseForm())
	assert.Equal(t, "account_credentials", r.FormValue("grant_type"))
	assert.Equal(t, "acc-1", r.FormValue("account_id"))
	_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok-1", ExpiresIn: 3600})
}

func TestGetMeetingParticipantsDoubleEncodesUUID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			serveToken(t, w, r)
			return
		}
		// "ab/cd==" → "ab%2Fcd==" → "ab%252Fcd==", kept escaped in RequestURI.
		assert.Contains(t, r.URL.RawPath+r.URL.Path, "past_meetings/")
		assert.Contains(t, r.RequestURI, "ab%252Fcd")
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(participantsResponse{Participants: []ParticipantPayload{
			{Name: "Ada Lovelace", Email: "a@x.com", UserID: "u1"},
		}})
	})

	participants, err := client.GetMeetingParticipants(context.Background(), "ab/cd==")
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, "Ada Lovelace", participants[0].Name)
}

func TestListUsersFollowsPagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			serveToken(t, w, r)
			return
		}
		assert.Equal(t, "/users", r.URL.Path)
		if r.URL.Query().Get("next_page_token") == "" {
			_ = json.NewEncoder(w).Encode(usersResponse{
				Users:         []User{{ID: "u1", Email: "a@x.com"}},
				NextPageToken: "page-2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(usersResponse{
			Users: []User{{ID: "u2", Email: "b@x.com"}},
		})
	})

	users, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, "u2", users[1].ID)
}

func TestDownloadPhoneRecordingStreams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			serveToken(t, w, r)
			return
		}
		assert.Equal(t, "/phone/recording/download/file-1", r.URL.Path)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("audio-bytes"))
	})

	dl, err := client.DownloadPhoneRecording(context.Background(), "file-1")
	require.NoError(t, err)
	defer dl.Body.Close()

	assert.Equal(t, "audio/mpeg", dl.ContentType)
	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
}

func TestDownloadMeetingRecordingFallsBackOn404(t *testing.T) {
	var tried []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			serveToken(t, w, r)
			return
		}
		tried = append(tried, r.URL.Path)
		if r.URL.Path == "/meetings/rec-1/recordings/download" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("payload"))
	})

	dl, err := client.DownloadMeetingRecording(context.Background(), "rec-1")
	require.NoError(t, err)
	defer dl.Body.Close()

	assert.Equal(t, []string{
		"/meetings/rec-1/recordings/download",
		"/recordings/rec-1/download",
	}, tried)
}

func TestAccessTokenErrorSurfaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	})

	_, err := client.AccessToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestParseEventHandshake(t *testing.T) {
	raw := []byte(`{"event":"endpoint.url_validation","payload":{"plainToken":"tok"}}`)
	evt, err := ParseEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, EventURLValidation, evt.Event)
	assert.Equal(t, "tok", evt.Payload.PlainToken)
}

func TestParticipantListObjectOrArray(t *testing.T) {
	var obj MeetingObject
	require.NoError(t, json.Unmarshal([]byte(`{"uuid":"m1","participant":{"user_name":"Ada"}}`), &obj))
	require.Len(t, obj.Participant, 1)
	assert.Equal(t, "Ada", obj.Participant[0].UserName)

	require.NoError(t, json.Unmarshal([]byte(`{"uuid":"m1","participant":[{"user_name":"Ada"},{"user_name":"Bob"}]}`), &obj))
	require.Len(t, obj.Participant, 2)
}

func TestPhoneRecordingObjectAll(t *testing.T) {
	var obj PhoneRecordingObject
	require.NoError(t, json.Unmarshal([]byte(`{"recordings":[{"id":"f1"},{"id":"f2"}]}`), &obj))
	assert.Len(t, obj.All(), 2)

	obj = PhoneRecordingObject{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"f3","caller_number":"+15550001111"}`), &obj))
	require.Len(t, obj.All(), 1)
	assert.Equal(t, "f3", obj.All()[0].ID)

	obj = PhoneRecordingObject{}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &obj))
	assert.Nil(t, obj.All())
}
