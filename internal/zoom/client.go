// Package zoom is the event-source client: server-to-server OAuth, meeting
// participant lookup, user listing, and recording downloads.
package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default Zoom endpoints.
const (
	DefaultAPIBaseURL      = "https://api.zoom.us/v2"
	DefaultOAuthURL        = "https://zoom.us/oauth/token"
	DefaultDownloadBaseURL = "https://zoom.us/v2"
)

const usersPageSize = 300

// Credentials are the server-to-server OAuth app credentials.
type Credentials struct {
	AccountID    string
	ClientID     string
	ClientSecret string
}

// Endpoints are the API base URLs; zero values select the defaults.
type Endpoints struct {
	API      string
	OAuth    string
	Download string
}

// Client calls the Zoom REST API.
type Client struct {
	creds           Credentials
	baseURL         string
	oauthURL        string
	downloadBaseURL string
	logger          *slog.Logger
	http            *http.Client
}

// NewClient builds a Zoom client.
func NewClient(log *slog.Logger, creds Credentials, endpoints Endpoints, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if endpoints.API == "" {
		endpoints.API = DefaultAPIBaseURL
	}
	if endpoints.OAuth == "" {
		endpoints.OAuth = DefaultOAuthURL
	}
	if endpoints.Download == "" {
		endpoints.Download = DefaultDownloadBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		creds:           creds,
		baseURL:         strings.TrimRight(endpoints.API, "/"),
		oauthURL:        endpoints.OAuth,
		downloadBaseURL: strings.TrimRight(endpoints.Download, "/"),
		logger:          log.With(slog.String("client", "zoom")),
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// AccessToken fetches a fresh token via the account_credentials grant.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type": {"account_credentials"},
		"account_id": {c.creds.AccountID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("zoom token: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("zoom token: %w", err)
	}
	defer c.closeBody(resp.Body)

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("zoom token: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var token tokenResponse
	if err := json.Unmarshal(data, &token); err != nil {
		return "", fmt.Errorf("zoom token: decode: %w", err)
	}
	return token.AccessToken, nil
}

type participantsResponse struct {
	Participants []ParticipantPayload `json:"participants"`
}

// GetMeetingParticipants lists the participants of a past meeting. Meeting
// UUIDs can contain "/" and "//", so the UUID is double path-encoded as the
// API requires.
func (c *Client) GetMeetingParticipants(ctx context.Context, meetingUUID string) ([]ParticipantPayload, error) {
	encoded := url.PathEscape(url.PathEscape(meetingUUID))
	path := fmt.Sprintf("%s/past_meetings/%s/participants", c.baseURL, encoded)

	var out participantsResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("fetched meeting participants",
		slog.String("meeting_uuid", meetingUUID),
		slog.Int("count", len(out.Participants)),
	)
	return out.Participants, nil
}

// User is a Zoom account user.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Status    string `json:"status"`
}

type usersResponse struct {
	Users         []User `json:"users"`
	NextPageToken string `json:"next_page_token"`
}

// ListUsers returns every active user in the account, following pagination.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var all []User
	pageToken := ""
	for {
		params := url.Values{
			"page_size": {fmt.Sprint(usersPageSize)},
			"status":    {"active"},
		}
		if pageToken != "" {
			params.Set("next_page_token", pageToken)
		}

		var out usersResponse
		if err := c.getJSON(ctx, c.baseURL+"/users?"+params.Encode(), &out); err != nil {
			return nil, err
		}
		all = append(all, out.Users...)
		if out.NextPageToken == "" {
			return all, nil
		}
		pageToken = out.NextPageToken
	}
}

// Download is an open recording stream. The caller owns Body.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Length      string
}

// DownloadPhoneRecording streams a phone call recording by its file id.
func (c *Client) DownloadPhoneRecording(ctx context.Context, fileID string) (*Download, error) {
	target := c.downloadBaseURL + "/phone/recording/download/" + url.PathEscape(fileID)
	return c.download(ctx, []string{target})
}

// DownloadMeetingRecording streams a meeting recording, trying the two
// endpoint shapes Zoom uses for it in order.
func (c *Client) DownloadMeetingRecording(ctx context.Context, recordingID string) (*Download, error) {
	escaped := url.PathEscape(recordingID)
	return c.download(ctx, []string{
		fmt.Sprintf("%s/meetings/%s/recordings/download", c.baseURL, escaped),
		fmt.Sprintf("%s/recordings/%s/download", c.baseURL, escaped),
	})
}

func (c *Client) download(ctx context.Context, targets []string) (*Download, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, target := range targets {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("zoom download: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/octet-stream")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("zoom download: %w", err)
			continue
		}
		if resp.StatusCode == http.StatusOK {
			contentType := resp.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			return &Download{
				Body:        resp.Body,
				ContentType: contentType,
				Length:      resp.Header.Get("Content-Length"),
			}, nil
		}
		data, _ := io.ReadAll(resp.Body)
		c.closeBody(resp.Body)
		lastErr = fmt.Errorf("zoom download: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("zoom download: no target URLs")
	}
	return nil, lastErr
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("zoom get %s: %w", target, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("zoom get %s: %w", target, err)
	}
	defer c.closeBody(resp.Body)

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("zoom get %s: status %d: %s", target, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("zoom get %s: decode: %w", target, err)
	}
	return nil
}

func (c *Client) closeBody(body io.Closer) {
	if err := body.Close(); err != nil {
		c.logger.Warn("zoom: close response body failed", slog.Any("error", err))
	}
}
