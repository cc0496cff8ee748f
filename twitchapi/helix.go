// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs
// for live-status lookups, using an app access (client credentials) token.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/twitch"

	"github.com/onnwee/livehub/db"
	"github.com/onnwee/livehub/live"
)

const helixBaseURL = "https://api.twitch.tv/helix"

// Client provides the minimal Helix surface needed for live-status polling.
// Tokens holds a cached app access token; the oauth2 token source refreshes it
// transparently when it expires.
type Client struct {
	ClientID   string
	Tokens     oauth2.TokenSource
	HTTPClient *http.Client
}

// NewClient builds a Helix client using the client-credentials grant.
func NewClient(clientID, clientSecret string) *Client {
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     twitch.Endpoint.TokenURL,
	}
	return &Client{
		ClientID:   clientID,
		Tokens:     cc.TokenSource(context.Background()),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) getJSON(ctx context.Context, path string, query map[string]string, out any) error {
	tok, err := c.Tokens.Token()
	if err != nil {
		return fmt.Errorf("twitch app token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, helixBaseURL+path, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", c.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("helix %s: %s: %s", path, resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// StreamInfo describes one live broadcast as reported by helix/streams.
type StreamInfo struct {
	Title        string    `json:"title"`
	ViewerCount  int       `json:"viewer_count"`
	ThumbnailURL string    `json:"thumbnail_url"`
	StartedAt    time.Time `json:"started_at"`
}

// GetStream returns the live broadcast for a user id, or nil when offline.
func (c *Client) GetStream(ctx context.Context, userID string) (*StreamInfo, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID empty")
	}
	var body struct {
		Data []StreamInfo `json:"data"`
	}
	if err := c.getJSON(ctx, "/streams", map[string]string{"user_id": userID}, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, nil
	}
	return &body.Data[0], nil
}

// GetStreamByLogin is GetStream keyed by login name (used by the chat mirror).
func (c *Client) GetStreamByLogin(ctx context.Context, login string) (*StreamInfo, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	var body struct {
		Data []StreamInfo `json:"data"`
	}
	if err := c.getJSON(ctx, "/streams", map[string]string{"user_login": login}, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, nil
	}
	return &body.Data[0], nil
}

// GetLogin resolves a user id to its login name.
func (c *Client) GetLogin(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("userID empty")
	}
	var body struct {
		Data []struct {
			Login string `json:"login"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "/users", map[string]string{"id": userID}, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found")
	}
	return body.Data[0].Login, nil
}

// Poll implements live.Poller. The streamer's PlatformID is the Twitch user id.
func (c *Client) Poll(ctx context.Context, s db.Streamer) (*live.Stream, error) {
	stream, err := c.GetStream(ctx, s.PlatformID)
	if err != nil {
		return nil, err
	}
	if stream == nil {
		return nil, nil
	}
	login, err := c.GetLogin(ctx, s.PlatformID)
	if err != nil {
		return nil, err
	}
	// Helix returns a templated thumbnail url.
	thumb := strings.NewReplacer("{width}", "640", "{height}", "360").Replace(stream.ThumbnailURL)
	return &live.Stream{
		ID:           live.StreamID(db.PlatformTwitch, s.ID),
		StreamerName: s.Name,
		Platform:     db.PlatformTwitch,
		Title:        stream.Title,
		ThumbnailURL: thumb,
		ViewerCount:  stream.ViewerCount,
		StreamURL:    "https://twitch.tv/" + login,
	}, nil
}
