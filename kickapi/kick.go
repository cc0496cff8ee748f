// Package kickapi checks live status on Kick. Kick has no stable public API,
// so this adapter is best-effort against the unofficial channels endpoint; any
// surprise in shape or status degrades to "not live" at the aggregator
// boundary like every other provider failure.
package kickapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/onnwee/livehub/db"
	"github.com/onnwee/livehub/live"
)

const channelsBaseURL = "https://kick.com/api/v2/channels"

type Client struct {
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{HTTPClient: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

type channelResponse struct {
	Slug       string `json:"slug"`
	Livestream *struct {
		SessionTitle string `json:"session_title"`
		IsLive       bool   `json:"is_live"`
		ViewerCount  int    `json:"viewer_count"`
		Thumbnail    struct {
			URL string `json:"url"`
		} `json:"thumbnail"`
	} `json:"livestream"`
}

// Poll implements live.Poller. The streamer's PlatformID is the channel slug.
func (c *Client) Poll(ctx context.Context, s db.Streamer) (*live.Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, channelsBaseURL+"/"+s.PlatformID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kick channels %s: %s: %s", s.PlatformID, resp.Status, string(b))
	}
	var body channelResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("kick channels %s: decode: %w", s.PlatformID, err)
	}
	if body.Livestream == nil || !body.Livestream.IsLive {
		return nil, nil
	}
	return &live.Stream{
		ID:           live.StreamID(db.PlatformKick, s.ID),
		StreamerName: s.Name,
		Platform:     db.PlatformKick,
		Title:        body.Livestream.SessionTitle,
		ThumbnailURL: body.Livestream.Thumbnail.URL,
		ViewerCount:  body.Livestream.ViewerCount,
		StreamURL:    "https://kick.com/" + s.PlatformID,
	}, nil
}
