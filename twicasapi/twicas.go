// Package twicasapi checks live status on TwitCasting using the v2 API with a
// bearer access token. Two calls per poll: user lookup for the is_live flag,
// then the current_live detail when live.
package twicasapi

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

const apiBaseURL = "https://apiv2.twitcasting.tv"

type Client struct {
	Token      string
	HTTPClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{Token: token, HTTPClient: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Version", "2.0")
	req.Header.Set("Authorization", "Bearer "+c.Token)
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twitcasting %s: %s: %s", path, resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Poll implements live.Poller. The streamer's PlatformID is the TwitCasting user id.
func (c *Client) Poll(ctx context.Context, s db.Streamer) (*live.Stream, error) {
	var userBody struct {
		User struct {
			IsLive bool `json:"is_live"`
		} `json:"user"`
	}
	if err := c.getJSON(ctx, "/users/"+s.PlatformID, &userBody); err != nil {
		return nil, err
	}
	if !userBody.User.IsLive {
		return nil, nil
	}

	var liveBody struct {
		Movie struct {
			Title            string `json:"title"`
			LargeThumbnail   string `json:"large_thumbnail"`
			CurrentViewCount int    `json:"current_view_count"`
		} `json:"movie"`
	}
	if err := c.getJSON(ctx, "/users/"+s.PlatformID+"/current_live", &liveBody); err != nil {
		return nil, err
	}
	title := liveBody.Movie.Title
	if title == "" {
		title = s.Name
	}
	return &live.Stream{
		ID:           live.StreamID(db.PlatformTwitCasting, s.ID),
		StreamerName: s.Name,
		Platform:     db.PlatformTwitCasting,
		Title:        title,
		ThumbnailURL: liveBody.Movie.LargeThumbnail,
		ViewerCount:  liveBody.Movie.CurrentViewCount,
		StreamURL:    "https://twitcasting.tv/" + s.PlatformID,
	}, nil
}
