// Package youtubeapi wraps the YouTube Data API for the single purpose of
// checking whether a channel has a live broadcast right now. Lookups are
// key-authenticated; no OAuth flow is involved.
package youtubeapi

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/onnwee/livehub/db"
	"github.com/onnwee/livehub/live"
)

type Client struct {
	svc *yt.Service
}

// New builds a client authenticated with the given API key. Extra options are
// appended so tests can redirect the endpoint.
func New(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := yt.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Poll implements live.Poller. The streamer's PlatformID is the channel id.
// A channel with no live broadcast yields nil, nil.
func (c *Client) Poll(ctx context.Context, s db.Streamer) (*live.Stream, error) {
	search, err := c.svc.Search.List([]string{"id"}).
		ChannelId(s.PlatformID).
		Type("video").
		EventType("live").
		MaxResults(1).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	if len(search.Items) == 0 || search.Items[0].Id == nil || search.Items[0].Id.VideoId == "" {
		return nil, nil
	}
	videoID := search.Items[0].Id.VideoId

	videos, err := c.svc.Videos.List([]string{"snippet", "liveStreamingDetails"}).
		Id(videoID).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube videos: %w", err)
	}
	if len(videos.Items) == 0 {
		return nil, nil
	}
	v := videos.Items[0]

	title := ""
	thumb := ""
	if v.Snippet != nil {
		title = v.Snippet.Title
		if v.Snippet.Thumbnails != nil && v.Snippet.Thumbnails.High != nil {
			thumb = v.Snippet.Thumbnails.High.Url
		}
	}
	viewers := 0
	if v.LiveStreamingDetails != nil {
		viewers = int(v.LiveStreamingDetails.ConcurrentViewers)
	}

	return &live.Stream{
		ID:           live.StreamID(db.PlatformYouTube, s.ID),
		StreamerName: s.Name,
		Platform:     db.PlatformYouTube,
		Title:        title,
		ThumbnailURL: thumb,
		ViewerCount:  viewers,
		StreamURL:    "https://www.youtube.com/watch?v=" + videoID,
	}, nil
}
