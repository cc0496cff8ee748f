package youtubeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"github.com/onnwee/livehub/db"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(context.Background(), "test-key", option.WithEndpoint(server.URL), option.WithHTTPClient(http.DefaultClient))
	if err != nil {
		t.Fatalf("New() unexpected error = %v", err)
	}
	return client
}

func TestClient_Poll(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/search"):
			if r.URL.Query().Get("eventType") != "live" {
				t.Errorf("eventType = %s, want live", r.URL.Query().Get("eventType"))
			}
			if r.URL.Query().Get("channelId") != "UCabc" {
				t.Errorf("channelId = %s, want UCabc", r.URL.Query().Get("channelId"))
			}
			_, _ = w.Write([]byte(`{"items":[{"id":{"videoId":"vid123"}}]}`))
		case strings.Contains(r.URL.Path, "/videos"):
			_, _ = w.Write([]byte(`{
				"items": [{
					"snippet": {
						"title": "album listening party",
						"thumbnails": {"high": {"url": "https://i.ytimg.com/vi/vid123/hqdefault.jpg"}}
					},
					"liveStreamingDetails": {"concurrentViewers": "230"}
				}]
			}`))
		default:
			http.NotFound(w, r)
		}
	})

	streamer := db.Streamer{ID: "s2", Name: "Some Channel", Platform: db.PlatformYouTube, PlatformID: "UCabc"}
	got, err := client.Poll(context.Background(), streamer)
	if err != nil {
		t.Fatalf("Poll() unexpected error = %v", err)
	}
	if got == nil {
		t.Fatal("Poll() = nil, want stream")
	}
	if got.ID != "youtube-s2" {
		t.Errorf("ID = %s, want youtube-s2", got.ID)
	}
	if got.Title != "album listening party" {
		t.Errorf("Title = %s, want album listening party", got.Title)
	}
	if got.ViewerCount != 230 {
		t.Errorf("ViewerCount = %d, want 230", got.ViewerCount)
	}
	if got.StreamURL != "https://www.youtube.com/watch?v=vid123" {
		t.Errorf("StreamURL = %s, want watch url", got.StreamURL)
	}
}

func TestClient_PollOffline(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.Contains(r.URL.Path, "/search") {
			t.Errorf("offline poll should stop after the search call, got %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	got, err := client.Poll(context.Background(), db.Streamer{ID: "s2", PlatformID: "UCabc"})
	if err != nil {
		t.Fatalf("Poll() unexpected error = %v", err)
	}
	if got != nil {
		t.Errorf("Poll() = %+v, want nil", got)
	}
}

func TestClient_PollSearchError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quotaExceeded"}}`))
	})

	if _, err := client.Poll(context.Background(), db.Streamer{ID: "s2", PlatformID: "UCabc"}); err == nil {
		t.Fatal("Poll() error = nil, want error on quota failure")
	}
}
