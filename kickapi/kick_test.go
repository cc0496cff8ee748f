package kickapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/onnwee/livehub/db"
)

type rewriteTransport struct {
	Transport http.RoundTripper
	host      string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	u, err := url.Parse(t.host)
	if err != nil {
		return nil, err
	}
	req.URL.Scheme = u.Scheme
	req.URL.Host = u.Host
	return t.Transport.RoundTrip(req)
}

func testClient(serverURL string) *Client {
	return &Client{HTTPClient: &http.Client{
		Transport: &rewriteTransport{Transport: http.DefaultTransport, host: serverURL},
	}}
}

func TestClient_Poll(t *testing.T) {
	tests := []struct {
		response   interface{}
		name       string
		wantTitle  string
		statusCode int
		wantNil    bool
		wantErr    bool
	}{
		{
			name: "live channel",
			response: map[string]interface{}{
				"slug": "somechannel",
				"livestream": map[string]interface{}{
					"session_title": "variety night",
					"is_live":       true,
					"viewer_count":  88,
					"thumbnail":     map[string]string{"url": "https://cdn.kick.com/thumb.jpg"},
				},
			},
			statusCode: http.StatusOK,
			wantTitle:  "variety night",
		},
		{
			name: "offline channel",
			response: map[string]interface{}{
				"slug":       "somechannel",
				"livestream": nil,
			},
			statusCode: http.StatusOK,
			wantNil:    true,
		},
		{
			name: "livestream present but not live",
			response: map[string]interface{}{
				"slug": "somechannel",
				"livestream": map[string]interface{}{
					"session_title": "rerun",
					"is_live":       false,
				},
			},
			statusCode: http.StatusOK,
			wantNil:    true,
		},
		{
			name:       "channel not found",
			response:   map[string]string{"message": "Not Found"},
			statusCode: http.StatusNotFound,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v2/channels/somechannel" {
					t.Errorf("path = %s, want /api/v2/channels/somechannel", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			client := testClient(server.URL)
			streamer := db.Streamer{ID: "s3", Name: "Some Channel", Platform: db.PlatformKick, PlatformID: "somechannel"}

			got, err := client.Poll(context.Background(), streamer)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Poll() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Poll() unexpected error = %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("Poll() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Poll() = nil, want stream")
			}
			if got.ID != "kick-s3" {
				t.Errorf("ID = %s, want kick-s3", got.ID)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %s, want %s", got.Title, tt.wantTitle)
			}
			if got.StreamURL != "https://kick.com/somechannel" {
				t.Errorf("StreamURL = %s, want https://kick.com/somechannel", got.StreamURL)
			}
		})
	}
}
