package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHelixClient_GetVideo(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		statusCode int
		response   interface{}
		want       *VideoMeta
		wantErr    error
	}{
		{
			name:       "found",
			id:         "123",
			statusCode: http.StatusOK,
			response: map[string]interface{}{
				"data": []map[string]interface{}{
					{"id": "123", "title": "Speedrun", "duration": "1h2m3s", "view_count": 4567},
				},
			},
			want: &VideoMeta{ID: "123", Title: "Speedrun", Duration: time.Hour + 2*time.Minute + 3*time.Second, ViewCount: 4567},
		},
		{
			name:       "empty data",
			id:         "404",
			statusCode: http.StatusOK,
			response:   map[string]interface{}{"data": []interface{}{}},
			wantErr:    ErrVideoNotFound,
		},
		{
			name:       "not found status",
			id:         "405",
			statusCode: http.StatusNotFound,
			response:   map[string]interface{}{"error": "Not Found"},
			wantErr:    ErrVideoNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tokens, helix *httptest.Server
			tokens = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "app-token", "expires_in": 3600})
			}))
			defer tokens.Close()
			helix = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Client-Id") != "test-client-id" {
					t.Errorf("missing or wrong Client-Id header")
				}
				if r.Header.Get("Authorization") != "Bearer app-token" {
					t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
				}
				if r.URL.Path != "/videos" || r.URL.Query().Get("id") != tt.id {
					t.Errorf("unexpected request %s", r.URL)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_ = json.NewEncoder(w).Encode(tt.response)
			}))
			defer helix.Close()

			hc := &HelixClient{
				AppTokenSource: &TokenSource{ClientID: "test-client-id", ClientSecret: "secret", TokenURL: tokens.URL},
				ClientID:       "test-client-id",
				BaseURL:        helix.URL,
			}
			got, err := hc.GetVideo(context.Background(), tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetVideo() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetVideo() error = %v", err)
			}
			if *got != *tt.want {
				t.Errorf("GetVideo() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHelixClient_GetVideoEmptyID(t *testing.T) {
	hc := &HelixClient{}
	if _, err := hc.GetVideo(context.Background(), ""); err == nil {
		t.Fatal("empty id should fail")
	}
}

func TestHelixClient_GetVideoServerError(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "app-token", "expires_in": 3600})
	}))
	defer tokens.Close()
	helix := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer helix.Close()

	hc := &HelixClient{
		AppTokenSource: &TokenSource{ClientID: "id", ClientSecret: "secret", TokenURL: tokens.URL},
		ClientID:       "id",
		BaseURL:        helix.URL,
	}
	_, err := hc.GetVideo(context.Background(), "1")
	if err == nil || errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("GetVideo() error = %v, want server error", err)
	}
}
