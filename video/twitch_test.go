package video_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onnwee/minilodon/testutil"
	"github.com/onnwee/minilodon/twitchapi"
	"github.com/onnwee/minilodon/video"
)

func TestTwitchProviderAgainstHelix(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockOAuthTokenResponse("app-token", 3600)
	mock.MockVideo("123456", "Any% speedrun", "1h2m3s", 98765)

	helix := &twitchapi.HelixClient{
		AppTokenSource: &twitchapi.TokenSource{ClientID: "id", ClientSecret: "secret", TokenURL: mock.TokenURL()},
		ClientID:       "id",
		BaseURL:        mock.HelixURL(),
	}
	r := video.NewResolver(video.Twitch{API: helix})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := r.Describe(ctx, "https://www.twitch.tv/videos/123456")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if want := "[Twitch] Any% speedrun [1:02:03] | 98,765 views"; got != want {
		t.Errorf("Describe = %q, want %q", got, want)
	}

	_, err = r.Describe(ctx, "https://www.twitch.tv/videos/999")
	if !errors.Is(err, twitchapi.ErrVideoNotFound) {
		t.Errorf("missing video err = %v, want ErrVideoNotFound", err)
	}
}
