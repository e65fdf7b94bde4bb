package main

import (
	"testing"
	"time"

	"github.com/onnwee/minilodon/config"
)

func TestSessionOptionsPassword(t *testing.T) {
	tests := []struct {
		transport string
		want      string
	}{
		{config.TransportIRC, "pw"},
		{config.TransportTwitch, ""},
	}
	for _, tt := range tests {
		t.Run(tt.transport, func(t *testing.T) {
			cfg := &config.Config{
				Transport:      tt.transport,
				Password:       "pw",
				MainChannel:    "#main",
				ControlChannel: "#control",
				IdleTime:       time.Hour,
			}
			opts := sessionOptions(cfg)
			if opts.Password != tt.want {
				t.Errorf("Password = %q, want %q", opts.Password, tt.want)
			}
			if opts.MainRoom != "#main" || opts.ControlRoom != "#control" || opts.IdleTimeout != time.Hour {
				t.Errorf("options not mapped: %+v", opts)
			}
		})
	}
}
