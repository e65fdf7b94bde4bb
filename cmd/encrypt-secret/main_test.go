package main

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/onnwee/minilodon/secret"
)

func TestTransformRoundTrip(t *testing.T) {
	box, err := secret.NewBox(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := transform(box, "oauth:abc", false)
	if err != nil || !secret.IsSealed(sealed) {
		t.Fatalf("seal = %q, %v", sealed, err)
	}
	plain, err := transform(box, sealed, true)
	if err != nil || plain != "oauth:abc" {
		t.Fatalf("open = %q, %v", plain, err)
	}
}

func TestReadLine(t *testing.T) {
	tests := map[string]string{
		"token\n":   "token",
		"token\r\n": "token",
		"token":     "token",
		"a\nb\n":    "a",
	}
	for in, want := range tests {
		got, err := readLine(strings.NewReader(in))
		if err != nil || got != want {
			t.Errorf("readLine(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}
