package gitsource

import (
	"path/filepath"
	"testing"
)

func TestLocalPath(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
		wantErr  bool
	}{
		{url: "https://github.com/someone/polish-decks.git", expected: filepath.Join("repos", "github.com", "someone", "polish-decks")},
		{url: "git@github.com:someone/polish-decks.git", expected: filepath.Join("repos", "github.com", "someone", "polish-decks")},
		{url: "not a url", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			got, err := LocalPath("repos", tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected an error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("LocalPath() returned an unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected %q, but got %q", tc.expected, got)
			}
		})
	}
}

func TestIsGitURL(t *testing.T) {
	for path, want := range map[string]bool{
		"https://example.com/decks.git": true,
		"git@example.com:me/decks":      true,
		"/home/me/decks.git":            true,
		"/home/me/decks":                false,
		"decks":                         false,
	} {
		if got := IsGitURL(path); got != want {
			t.Errorf("IsGitURL(%q) = %v, want %v", path, got, want)
		}
	}
}
