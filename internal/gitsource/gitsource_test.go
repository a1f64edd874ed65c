package gitsource

import (
	"path/filepath"
	"testing"
)

func TestLocalPath(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/acme/spanish-vocab.git", filepath.Join("repos", "github.com", "acme", "spanish-vocab")},
		{"http://git.example.org/words", filepath.Join("repos", "git.example.org", "words")},
		{"git@github.com:acme/german.git", filepath.Join("repos", "github.com", "acme", "german")},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := LocalPath("repos", tt.url)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	for _, bad := range []string{"/home/me/vocab", "ftp://host/repo", "https://github.com/", "git@github.com"} {
		if _, err := LocalPath("repos", bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestIsGitURL(t *testing.T) {
	for _, u := range []string{"https://github.com/a/b", "git@github.com:a/b.git", "/srv/words.git"} {
		if !IsGitURL(u) {
			t.Errorf("expected %q to be a git URL", u)
		}
	}
	for _, p := range []string{"/home/me/vocab", "vocab", "./notes"} {
		if IsGitURL(p) {
			t.Errorf("expected %q to be a local path", p)
		}
	}
}
