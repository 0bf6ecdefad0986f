package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testBase = "https://cdn.example.com"

func TestNewResolver_TrimsTrailingSlash(t *testing.T) {
	r := NewResolver(testBase + "///")
	assert.Equal(t, testBase, r.PublicBase())
	assert.Equal(t, testBase+"/projects/p1/media/a.png", r.PublicURL("/projects/p1/media/a.png"))
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"absolute URL", "https://bucket.s3.amazonaws.com/companies/c1/documents/x.pdf", "companies/c1/documents/x.pdf", true},
		{"URL with query", "https://cdn.example.com/users/u1/media/a.jpg?v=2", "users/u1/media/a.jpg", true},
		{"bare key", "projects/p1/media/a.png", "projects/p1/media/a.png", true},
		{"leading slashes", "//projects/p1/media/a.png", "projects/p1/media/a.png", true},
		{"encoded path kept", "https://cdn.example.com/users/u1/media/my%20photo.png", "users/u1/media/my%20photo.png", true},
		{"URL without path", "https://cdn.example.com", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KeyFromURL(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestKeyFromURL_InvertsPublicURL(t *testing.T) {
	r := NewResolver(testBase)
	keys := []string{
		"projects/p1/media/0b6f.png",
		"companies/c9/documents/report-2024.pdf",
		"users/u1/media/avatar.webp",
		"users/u1/media/a%41.png",
	}
	for _, k := range keys {
		got, ok := KeyFromURL(r.PublicURL(k))
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
}

// TestKeyFromURL_BasePathIsPartOfKey は公開ベースURLのパスがキーに残ることを検証する。
func TestKeyFromURL_BasePathIsPartOfKey(t *testing.T) {
	r := NewResolver(testBase + "/assets")
	got, ok := KeyFromURL(r.PublicURL("projects/p1/media/a.png"))
	assert.True(t, ok)
	assert.Equal(t, "assets/projects/p1/media/a.png", got)
}

func TestReconcile(t *testing.T) {
	r := NewResolver(testBase)

	tests := []struct {
		name     string
		assetURL string
		s3Key    string
		want     string
	}{
		{"already public", testBase + "/a/b.png", "other/key.png", testBase + "/a/b.png"},
		{"data URI", "data:image/png;base64,AAAA", "", "data:image/png;base64,AAAA"},
		{"explicit key wins", "https://bucket.s3.amazonaws.com/old/x.png", "projects/p1/media/x.png", testBase + "/projects/p1/media/x.png"},
		{"derived from foreign URL", "https://bucket.s3.amazonaws.com/projects/p1/media/x.png", "", testBase + "/projects/p1/media/x.png"},
		{"key only", "", "users/u1/media/a.jpg", testBase + "/users/u1/media/a.jpg"},
		{"nothing usable", "https://elsewhere.example.org", "", "https://elsewhere.example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Reconcile(tt.assetURL, tt.s3Key)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, r.Reconcile(got, ""), "reconcile must be idempotent")
		})
	}
}

func TestReconcilePtr(t *testing.T) {
	r := NewResolver(testBase)

	assert.Nil(t, r.ReconcilePtr(nil, nil))

	key := "companies/c1/media/cover.jpg"
	got := r.ReconcilePtr(nil, &key)
	if assert.NotNil(t, got) {
		assert.Equal(t, testBase+"/"+key, *got)
	}
}

func TestObjectKey(t *testing.T) {
	key := "projects/p1/documents/a.pdf"
	u := "https://bucket.s3.amazonaws.com/projects/p1/documents/b.pdf"

	got, ok := ObjectKey(&u, &key)
	assert.True(t, ok)
	assert.Equal(t, key, got)

	got, ok = ObjectKey(&u, nil)
	assert.True(t, ok)
	assert.Equal(t, "projects/p1/documents/b.pdf", got)

	_, ok = ObjectKey(nil, nil)
	assert.False(t, ok)
}
