package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestArtifactID(t *testing.T) {
	data := []byte("\x89PNG fake image bytes")

	id1 := ArtifactID("chart.png", data, "image/png")
	id2 := ArtifactID("chart.png", data, "image/png")
	if id1 != id2 {
		t.Errorf("ArtifactID not deterministic: %s vs %s", id1, id2)
	}
	if len(id1) != len("0123456789abcdef.png") || !strings.HasSuffix(id1, ".png") {
		t.Errorf("ArtifactID = %q, want 16 hex chars + .png", id1)
	}
	if ArtifactID("other.png", data, "image/png") == id1 {
		t.Error("different names produced the same id")
	}
	if ArtifactID("", data, "image/png") != ArtifactID(defaultArtifactName, data, "image/png") {
		t.Error("empty name should hash as the default name")
	}
}

func TestExtensionOf(t *testing.T) {
	tests := []struct {
		mimeType string
		want     string
	}{
		{"image/png", "png"},
		{"image/jpeg", "jpeg"},
		{"video/mp4", "mp4"},
		{"image/svg+xml; charset=utf-8", "svg"},
		{"IMAGE/WEBP", "webp"},
		{"", "bin"},
		{"garbage", "bin"},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			if got := extensionOf(tt.mimeType); got != tt.want {
				t.Errorf("extensionOf(%q) = %q, want %q", tt.mimeType, got, tt.want)
			}
		})
	}
}

func TestArtifactResolver_Dedup(t *testing.T) {
	store := &fakeObjectStorage{}
	r := NewArtifactResolver(store, &ArtifactConfig{})
	data := []byte("same bytes every time")

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = r.Resolve(context.Background(), "meme.jpg", data, "image/jpeg").ArtifactID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("ids differ: %v", ids)
		}
	}
	if n := store.uploadCount(); n != 1 {
		t.Errorf("uploads = %d, want 1", n)
	}

	ref := r.Resolve(context.Background(), "meme.jpg", data, "image/jpeg")
	if !ref.Uploaded || ref.PublicURL != "https://cdn.example.com/images/"+ref.ArtifactID {
		t.Errorf("ref = %+v", ref)
	}
	if n := store.uploadCount(); n != 1 {
		t.Errorf("uploads after re-submit = %d, want 1", n)
	}
}

func TestArtifactResolver_Degraded(t *testing.T) {
	store := &fakeObjectStorage{err: errors.New("bucket unreachable")}
	r := NewArtifactResolver(store, &ArtifactConfig{})
	data := []byte("video bytes")

	ref := r.Resolve(context.Background(), "clip.mp4", data, "video/mp4")

	if ref.Uploaded {
		t.Error("Uploaded = true on store failure")
	}
	if ref.PublicURL != placeholderScheme+ref.ArtifactID || ref.UploadError == "" {
		t.Errorf("ref = %+v", ref)
	}
	if ref.Kind() != "video" {
		t.Errorf("Kind = %s", ref.Kind())
	}

	got, mimeType, err := r.Open(context.Background(), ref.ArtifactID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(got) != string(data) || mimeType != "video/mp4" {
		t.Errorf("Open = (%q, %q)", got, mimeType)
	}
}

func TestArtifactResolver_OpenFromStore(t *testing.T) {
	store := &fakeObjectStorage{}
	data := []byte("stored earlier")
	writer := NewArtifactResolver(store, &ArtifactConfig{})
	ref := writer.Resolve(context.Background(), "a.png", data, "image/png")

	reader := NewArtifactResolver(store, &ArtifactConfig{})
	got, _, err := reader.Open(context.Background(), ref.ArtifactID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Open = %q", got)
	}

	if _, _, err := reader.Open(context.Background(), "ffffffffffffffff.png"); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("err = %v, want ErrArtifactNotFound", err)
	}
}
