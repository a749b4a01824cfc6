package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/timmy/veris/internal/source"
)

func writeStaging(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	dir := filepath.Join(base, "batch1")
	if err := os.MkdirAll(filepath.Join(dir, MediaDir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, MediaDir, "chart.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	manifest := `{"id":"3","kind":"text","text":"The bridge opened in 1932.","source_url":"https://example.com/post/3"}
{"id":"1","kind":"page","url":"https://example.com/article"}
not json
{"id":"2","kind":"file","filename":"chart.png","media_kind":"image"}
{"id":"4","kind":"file","filename":"missing.png"}
{"id":"5","kind":"text","text":"   "}
{"id":"6","kind":"audio","url":"https://example.com/a.mp3"}
`
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	return base
}

func TestAdapter_FetchBatch(t *testing.T) {
	a := NewAdapter(writeStaging(t), "batch1")

	first, next, err := a.FetchBatch(context.Background(), "", 2)
	if err != nil {
		t.Fatalf("FetchBatch() error = %v", err)
	}
	if len(first) != 2 || next != "2" {
		t.Fatalf("first page = %d items, next %q", len(first), next)
	}
	rest, next, err := a.FetchBatch(context.Background(), next, 2)
	if err != nil {
		t.Fatalf("FetchBatch() error = %v", err)
	}
	if len(rest) != 1 || next != "" {
		t.Fatalf("second page = %d items, next %q", len(rest), next)
	}

	all := append(first, rest...)
	wantKinds := map[string]source.ItemKind{
		"batch1_1": source.ItemPage,
		"batch1_2": source.ItemFile,
		"batch1_3": source.ItemText,
	}
	for _, item := range all {
		want, ok := wantKinds[item.SourceID]
		if !ok {
			t.Errorf("unexpected item %s", item.SourceID)
			continue
		}
		if item.Kind != want {
			t.Errorf("%s kind = %s, want %s", item.SourceID, item.Kind, want)
		}
		if item.OriginURL == "" && item.Kind != source.ItemFile {
			t.Errorf("%s has no origin url", item.SourceID)
		}
	}
}

func TestAdapter_MissingManifest(t *testing.T) {
	a := NewAdapter(t.TempDir(), "nothing")
	if _, _, err := a.FetchBatch(context.Background(), "", 10); err == nil {
		t.Error("expected error for missing manifest")
	}
}
