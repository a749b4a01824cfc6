package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timmy/veris/internal/source"
)

const listingJSON = `{"data":{"after":"t3_next","children":[
{"kind":"t3","data":{"id":"a1","subreddit":"science","title":"Study","selftext":"The trial enrolled 4000 people.","is_self":true,"permalink":"/r/science/comments/a1/"}},
{"kind":"t3","data":{"id":"a2","subreddit":"science","title":"Chart","url":"https://i.redd.it/x.png","post_hint":"image","permalink":"/r/science/comments/a2/"}},
{"kind":"t3","data":{"id":"a3","subreddit":"science","title":"News","url":"https://news.example.com/story","post_hint":"link","permalink":"/r/science/comments/a3/"}},
{"kind":"t3","data":{"id":"a4","subreddit":"science","title":"Clip","url":"https://v.redd.it/abc","is_video":true,"permalink":"/r/science/comments/a4/"}},
{"kind":"t3","data":{"id":"a5","subreddit":"science","title":"Empty","selftext":"","is_self":true,"permalink":"/r/science/comments/a5/"}},
{"kind":"t1","data":{"id":"c1"}}
]}}`

func TestAdapter_FetchBatch(t *testing.T) {
	var gotPath, gotAfter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAfter = r.URL.Query().Get("after")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(listingJSON))
	}))
	defer srv.Close()

	a := NewAdapter(&Config{Subreddits: []string{"science", "news"}, UserAgent: "veris-test", BaseURL: srv.URL})
	items, next, err := a.FetchBatch(context.Background(), "t3_prev", 25)
	if err != nil {
		t.Fatalf("FetchBatch() error = %v", err)
	}
	if gotPath != "/r/science+news/hot.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAfter != "t3_prev" {
		t.Errorf("after = %q", gotAfter)
	}
	if next != "t3_next" {
		t.Errorf("next = %q", next)
	}

	wantKinds := []source.ItemKind{source.ItemText, source.ItemMediaURL, source.ItemPage}
	if len(items) != len(wantKinds) {
		t.Fatalf("items = %d, want %d", len(items), len(wantKinds))
	}
	for i, k := range wantKinds {
		if items[i].Kind != k {
			t.Errorf("items[%d].Kind = %s, want %s", i, items[i].Kind, k)
		}
	}
	if items[0].OriginURL != "https://www.reddit.com/r/science/comments/a1/" {
		t.Errorf("origin url = %q", items[0].OriginURL)
	}
}

func TestAdapter_FetchBatchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, _, err := NewAdapter(&Config{BaseURL: srv.URL}).FetchBatch(context.Background(), "", 10); err == nil {
		t.Error("expected error without subreddits")
	}
	if _, _, err := NewAdapter(&Config{Subreddits: []string{"x"}, BaseURL: srv.URL}).FetchBatch(context.Background(), "", 10); err == nil {
		t.Error("expected error on 403")
	}
}
