package source

import "testing"

func TestPage(t *testing.T) {
	items := []Item{{SourceID: "a"}, {SourceID: "b"}, {SourceID: "c"}}

	tests := []struct {
		name     string
		cursor   string
		limit    int
		wantLen  int
		wantNext string
		wantErr  bool
	}{
		{name: "first page", cursor: "", limit: 2, wantLen: 2, wantNext: "2"},
		{name: "last page", cursor: "2", limit: 2, wantLen: 1, wantNext: ""},
		{name: "past end", cursor: "5", limit: 2, wantLen: 0, wantNext: ""},
		{name: "no limit", cursor: "", limit: 0, wantLen: 3, wantNext: ""},
		{name: "bad cursor", cursor: "x", limit: 2, wantErr: true},
		{name: "negative cursor", cursor: "-1", limit: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, next, err := Page(items, tt.cursor, tt.limit)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Page() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != tt.wantLen || next != tt.wantNext {
				t.Errorf("Page() = %d items, next %q; want %d, %q", len(got), next, tt.wantLen, tt.wantNext)
			}
		})
	}
}
