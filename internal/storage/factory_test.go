package storage

import "testing"

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"", StorageTypeGCS},
		{"https://storage.googleapis.com", StorageTypeGCS},
		{"https://abc123.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.us-west-2.amazonaws.com", StorageTypeS3},
		{"localhost:9000", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			if got := detectStorageType(tt.endpoint); got != tt.want {
				t.Fatalf("detectStorageType(%q) = %q, want %q", tt.endpoint, got, tt.want)
			}
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"https://minio.local:9000/":       "minio.local:9000",
		"http://minio.local:9000/bucket/x": "minio.local:9000",
		"s3.amazonaws.com":                 "s3.amazonaws.com",
	}
	for in, want := range tests {
		if got := normalizeEndpoint(in); got != want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoinURL(t *testing.T) {
	if got := joinURL("https://cdn.example.com/", "/images/abc.png"); got != "https://cdn.example.com/images/abc.png" {
		t.Fatalf("joinURL = %q", got)
	}
}
