package staging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/timmy/veris/internal/source"
)

const (
	// ManifestFileName is the JSONL manifest file name in staging sources.
	ManifestFileName = "manifest.jsonl"
	// MediaDir is the directory name for staged media files.
	MediaDir = "media"
)

// ManifestItem represents a line in the manifest.jsonl file.
type ManifestItem struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	Text        string            `json:"text"`
	URL         string            `json:"url"`
	Filename    string            `json:"filename"`
	MediaKind   string            `json:"media_kind"`
	OriginLabel string            `json:"origin_label"`
	SourceURL   string            `json:"source_url"`
	Tags        []string          `json:"tags"`
	Metadata    map[string]string `json:"metadata"`
	CrawledAt   string            `json:"crawled_at"`
}

// Adapter implements the Source interface for the staging directory.
type Adapter struct {
	basePath string
	sourceID string
	items    []source.Item
	loaded   bool
}

// NewAdapter creates a new staging adapter.
// Parameters:
//   - basePath: base path to the staging directory.
//   - sourceID: identifier for the staging source.
// Returns:
//   - *Adapter: initialized staging adapter.
func NewAdapter(basePath, sourceID string) *Adapter {
	return &Adapter{
		basePath: basePath,
		sourceID: sourceID,
	}
}

// GetSourceID returns the unique identifier for this source.
// Parameters: none.
// Returns:
//   - string: source identifier with "staging:" prefix.
func (a *Adapter) GetSourceID() string {
	return "staging:" + a.sourceID
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("Staging (%s)", a.sourceID)
}

// SupportsIncremental returns false; the manifest is read whole.
func (a *Adapter) SupportsIncremental() bool {
	return false
}

// FetchBatch fetches a batch of items from the staging manifest.
// Parameters:
//   - ctx: context for cancellation and deadlines (unused for local reads).
//   - cursor: pagination cursor as an index string.
//   - limit: maximum number of items to fetch.
// Returns:
//   - []source.Item: batch of items.
//   - string: next cursor or empty if no more items.
//   - error: non-nil if loading or parsing fails.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.Item, string, error) {
	if !a.loaded {
		if err := a.loadItems(); err != nil {
			return nil, "", fmt.Errorf("failed to load staging items: %w", err)
		}
		a.loaded = true
	}
	return source.Page(a.items, cursor, limit)
}

// loadItems loads all items from the manifest file
func (a *Adapter) loadItems() error {
	stagingPath := filepath.Join(a.basePath, a.sourceID)
	manifestPath := filepath.Join(stagingPath, ManifestFileName)
	mediaPath := filepath.Join(stagingPath, MediaDir)

	file, err := os.Open(manifestPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("manifest file not found: %s", manifestPath)
	}
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	a.items = []source.Item{}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var m ManifestItem
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			// Skip malformed lines
			continue
		}

		item, ok := a.toItem(&m, mediaPath)
		if !ok {
			continue
		}
		a.items = append(a.items, item)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading manifest: %w", err)
	}

	sort.Slice(a.items, func(i, j int) bool {
		return a.items[i].SourceID < a.items[j].SourceID
	})
	return nil
}

// toItem converts a manifest line; lines without a usable payload are dropped.
func (a *Adapter) toItem(m *ManifestItem, mediaPath string) (source.Item, bool) {
	item := source.Item{
		SourceID:    fmt.Sprintf("%s_%s", a.sourceID, m.ID),
		Kind:        source.ItemKind(strings.ToLower(m.Kind)),
		OriginLabel: m.OriginLabel,
		OriginURL:   m.SourceURL,
		MediaKind:   m.MediaKind,
		Tags:        m.Tags,
		Metadata:    m.Metadata,
	}
	if item.OriginLabel == "" {
		item.OriginLabel = a.GetSourceID()
	}

	switch item.Kind {
	case source.ItemText:
		item.Text = strings.TrimSpace(m.Text)
		return item, item.Text != ""
	case source.ItemMediaURL, source.ItemPage:
		item.URL = m.URL
		if item.OriginURL == "" {
			item.OriginURL = m.URL
		}
		return item, item.URL != ""
	case source.ItemFile:
		if m.Filename == "" {
			return item, false
		}
		item.LocalPath = filepath.Join(mediaPath, m.Filename)
		if _, err := os.Stat(item.LocalPath); err != nil {
			return item, false
		}
		return item, true
	default:
		return item, false
	}
}

// Count returns the number of usable manifest items.
func (a *Adapter) Count() (int, error) {
	if !a.loaded {
		if err := a.loadItems(); err != nil {
			return 0, err
		}
		a.loaded = true
	}
	return len(a.items), nil
}

