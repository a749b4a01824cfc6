package localdir

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/timmy/veris/internal/source"
)

const SourceID = "localdir"

// mediaKinds maps file extensions to the media kind they are submitted as.
var mediaKinds = map[string]string{
	".jpg":  "image",
	".jpeg": "image",
	".png":  "image",
	".gif":  "image",
	".webp": "image",
	".mp4":  "video",
	".mov":  "video",
	".webm": "video",
	".mkv":  "video",
	".txt":  "",
	".md":   "",
}

// Adapter implements the Source interface for a directory of files.
// Text files become text items; images and videos become file items.
type Adapter struct {
	root   string
	items  []source.Item
	loaded bool
}

// NewAdapter creates a new directory adapter rooted at root.
func NewAdapter(root string) *Adapter {
	return &Adapter{root: root}
}

// GetSourceID returns the unique identifier for this source
func (a *Adapter) GetSourceID() string {
	return SourceID
}

// GetDisplayName returns a human-readable name for this source
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("Local directory (%s)", filepath.Base(a.root))
}

// SupportsIncremental returns false; the directory is scanned once.
func (a *Adapter) SupportsIncremental() bool {
	return false
}

// FetchBatch fetches a batch of items
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.Item, string, error) {
	if !a.loaded {
		if err := a.loadItems(); err != nil {
			return nil, "", fmt.Errorf("failed to load items: %w", err)
		}
		a.loaded = true
	}
	return source.Page(a.items, cursor, limit)
}

// loadItems walks the directory and loads every supported file
func (a *Adapter) loadItems() error {
	if _, err := os.Stat(a.root); os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", a.root)
	}

	a.items = []source.Item{}

	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != a.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		mediaKind, ok := mediaKinds[ext]
		if !ok {
			return nil
		}

		relPath, _ := filepath.Rel(a.root, path)
		item := source.Item{
			SourceID:    strings.ReplaceAll(relPath, string(os.PathSeparator), "_"),
			OriginLabel: SourceID,
			OriginURL:   "file://" + filepath.ToSlash(path),
			Tags:        extractTags(relPath),
		}

		if mediaKind == "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			item.Kind = source.ItemText
			item.Text = strings.TrimSpace(string(data))
			if item.Text == "" {
				return nil
			}
		} else {
			item.Kind = source.ItemFile
			item.LocalPath = path
			item.MediaKind = mediaKind
		}

		a.items = append(a.items, item)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Slice(a.items, func(i, j int) bool {
		return a.items[i].SourceID < a.items[j].SourceID
	})
	return nil
}

// extractTags turns parent folder names and filename parts into tags,
// e.g. "health/vaccines_2021.txt" -> ["health", "vaccines"].
func extractTags(relPath string) []string {
	tags := []string{}

	dir := filepath.Dir(relPath)
	if dir != "." {
		tags = append(tags, strings.Split(filepath.ToSlash(dir), "/")...)
	}

	name := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	for _, part := range strings.Split(name, "_") {
		part = strings.TrimSpace(part)
		if len(part) > 1 && !isNumeric(part) {
			tags = append(tags, part)
		}
	}

	return uniqueStrings(tags)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func uniqueStrings(strs []string) []string {
	seen := make(map[string]bool)
	result := []string{}
	for _, s := range strs {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
