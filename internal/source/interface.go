package source

import "context"

// ItemKind says how an item enters the pipeline.
type ItemKind string

const (
	// ItemText carries inline text.
	ItemText ItemKind = "text"
	// ItemMediaURL points at an image or video by URL.
	ItemMediaURL ItemKind = "url"
	// ItemPage points at a web page whose article text is fetched.
	ItemPage ItemKind = "page"
	// ItemFile is a local media or text file.
	ItemFile ItemKind = "file"
)

// Item is one unit of content from a crawl source.
type Item struct {
	SourceID    string   // Unique ID within the source
	Kind        ItemKind // How the item is submitted
	OriginLabel string   // Human-readable origin, e.g. "reddit/r/science"
	OriginURL   string   // Canonical URL the content came from
	Text        string   // Inline text for ItemText
	URL         string   // Media or page URL
	LocalPath   string   // Local file path for ItemFile
	MediaKind   string   // "image" or "video" when known
	Tags        []string
	Metadata    map[string]string
}

// Source defines the interface for crawl sources.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	GetSourceID() string

	// GetDisplayName returns a human-readable name for this source.
	// Parameters: none.
	// Returns:
	//   - string: display-friendly source name.
	GetDisplayName() string

	// FetchBatch fetches a batch of items starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of items to fetch.
	// Returns:
	//   - items: batch of items.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if fetching fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (items []Item, nextCursor string, err error)

	// SupportsIncremental returns true if this source supports incremental updates.
	SupportsIncremental() bool
}
