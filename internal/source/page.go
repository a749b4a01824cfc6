package source

import (
	"fmt"
	"strconv"
)

// Page slices a fully loaded item list using a numeric index cursor.
// Parameters:
//   - items: all items of the source, in stable order.
//   - cursor: start index as a string, or empty for the first page.
//   - limit: maximum number of items to return.
// Returns:
//   - []Item: the page.
//   - string: next cursor or empty if no more items.
//   - error: non-nil if the cursor is not a number.
func Page(items []Item, cursor string, limit int) ([]Item, string, error) {
	start := 0
	if cursor != "" {
		var err error
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 {
			return nil, "", fmt.Errorf("invalid cursor: %q", cursor)
		}
	}

	if start >= len(items) {
		return []Item{}, "", nil
	}

	end := start + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}

	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return items[start:end], next, nil
}
