package jellyfin

import (
	"context"
	"fmt"
	"strings"
)

// pageSize is the fixed number of items requested per listing page.
const pageSize = 100

// includeItem applies the library-kind filter: a series library yields only
// series, a movie library only movies, a music library everything, and a
// music-videos library only artists, album folders and plain folders.
func includeItem(collectionType, itemType string) bool {
	switch strings.ToLower(collectionType) {
	case "series":
		return strings.EqualFold(itemType, "Series")
	case "movie":
		return strings.EqualFold(itemType, "Movie")
	case "music":
		return true
	case "musicvideos":
		switch strings.ToLower(itemType) {
		case "artist", "musicvideoalbum", "folder":
			return true
		}
		return false
	default:
		return true
	}
}

// Items lazily pages through the direct children of a library, calling fn for
// every item that passes the kind filter. total is the server-reported record
// count before filtering, reported on every call so consumers can size
// progress output. Pagination stops when a page comes back short. Any page
// fetch error aborts the walk: a partial catalog would silently under-report
// entries.
func (c *Client) Items(ctx context.Context, userID, libraryID, collectionType string, fn func(item Item, total int) error) error {
	startIndex := 0
	for {
		endpoint := fmt.Sprintf("Users/%s/Items?ParentId=%s&Recursive=false&StartIndex=%d&Limit=%d",
			userID, libraryID, startIndex, pageSize)
		page, err := doGetJSON[itemsResponse](ctx, c, endpoint)
		if err != nil {
			return fmt.Errorf("listing items at index %d: %w", startIndex, err)
		}

		for _, item := range page.Items {
			if !includeItem(collectionType, item.Type) {
				continue
			}
			if err := fn(item, page.TotalRecordCount); err != nil {
				return err
			}
		}

		if len(page.Items) < pageSize {
			return nil
		}
		startIndex += pageSize
	}
}
