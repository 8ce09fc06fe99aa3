package jellyfin

import (
	"context"
	"strings"
)

// FindLibrary resolves a library name (case-insensitive) to its id and
// collection type. Returns ErrLibraryNotFound when no view matches.
func (c *Client) FindLibrary(ctx context.Context, userID, name string) (string, string, error) {
	views, err := doGetJSON[viewsResponse](ctx, c, "Users/"+userID+"/Views")
	if err != nil {
		return "", "", err
	}

	for _, view := range views.Items {
		if strings.EqualFold(view.Name, name) {
			return view.Id, view.CollectionType, nil
		}
	}

	return "", "", ErrLibraryNotFound
}
