package jellyfin

import "context"

// FirstUserID returns the id of the first non-hidden user on the server.
// Returns ErrNoEnabledUser when every account is hidden.
func (c *Client) FirstUserID(ctx context.Context) (string, error) {
	users, err := doGetJSON[[]User](ctx, c, "Users")
	if err != nil {
		return "", err
	}

	for _, user := range *users {
		if !user.IsHidden {
			return user.Id, nil
		}
	}

	return "", ErrNoEnabledUser
}
