package jellyfin

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"

	// Header decoders for the dimension probe. Jellyfin serves artwork in all
	// of these formats depending on what was uploaded.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageURL builds the URL of a tagged image of the given type.
func (c *Client) ImageURL(itemID, imageType, tag string) string {
	return fmt.Sprintf("%s/Items/%s/Images/%s?tag=%s&api_key=%s",
		c.baseURL, itemID, imageType, url.QueryEscape(tag), url.QueryEscape(c.apiKey))
}

// BackdropURL builds the URL of the index-th backdrop image.
func (c *Client) BackdropURL(itemID string, index int, tag string) string {
	return fmt.Sprintf("%s/Items/%s/Images/Backdrop/%d?tag=%s&api_key=%s",
		c.baseURL, itemID, index, url.QueryEscape(tag), url.QueryEscape(c.apiKey))
}

// UntaggedImageURL builds the fallback URL of an image of the given type
// without a tag. The server may or may not have an image there; callers probe
// it to find out.
func (c *Client) UntaggedImageURL(itemID, imageType string) string {
	return fmt.Sprintf("%s/Items/%s/Images/%s?api_key=%s",
		c.baseURL, itemID, imageType, url.QueryEscape(c.apiKey))
}

// ProbeDimensions fetches just enough of an image to read its pixel
// dimensions from the header. The body is streamed: image.DecodeConfig reads
// only the bytes it needs and the rest of the response is discarded. Any
// failure (network, status, undecodable header) yields (0, 0); a probe
// failure is a recoverable "no image" signal, never an error.
func (c *Client) ProbeDimensions(ctx context.Context, rawURL string) (int, int) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, 0
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0
	}

	cfg, _, err := image.DecodeConfig(bufio.NewReader(resp.Body))
	if err != nil {
		return 0, 0
	}

	return cfg.Width, cfg.Height
}

// FetchImage opens a streaming download of an image. The caller must close
// the returned body. The content type is taken from the response header and
// may be empty.
func (c *Client) FetchImage(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("could not send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}
