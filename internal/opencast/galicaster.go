package opencast

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"castsync/internal/logging"
)

// GalicasterProperties fetches the recorder property block archived next to
// an episode. Any failure is logged and reported as absence: the block is
// optional metadata and must never break an import.
func (c *Client) GalicasterProperties(ctx context.Context, mediaPackageID string, assetVersion int64) (map[string]any, bool) {
	path := fmt.Sprintf("/assets/assets/%s/galicaster-properties/%d/galicaster.json", mediaPackageID, assetVersion)
	return c.GalicasterPropertiesFromURL(ctx, path)
}

// GalicasterPropertiesFromURL fetches a recorder property block from an
// attachment URL. Only the path component is used; the request goes to the
// admin node.
func (c *Client) GalicasterPropertiesFromURL(ctx context.Context, rawURL string) (map[string]any, bool) {
	path := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		path = parsed.Path
	}

	resp, err := c.request(ctx, "GET", path, nil, true)
	if err != nil {
		c.logger.WarnContext(ctx, "recorder properties unavailable",
			slog.String(logging.FieldComponent, "opencast"),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, false
	}

	decoded, err := decodeJSON(resp)
	if err != nil {
		c.logger.WarnContext(ctx, "recorder properties unreadable",
			slog.String(logging.FieldComponent, "opencast"),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, false
	}
	return decoded, true
}
