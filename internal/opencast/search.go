package opencast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"castsync/internal/logging"
	"castsync/internal/mediapkg"
)

// MediaPackages runs a paginated search over published episodes. A non-200
// search response is reported as ok=false without an error: the search index
// being unavailable is a "no data" condition, not a hard failure.
func (c *Client) MediaPackages(ctx context.Context, query string, limit, offset int) (int, []mediapkg.MediaPackage, bool, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	params.Set("limit", formatCount(limit))
	params.Set("offset", formatCount(offset))

	resp, err := c.request(ctx, "GET", "/search/episode.json?"+params.Encode(), nil, false)
	if err != nil {
		if isStatusFailure(err) {
			c.logger.WarnContext(ctx, "episode search unavailable",
				slog.String(logging.FieldComponent, "opencast"),
				slog.String("error", err.Error()))
			return 0, nil, false, nil
		}
		return 0, nil, false, err
	}

	total, results, err := parseSearchResults(resp)
	if err != nil {
		return 0, nil, false, err
	}

	packages := make([]mediapkg.MediaPackage, 0, len(results))
	for _, result := range results {
		if mp, ok := mediaPackageFromResult(result); ok {
			packages = append(packages, mp)
		}
	}
	return total, packages, true, nil
}

// MediaPackage fetches a single published episode by media package id.
func (c *Client) MediaPackage(ctx context.Context, id string) (mediapkg.MediaPackage, bool, error) {
	result, found, err := c.searchOne(ctx, id)
	if err != nil || !found {
		return nil, false, err
	}
	mp, ok := mediaPackageFromResult(result)
	return mp, ok, nil
}

// FullMediaPackage fetches the complete search result for an episode,
// including the segment catalog that sits next to the media package itself.
func (c *Client) FullMediaPackage(ctx context.Context, id string) (map[string]any, bool, error) {
	result, found, err := c.searchOne(ctx, id)
	if err != nil || !found {
		return nil, false, err
	}
	item, ok := result.(map[string]any)
	if !ok {
		return nil, false, nil
	}
	return item, true, nil
}

func (c *Client) searchOne(ctx context.Context, id string) (any, bool, error) {
	params := url.Values{}
	params.Set("id", id)

	resp, err := c.request(ctx, "GET", "/search/episode.json?"+params.Encode(), nil, false)
	if err != nil {
		if isStatusFailure(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	_, results, err := parseSearchResults(resp)
	if err != nil {
		return nil, false, err
	}
	if len(results) == 0 {
		return nil, false, nil
	}
	return results[0], true, nil
}

// MasterMediaPackage fetches the archived (master quality) media package for
// an episode, using whichever endpoint the server version supports.
func (c *Client) MasterMediaPackage(ctx context.Context, id string) (mediapkg.MediaPackage, bool, error) {
	version, err := c.Version(ctx)
	if err != nil {
		return nil, false, err
	}

	switch {
	case versionAtLeast(version, "3.0.0"):
		return c.mediaPackageFromAssets(ctx, id)
	case versionAtLeast(version, "2.0.0"):
		return c.mediaPackageFromArchive(ctx, id)
	case versionAtLeast(version, "1.4.0") && CompareVersions(version, "1.7.0") < 0:
		return c.mediaPackageFromArchive(ctx, id)
	case versionAtLeast(version, "1.2.0") && CompareVersions(version, "1.3.0") < 0:
		return c.mediaPackageFromWorkflow(ctx, id)
	default:
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}
}

func (c *Client) mediaPackageFromAssets(ctx context.Context, id string) (mediapkg.MediaPackage, bool, error) {
	resp, err := c.request(ctx, "GET", "/assets/episode/"+id, nil, true)
	if err != nil {
		if isStatusFailure(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	decoded, err := decodeXML(resp)
	if err != nil {
		return nil, false, err
	}
	if mp, ok := decoded["mediapackage"].(map[string]any); ok {
		return mediapkg.MediaPackage(mp), true, nil
	}
	return mediapkg.MediaPackage(decoded), true, nil
}

func (c *Client) mediaPackageFromArchive(ctx context.Context, id string) (mediapkg.MediaPackage, bool, error) {
	resp, err := c.request(ctx, "GET", "/episode/episode.json?id="+url.QueryEscape(id), nil, true)
	if err != nil {
		if !isStatusFailure(err) {
			return nil, false, err
		}
		resp, err = c.request(ctx, "GET", "/archive/episode.json?id="+url.QueryEscape(id), nil, true)
		if err != nil {
			if isStatusFailure(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
	}

	_, results, err := parseSearchResults(resp)
	if err != nil {
		return nil, false, err
	}
	if len(results) == 0 {
		return nil, false, nil
	}
	mp, ok := mediaPackageFromResult(results[0])
	return mp, ok, nil
}

func (c *Client) mediaPackageFromWorkflow(ctx context.Context, id string) (mediapkg.MediaPackage, bool, error) {
	resp, err := c.request(ctx, "GET", "/workflow/instances.json?state=SUCCEEDED&mp="+url.QueryEscape(id), nil, true)
	if err != nil {
		if isStatusFailure(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	decoded, err := decodeJSON(resp)
	if err != nil {
		return nil, false, err
	}

	workflows := mediapkg.AsList(mediapkg.Field(decoded["workflows"], "workflow"))
	if len(workflows) == 0 {
		return nil, false, nil
	}
	if mp, ok := workflows[0]["mediapackage"].(map[string]any); ok {
		return mediapkg.MediaPackage(mp), true, nil
	}
	return nil, false, nil
}

// parseSearchResults decodes a search-results envelope and normalizes the
// result field to a list.
func parseSearchResults(resp *response) (int, []any, error) {
	decoded, err := decodeJSON(resp)
	if err != nil {
		return 0, nil, err
	}
	envelope, ok := decoded["search-results"].(map[string]any)
	if !ok {
		return 0, nil, &APIError{Op: "search", URL: resp.url, Body: "missing search-results envelope", Err: ErrCommunication}
	}

	total := int(toInt(envelope["total"]))
	if total == 0 {
		return 0, nil, nil
	}

	switch result := envelope["result"].(type) {
	case []any:
		return total, result, nil
	case map[string]any:
		return total, []any{result}, nil
	default:
		return total, nil, nil
	}
}

func toInt(value any) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case string:
		var n int64
		_, err := fmt.Sscan(v, &n)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// isStatusFailure reports whether err is an HTTP status failure as opposed to
// a transport or decoding fault.
func isStatusFailure(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return apiErr.Status > 0 && !errors.Is(err, ErrValidation)
}
