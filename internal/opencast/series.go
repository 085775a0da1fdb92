package opencast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const seriesMetadataFlavor = "dublincore/series"

// CreateSeries creates a series on the platform and returns the identifier
// assigned to it.
func (c *Client) CreateSeries(ctx context.Context, title, description string) (string, error) {
	metadata, err := json.Marshal([]map[string]any{
		{
			"flavor": seriesMetadataFlavor,
			"fields": []map[string]string{
				{"id": "title", "value": title},
				{"id": "description", "value": description},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	form := url.Values{}
	form.Set("metadata", string(metadata))
	form.Set("acl", "[]")

	resp, err := c.request(ctx, "POST", "/api/series", form, true)
	if err != nil {
		return "", err
	}
	if resp.status != http.StatusCreated {
		return "", statusError("create series", resp.url, resp.status, resp.body)
	}

	var created struct {
		Identifier string `json:"identifier"`
	}
	if err := json.Unmarshal(resp.body, &created); err != nil {
		return "", &APIError{Op: "create series", URL: resp.url, Body: err.Error(), Err: ErrCommunication}
	}
	if created.Identifier == "" {
		return "", &APIError{Op: "create series", URL: resp.url, Body: "response without identifier", Err: ErrCommunication}
	}
	return created.Identifier, nil
}

// UpdateSeriesMetadata replaces the title and description of a remote series.
// A 404 surfaces as ErrNotFound so callers can fall back to re-creating the
// series.
//
// The type parameter travels in both the query string and the form body; some
// server versions read one, some the other.
func (c *Client) UpdateSeriesMetadata(ctx context.Context, seriesID, title, description string) error {
	if seriesID == "" {
		return fmt.Errorf("%w: series has no platform identifier", ErrNotFound)
	}
	metadata, err := json.Marshal([]map[string]string{
		{"id": "title", "value": title},
		{"id": "description", "value": description},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	form := url.Values{}
	form.Set("metadata", string(metadata))
	form.Set("type", seriesMetadataFlavor)

	path := "/api/series/" + seriesID + "/metadata?type=" + url.QueryEscape(seriesMetadataFlavor)
	resp, err := c.request(ctx, "PUT", path, form, true)
	if err != nil {
		return err
	}
	if resp.status != http.StatusOK {
		return statusError("update series "+seriesID, resp.url, resp.status, resp.body)
	}
	return nil
}

// DeleteSeries removes a remote series.
func (c *Client) DeleteSeries(ctx context.Context, seriesID string) error {
	if seriesID == "" {
		return fmt.Errorf("%w: series has no platform identifier", ErrNotFound)
	}
	resp, err := c.request(ctx, "DELETE", "/api/series/"+seriesID, nil, true)
	if err != nil {
		return err
	}
	if resp.status != http.StatusNoContent {
		return statusError("delete series "+seriesID, resp.url, resp.status, resp.body)
	}
	return nil
}

// Series fetches a remote series document. Absence, including a missing
// identifier, is not an error.
func (c *Client) Series(ctx context.Context, seriesID string) (map[string]any, bool, error) {
	if seriesID == "" {
		return nil, false, nil
	}
	resp, err := c.request(ctx, "GET", "/api/series/"+seriesID, nil, true)
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
	return decoded, true, nil
}
