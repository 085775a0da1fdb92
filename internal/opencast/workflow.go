package opencast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// retractParameters is the workflow configuration sent with archive deletion
// tasks. Every distribution channel the platform knows is retracted except
// the ones that were never populated by this integration.
var retractParameters = map[string]string{
	"retractFromEngage":  "true",
	"retractFromAws":     "false",
	"retractFromApi":     "true",
	"retractPreview":     "true",
	"retractFromOaiPmh":  "true",
	"retractFromYouTube": "false",
}

// ApplyWorkflow starts the named workflow on the given media packages. An
// empty workflow name selects the configured deletion workflow; running the
// deletion workflow requires the archive deletion flag.
func (c *Client) ApplyWorkflow(ctx context.Context, mediaPackageIDs []string, workflowName string) error {
	if workflowName == "" || workflowName == c.deletionWorkflow {
		workflowName = c.deletionWorkflow
		if !c.deleteArchive {
			return fmt.Errorf("%w: archive deletion is disabled", ErrNotAllowed)
		}
	}
	if len(mediaPackageIDs) == 0 {
		return fmt.Errorf("%w: no media packages given", ErrValidation)
	}

	version, err := c.Version(ctx)
	if err != nil {
		return err
	}

	path := "/admin-ng/tasks/new"
	form := url.Values{}
	switch {
	case CompareVersions(version, "2.0.0") < 0:
		path = "/episode/apply/" + workflowName
		form.Set("mediaPackageIds", strings.Join(mediaPackageIDs, ",+"))
		form.Set("engage", "Matterhorn+Engage+Player")
	case CompareVersions(version, "6.0.0") < 0:
		metadata, err := json.Marshal(map[string]any{
			"workflow":      workflowName,
			"configuration": retractParameters,
			"eventIds":      mediaPackageIDs,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		form.Set("metadata", string(metadata))
	default:
		configurations := make(map[string]map[string]string, len(mediaPackageIDs))
		for _, id := range mediaPackageIDs {
			configurations[id] = retractParameters
		}
		metadata, err := json.Marshal(map[string]any{
			"workflow":      workflowName,
			"configuration": configurations,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		form.Set("metadata", string(metadata))
	}

	resp, err := c.request(ctx, "POST", path, form, true)
	if err != nil {
		return err
	}
	if resp.status != http.StatusCreated && resp.status != http.StatusNoContent {
		return statusError("apply workflow "+workflowName, resp.url, resp.status, resp.body)
	}
	return nil
}

// WorkflowStatistics returns the workflow engine statistics document.
// ok=false signals the endpoint is unavailable without being a hard fault.
func (c *Client) WorkflowStatistics(ctx context.Context) (map[string]any, bool, error) {
	resp, err := c.request(ctx, "GET", "/workflow/statistics.json", nil, true)
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

// CountedWorkflowInstances lists succeeded workflow instances, optionally
// filtered by media package, workflow definition, and page size.
func (c *Client) CountedWorkflowInstances(ctx context.Context, mediaPackageID, count, workflowName string) (map[string]any, bool, error) {
	path := "/workflow/instances.json?state=SUCCEEDED"
	if workflowName != "" {
		path += "&workflowdefinition=" + url.QueryEscape(workflowName)
	}
	if mediaPackageID != "" {
		path += "&mp=" + url.QueryEscape(mediaPackageID)
	}
	if count != "" {
		path += "&count=" + url.QueryEscape(count)
	}

	resp, err := c.request(ctx, "GET", path, nil, true)
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

// StopWorkflow stops one workflow instance. It is a no-op returning false
// when archive deletion is disabled or the instance id is empty.
func (c *Client) StopWorkflow(ctx context.Context, workflowID string) (bool, error) {
	if !c.deleteArchive || workflowID == "" {
		return false, nil
	}
	form := url.Values{}
	form.Set("id", workflowID)

	resp, err := c.request(ctx, "POST", "/workflow/stop", form, true)
	if err != nil {
		return false, err
	}
	if resp.status != http.StatusOK {
		return false, statusError("stop workflow "+workflowID, resp.url, resp.status, resp.body)
	}
	return true, nil
}

// RemoveEvent deletes an episode on the admin node. Servers before 9.0.0 use
// the admin-ng endpoint, newer ones the external events API, which answers
// 202 while the deletion runs asynchronously.
func (c *Client) RemoveEvent(ctx context.Context, id string) error {
	version, err := c.Version(ctx)
	if err != nil {
		return err
	}

	if CompareVersions(version, "9.0.0") < 0 {
		resp, err := c.request(ctx, "DELETE", "/admin-ng/event/"+id, nil, true)
		if err != nil {
			return err
		}
		if resp.status < 200 || resp.status > 299 {
			return statusError("remove event "+id, resp.url, resp.status, resp.body)
		}
		return nil
	}

	resp, err := c.request(ctx, "DELETE", "/api/events/"+id, nil, true)
	if err != nil {
		return err
	}
	if resp.status != http.StatusAccepted && resp.status != http.StatusNoContent {
		return statusError("remove event "+id, resp.url, resp.status, resp.body)
	}
	return nil
}
