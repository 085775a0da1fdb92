package workflows

import (
	"context"
	"log/slog"
	"strconv"

	"castsync/internal/library"
	"castsync/internal/logging"
	"castsync/internal/mediapkg"
	"castsync/internal/opencast"
)

// Service reconciles workflow state on the remote platform: cleaning up
// succeeded deletion workflows and retracting episodes whose last local
// object was deleted.
type Service struct {
	client           *opencast.Client
	store            *library.Store
	deleteArchive    bool
	deletionWorkflow string
	logger           *slog.Logger
}

// New creates a workflow reconciliation service.
func New(client *opencast.Client, store *library.Store, deleteArchive bool, deletionWorkflow string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:           client,
		store:            store,
		deleteArchive:    deleteArchive,
		deletionWorkflow: deletionWorkflow,
		logger:           logger,
	}
}

// StopSucceededWorkflows stops succeeded workflow instances around archive
// deletion. With a media package id, the cleanup is scoped to that media
// package; without one, every succeeded deletion workflow system-wide is
// processed along with its media package's other workflows. It reports
// overall success: true only when no stop operation failed. Deployments not
// managing archive deletion succeed trivially.
func (s *Service) StopSucceededWorkflows(ctx context.Context, mediaPackageID string) (bool, error) {
	if !s.deleteArchive {
		return true, nil
	}

	errors := 0
	if mediaPackageID != "" {
		deletionInstances, err := s.allWorkflowInstances(ctx, mediaPackageID, s.deletionWorkflow)
		if err != nil {
			return false, err
		}
		if len(deletionInstances) == 0 {
			return true, nil
		}
		for _, instance := range deletionInstances {
			errors += s.stopSucceededWorkflow(ctx, instance)
		}
		instances, err := s.allWorkflowInstances(ctx, mediaPackageID, "")
		if err != nil {
			return false, err
		}
		for _, instance := range instances {
			errors += s.stopSucceededWorkflow(ctx, instance)
		}
		return errors == 0, nil
	}

	deletionInstances, err := s.allWorkflowInstances(ctx, "", s.deletionWorkflow)
	if err != nil {
		return false, err
	}
	for _, deletionInstance := range deletionInstances {
		errors += s.stopSucceededWorkflow(ctx, deletionInstance)

		mpID := mediaPackageIDFromWorkflow(deletionInstance)
		if mpID == "" {
			continue
		}
		instances, err := s.allWorkflowInstances(ctx, mpID, "")
		if err != nil {
			return false, err
		}
		for _, instance := range instances {
			errors += s.stopSucceededWorkflow(ctx, instance)
		}
	}
	return errors == 0, nil
}

// HandleObjectDeleted retracts the remote episode after a local object was
// deleted, provided no other local object still references it. Servers
// before 9.0.0 run the deletion workflow over the archive; newer ones remove
// the event directly. Failures are logged, never propagated: local deletion
// must not roll back over remote trouble.
func (s *Service) HandleObjectDeleted(ctx context.Context, mediaPackageID string) {
	if mediaPackageID == "" {
		return
	}

	count, err := s.store.CountObjectsByProperty(ctx, library.PropOpencast, mediaPackageID)
	if err != nil {
		s.logger.ErrorContext(ctx, "reference count failed after deletion",
			slog.String(logging.FieldComponent, "workflows"),
			slog.String(logging.FieldMediaPackageID, mediaPackageID),
			slog.String("error", err.Error()))
		return
	}
	if count > 0 {
		s.logger.DebugContext(ctx, "remote episode still referenced locally",
			slog.String(logging.FieldComponent, "workflows"),
			slog.String(logging.FieldMediaPackageID, mediaPackageID),
			slog.Int("references", count))
		return
	}

	version, err := s.client.Version(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "version lookup failed after deletion",
			slog.String(logging.FieldComponent, "workflows"),
			slog.String(logging.FieldMediaPackageID, mediaPackageID),
			slog.String("error", err.Error()))
		return
	}

	if opencast.CompareVersions(version, "9.0.0") < 0 {
		err = s.client.ApplyWorkflow(ctx, []string{mediaPackageID}, "")
	} else {
		err = s.client.RemoveEvent(ctx, mediaPackageID)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "remote retraction failed after deletion",
			slog.String(logging.FieldComponent, "workflows"),
			slog.String(logging.FieldMediaPackageID, mediaPackageID),
			slog.String("error", err.Error()))
		return
	}

	s.logger.InfoContext(ctx, "remote episode retracted",
		slog.String(logging.FieldComponent, "workflows"),
		slog.String(logging.FieldMediaPackageID, mediaPackageID))
}

// allWorkflowInstances lists succeeded workflow instances, sized by the
// engine's own statistics so one page covers everything.
func (s *Service) allWorkflowInstances(ctx context.Context, mediaPackageID, workflowName string) ([]map[string]any, error) {
	statistics, ok, err := s.client.WorkflowStatistics(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	total := mediapkg.Field(statistics["statistics"], "total")
	count := statisticsTotal(total)
	if count == "" || count == "0" {
		return nil, nil
	}

	decoded, ok, err := s.client.CountedWorkflowInstances(ctx, mediaPackageID, count, workflowName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return mediapkg.AsList(mediapkg.Field(decoded["workflows"], "workflow")), nil
}

func (s *Service) stopSucceededWorkflow(ctx context.Context, workflow map[string]any) int {
	state, _ := workflow["state"].(string)
	if state != "SUCCEEDED" {
		return 0
	}

	id := stringField(workflow, "id")
	stopped, err := s.client.StopWorkflow(ctx, id)
	if err != nil || !stopped {
		s.logger.WarnContext(ctx, "workflow stop failed",
			slog.String(logging.FieldComponent, "workflows"),
			slog.String("workflow_id", id))
		return 1
	}
	return 0
}

func mediaPackageIDFromWorkflow(workflow map[string]any) string {
	mp, ok := workflow["mediapackage"].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(mp, "id")
}

func stringField(container map[string]any, key string) string {
	switch v := container[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

func statisticsTotal(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}
