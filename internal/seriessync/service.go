package seriessync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"castsync/internal/library"
	"castsync/internal/logging"
	"castsync/internal/mediapkg"
	"castsync/internal/opencast"
)

// UnlinkedSentinel marks a local series that must never be synced to the
// remote platform. Local objects always need a series; remote episodes do
// not, so the fallback series stays unlinked.
const UnlinkedSentinel = "default"

// Service reconciles local series with their remote counterparts and
// resolves the owning series during imports.
type Service struct {
	store           *library.Store
	client          *opencast.Client
	logger          *slog.Logger
	defaultLanguage string
	otherLocales    []string
}

// New creates a series sync service.
func New(store *library.Store, client *opencast.Client, defaultLanguage string, otherLocales []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:           store,
		client:          client,
		logger:          logger,
		defaultLanguage: defaultLanguage,
		otherLocales:    otherLocales,
	}
}

// CreateSeries creates the remote counterpart of a local series and stores
// the returned identifier back onto it. Series carrying the unlinked
// sentinel are skipped.
func (s *Service) CreateSeries(ctx context.Context, series *library.Series) error {
	if value, _ := series.Property(library.PropOpencast); value == UnlinkedSentinel {
		return nil
	}

	identifier, err := s.client.CreateSeries(ctx, series.TitleIn(s.defaultLanguage), series.DescriptionIn(s.defaultLanguage))
	if err != nil {
		s.logger.ErrorContext(ctx, "remote series creation failed",
			slog.String(logging.FieldComponent, "seriessync"),
			slog.String(logging.FieldSeriesID, series.ID),
			slog.String("error", err.Error()))
		return err
	}

	series.SetProperty(library.PropOpencast, identifier)
	if err := s.store.SaveSeries(ctx, series); err != nil {
		return fmt.Errorf("persist series %s: %w", series.ID, err)
	}

	s.logger.InfoContext(ctx, "remote series created",
		slog.String(logging.FieldComponent, "seriessync"),
		slog.String(logging.FieldSeriesID, series.ID),
		slog.String("remote_id", identifier))
	return nil
}

// UpdateSeries pushes local title and description to the remote counterpart.
// When the remote series is gone, it is recreated instead of failing
// permanently. Series carrying the unlinked sentinel are skipped.
func (s *Service) UpdateSeries(ctx context.Context, series *library.Series) error {
	remoteID, _ := series.Property(library.PropOpencast)
	if remoteID == UnlinkedSentinel {
		return nil
	}

	err := s.client.UpdateSeriesMetadata(ctx, remoteID, series.TitleIn(s.defaultLanguage), series.DescriptionIn(s.defaultLanguage))
	if err == nil {
		return nil
	}

	s.logger.WarnContext(ctx, "remote series update failed",
		slog.String(logging.FieldComponent, "seriessync"),
		slog.String(logging.FieldSeriesID, series.ID),
		slog.String("error", err.Error()))

	if errors.Is(err, opencast.ErrNotFound) {
		return s.CreateSeries(ctx, series)
	}
	return err
}

// DeleteSeries removes the remote counterpart of a local series. Best
// effort: failures are logged, never propagated.
func (s *Service) DeleteSeries(ctx context.Context, series *library.Series) {
	remoteID, _ := series.Property(library.PropOpencast)
	if remoteID == "" || remoteID == UnlinkedSentinel {
		return
	}
	if err := s.client.DeleteSeries(ctx, remoteID); err != nil {
		s.logger.ErrorContext(ctx, "remote series deletion failed",
			slog.String(logging.FieldComponent, "seriessync"),
			slog.String(logging.FieldSeriesID, series.ID),
			slog.String("error", err.Error()))
	}
}

// ResolveSeries finds or creates the local series a media package belongs
// to. A media package without series metadata lands in the shared unlinked
// series.
func (s *Service) ResolveSeries(ctx context.Context, mp mediapkg.MediaPackage) (*library.Series, error) {
	remoteSeriesID := mp.SeriesID()
	if remoteSeriesID == "" {
		return s.unlinkedSeries(ctx)
	}

	existing, err := s.store.FindSeriesByProperty(ctx, library.PropOpencast, remoteSeriesID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	series := library.NewSeries()
	title := mp.SeriesTitle()
	if title == "" {
		title = remoteSeriesID
	}
	series.Title[s.defaultLanguage] = title
	for _, locale := range s.otherLocales {
		series.Title[locale] = title
	}
	series.SetProperty(library.PropOpencast, remoteSeriesID)

	if err := s.store.SaveSeries(ctx, series); err != nil {
		return nil, fmt.Errorf("persist series for %s: %w", remoteSeriesID, err)
	}

	s.logger.InfoContext(ctx, "local series created from media package",
		slog.String(logging.FieldComponent, "seriessync"),
		slog.String(logging.FieldSeriesID, series.ID),
		slog.String("remote_id", remoteSeriesID))
	return series, nil
}

func (s *Service) unlinkedSeries(ctx context.Context) (*library.Series, error) {
	existing, err := s.store.FindSeriesByProperty(ctx, library.PropOpencast, UnlinkedSentinel)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	series := library.NewSeries()
	series.Title[s.defaultLanguage] = "Imported recordings"
	for _, locale := range s.otherLocales {
		series.Title[locale] = "Imported recordings"
	}
	series.SetProperty(library.PropOpencast, UnlinkedSentinel)

	if err := s.store.SaveSeries(ctx, series); err != nil {
		return nil, fmt.Errorf("persist unlinked series: %w", err)
	}
	return series, nil
}
