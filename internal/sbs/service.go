package sbs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"castsync/internal/config"
	"castsync/internal/library"
	"castsync/internal/logging"
	"castsync/internal/mediapkg"
)

// thumbnailFlavors are the attachment flavors usable as an object thumbnail,
// in preference order of appearance.
var thumbnailFlavors = map[string]struct{}{
	"presenter/search+preview":    {},
	"presentation/search+preview": {},
	"presenter/player+preview":    {},
	"presentation/player+preview": {},
}

// ObjectSaver persists multimedia objects after track mutation.
type ObjectSaver interface {
	SaveObject(ctx context.Context, object *library.MultimediaObject) error
}

// Profile describes the encoder profile used for side-by-side renditions.
type Profile struct {
	Name    string
	Master  bool
	Display bool
	Tags    []string
}

// Service drives side-by-side rendition generation: either reusing an
// existing composite track or submitting an encoder job for one.
type Service struct {
	generate        bool
	useFlavour      bool
	flavour         string
	profile         Profile
	defaultVars     map[string]string
	defaultLanguage string

	mapper    *Mapper
	submitter JobSubmitter
	saver     ObjectSaver
	logger    *slog.Logger
}

// NewService wires the side-by-side service from configuration.
func NewService(cfg config.SBS, mapper *Mapper, submitter JobSubmitter, saver ObjectSaver, defaultLanguage string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		generate:        cfg.Generate,
		useFlavour:      cfg.UseFlavour,
		flavour:         cfg.Flavour,
		profile:         Profile{Name: cfg.Profile, Display: true},
		defaultVars:     cfg.DefaultVars,
		defaultLanguage: defaultLanguage,
		mapper:          mapper,
		submitter:       submitter,
		saver:           saver,
		logger:          logger,
	}
}

// SetProfile overrides the default profile definition.
func (s *Service) SetProfile(profile Profile) {
	if profile.Name != "" {
		s.profile = profile
	}
}

// Mapper exposes the URL-to-path mapper.
func (s *Service) Mapper() *Mapper { return s.mapper }

// GenAutoSbs ensures a side-by-side rendition exists for the object. When the
// flavour shortcut is enabled and a non-audio track with the configured
// flavour exists, that track is promoted in place; otherwise an encoder job
// is submitted. It reports whether anything was done.
func (s *Service) GenAutoSbs(ctx context.Context, object *library.MultimediaObject, sourceURLs map[string]string) (bool, error) {
	if !s.generate {
		return false, nil
	}

	if s.useFlavour {
		for _, track := range object.TracksWithAnyTag([]string{s.flavour}) {
			if !track.OnlyAudio {
				return s.useTrackAsSbs(ctx, object, track)
			}
		}
	}

	return s.GenerateSbsTrack(ctx, object, sourceURLs)
}

// GenerateSbsTrack submits an encoder job rendering the side-by-side track
// from the object's first track. It reports whether a job was submitted.
func (s *Service) GenerateSbsTrack(ctx context.Context, object *library.MultimediaObject, sourceURLs map[string]string) (bool, error) {
	if !s.generate || s.profile.Name == "" {
		return false, nil
	}
	if len(object.Tracks) == 0 {
		return false, nil
	}

	track := object.Tracks[0]
	trackPath := track.Path
	if trackPath == "" {
		resolved, found, err := s.mapper.Path(track.URL)
		if err != nil {
			return false, err
		}
		if !found {
			s.logger.WarnContext(ctx, "no local path for rendition source",
				slog.String(logging.FieldComponent, "sbs"),
				slog.String(logging.FieldObjectID, object.ID),
				slog.String("url", track.URL))
			return false, nil
		}
		trackPath = resolved
	}

	language := s.defaultLanguage
	if value, ok := object.Property(library.PropOpencastLanguage); ok && value != "" {
		language = strings.ToLower(value)
	}

	job := Job{
		Profile:    s.profile.Name,
		Priority:   2,
		Language:   language,
		Path:       trackPath,
		ObjectID:   object.ID,
		Variables:  s.defaultVars,
		SourceURLs: sourceURLs,
	}
	if err := s.submitter.Submit(ctx, job); err != nil {
		return false, fmt.Errorf("side-by-side job for object %s: %w", object.ID, err)
	}

	s.logger.InfoContext(ctx, "side-by-side job submitted",
		slog.String(logging.FieldComponent, "sbs"),
		slog.String(logging.FieldObjectID, object.ID),
		slog.String("profile", s.profile.Name))
	return true, nil
}

// useTrackAsSbs promotes an existing composite track to the side-by-side
// rendition by tagging it with the profile tags and persisting the object.
func (s *Service) useTrackAsSbs(ctx context.Context, object *library.MultimediaObject, track *library.Track) (bool, error) {
	if s.profile.Name == "" {
		return false, nil
	}

	track.AddTag("profile:" + s.profile.Name)
	if s.profile.Master {
		track.AddTag("master")
	}
	if s.profile.Display {
		track.AddTag("display")
	}
	for _, tag := range s.profile.Tags {
		track.AddTag(strings.TrimSpace(tag))
	}

	if err := s.saver.SaveObject(ctx, object); err != nil {
		return false, fmt.Errorf("persist promoted track: %w", err)
	}

	s.logger.InfoContext(ctx, "existing track promoted to side-by-side rendition",
		slog.String(logging.FieldComponent, "sbs"),
		slog.String(logging.FieldObjectID, object.ID),
		slog.String("track", track.ID))
	return true, nil
}

// MediaPackageThumbnail returns the URL of the first attachment usable as a
// thumbnail.
func MediaPackageThumbnail(mp mediapkg.MediaPackage) (string, bool) {
	for _, attachment := range mp.Attachments() {
		if attachment.URL == "" {
			continue
		}
		if _, ok := thumbnailFlavors[attachment.Type]; ok {
			return attachment.URL, true
		}
	}
	return "", false
}
