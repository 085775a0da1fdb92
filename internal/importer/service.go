package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"castsync/internal/config"
	"castsync/internal/library"
	"castsync/internal/logging"
	"castsync/internal/mediapkg"
	"castsync/internal/opencast"
	"castsync/internal/sbs"
	"castsync/internal/seriessync"
)

// galicasterAttachmentID is the attachment carrying the recorder property
// block inside a media package.
const galicasterAttachmentID = "galicaster-properties"

// importDecision is the object-identity outcome of identity recovery.
type importDecision int

const (
	// createNew: no local object claims the episode, create one in its series.
	createNew importDecision = iota
	// cloneAsNew: the claimed object already carries media, use it as a
	// template and never mutate it.
	cloneAsNew
	// linkExisting: the claimed object is empty, populate it in place.
	linkExisting
)

func decideImport(target *library.MultimediaObject) importDecision {
	switch {
	case target == nil:
		return createNew
	case len(target.Tracks) > 0:
		return cloneAsNew
	default:
		return linkExisting
	}
}

// Service reconciles remote recordings into local multimedia objects. One
// remote episode maps to exactly one object; re-importing an episode updates
// the existing object instead of duplicating it.
type Service struct {
	client    *opencast.Client
	store     *library.Store
	series    *seriessync.Service
	sbs       *sbs.Service
	inspector TrackInspector
	logger    *slog.Logger

	otherLocales       []string
	customLanguages    []string
	defaultLanguage    string
	defaultTagImported string
	identityProperty   string
	picFlavors         []string
	sinks              []EventSink
}

// New wires the import reconciler from configuration.
func New(client *opencast.Client, store *library.Store, series *seriessync.Service, sbsService *sbs.Service, inspector TrackInspector, cfg config.Import, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if inspector == nil {
		inspector = NopInspector{}
	}
	return &Service{
		client:             client,
		store:              store,
		series:             series,
		sbs:                sbsService,
		inspector:          inspector,
		logger:             logger,
		otherLocales:       cfg.OtherLocales,
		customLanguages:    cfg.CustomLanguages,
		defaultLanguage:    cfg.DefaultLanguage,
		defaultTagImported: cfg.DefaultTagImported,
		identityProperty:   cfg.IdentityProperty,
		picFlavors:         cfg.PicFlavors,
	}
}

// AddSink registers an event sink for import outcomes.
func (s *Service) AddSink(sink EventSink) {
	if sink != nil {
		s.sinks = append(s.sinks, sink)
	}
}

// Options control a single import.
type Options struct {
	// Owner is the account that owns a newly created object. When empty,
	// the owner is inherited from the series prototype.
	Owner string

	// Invert swaps the presenter and presentation panes in the player
	// layout.
	Invert bool

	// Master imports tracks from the archived master media package instead
	// of the published one.
	Master bool
}

// ImportRecording fetches a published episode by id and reconciles it into
// the local library.
func (s *Service) ImportRecording(ctx context.Context, opencastID string, opts Options) (*library.MultimediaObject, error) {
	mp, found, err := s.client.MediaPackage(ctx, opencastID)
	if err != nil {
		s.emitFailed(ctx, err, opencastID)
		return nil, err
	}
	if !found {
		err := fmt.Errorf("%w: episode %s not published", opencast.ErrNotFound, opencastID)
		s.emitFailed(ctx, err, opencastID)
		return nil, err
	}
	return s.ImportRecordingFromMediaPackage(ctx, mp, opts)
}

// ImportRecordingFromMediaPackage reconciles an already-fetched media package
// into the local library.
//
// When an object already references the episode, only its tracks and
// pictures are refreshed. Otherwise the recorder property block may point at
// an existing object: a populated one becomes the template for a clone, an
// empty one is filled in place. Without any identity, a fresh object is
// created in the resolved series.
func (s *Service) ImportRecordingFromMediaPackage(ctx context.Context, mp mediapkg.MediaPackage, opts Options) (*library.MultimediaObject, error) {
	mpID := mp.ID()
	if mpID == "" {
		return nil, fmt.Errorf("%w: media package without id", opencast.ErrValidation)
	}
	ctx = logging.WithMediaPackageID(ctx, mpID)
	logger := logging.WithContext(ctx, s.logger.With(slog.String(logging.FieldComponent, "importer")))

	existing, err := s.store.FindObjectByProperty(ctx, library.PropOpencast, mpID)
	if err != nil {
		s.emitFailed(ctx, err, mpID)
		return nil, err
	}
	if existing != nil {
		if err := s.refreshObject(ctx, existing, mp); err != nil {
			s.emitFailed(ctx, err, mpID)
			return nil, err
		}
		logger.InfoContext(ctx, "episode already imported, media refreshed",
			slog.String(logging.FieldObjectID, existing.ID))
		return existing, nil
	}

	galicaster, target, err := s.recoverIdentity(ctx, mp)
	if err != nil {
		s.emitFailed(ctx, err, mpID)
		return nil, err
	}

	// Parse every track before touching the store so a broken media
	// package never leaves a half-imported object behind.
	tracks, sourceURLs, err := s.parseTracks(ctx, mp, opts)
	if err != nil {
		s.emitFailed(ctx, err, mpID)
		return nil, err
	}

	var object *library.MultimediaObject
	switch decideImport(target) {
	case createNew:
		object, err = s.newObject(ctx, mp, opts)
	case cloneAsNew:
		object, err = s.cloneObject(target)
	case linkExisting:
		object = target
	}
	if err != nil {
		s.emitFailed(ctx, err, mpID)
		return nil, err
	}

	ctx = logging.WithObjectID(ctx, object.ID)
	logger = logging.WithContext(ctx, s.logger.With(slog.String(logging.FieldComponent, "importer")))

	s.applyMetadata(object, mp, mpID, galicaster, opts)
	for _, track := range tracks {
		object.AddTrack(track)
	}
	s.importPics(object, mp)

	if s.defaultTagImported != "" {
		code := library.NormalizeTagCode(s.defaultTagImported)
		if ok, err := s.store.TagExists(ctx, code); err == nil && ok {
			object.AddTagCode(code)
		}
	}

	if err := s.store.SaveObject(ctx, object); err != nil {
		s.emitFailed(ctx, err, mpID)
		return nil, fmt.Errorf("persist imported object: %w", err)
	}

	if len(object.Tracks) > 0 {
		if _, err := s.sbs.GenAutoSbs(ctx, object, sourceURLs); err != nil {
			logger.WarnContext(ctx, "side-by-side generation failed",
				slog.String("error", err.Error()))
		}
	}

	logger.InfoContext(ctx, "episode imported",
		slog.Int("tracks", len(object.Tracks)),
		slog.Int("pics", len(object.Pics)))
	s.emitSucceeded(ctx, object, mpID)
	return object, nil
}

// refreshObject updates the media of an already-imported object in place.
func (s *Service) refreshObject(ctx context.Context, object *library.MultimediaObject, mp mediapkg.MediaPackage) error {
	if _, err := s.SyncTracks(ctx, object, mp); err != nil {
		return err
	}
	s.SyncPics(object, mp)
	return s.store.SaveObject(ctx, object)
}

// recoverIdentity reads the recorder property block of the media package and
// resolves the object it points at, if any.
func (s *Service) recoverIdentity(ctx context.Context, mp mediapkg.MediaPackage) (map[string]any, *library.MultimediaObject, error) {
	properties, ok := s.galicasterProperties(ctx, mp)
	if !ok {
		return nil, nil, nil
	}

	objectID := s.galicasterIdentity(properties)
	if objectID == "" {
		return properties, nil, nil
	}

	target, err := s.store.ObjectByID(ctx, objectID)
	if err != nil {
		return nil, nil, err
	}
	if target == nil {
		s.logger.WarnContext(ctx, "recorder block points at unknown object",
			slog.String(logging.FieldComponent, "importer"),
			slog.String(logging.FieldMediaPackageID, mp.ID()),
			slog.String(logging.FieldObjectID, objectID))
	}
	return properties, target, nil
}

// galicasterProperties fetches the recorder property block, preferring the
// attachment URL embedded in the media package over the asset endpoint.
func (s *Service) galicasterProperties(ctx context.Context, mp mediapkg.MediaPackage) (map[string]any, bool) {
	for _, attachment := range mp.Attachments() {
		if attachment.ID == galicasterAttachmentID && attachment.URL != "" {
			return s.client.GalicasterPropertiesFromURL(ctx, attachment.URL)
		}
	}
	return s.client.GalicasterProperties(ctx, mp.ID(), 1)
}

// galicasterIdentity extracts the identity value from a recorder property
// block, tolerating the nesting variants recorders produce.
func (s *Service) galicasterIdentity(properties map[string]any) string {
	containers := []any{
		properties,
		mediapkg.Field(properties, "properties"),
		mediapkg.Field(properties, "galicaster"),
		mediapkg.Field(mediapkg.Field(properties, "galicaster"), "properties"),
	}
	for _, container := range containers {
		if value, ok := mediapkg.Field(container, s.identityProperty).(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// parseTracks converts the media package's streamable tracks and collects the
// master source URLs used by rendition generation.
func (s *Service) parseTracks(ctx context.Context, mp mediapkg.MediaPackage, opts Options) ([]library.Track, map[string]string, error) {
	source := mp
	if opts.Master {
		master, found, err := s.client.MasterMediaPackage(ctx, mp.ID())
		if err != nil {
			return nil, nil, err
		}
		if found {
			source = master
		}
	}

	language := mediapkg.NormalizeLanguage(mp.Language(), s.customLanguages, s.defaultLanguage)
	var tracks []library.Track
	for _, remote := range source.Tracks() {
		if !remote.Streamable() {
			s.logger.DebugContext(ctx, "skipping non-streamable track",
				slog.String(logging.FieldComponent, "importer"),
				slog.String(logging.FieldMediaPackageID, mp.ID()),
				slog.String("url", remote.URL))
			continue
		}
		track, err := s.CreateTrackFromOpencastTrack(ctx, remote, language)
		if err != nil {
			return nil, nil, err
		}
		tracks = append(tracks, track)
	}

	return tracks, s.OpencastURLs(ctx, mp.ID()), nil
}

// CreateTrackFromOpencastTrack converts one remote track descriptor into a
// local track, resolving its file path and inspecting the file when found.
// The language is the resolved media-package language.
func (s *Service) CreateTrackFromOpencastTrack(ctx context.Context, remote mediapkg.Track, language string) (library.Track, error) {
	track := library.Track{
		URL:          remote.URL,
		Language:     language,
		MimeType:     remote.MimeType,
		DurationMS:   remote.DurationMS,
		AudioCodec:   remote.AudioCodec,
		VideoCodec:   remote.VideoCodec,
		Framerate:    remote.Framerate,
		OriginalName: remote.OriginalName,
		OnlyAudio:    remote.VideoCodec == "",
	}
	for _, tag := range remote.Tags {
		track.AddTag(tag)
	}
	track.AddTag("opencast")
	track.AddTag("display")
	track.AddTag(remote.Type)

	path, found, err := s.sbs.Mapper().Path(remote.URL)
	if err != nil {
		return library.Track{}, err
	}
	if found {
		track.Path = path
		if err := s.inspector.Inspect(ctx, &track); err != nil {
			return library.Track{}, err
		}
	}
	return track, nil
}

// ImportTracksFromMediaPackage appends every streamable track of the media
// package to the object. It reports how many tracks were added.
func (s *Service) ImportTracksFromMediaPackage(ctx context.Context, object *library.MultimediaObject, mp mediapkg.MediaPackage) (int, error) {
	language := mediapkg.NormalizeLanguage(mp.Language(), s.customLanguages, s.defaultLanguage)
	added := 0
	for _, remote := range mp.Tracks() {
		if !remote.Streamable() {
			continue
		}
		track, err := s.CreateTrackFromOpencastTrack(ctx, remote, language)
		if err != nil {
			return added, err
		}
		object.AddTrack(track)
		added++
	}
	return added, nil
}

// newObject creates a fresh object in the series the media package belongs
// to, inheriting the owner from the series prototype when no explicit owner
// is given.
func (s *Service) newObject(ctx context.Context, mp mediapkg.MediaPackage, opts Options) (*library.MultimediaObject, error) {
	series, err := s.series.ResolveSeries(ctx, mp)
	if err != nil {
		return nil, err
	}

	object := library.NewMultimediaObject()
	object.SeriesID = series.ID
	object.Owner = opts.Owner
	if object.Owner == "" {
		prototype, err := s.store.PrototypeBySeries(ctx, series.ID)
		if err != nil {
			return nil, err
		}
		if prototype != nil {
			object.Owner = prototype.Owner
		}
	}

	title := mp.Title()
	if title == "" {
		title = mp.ID()
	}
	object.SetTitle(s.defaultLanguage, title)
	for _, locale := range s.otherLocales {
		object.SetTitle(locale, title)
	}
	return object, nil
}

// cloneObject derives a new object from a populated template: same series
// and status, provenance noted in the comments, media stripped so the
// episode's own media takes its place. The template itself is never touched.
func (s *Service) cloneObject(template *library.MultimediaObject) (*library.MultimediaObject, error) {
	clone := library.NewMultimediaObject()
	clone.SeriesID = template.SeriesID
	clone.Status = template.Status
	clone.Owner = template.Owner
	clone.People = append([]string(nil), template.People...)
	clone.TagCodes = append([]string(nil), template.TagCodes...)
	for locale, title := range template.Title {
		clone.SetTitle(locale, title)
	}
	for key, value := range template.Properties {
		clone.SetProperty(key, value)
	}
	clone.Comments = fmt.Sprintf("From Opencast. Used %q (%s) as template.", template.TitleIn(s.defaultLanguage), template.ID)
	return clone, nil
}

// applyMetadata writes the episode's properties, language, layout, and
// record date onto the object.
func (s *Service) applyMetadata(object *library.MultimediaObject, mp mediapkg.MediaPackage, mpID string, galicaster map[string]any, opts Options) {
	language := mediapkg.NormalizeLanguage(mp.Language(), s.customLanguages, s.defaultLanguage)
	object.SetProperty(library.PropOpencastLanguage, language)

	if galicaster != nil {
		if encoded, err := json.Marshal(galicaster); err == nil {
			object.SetProperty(library.PropGalicaster, string(encoded))
		}
	}

	object.SetProperty(library.PropOpencast, mpID)
	object.SetProperty(library.PropOpencastURL, s.client.PlayerURL()+"?mode=embed&id="+mpID)
	if opts.Invert {
		object.SetProperty(library.PropOpencastInvert, "true")
		object.SetProperty(library.PropPaellaLayout, "professor_slide")
	} else {
		object.SetProperty(library.PropOpencastInvert, "false")
		object.SetProperty(library.PropPaellaLayout, "slide_professor")
	}

	if start, ok := mp.Start(); ok {
		object.RecordDate = start
	}
}

// importPics attaches the preview pictures of the first configured flavor
// that yields any. Flavors are tried in configuration order; later flavors
// never add to an already-illustrated object.
func (s *Service) importPics(object *library.MultimediaObject, mp mediapkg.MediaPackage) {
	byType := map[string][]mediapkg.Attachment{}
	for _, attachment := range mp.Attachments() {
		byType[attachment.Type] = append(byType[attachment.Type], attachment)
	}

	for _, flavor := range s.picFlavors {
		for _, attachment := range byType[strings.TrimSpace(flavor)] {
			if attachment.URL == "" {
				continue
			}
			pic := library.Pic{URL: attachment.URL}
			pic.AddTag("opencast")
			pic.AddTag(attachment.Type)
			for _, tag := range attachment.Tags {
				pic.AddTag(tag)
			}
			object.AddPic(pic)
		}
		if len(object.Pics) > 0 {
			break
		}
	}
}

// SyncTracks refreshes the URL, path, and technical metadata of the object's
// tracks from the media package. Tracks are matched by their remote type tag;
// unmatched remote tracks are never created here. It reports how many tracks
// were updated.
func (s *Service) SyncTracks(ctx context.Context, object *library.MultimediaObject, mp mediapkg.MediaPackage) (int, error) {
	updated := 0
	for _, remote := range mp.Tracks() {
		if !remote.Streamable() {
			continue
		}
		changed, err := s.syncTrack(ctx, object, remote)
		if err != nil {
			return updated, err
		}
		if changed {
			updated++
		}
	}
	return updated, nil
}

func (s *Service) syncTrack(ctx context.Context, object *library.MultimediaObject, remote mediapkg.Track) (bool, error) {
	track := object.TrackWithAllTags([]string{"opencast", remote.Type})
	if track == nil {
		return false, nil
	}

	track.URL = remote.URL
	path, found, err := s.sbs.Mapper().Path(remote.URL)
	if err != nil {
		return false, err
	}
	if found {
		track.Path = path
		if err := s.inspector.Inspect(ctx, track); err != nil {
			return false, err
		}
	}
	return true, nil
}

// SyncPics refreshes the URLs of the object's pictures from the media
// package's attachments, matched by the opencast and type tags. It reports
// how many pictures were updated.
func (s *Service) SyncPics(object *library.MultimediaObject, mp mediapkg.MediaPackage) int {
	updated := 0
	for _, attachment := range mp.Attachments() {
		if attachment.URL == "" {
			continue
		}
		if syncPic(object, attachment) {
			updated++
		}
	}
	return updated
}

func syncPic(object *library.MultimediaObject, attachment mediapkg.Attachment) bool {
	pic := object.PicWithAllTags([]string{"opencast", attachment.Type})
	if pic == nil {
		return false
	}
	pic.URL = attachment.URL
	return true
}

// OpencastURLs maps track type to delivery URL from the archived master
// media package. Lookup trouble yields an empty map: rendition generation
// can proceed without master sources.
func (s *Service) OpencastURLs(ctx context.Context, opencastID string) map[string]string {
	urls := map[string]string{}
	master, found, err := s.client.MasterMediaPackage(ctx, opencastID)
	if err != nil || !found {
		return urls
	}
	for _, track := range master.Tracks() {
		if track.Type != "" && track.URL != "" {
			urls[track.Type] = track.URL
		}
	}
	return urls
}

// ImportSegments fetches the slide segments of the object's episode and
// stores them on the object. It reports whether any segments were found.
func (s *Service) ImportSegments(ctx context.Context, object *library.MultimediaObject) (bool, error) {
	mpID, _ := object.Property(library.PropOpencast)
	if mpID == "" {
		return false, nil
	}

	full, found, err := s.client.FullMediaPackage(ctx, mpID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	raw := mediapkg.AsList(mediapkg.Field(full["segments"], "segment"))
	if len(raw) == 0 {
		return false, nil
	}

	segments := make([]library.Segment, 0, len(raw))
	for i, item := range raw {
		parsed := mediapkg.ParseSegment(item)
		segment := library.Segment{
			Index:      parsed.Index,
			TimeMS:     parsed.TimeMS,
			DurationMS: parsed.Duration,
			Relevance:  parsed.Relevance,
			Hit:        parsed.Hit,
			Text:       parsed.Text,
			PreviewURL: parsed.Preview,
		}
		if segment.Index == 0 {
			segment.Index = int64(i)
		}
		segments = append(segments, segment)
	}

	object.Segments = segments
	if err := s.store.SaveObject(ctx, object); err != nil {
		return false, fmt.Errorf("persist segments: %w", err)
	}
	return true, nil
}
