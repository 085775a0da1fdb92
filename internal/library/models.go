package library

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a multimedia object.
type Status string

const (
	// StatusPrototype marks the per-series template object. Prototypes are
	// never published and never imported into.
	StatusPrototype Status = "prototype"
	StatusBlocked   Status = "blocked"
	StatusHidden    Status = "hidden"
	StatusPublished Status = "published"
)

// Common property bag keys written by the import reconciler.
const (
	PropOpencast         = "opencast"
	PropOpencastURL      = "opencasturl"
	PropOpencastInvert   = "opencastinvert"
	PropOpencastLanguage = "opencastlanguage"
	PropGalicaster       = "galicaster"
	PropPaellaLayout     = "paellalayout"
)

// MultimediaObject is the reconciliation target: one local video object with
// its tracks, pictures, and a string-keyed property bag.
type MultimediaObject struct {
	ID         string
	SeriesID   string
	Status     Status
	Title      map[string]string
	Comments   string
	Owner      string
	People     []string
	TagCodes   []string
	Properties map[string]string
	Tracks     []Track
	Pics       []Pic
	Segments   []Segment
	RecordDate time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// NumericalID is a short per-store sequence used for display.
	NumericalID int64
}

// NewMultimediaObject creates an empty object with a fresh identifier.
func NewMultimediaObject() *MultimediaObject {
	return &MultimediaObject{
		ID:         uuid.NewString(),
		Status:     StatusBlocked,
		Title:      map[string]string{},
		Properties: map[string]string{},
	}
}

// Property returns a property bag value.
func (m *MultimediaObject) Property(key string) (string, bool) {
	if m.Properties == nil {
		return "", false
	}
	value, ok := m.Properties[key]
	return value, ok
}

// SetProperty sets a property bag value. An empty value removes the key.
func (m *MultimediaObject) SetProperty(key, value string) {
	if m.Properties == nil {
		m.Properties = map[string]string{}
	}
	if value == "" {
		delete(m.Properties, key)
		return
	}
	m.Properties[key] = value
}

// SetTitle sets the title for one locale.
func (m *MultimediaObject) SetTitle(locale, title string) {
	if m.Title == nil {
		m.Title = map[string]string{}
	}
	m.Title[locale] = title
}

// TitleIn returns the title for a locale, falling back to any locale.
func (m *MultimediaObject) TitleIn(locale string) string {
	if title, ok := m.Title[locale]; ok && title != "" {
		return title
	}
	for _, title := range m.Title {
		if title != "" {
			return title
		}
	}
	return ""
}

// IsPrototype reports whether this object is the series template.
func (m *MultimediaObject) IsPrototype() bool { return m.Status == StatusPrototype }

// TrackWithAllTags returns the first track carrying every given tag.
func (m *MultimediaObject) TrackWithAllTags(tags []string) *Track {
	for i := range m.Tracks {
		if m.Tracks[i].HasAllTags(tags) {
			return &m.Tracks[i]
		}
	}
	return nil
}

// TracksWithAnyTag returns the tracks carrying at least one of the given tags.
func (m *MultimediaObject) TracksWithAnyTag(tags []string) []*Track {
	var matched []*Track
	for i := range m.Tracks {
		for _, tag := range tags {
			if m.Tracks[i].HasTag(tag) {
				matched = append(matched, &m.Tracks[i])
				break
			}
		}
	}
	return matched
}

// PicWithAllTags returns the first picture carrying every given tag.
func (m *MultimediaObject) PicWithAllTags(tags []string) *Pic {
	for i := range m.Pics {
		if m.Pics[i].HasAllTags(tags) {
			return &m.Pics[i]
		}
	}
	return nil
}

// AddTrack appends a track, assigning an identifier when missing.
func (m *MultimediaObject) AddTrack(track Track) *Track {
	if track.ID == "" {
		track.ID = uuid.NewString()
	}
	m.Tracks = append(m.Tracks, track)
	return &m.Tracks[len(m.Tracks)-1]
}

// AddPic appends a picture, assigning an identifier when missing.
func (m *MultimediaObject) AddPic(pic Pic) *Pic {
	if pic.ID == "" {
		pic.ID = uuid.NewString()
	}
	m.Pics = append(m.Pics, pic)
	return &m.Pics[len(m.Pics)-1]
}

// HasTagCode reports whether the object carries a taxonomy tag.
func (m *MultimediaObject) HasTagCode(code string) bool {
	for _, c := range m.TagCodes {
		if c == code {
			return true
		}
	}
	return false
}

// AddTagCode attaches a taxonomy tag once.
func (m *MultimediaObject) AddTagCode(code string) {
	if code == "" || m.HasTagCode(code) {
		return
	}
	m.TagCodes = append(m.TagCodes, code)
}

// Track is one media rendition attached to a multimedia object.
type Track struct {
	ID           string            `json:"id"`
	URL          string            `json:"url,omitempty"`
	Path         string            `json:"path,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Language     string            `json:"language,omitempty"`
	DurationMS   int64             `json:"duration_ms,omitempty"`
	MimeType     string            `json:"mime_type,omitempty"`
	AudioCodec   string            `json:"audio_codec,omitempty"`
	VideoCodec   string            `json:"video_codec,omitempty"`
	Framerate    string            `json:"framerate,omitempty"`
	OnlyAudio    bool              `json:"only_audio,omitempty"`
	Hide         bool              `json:"hide,omitempty"`
	OriginalName string            `json:"original_name,omitempty"`
	Description  map[string]string `json:"description,omitempty"`
}

// HasTag reports whether the track carries the tag.
func (t *Track) HasTag(tag string) bool {
	for _, candidate := range t.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// HasAllTags reports whether the track carries every tag.
func (t *Track) HasAllTags(tags []string) bool {
	for _, tag := range tags {
		if !t.HasTag(tag) {
			return false
		}
	}
	return true
}

// AddTag attaches a tag once.
func (t *Track) AddTag(tag string) {
	if tag == "" || t.HasTag(tag) {
		return
	}
	t.Tags = append(t.Tags, tag)
}

// Pic is a picture (thumbnail, preview) attached to a multimedia object.
type Pic struct {
	ID   string   `json:"id"`
	URL  string   `json:"url,omitempty"`
	Path string   `json:"path,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

// HasTag reports whether the picture carries the tag.
func (p *Pic) HasTag(tag string) bool {
	for _, candidate := range p.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// HasAllTags reports whether the picture carries every tag.
func (p *Pic) HasAllTags(tags []string) bool {
	for _, tag := range tags {
		if !p.HasTag(tag) {
			return false
		}
	}
	return true
}

// AddTag attaches a tag once.
func (p *Pic) AddTag(tag string) {
	if tag == "" || p.HasTag(tag) {
		return
	}
	p.Tags = append(p.Tags, tag)
}

// Segment is one slide segment of a processed recording, used for in-player
// navigation.
type Segment struct {
	Index      int64  `json:"index"`
	TimeMS     int64  `json:"time_ms"`
	DurationMS int64  `json:"duration_ms"`
	Relevance  int64  `json:"relevance,omitempty"`
	Hit        bool   `json:"hit,omitempty"`
	Text       string `json:"text,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// Series groups multimedia objects under shared metadata.
type Series struct {
	ID          string
	Title       map[string]string
	Description map[string]string
	Properties  map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSeries creates an empty series with a fresh identifier.
func NewSeries() *Series {
	return &Series{
		ID:          uuid.NewString(),
		Title:       map[string]string{},
		Description: map[string]string{},
		Properties:  map[string]string{},
	}
}

// Property returns a property bag value.
func (s *Series) Property(key string) (string, bool) {
	if s.Properties == nil {
		return "", false
	}
	value, ok := s.Properties[key]
	return value, ok
}

// SetProperty sets a property bag value. An empty value removes the key.
func (s *Series) SetProperty(key, value string) {
	if s.Properties == nil {
		s.Properties = map[string]string{}
	}
	if value == "" {
		delete(s.Properties, key)
		return
	}
	s.Properties[key] = value
}

// TitleIn returns the title for a locale, falling back to any locale.
func (s *Series) TitleIn(locale string) string {
	if title, ok := s.Title[locale]; ok && title != "" {
		return title
	}
	for _, title := range s.Title {
		if title != "" {
			return title
		}
	}
	return ""
}

// DescriptionIn returns the description for a locale, falling back to any locale.
func (s *Series) DescriptionIn(locale string) string {
	if description, ok := s.Description[locale]; ok && description != "" {
		return description
	}
	for _, description := range s.Description {
		if description != "" {
			return description
		}
	}
	return ""
}

// Tag is one taxonomy entry objects can be tagged with.
type Tag struct {
	Code  string
	Title string
}

// NormalizeTagCode uppercases and trims a taxonomy code.
func NormalizeTagCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
