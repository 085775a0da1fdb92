package mediapkg

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MediaPackage is the loosely-typed media package description returned by the
// remote platform. Both JSON and XML sources decode into nested maps where a
// single-valued collection field collapses to a bare object; every collection
// read must go through AsList so that ambiguity never leaks past this package.
type MediaPackage map[string]any

// Field returns the named field of a container map when present and non-empty,
// nil otherwise. It never fails for absent optional fields.
func Field(container any, field string) any {
	m, ok := container.(map[string]any)
	if !ok || field == "" {
		return nil
	}
	value, ok := m[field]
	if !ok {
		return nil
	}
	if s, isString := value.(string); isString && s == "" {
		return nil
	}
	return value
}

// AsList normalizes a collection field to a list of maps. A bare object (the
// collapsed single-item shape) is wrapped into a one-element list; an explicit
// list is converted element-wise. Non-map elements are dropped.
func AsList(value any) []map[string]any {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		return []map[string]any{v}
	case []any:
		items := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items
	case []map[string]any:
		return v
	default:
		return nil
	}
}

// Field returns the named top-level field of the media package.
func (mp MediaPackage) Field(name string) any {
	return Field(map[string]any(mp), name)
}

// ID returns the media package identifier.
func (mp MediaPackage) ID() string {
	return stringValue(mp.Field("id"))
}

// Title returns the media package title.
func (mp MediaPackage) Title() string {
	return stringValue(mp.Field("title"))
}

// SeriesID returns the platform-side series identifier, if any.
func (mp MediaPackage) SeriesID() string {
	return stringValue(mp.Field("series"))
}

// SeriesTitle returns the platform-side series title, if any.
func (mp MediaPackage) SeriesTitle() string {
	return stringValue(mp.Field("seriestitle"))
}

// Language returns the raw declared language tag, if any.
func (mp MediaPackage) Language() string {
	return stringValue(mp.Field("language"))
}

// Start returns the recording start timestamp when present and parseable.
func (mp MediaPackage) Start() (time.Time, bool) {
	raw := stringValue(mp.Field("start"))
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RawTracks returns the normalized list of track descriptors.
func (mp MediaPackage) RawTracks() []map[string]any {
	return AsList(Field(mp.Field("media"), "track"))
}

// RawAttachments returns the normalized list of attachment descriptors.
func (mp MediaPackage) RawAttachments() []map[string]any {
	return AsList(Field(mp.Field("attachments"), "attachment"))
}

// RawSegments returns the normalized list of segment descriptors.
func (mp MediaPackage) RawSegments() []map[string]any {
	return AsList(Field(mp.Field("segments"), "segment"))
}

// Tracks returns the parsed track descriptors in document order.
func (mp MediaPackage) Tracks() []Track {
	raw := mp.RawTracks()
	tracks := make([]Track, 0, len(raw))
	for _, item := range raw {
		tracks = append(tracks, ParseTrack(item))
	}
	return tracks
}

// Attachments returns the parsed attachment descriptors in document order.
func (mp MediaPackage) Attachments() []Attachment {
	raw := mp.RawAttachments()
	attachments := make([]Attachment, 0, len(raw))
	for _, item := range raw {
		attachments = append(attachments, ParseAttachment(item))
	}
	return attachments
}

// Segments returns the parsed segment descriptors in document order.
func (mp MediaPackage) Segments() []Segment {
	raw := mp.RawSegments()
	segments := make([]Segment, 0, len(raw))
	for _, item := range raw {
		segments = append(segments, ParseSegment(item))
	}
	return segments
}

// Track describes a single media track of a media package.
type Track struct {
	ID           string
	Type         string
	URL          string
	MimeType     string
	DurationMS   int64
	Tags         []string
	OriginalName string
	Description  string
	AudioCodec   string
	VideoCodec   string
	Framerate    string
}

// Streamable reports whether the track carries a usable delivery URL.
// RTMP-only tracks cannot be imported.
func (t Track) Streamable() bool {
	if t.URL == "" {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(t.URL), "rtmp:")
}

// ParseTrack extracts a track descriptor from its map form.
func ParseTrack(item map[string]any) Track {
	track := Track{
		ID:           stringValue(Field(item, "id")),
		Type:         stringValue(Field(item, "type")),
		URL:          stringValue(Field(item, "url")),
		MimeType:     stringValue(Field(item, "mimetype")),
		DurationMS:   intValue(Field(item, "duration")),
		Tags:         parseTags(Field(item, "tags")),
		OriginalName: stringValue(Field(item, "originalName")),
		Description:  stringValue(Field(item, "description")),
	}
	if audio := Field(item, "audio"); audio != nil {
		track.AudioCodec = stringValue(Field(Field(audio, "encoder"), "type"))
	}
	if video := Field(item, "video"); video != nil {
		track.VideoCodec = stringValue(Field(Field(video, "encoder"), "type"))
		track.Framerate = stringValue(Field(video, "framerate"))
	}
	return track
}

// Attachment describes an attachment (previews, properties files) of a media package.
type Attachment struct {
	ID   string
	Type string
	URL  string
	Tags []string
}

// ParseAttachment extracts an attachment descriptor from its map form.
func ParseAttachment(item map[string]any) Attachment {
	return Attachment{
		ID:   stringValue(Field(item, "id")),
		Type: stringValue(Field(item, "type")),
		URL:  stringValue(Field(item, "url")),
		Tags: parseTags(Field(item, "tags")),
	}
}

// Segment describes one slide segment of a processed recording.
type Segment struct {
	Index     int64
	TimeMS    int64
	Duration  int64
	Relevance int64
	Hit       bool
	Text      string
	Preview   string
}

// ParseSegment extracts a segment descriptor from its map form.
func ParseSegment(item map[string]any) Segment {
	segment := Segment{
		Index:     intValue(Field(item, "index")),
		TimeMS:    intValue(Field(item, "time")),
		Duration:  intValue(Field(item, "duration")),
		Relevance: intValue(Field(item, "relevance")),
		Hit:       boolValue(Field(item, "hit")),
		Text:      stringValue(Field(item, "text")),
	}
	preview := Field(Field(item, "previews"), "preview")
	if previews := AsList(preview); len(previews) > 0 {
		first := previews[0]
		segment.Preview = stringValue(Field(first, "$"))
		if segment.Preview == "" {
			segment.Preview = stringValue(Field(first, "url"))
		}
	}
	return segment
}

// parseTags flattens the platform's tag container ({tag: x} or {tag: [x, y]}).
func parseTags(container any) []string {
	value := Field(container, "tag")
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func intValue(value any) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func boolValue(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed
	case float64:
		return v != 0
	}
	return false
}
