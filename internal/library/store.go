package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"castsync/internal/config"
)

// Store persists the local content model backed by SQLite. Objects and series
// keep their collections and property bags as JSON documents; property
// lookups go through json_extract.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the library database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "library.db"))
}

// OpenPath opens the library database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

const objectColumns = "id, numerical_id, series_id, status, owner, comments, record_date, title_json, people_json, tag_codes_json, properties_json, tracks_json, pics_json, segments_json, created_at, updated_at"

// SaveObject inserts or replaces a multimedia object.
func (s *Store) SaveObject(ctx context.Context, object *MultimediaObject) error {
	if object == nil {
		return errors.New("object is nil")
	}
	if object.ID == "" {
		return errors.New("object has no id")
	}

	now := time.Now().UTC()
	if object.CreatedAt.IsZero() {
		object.CreatedAt = now
	}
	object.UpdatedAt = now

	if object.NumericalID == 0 {
		next, err := s.nextNumericalID(ctx)
		if err != nil {
			return err
		}
		object.NumericalID = next
	}

	titleJSON, err := marshalMap(object.Title)
	if err != nil {
		return fmt.Errorf("marshal title: %w", err)
	}
	peopleJSON, err := marshalSlice(object.People)
	if err != nil {
		return fmt.Errorf("marshal people: %w", err)
	}
	tagCodesJSON, err := marshalSlice(object.TagCodes)
	if err != nil {
		return fmt.Errorf("marshal tag codes: %w", err)
	}
	propertiesJSON, err := marshalMap(object.Properties)
	if err != nil {
		return fmt.Errorf("marshal properties: %w", err)
	}
	tracksJSON, err := json.Marshal(emptyIfNilTracks(object.Tracks))
	if err != nil {
		return fmt.Errorf("marshal tracks: %w", err)
	}
	picsJSON, err := json.Marshal(emptyIfNilPics(object.Pics))
	if err != nil {
		return fmt.Errorf("marshal pics: %w", err)
	}
	segments := object.Segments
	if segments == nil {
		segments = []Segment{}
	}
	segmentsJSON, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO multimedia_objects (
            id, numerical_id, series_id, status, owner, comments, record_date,
            title_json, people_json, tag_codes_json, properties_json,
            tracks_json, pics_json, segments_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            numerical_id = excluded.numerical_id,
            series_id = excluded.series_id,
            status = excluded.status,
            owner = excluded.owner,
            comments = excluded.comments,
            record_date = excluded.record_date,
            title_json = excluded.title_json,
            people_json = excluded.people_json,
            tag_codes_json = excluded.tag_codes_json,
            properties_json = excluded.properties_json,
            tracks_json = excluded.tracks_json,
            pics_json = excluded.pics_json,
            segments_json = excluded.segments_json,
            updated_at = excluded.updated_at`,
		object.ID,
		object.NumericalID,
		nullableString(object.SeriesID),
		string(object.Status),
		nullableString(object.Owner),
		nullableString(object.Comments),
		nullableTimeValue(object.RecordDate),
		titleJSON,
		peopleJSON,
		tagCodesJSON,
		propertiesJSON,
		string(tracksJSON),
		string(picsJSON),
		string(segmentsJSON),
		object.CreatedAt.Format(time.RFC3339Nano),
		object.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save object: %w", err)
	}
	return nil
}

// ObjectByID fetches one object. A missing object returns nil without error.
func (s *Store) ObjectByID(ctx context.Context, id string) (*MultimediaObject, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+objectColumns+` FROM multimedia_objects WHERE id = ?`, id)
	object, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return object, nil
}

// FindObjectByProperty returns the first object whose property bag holds the
// given value, or nil when no object matches.
func (s *Store) FindObjectByProperty(ctx context.Context, key, value string) (*MultimediaObject, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+objectColumns+` FROM multimedia_objects
         WHERE json_extract(properties_json, '$.' || ?) = ?
         ORDER BY created_at LIMIT 1`,
		key, value,
	)
	object, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find object by property: %w", err)
	}
	return object, nil
}

// ObjectsByProperty returns every object whose property bag holds the value.
func (s *Store) ObjectsByProperty(ctx context.Context, key, value string) ([]*MultimediaObject, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+objectColumns+` FROM multimedia_objects
         WHERE json_extract(properties_json, '$.' || ?) = ?
         ORDER BY created_at`,
		key, value,
	)
	if err != nil {
		return nil, fmt.Errorf("query objects by property: %w", err)
	}
	defer rows.Close()
	return collectObjects(rows)
}

// CountObjectsByProperty counts objects whose property bag holds the value.
func (s *Store) CountObjectsByProperty(ctx context.Context, key, value string) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM multimedia_objects
         WHERE json_extract(properties_json, '$.' || ?) = ?`,
		key, value,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count objects by property: %w", err)
	}
	return count, nil
}

// ObjectsWithProperty lists every object that has the property key at all.
func (s *Store) ObjectsWithProperty(ctx context.Context, key string) ([]*MultimediaObject, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+objectColumns+` FROM multimedia_objects
         WHERE json_extract(properties_json, '$.' || ?) IS NOT NULL
         ORDER BY created_at`,
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("query objects with property: %w", err)
	}
	defer rows.Close()
	return collectObjects(rows)
}

// PrototypeBySeries returns the template object of a series, or nil.
func (s *Store) PrototypeBySeries(ctx context.Context, seriesID string) (*MultimediaObject, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+objectColumns+` FROM multimedia_objects
         WHERE series_id = ? AND status = ? LIMIT 1`,
		seriesID, string(StatusPrototype),
	)
	object, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get series prototype: %w", err)
	}
	return object, nil
}

// ObjectsBySeries lists the objects of a series in creation order.
func (s *Store) ObjectsBySeries(ctx context.Context, seriesID string) ([]*MultimediaObject, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+objectColumns+` FROM multimedia_objects WHERE series_id = ? ORDER BY created_at`,
		seriesID,
	)
	if err != nil {
		return nil, fmt.Errorf("query objects by series: %w", err)
	}
	defer rows.Close()
	return collectObjects(rows)
}

// DeleteObject removes one object. It reports whether a row was deleted.
func (s *Store) DeleteObject(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM multimedia_objects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete object: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const seriesColumns = "id, title_json, description_json, properties_json, created_at, updated_at"

// SaveSeries inserts or replaces a series.
func (s *Store) SaveSeries(ctx context.Context, series *Series) error {
	if series == nil {
		return errors.New("series is nil")
	}
	if series.ID == "" {
		return errors.New("series has no id")
	}

	now := time.Now().UTC()
	if series.CreatedAt.IsZero() {
		series.CreatedAt = now
	}
	series.UpdatedAt = now

	titleJSON, err := marshalMap(series.Title)
	if err != nil {
		return fmt.Errorf("marshal title: %w", err)
	}
	descriptionJSON, err := marshalMap(series.Description)
	if err != nil {
		return fmt.Errorf("marshal description: %w", err)
	}
	propertiesJSON, err := marshalMap(series.Properties)
	if err != nil {
		return fmt.Errorf("marshal properties: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO series (id, title_json, description_json, properties_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            title_json = excluded.title_json,
            description_json = excluded.description_json,
            properties_json = excluded.properties_json,
            updated_at = excluded.updated_at`,
		series.ID,
		titleJSON,
		descriptionJSON,
		propertiesJSON,
		series.CreatedAt.Format(time.RFC3339Nano),
		series.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save series: %w", err)
	}
	return nil
}

// SeriesByID fetches one series. A missing series returns nil without error.
func (s *Store) SeriesByID(ctx context.Context, id string) (*Series, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+seriesColumns+` FROM series WHERE id = ?`, id)
	series, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	return series, nil
}

// FindSeriesByProperty returns the first series whose property bag holds the
// given value, or nil when no series matches.
func (s *Store) FindSeriesByProperty(ctx context.Context, key, value string) (*Series, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+seriesColumns+` FROM series
         WHERE json_extract(properties_json, '$.' || ?) = ?
         ORDER BY created_at LIMIT 1`,
		key, value,
	)
	series, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find series by property: %w", err)
	}
	return series, nil
}

// ListSeries returns every series in creation order.
func (s *Store) ListSeries(ctx context.Context) ([]*Series, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+seriesColumns+` FROM series ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var result []*Series
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, series)
	}
	return result, rows.Err()
}

// DeleteSeries removes one series. It reports whether a row was deleted.
func (s *Store) DeleteSeries(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM series WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete series: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// EnsureTag inserts a taxonomy tag when it does not exist yet.
func (s *Store) EnsureTag(ctx context.Context, code, title string) error {
	code = NormalizeTagCode(code)
	if code == "" {
		return errors.New("empty tag code")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO tags (code, title) VALUES (?, ?) ON CONFLICT(code) DO NOTHING`,
		code, nullableString(title),
	)
	if err != nil {
		return fmt.Errorf("ensure tag: %w", err)
	}
	return nil
}

// TagExists reports whether a taxonomy tag is defined.
func (s *Store) TagExists(ctx context.Context, code string) (bool, error) {
	code = NormalizeTagCode(code)
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tags WHERE code = ?`, code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check tag: %w", err)
	}
	return count > 0, nil
}

func (s *Store) nextNumericalID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(numerical_id) FROM multimedia_objects`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("next numerical id: %w", err)
	}
	return max.Int64 + 1, nil
}

func collectObjects(rows *sql.Rows) ([]*MultimediaObject, error) {
	var objects []*MultimediaObject
	for rows.Next() {
		object, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, object)
	}
	return objects, rows.Err()
}

func scanObject(scanner interface{ Scan(dest ...any) error }) (*MultimediaObject, error) {
	var (
		id          string
		numericalID sql.NullInt64
		seriesID    sql.NullString
		statusStr   string
		owner       sql.NullString
		comments    sql.NullString
		recordRaw   sql.NullString
		titleRaw    sql.NullString
		peopleRaw   sql.NullString
		tagCodesRaw sql.NullString
		propsRaw    sql.NullString
		tracksRaw   sql.NullString
		picsRaw     sql.NullString
		segmentsRaw sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&numericalID,
		&seriesID,
		&statusStr,
		&owner,
		&comments,
		&recordRaw,
		&titleRaw,
		&peopleRaw,
		&tagCodesRaw,
		&propsRaw,
		&tracksRaw,
		&picsRaw,
		&segmentsRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	object := &MultimediaObject{
		ID:          id,
		NumericalID: numericalID.Int64,
		SeriesID:    seriesID.String,
		Status:      Status(statusStr),
		Owner:       owner.String,
		Comments:    comments.String,
	}

	var err error
	if object.Title, err = unmarshalMap(titleRaw.String); err != nil {
		return nil, fmt.Errorf("unmarshal title: %w", err)
	}
	if object.People, err = unmarshalSlice(peopleRaw.String); err != nil {
		return nil, fmt.Errorf("unmarshal people: %w", err)
	}
	if object.TagCodes, err = unmarshalSlice(tagCodesRaw.String); err != nil {
		return nil, fmt.Errorf("unmarshal tag codes: %w", err)
	}
	if object.Properties, err = unmarshalMap(propsRaw.String); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	if tracksRaw.String != "" {
		if err := json.Unmarshal([]byte(tracksRaw.String), &object.Tracks); err != nil {
			return nil, fmt.Errorf("unmarshal tracks: %w", err)
		}
	}
	if picsRaw.String != "" {
		if err := json.Unmarshal([]byte(picsRaw.String), &object.Pics); err != nil {
			return nil, fmt.Errorf("unmarshal pics: %w", err)
		}
	}
	if segmentsRaw.String != "" {
		if err := json.Unmarshal([]byte(segmentsRaw.String), &object.Segments); err != nil {
			return nil, fmt.Errorf("unmarshal segments: %w", err)
		}
	}

	if recordRaw.Valid {
		if record, err := parseTimeString(recordRaw.String); err == nil {
			object.RecordDate = record
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		object.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		object.UpdatedAt = updated
	}
	return object, nil
}

func scanSeries(scanner interface{ Scan(dest ...any) error }) (*Series, error) {
	var (
		id             string
		titleRaw       sql.NullString
		descriptionRaw sql.NullString
		propsRaw       sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(&id, &titleRaw, &descriptionRaw, &propsRaw, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	series := &Series{ID: id}
	var err error
	if series.Title, err = unmarshalMap(titleRaw.String); err != nil {
		return nil, fmt.Errorf("unmarshal title: %w", err)
	}
	if series.Description, err = unmarshalMap(descriptionRaw.String); err != nil {
		return nil, fmt.Errorf("unmarshal description: %w", err)
	}
	if series.Properties, err = unmarshalMap(propsRaw.String); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		series.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		series.UpdatedAt = updated
	}
	return series, nil
}

func marshalMap(value map[string]string) (string, error) {
	if value == nil {
		value = map[string]string{}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func unmarshalMap(raw string) (map[string]string, error) {
	if raw == "" {
		return map[string]string{}, nil
	}
	var value map[string]string
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, err
	}
	if value == nil {
		value = map[string]string{}
	}
	return value, nil
}

func marshalSlice(value []string) (string, error) {
	if value == nil {
		value = []string{}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func unmarshalSlice(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var value []string
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, err
	}
	return value, nil
}

func emptyIfNilTracks(tracks []Track) []Track {
	if tracks == nil {
		return []Track{}
	}
	return tracks
}

func emptyIfNilPics(pics []Pic) []Pic {
	if pics == nil {
		return []Pic{}
	}
	return pics
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTimeValue(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
