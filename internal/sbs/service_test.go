package sbs

import (
	"context"
	"path/filepath"
	"testing"

	"castsync/internal/config"
	"castsync/internal/library"
	"castsync/internal/logging"
	"castsync/internal/mediapkg"
	"castsync/internal/testsupport"
)

type recordingSubmitter struct {
	jobs []Job
}

func (r *recordingSubmitter) Submit(_ context.Context, job Job) error {
	r.jobs = append(r.jobs, job)
	return nil
}

type recordingSaver struct {
	saved int
}

func (r *recordingSaver) SaveObject(context.Context, *library.MultimediaObject) error {
	r.saved++
	return nil
}

func newTestService(cfg config.SBS, submitter JobSubmitter, saver ObjectSaver) *Service {
	mapper := NewMapper(nil, false)
	return NewService(cfg, mapper, submitter, saver, "en", logging.NewNop())
}

func TestGenAutoSbsDisabled(t *testing.T) {
	submitter := &recordingSubmitter{}
	service := newTestService(config.SBS{Generate: false}, submitter, &recordingSaver{})

	object := library.NewMultimediaObject()
	object.AddTrack(library.Track{Path: "/tmp/a.mp4"})

	done, err := service.GenAutoSbs(context.Background(), object, nil)
	if err != nil {
		t.Fatalf("GenAutoSbs: %v", err)
	}
	if done || len(submitter.jobs) != 0 {
		t.Fatal("GenAutoSbs acted while disabled")
	}
}

func TestGenAutoSbsPromotesFlavourTrack(t *testing.T) {
	submitter := &recordingSubmitter{}
	saver := &recordingSaver{}
	service := newTestService(config.SBS{
		Generate:   true,
		Profile:    "sbs",
		UseFlavour: true,
		Flavour:    "composite/delivery",
	}, submitter, saver)

	object := library.NewMultimediaObject()
	object.AddTrack(library.Track{Tags: []string{"composite/delivery"}, Path: "/tmp/composite.mp4"})

	done, err := service.GenAutoSbs(context.Background(), object, nil)
	if err != nil {
		t.Fatalf("GenAutoSbs: %v", err)
	}
	if !done {
		t.Fatal("GenAutoSbs done = false")
	}
	if len(submitter.jobs) != 0 {
		t.Fatal("encoder job submitted despite flavour shortcut")
	}
	if saver.saved != 1 {
		t.Fatalf("saved = %d, want 1", saver.saved)
	}
	track := &object.Tracks[0]
	if !track.HasTag("profile:sbs") || !track.HasTag("display") {
		t.Fatalf("promoted track tags = %v", track.Tags)
	}
}

func TestSetProfileControlsPromotionTags(t *testing.T) {
	saver := &recordingSaver{}
	service := newTestService(config.SBS{
		Generate:   true,
		Profile:    "sbs",
		UseFlavour: true,
		Flavour:    "composite/delivery",
	}, &recordingSubmitter{}, saver)
	service.SetProfile(Profile{Name: "sbs-master", Master: true, Tags: []string{"archive"}})

	object := library.NewMultimediaObject()
	object.AddTrack(library.Track{Tags: []string{"composite/delivery"}, Path: "/tmp/composite.mp4"})

	done, err := service.GenAutoSbs(context.Background(), object, nil)
	if err != nil {
		t.Fatalf("GenAutoSbs: %v", err)
	}
	if !done {
		t.Fatal("GenAutoSbs done = false")
	}
	track := &object.Tracks[0]
	if !track.HasTag("profile:sbs-master") || !track.HasTag("master") || !track.HasTag("archive") {
		t.Fatalf("promoted track tags = %v", track.Tags)
	}
}

func TestGenAutoSbsFlavourSkipsAudioOnly(t *testing.T) {
	submitter := &recordingSubmitter{}
	service := newTestService(config.SBS{
		Generate:   true,
		Profile:    "sbs",
		UseFlavour: true,
		Flavour:    "composite/delivery",
	}, submitter, &recordingSaver{})

	object := library.NewMultimediaObject()
	object.AddTrack(library.Track{Tags: []string{"composite/delivery"}, URL: "http://cdn/audio.mp3", OnlyAudio: true})

	done, err := service.GenAutoSbs(context.Background(), object, nil)
	if err != nil {
		t.Fatalf("GenAutoSbs: %v", err)
	}
	if done {
		t.Fatal("audio-only track promoted or job submitted without a path mapping")
	}
	if len(submitter.jobs) != 0 {
		t.Fatalf("jobs = %d, want none", len(submitter.jobs))
	}
}

func TestGenerateSbsTrackSubmitsJob(t *testing.T) {
	submitter := &recordingSubmitter{}
	service := newTestService(config.SBS{
		Generate:    true,
		Profile:     "sbs",
		DefaultVars: map[string]string{"height": "720"},
	}, submitter, &recordingSaver{})

	object := library.NewMultimediaObject()
	object.SetProperty(library.PropOpencastLanguage, "GL")
	object.AddTrack(library.Track{Path: "/srv/media/presenter.mp4"})

	sources := map[string]string{"presenter/source": "http://storage/presenter.mkv"}
	done, err := service.GenerateSbsTrack(context.Background(), object, sources)
	if err != nil {
		t.Fatalf("GenerateSbsTrack: %v", err)
	}
	if !done || len(submitter.jobs) != 1 {
		t.Fatalf("done=%v jobs=%d, want submitted job", done, len(submitter.jobs))
	}
	job := submitter.jobs[0]
	if job.Profile != "sbs" || job.Path != "/srv/media/presenter.mp4" {
		t.Fatalf("job = %+v", job)
	}
	if job.Language != "gl" {
		t.Fatalf("job language = %q, want lowercased property", job.Language)
	}
	if job.Variables["height"] != "720" || job.SourceURLs["presenter/source"] == "" {
		t.Fatalf("job payload = %+v", job)
	}
}

func TestGenerateSbsTrackResolvesPathViaMapper(t *testing.T) {
	base := t.TempDir()
	local := filepath.Join(base, "presenter.mp4")
	testsupport.WriteFile(t, local, 16)

	submitter := &recordingSubmitter{}
	mapper := NewMapper([]config.URLMapping{{URL: "http://cdn", Path: base}}, false)
	service := NewService(config.SBS{Generate: true, Profile: "sbs"}, mapper, submitter, &recordingSaver{}, "en", logging.NewNop())

	object := library.NewMultimediaObject()
	object.AddTrack(library.Track{URL: "http://cdn/presenter.mp4"})

	done, err := service.GenerateSbsTrack(context.Background(), object, nil)
	if err != nil {
		t.Fatalf("GenerateSbsTrack: %v", err)
	}
	if !done {
		t.Fatal("GenerateSbsTrack done = false")
	}
	if submitter.jobs[0].Path != local {
		t.Fatalf("job path = %q, want %q", submitter.jobs[0].Path, local)
	}
}

func TestMediaPackageThumbnail(t *testing.T) {
	mp := mediapkg.MediaPackage{
		"attachments": map[string]any{
			"attachment": []any{
				map[string]any{"type": "galicaster-properties", "url": "http://oc/props.json"},
				map[string]any{"type": "presenter/search+preview", "url": "http://oc/thumb.png"},
			},
		},
	}
	url, ok := MediaPackageThumbnail(mp)
	if !ok || url != "http://oc/thumb.png" {
		t.Fatalf("MediaPackageThumbnail = (%q, %v)", url, ok)
	}

	if _, ok := MediaPackageThumbnail(mediapkg.MediaPackage{}); ok {
		t.Fatal("MediaPackageThumbnail ok = true for empty package")
	}
}
