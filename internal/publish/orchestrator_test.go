package publish

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"crosspost/internal/secrets"
	"crosspost/internal/uploaders"
)

// fakeStore backs the resolver with an in-memory secret map.
type fakeStore struct {
	values map[string]string
}

func (f *fakeStore) Get(_ context.Context, name string) (string, error) {
	v, ok := f.values[name]
	if !ok {
		return "", secrets.ErrNotFound
	}
	return v, nil
}

// allSecretsFor returns a store holding every required key for the
// given platforms under channel "ch1".
func allSecretsFor(platforms ...string) *fakeStore {
	values := map[string]string{}
	for _, p := range platforms {
		keys, _ := secrets.RequiredKeys(p)
		for _, k := range keys {
			values[secrets.SecretName("ch1", p, k)] = "v"
		}
	}
	return &fakeStore{values: values}
}

// fakeUploader returns a canned result or error, recording the request.
type fakeUploader struct {
	platform string
	result   *uploaders.Result
	err      error
	panics   bool
	gotReq   *uploaders.Request
}

func (f *fakeUploader) Platform() string { return f.platform }

func (f *fakeUploader) Upload(_ context.Context, req *uploaders.Request) (*uploaders.Result, error) {
	f.gotReq = req
	if f.panics {
		panic("uploader exploded")
	}
	return f.result, f.err
}

// fakeFactory hands out fakeUploaders by platform.
type fakeFactory struct {
	uploaders map[string]*fakeUploader
}

func (f *fakeFactory) ForPlatform(platform string, _ map[string]string) (uploaders.Uploader, error) {
	up, ok := f.uploaders[platform]
	if !ok {
		return nil, fmt.Errorf("no uploader for platform %q", platform)
	}
	return up, nil
}

func (f *fakeFactory) NeedsLocalFile(platform string) bool {
	return uploaders.NeedsLocalFile(platform)
}

// fakeFetcher optionally fails; on success it materializes the file and
// remembers where.
type fakeFetcher struct {
	err   error
	calls int
	dest  string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL, dest string) error {
	f.calls++
	f.dest = dest
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("video"), 0o644)
}

func newTestOrchestrator(store *fakeStore, factory *fakeFactory, fetcher *fakeFetcher) *Orchestrator {
	return New(zerolog.Nop(), secrets.NewResolver(store), factory, fetcher)
}

func baseJob(platforms ...string) Job {
	return Job{
		ChannelID: "ch1",
		VideoURL:  "https://cdn.example.com/clip.mp4",
		Platforms: platforms,
		Title:     "clip",
	}
}

func TestPublishEndToEnd(t *testing.T) {
	// youtube succeeds, facebook is rejected upstream; the facebook
	// failure must not stop the loop and both results keep request
	// order.
	store := allSecretsFor("youtube", "facebook")
	factory := &fakeFactory{uploaders: map[string]*fakeUploader{
		"youtube": {
			platform: "youtube",
			result:   &uploaders.Result{ID: "abc123", URL: "https://www.youtube.com/watch?v=abc123"},
		},
		"facebook": {
			platform: "facebook",
			err:      &uploaders.UpstreamError{Code: 401, Message: "Invalid token"},
		},
	}}
	fetcher := &fakeFetcher{}

	o := newTestOrchestrator(store, factory, fetcher)
	results := o.Publish(context.Background(), baseJob("youtube", "facebook"))

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Platform != "youtube" || results[0].Status != StatusSuccess || results[0].ID != "abc123" {
		t.Errorf("youtube result = %+v", results[0])
	}
	if results[1].Platform != "facebook" || results[1].Status != StatusError {
		t.Errorf("facebook result = %+v", results[1])
	}
	if results[1].Message != "Invalid token" || results[1].Code != 401 {
		t.Errorf("facebook error detail = %+v", results[1])
	}

	summary := Summarize(results)
	if summary.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want 1", summary.SuccessCount)
	}
	if fetcher.calls != 1 {
		t.Errorf("download called %d times, want 1 (youtube needs a local file)", fetcher.calls)
	}
}

func TestPublishResultOrderWithDuplicates(t *testing.T) {
	store := allSecretsFor("facebook", "instagram")
	factory := &fakeFactory{uploaders: map[string]*fakeUploader{
		"facebook":  {platform: "facebook", result: &uploaders.Result{ID: "f1"}},
		"instagram": {platform: "instagram", result: &uploaders.Result{ID: "i1"}},
	}}
	fetcher := &fakeFetcher{}

	o := newTestOrchestrator(store, factory, fetcher)
	requested := []string{"facebook", "instagram", "facebook"}
	results := o.Publish(context.Background(), baseJob(requested...))

	if len(results) != len(requested) {
		t.Fatalf("got %d results, want %d", len(results), len(requested))
	}
	for i, platform := range requested {
		if results[i].Platform != platform {
			t.Errorf("results[%d].Platform = %q, want %q", i, results[i].Platform, platform)
		}
	}
	if fetcher.calls != 0 {
		t.Errorf("download called %d times, want 0 (remote-fetch platforms only)", fetcher.calls)
	}
}

func TestPublishDownloadFailureShortCircuits(t *testing.T) {
	store := allSecretsFor("youtube", "tiktok", "facebook")
	factory := &fakeFactory{uploaders: map[string]*fakeUploader{
		"youtube":  {platform: "youtube", result: &uploaders.Result{ID: "y"}},
		"tiktok":   {platform: "tiktok", result: &uploaders.Result{}},
		"facebook": {platform: "facebook", result: &uploaders.Result{ID: "f"}},
	}}
	fetcher := &fakeFetcher{err: &DownloadError{URL: "u", Err: fmt.Errorf("http 403")}}

	o := newTestOrchestrator(store, factory, fetcher)
	results := o.Publish(context.Background(), baseJob("youtube", "tiktok", "facebook"))

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Platform != PlatformAll || results[0].Status != StatusError {
		t.Errorf("result = %+v, want platform all, status error", results[0])
	}
	if !strings.Contains(results[0].Message, "video download failed") {
		t.Errorf("message = %q, want download failure reason", results[0].Message)
	}
	for _, up := range factory.uploaders {
		if up.gotReq != nil {
			t.Errorf("%s uploader was invoked after a download failure", up.platform)
		}
	}
}

func TestPublishIsolatesPanics(t *testing.T) {
	store := allSecretsFor("facebook", "instagram")
	factory := &fakeFactory{uploaders: map[string]*fakeUploader{
		"facebook":  {platform: "facebook", panics: true},
		"instagram": {platform: "instagram", result: &uploaders.Result{ID: "i1"}},
	}}

	o := newTestOrchestrator(store, factory, &fakeFetcher{})
	results := o.Publish(context.Background(), baseJob("facebook", "instagram"))

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Status != StatusError {
		t.Errorf("panicking platform result = %+v, want error", results[0])
	}
	if results[1].Status != StatusSuccess {
		t.Errorf("following platform result = %+v, want success", results[1])
	}
}

func TestPublishMissingCredentialIsPerPlatform(t *testing.T) {
	// facebook has secrets, instagram doesn't; only instagram fails.
	store := allSecretsFor("facebook")
	factory := &fakeFactory{uploaders: map[string]*fakeUploader{
		"facebook":  {platform: "facebook", result: &uploaders.Result{ID: "f1"}},
		"instagram": {platform: "instagram", result: &uploaders.Result{ID: "i1"}},
	}}

	o := newTestOrchestrator(store, factory, &fakeFetcher{})
	results := o.Publish(context.Background(), baseJob("instagram", "facebook"))

	if results[0].Status != StatusError || !strings.Contains(results[0].Message, "CH1_INSTAGRAM_ACCESS_TOKEN") {
		t.Errorf("instagram result = %+v, want missing-secret error", results[0])
	}
	if results[1].Status != StatusSuccess {
		t.Errorf("facebook result = %+v, want success", results[1])
	}
}

func TestPublishCleansUpMediaResourceOnEveryPath(t *testing.T) {
	store := allSecretsFor("youtube")
	factory := &fakeFactory{uploaders: map[string]*fakeUploader{
		"youtube": {platform: "youtube", err: &uploaders.UpstreamError{Code: 500, Message: "boom"}},
	}}
	fetcher := &fakeFetcher{}

	o := newTestOrchestrator(store, factory, fetcher)
	o.Publish(context.Background(), baseJob("youtube"))

	if fetcher.dest == "" {
		t.Fatal("download never ran")
	}
	if _, err := os.Stat(fetcher.dest); !os.IsNotExist(err) {
		t.Errorf("media resource %s still exists after job end", fetcher.dest)
	}
}

func TestPublishDryRun(t *testing.T) {
	store := allSecretsFor("youtube", "facebook")
	factory := &fakeFactory{uploaders: map[string]*fakeUploader{
		"youtube":  {platform: "youtube", result: &uploaders.Result{ID: "y"}},
		"facebook": {platform: "facebook", result: &uploaders.Result{ID: "f"}},
	}}
	fetcher := &fakeFetcher{}

	o := newTestOrchestrator(store, factory, fetcher)
	job := baseJob("youtube", "facebook")
	job.DryRun = true
	results := o.Publish(context.Background(), job)

	for i, res := range results {
		if res.Status != StatusValidated {
			t.Errorf("results[%d] = %+v, want validated", i, res)
		}
	}
	if !Summarize(results).AllValid {
		t.Error("AllValid = false, want true")
	}
	if fetcher.calls != 0 {
		t.Errorf("download called %d times during dry run, want 0", fetcher.calls)
	}
	for _, up := range factory.uploaders {
		if up.gotReq != nil {
			t.Errorf("%s uploader was invoked during dry run", up.platform)
		}
	}
}

func TestPublishDryRunMissingCookie(t *testing.T) {
	store := &fakeStore{values: map[string]string{}}
	fetcher := &fakeFetcher{}

	o := newTestOrchestrator(store, &fakeFactory{}, fetcher)
	job := baseJob("tiktok")
	job.DryRun = true
	results := o.Publish(context.Background(), job)

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Platform != "tiktok" || results[0].Status != StatusError {
		t.Errorf("result = %+v", results[0])
	}
	if !strings.Contains(results[0].Message, "CH1_TIKTOK_SESSION_COOKIE") {
		t.Errorf("message = %q, want to name the missing secret", results[0].Message)
	}
	if Summarize(results).AllValid {
		t.Error("AllValid = true, want false")
	}
	if fetcher.calls != 0 {
		t.Errorf("download called %d times during dry run, want 0", fetcher.calls)
	}
}

func TestPublishInstagramOptionalCrossPostPageID(t *testing.T) {
	store := allSecretsFor("instagram")
	store.values[secrets.SecretName("ch1", "instagram", "page_id")] = "page7"

	var gotCreds map[string]string
	factory := &credRecordingFactory{
		inner: &fakeFactory{uploaders: map[string]*fakeUploader{
			"instagram": {platform: "instagram", result: &uploaders.Result{ID: "i1"}},
		}},
		record: func(creds map[string]string) { gotCreds = creds },
	}

	o := New(zerolog.Nop(), secrets.NewResolver(store), factory, &fakeFetcher{})
	o.Publish(context.Background(), baseJob("instagram"))

	if gotCreds["page_id"] != "page7" {
		t.Errorf("creds[page_id] = %q, want page7", gotCreds["page_id"])
	}
}

type credRecordingFactory struct {
	inner  *fakeFactory
	record func(map[string]string)
}

func (f *credRecordingFactory) ForPlatform(platform string, creds map[string]string) (uploaders.Uploader, error) {
	f.record(creds)
	return f.inner.ForPlatform(platform, creds)
}

func (f *credRecordingFactory) NeedsLocalFile(platform string) bool {
	return f.inner.NeedsLocalFile(platform)
}
