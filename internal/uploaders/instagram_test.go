package uploaders

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// instagramFake serves the container flow: create, scripted status
// polls, publish.
type instagramFake struct {
	states    []string // one per poll; last repeats
	polls     int
	published int
	createReq map[string]string
}

func (f *instagramFake) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/media"):
			r.ParseForm()
			f.createReq = map[string]string{}
			for k := range r.PostForm {
				f.createReq[k] = r.PostForm.Get(k)
			}
			w.Write([]byte(`{"id":"container1"}`))

		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/container1"):
			f.polls++
			state := f.states[len(f.states)-1]
			if f.polls <= len(f.states) {
				state = f.states[f.polls-1]
			}
			fmt.Fprintf(w, `{"status_code":%q,"status":"detail for %s"}`, state, state)

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/media_publish"):
			f.published++
			w.Write([]byte(`{"id":"media9"}`))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestInstagramUploader(srv *httptest.Server, creds MetaCredentials, maxAttempts int) *InstagramUploader {
	up := NewInstagramUploader(creds, Poller{
		Interval:    time.Second,
		MaxAttempts: maxAttempts,
		Sleep:       noSleep,
	}, time.Minute, time.Minute, zerolog.Nop())
	up.BaseURL = srv.URL
	up.Client = srv.Client()
	up.PollClient = srv.Client()
	return up
}

func TestInstagramUploadSuccess(t *testing.T) {
	fake := &instagramFake{states: []string{"IN_PROGRESS", "IN_PROGRESS", "FINISHED"}}
	srv := fake.server()
	defer srv.Close()

	up := newTestInstagramUploader(srv, MetaCredentials{AccessToken: "tok", InstagramUserID: "ig1"}, 10)

	res, err := up.Upload(context.Background(), &Request{
		VideoURL: "https://cdn.example.com/v.mp4",
		Caption:  "reel caption",
	})
	if err != nil {
		t.Fatalf("Upload() = %v, want nil", err)
	}
	if res.ID != "media9" {
		t.Errorf("ID = %q, want media9", res.ID)
	}
	if res.Extra["cross_posted_to_facebook"] != "false" {
		t.Errorf("cross_posted_to_facebook = %q, want false", res.Extra["cross_posted_to_facebook"])
	}
	if fake.polls != 3 {
		t.Errorf("polled %d times, want 3", fake.polls)
	}
	if fake.createReq["media_type"] != "REELS" || fake.createReq["caption"] != "reel caption" {
		t.Errorf("create params = %v", fake.createReq)
	}
	if _, ok := fake.createReq["collaborate_with_sharing_on_facebook"]; ok {
		t.Error("cross-post flag sent without a page id")
	}
}

func TestInstagramUploadCrossPost(t *testing.T) {
	fake := &instagramFake{states: []string{"FINISHED"}}
	srv := fake.server()
	defer srv.Close()

	up := newTestInstagramUploader(srv, MetaCredentials{AccessToken: "tok", InstagramUserID: "ig1", PageID: "page1"}, 10)

	res, err := up.Upload(context.Background(), &Request{VideoURL: "https://cdn.example.com/v.mp4"})
	if err != nil {
		t.Fatalf("Upload() = %v, want nil", err)
	}
	if res.Extra["cross_posted_to_facebook"] != "true" {
		t.Errorf("cross_posted_to_facebook = %q, want true", res.Extra["cross_posted_to_facebook"])
	}
	if fake.createReq["collaborate_with_sharing_on_facebook"] != "true" {
		t.Errorf("create params = %v, want cross-post flag", fake.createReq)
	}
}

func TestInstagramUploadContainerError(t *testing.T) {
	fake := &instagramFake{states: []string{"ERROR"}}
	srv := fake.server()
	defer srv.Close()

	up := newTestInstagramUploader(srv, MetaCredentials{AccessToken: "tok", InstagramUserID: "ig1"}, 10)

	_, err := up.Upload(context.Background(), &Request{VideoURL: "https://cdn.example.com/v.mp4"})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Upload() = %v, want UpstreamError", err)
	}
	if fake.polls != 1 {
		t.Errorf("polled %d times after terminal ERROR, want 1", fake.polls)
	}
	if fake.published != 0 {
		t.Errorf("published %d times, want 0", fake.published)
	}
}

func TestInstagramUploadTimesOut(t *testing.T) {
	fake := &instagramFake{states: []string{"IN_PROGRESS"}}
	srv := fake.server()
	defer srv.Close()

	up := newTestInstagramUploader(srv, MetaCredentials{AccessToken: "tok", InstagramUserID: "ig1"}, 5)

	_, err := up.Upload(context.Background(), &Request{VideoURL: "https://cdn.example.com/v.mp4"})
	if !errors.Is(err, ErrContainerTimeout) {
		t.Fatalf("Upload() = %v, want ErrContainerTimeout", err)
	}
	if fake.polls != 5 {
		t.Errorf("polled %d times, want 5", fake.polls)
	}
	if fake.published != 0 {
		t.Errorf("published %d times, want 0", fake.published)
	}
}

func TestInstagramUploadMissingUserID(t *testing.T) {
	up := NewInstagramUploader(MetaCredentials{AccessToken: "tok"}, Poller{MaxAttempts: 1, Sleep: noSleep}, time.Minute, time.Minute, zerolog.Nop())

	_, err := up.Upload(context.Background(), &Request{VideoURL: "https://cdn.example.com/v.mp4"})
	var missing *MissingConfigError
	if !errors.As(err, &missing) {
		t.Fatalf("Upload() = %v, want MissingConfigError", err)
	}
}
