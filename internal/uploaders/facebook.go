package uploaders

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// FacebookUploader publishes to a Facebook Page with a single request:
// the page fetches the video itself from the public URL.
type FacebookUploader struct {
	creds MetaCredentials
	log   zerolog.Logger

	// BaseURL and Client are overridable for tests.
	BaseURL string
	Client  *http.Client
}

func NewFacebookUploader(creds MetaCredentials, timeout time.Duration, log zerolog.Logger) *FacebookUploader {
	return &FacebookUploader{
		creds:   creds,
		log:     log,
		BaseURL: graphAPIBase,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (f *FacebookUploader) Platform() string { return PlatformFacebook }

func (f *FacebookUploader) Upload(ctx context.Context, req *Request) (*Result, error) {
	if f.creds.PageID == "" {
		return nil, &MissingConfigError{Field: "page_id"}
	}

	description := req.Description
	if description == "" {
		description = req.Caption
	}

	params := url.Values{}
	params.Set("access_token", f.creds.AccessToken)
	params.Set("file_url", req.VideoURL)
	params.Set("title", req.Title)
	params.Set("description", description)
	params.Set("published", "true")

	f.log.Info().Str("page_id", f.creds.PageID).Msg("facebook: publishing video")

	body, err := postForm(ctx, f.Client, f.BaseURL+"/"+f.creds.PageID+"/videos", params)
	if err != nil {
		return nil, err
	}

	videoID := body.Get("id").String()
	if videoID == "" {
		msg := body.Get("error.message").String()
		if msg == "" {
			msg = "upload response carried no video id"
		}
		return nil, &UpstreamError{Message: msg}
	}

	return &Result{
		ID:  videoID,
		URL: "https://www.facebook.com/" + f.creds.PageID + "/videos/" + videoID,
	}, nil
}
