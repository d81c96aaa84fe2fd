package uploaders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Container states reported by the Graph API while a reel is being
// processed remotely.
const (
	containerFinished = "FINISHED"
	containerError    = "ERROR"
	containerExpired  = "EXPIRED"
)

// InstagramUploader publishes a reel through the container flow:
// create a remote-fetch container, poll it until processing finishes,
// then publish the container.
type InstagramUploader struct {
	creds           MetaCredentials
	poller          Poller
	shareToFacebook bool
	log             zerolog.Logger

	// BaseURL, Client and PollClient are overridable for tests.
	BaseURL    string
	Client     *http.Client
	PollClient *http.Client
}

func NewInstagramUploader(creds MetaCredentials, poller Poller, uploadTimeout, pollTimeout time.Duration, log zerolog.Logger) *InstagramUploader {
	return &InstagramUploader{
		creds:           creds,
		poller:          poller,
		shareToFacebook: true,
		log:             log,
		BaseURL:         graphAPIBase,
		Client:          &http.Client{Timeout: uploadTimeout},
		PollClient:      &http.Client{Timeout: pollTimeout},
	}
}

func (i *InstagramUploader) Platform() string { return PlatformInstagram }

func (i *InstagramUploader) crossPosting() bool {
	return i.shareToFacebook && i.creds.PageID != ""
}

func (i *InstagramUploader) Upload(ctx context.Context, req *Request) (*Result, error) {
	if i.creds.InstagramUserID == "" {
		return nil, &MissingConfigError{Field: "user_id"}
	}

	containerID, err := i.createContainer(ctx, req)
	if err != nil {
		return nil, err
	}
	i.log.Info().Str("container_id", containerID).Msg("instagram: container created")

	if err := i.waitForContainer(ctx, containerID); err != nil {
		return nil, err
	}

	mediaID, err := i.publishContainer(ctx, containerID)
	if err != nil {
		return nil, err
	}

	return &Result{
		ID: mediaID,
		Extra: map[string]string{
			"cross_posted_to_facebook": fmt.Sprintf("%t", i.crossPosting()),
		},
	}, nil
}

// createContainer submits the remote-fetch request. HTTP failures here
// fail fast with no retry.
func (i *InstagramUploader) createContainer(ctx context.Context, req *Request) (string, error) {
	caption := req.Caption
	if caption == "" {
		caption = req.Description
	}
	if caption == "" {
		caption = req.Title
	}

	params := url.Values{}
	params.Set("access_token", i.creds.AccessToken)
	params.Set("media_type", "REELS")
	params.Set("video_url", req.VideoURL)
	params.Set("caption", caption)
	params.Set("share_to_feed", "true")
	if i.crossPosting() {
		params.Set("collaborate_with_sharing_on_facebook", "true")
	}

	body, err := postForm(ctx, i.Client, i.BaseURL+"/"+i.creds.InstagramUserID+"/media", params)
	if err != nil {
		return "", err
	}

	containerID := body.Get("id").String()
	if containerID == "" {
		return "", &UpstreamError{Message: "failed to create media container"}
	}
	return containerID, nil
}

// waitForContainer polls the container at a fixed interval until it
// reaches a terminal state or the attempt budget runs out.
func (i *InstagramUploader) waitForContainer(ctx context.Context, containerID string) error {
	statusURL := i.BaseURL + "/" + containerID +
		"?access_token=" + url.QueryEscape(i.creds.AccessToken) +
		"&fields=status_code,status"

	return i.poller.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return false, err
		}
		resp, err := i.PollClient.Do(req)
		if err != nil {
			return false, err
		}
		b, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return false, err
		}

		state := gjson.GetBytes(b, "status_code").String()
		i.log.Debug().Str("state", state).Int("attempt", attempt).Msg("instagram: container status")

		switch state {
		case containerFinished:
			return true, nil
		case containerError, containerExpired:
			detail := gjson.GetBytes(b, "status").String()
			if detail == "" {
				detail = state
			}
			return false, &UpstreamError{Message: "container processing failed: " + detail}
		default:
			return false, nil
		}
	})
}

func (i *InstagramUploader) publishContainer(ctx context.Context, containerID string) (string, error) {
	params := url.Values{}
	params.Set("access_token", i.creds.AccessToken)
	params.Set("creation_id", containerID)

	body, err := postForm(ctx, i.PollClient, i.BaseURL+"/"+i.creds.InstagramUserID+"/media_publish", params)
	if err != nil {
		return "", err
	}

	mediaID := body.Get("id").String()
	if mediaID == "" {
		return "", &UpstreamError{Message: "publish returned no media id"}
	}
	return mediaID, nil
}
