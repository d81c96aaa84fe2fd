package uploaders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

const youtubeUploadURL = "https://www.googleapis.com/upload/youtube/v3/videos"

// Defaults mirrored from the channel tooling: private until reviewed,
// "Education" category.
const (
	youtubeDefaultPrivacy  = "private"
	youtubeDefaultCategory = "27"
)

// YouTubeCredentials rebuilds an OAuth2 session from a stored refresh
// token.
type YouTubeCredentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// YouTubeUploader uploads a local video with the Data API v3 resumable
// protocol: start a session, then send fixed-size chunks, retrying
// transient failures with exponential backoff.
type YouTubeUploader struct {
	creds     YouTubeCredentials
	chunkSize int64
	retry     RetryPolicy
	timeout   time.Duration
	log       zerolog.Logger

	// BaseURL and HTTPClient are overridable for tests. A nil client
	// means an OAuth2 client built from the refresh token.
	BaseURL    string
	HTTPClient *http.Client
}

func NewYouTubeUploader(creds YouTubeCredentials, chunkSize int64, retry RetryPolicy, timeout time.Duration, log zerolog.Logger) *YouTubeUploader {
	return &YouTubeUploader{
		creds:     creds,
		chunkSize: chunkSize,
		retry:     retry,
		timeout:   timeout,
		log:       log,
		BaseURL:   youtubeUploadURL,
	}
}

func (y *YouTubeUploader) Platform() string { return PlatformYouTube }

func (y *YouTubeUploader) client(ctx context.Context) *http.Client {
	if y.HTTPClient != nil {
		return y.HTTPClient
	}
	conf := &oauth2.Config{
		ClientID:     y.creds.ClientID,
		ClientSecret: y.creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	return conf.Client(ctx, &oauth2.Token{RefreshToken: y.creds.RefreshToken})
}

func (y *YouTubeUploader) Upload(ctx context.Context, req *Request) (*Result, error) {
	info, err := os.Stat(req.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("video file not found: %w", err)
	}
	size := info.Size()

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	client := y.client(ctx)

	title := req.Title
	if title == "" {
		title = "Untitled Video"
	}

	sessionURL, err := y.startSession(ctx, client, title, req.Description, size)
	if err != nil {
		return nil, err
	}

	videoID, err := y.sendChunks(ctx, client, sessionURL, req.VideoPath, size)
	if err != nil {
		return nil, err
	}

	return &Result{
		ID:  videoID,
		URL: "https://www.youtube.com/watch?v=" + videoID,
	}, nil
}

// startSession posts the video metadata and returns the resumable
// session URL. Failures here are not retried.
func (y *YouTubeUploader) startSession(ctx context.Context, client *http.Client, title, description string, size int64) (string, error) {
	body := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			CategoryId:  youtubeDefaultCategory,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           youtubeDefaultPrivacy,
			SelfDeclaredMadeForKids: false,
			ContainsSyntheticMedia:  false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	u := y.BaseURL + "?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Upload-Content-Type", "video/*")
	req.Header.Set("X-Upload-Content-Length", fmt.Sprintf("%d", size))

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("start resumable session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", upstreamFromResponse(resp)
	}

	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", fmt.Errorf("resumable session returned no upload location")
	}
	return loc, nil
}

// sendChunks streams the file to the session URL in fixed-size chunks.
// A retriable status or transport error repeats the same chunk after a
// backoff; the retry count is cumulative across the whole upload.
func (y *YouTubeUploader) sendChunks(ctx context.Context, client *http.Client, sessionURL, path string, size int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, y.chunkSize)
	retries := 0

	var offset int64
	for offset < size {
		n, err := io.ReadFull(f, buf)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			err = nil
		}
		if err != nil {
			return "", fmt.Errorf("read chunk at %d: %w", offset, err)
		}
		chunk := buf[:n]
		end := offset + int64(n)

		for {
			videoID, done, retriable, err := y.putChunk(ctx, client, sessionURL, chunk, offset, end, size)
			if err == nil {
				if done {
					return videoID, nil
				}
				break
			}
			if !retriable {
				return "", err
			}

			retries++
			y.log.Warn().Err(err).Int("retry", retries).Msg("youtube: transient upload failure")
			if werr := y.retry.Wait(ctx, retries); werr != nil {
				return "", werr
			}
		}

		offset = end
		y.log.Info().
			Int("progress", int(float64(offset)/float64(size)*100)).
			Msg("youtube: upload progress")
	}

	return "", fmt.Errorf("upload ended without a final response")
}

// putChunk sends one Content-Range slice. done reports that the server
// accepted the final chunk and returned the video resource.
func (y *YouTubeUploader) putChunk(ctx context.Context, client *http.Client, sessionURL string, chunk []byte, start, end, total int64) (videoID string, done, retriable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, bytes.NewReader(chunk))
	if err != nil {
		return "", false, false, err
	}
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, total))
	req.Header.Set("Content-Type", "video/*")

	resp, err := client.Do(req)
	if err != nil {
		return "", false, true, fmt.Errorf("send chunk: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", false, false, err
		}
		id := gjson.GetBytes(b, "id").String()
		if id == "" {
			return "", false, false, fmt.Errorf("upload response carried no video id")
		}
		return id, true, false, nil

	case resp.StatusCode == 308: // resume incomplete, next chunk
		return "", false, false, nil

	case retriableStatus(resp.StatusCode):
		b, _ := io.ReadAll(resp.Body)
		return "", false, true, fmt.Errorf("chunk rejected with status %d: %s", resp.StatusCode, truncate(string(b), 200))

	default:
		return "", false, false, upstreamFromResponse(resp)
	}
}

// upstreamFromResponse folds a non-retriable API response into an
// UpstreamError, pulling the structured message when one is present.
func upstreamFromResponse(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	msg := gjson.GetBytes(b, "error.message").String()
	if msg == "" {
		msg = truncate(string(b), 200)
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &UpstreamError{Code: resp.StatusCode, Message: msg}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
