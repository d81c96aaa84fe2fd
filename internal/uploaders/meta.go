package uploaders

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	graphAPIVersion = "v24.0"
	graphAPIBase    = "https://graph.facebook.com/" + graphAPIVersion
)

// MetaCredentials is a long-lived user access token plus the target
// container ids. PageID targets a Facebook Page; InstagramUserID an
// Instagram Business account. For Instagram uploads PageID is optional
// and only enables cross-posting.
type MetaCredentials struct {
	AccessToken     string
	PageID          string
	InstagramUserID string
}

// postForm sends a form-encoded Graph API request and returns the
// parsed body. Non-2xx responses become UpstreamErrors carrying the
// structured error message.
func postForm(ctx context.Context, client *http.Client, endpoint string, params url.Values) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, graphError(resp.StatusCode, b)
	}
	return gjson.ParseBytes(b), nil
}

func graphError(status int, body []byte) error {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = truncate(string(body), 200)
	}
	return &UpstreamError{Code: status, Message: msg}
}
