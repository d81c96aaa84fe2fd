package uploaders

import "context"

// Supported platform identifiers.
const (
	PlatformYouTube   = "youtube"
	PlatformTikTok    = "tiktok"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
)

// Request carries one video and its metadata into an upload attempt.
// VideoPath is set only for uploaders that work from a local file;
// VideoURL is the public locator used by remote-fetch uploaders.
type Request struct {
	VideoPath   string
	VideoURL    string
	Title       string
	Description string
	Caption     string
}

// Result is the normalized outcome of a successful upload.
type Result struct {
	ID      string            // remote-assigned video/media/post id
	URL     string            // canonical viewing URL, when the platform has one
	Message string            // optional human-readable note
	Extra   map[string]string // platform-specific fields (e.g. cross-post flag)
}

// Uploader is one platform's upload mechanics.
type Uploader interface {
	Upload(ctx context.Context, req *Request) (*Result, error)
	Platform() string
}

// NeedsLocalFile reports whether a platform's uploader works from a
// local copy of the video rather than the public URL.
func NeedsLocalFile(platform string) bool {
	switch platform {
	case PlatformYouTube, PlatformTikTok:
		return true
	default:
		return false
	}
}

// Known reports whether a platform has an uploader variant.
func Known(platform string) bool {
	switch platform {
	case PlatformYouTube, PlatformTikTok, PlatformFacebook, PlatformInstagram:
		return true
	default:
		return false
	}
}
