package publish

// Result statuses.
const (
	StatusSuccess   = "success"
	StatusValidated = "validated"
	StatusError     = "error"
)

// PlatformAll marks the single result returned when the shared media
// download fails before any per-platform attempt.
const PlatformAll = "all"

// Job is one request to publish a single video to an ordered set of
// platforms. Duplicate platforms are allowed and each gets its own
// attempt.
type Job struct {
	ChannelID   string
	VideoURL    string
	Platforms   []string
	Title       string
	Description string
	Caption     string
	DryRun      bool
}

// PlatformResult is the outcome of one platform attempt. Exactly one is
// produced per requested platform, in request order.
type PlatformResult struct {
	Platform string            `json:"platform"`
	Status   string            `json:"status"`
	Message  string            `json:"message,omitempty"`
	ID       string            `json:"id,omitempty"`
	URL      string            `json:"url,omitempty"`
	Code     int               `json:"code,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}
