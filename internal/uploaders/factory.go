package uploaders

import (
	"fmt"

	"github.com/rs/zerolog"

	"crosspost/internal"
)

// Factory builds the uploader variant for a platform from resolved
// credentials. Uploaders are per-attempt: credentials are channel
// scoped, so nothing here is cached.
type Factory struct {
	cfg internal.Config
	log zerolog.Logger
}

func NewFactory(cfg internal.Config, log zerolog.Logger) *Factory {
	return &Factory{cfg: cfg, log: log}
}

func (f *Factory) ForPlatform(platform string, creds map[string]string) (Uploader, error) {
	switch platform {
	case PlatformYouTube:
		return NewYouTubeUploader(
			YouTubeCredentials{
				ClientID:     creds["client_id"],
				ClientSecret: creds["client_secret"],
				RefreshToken: creds["refresh_token"],
			},
			f.cfg.YouTubeChunkSize,
			RetryPolicy{MaxRetries: f.cfg.YouTubeMaxRetries},
			f.cfg.YouTubeTimeout,
			f.log,
		), nil

	case PlatformTikTok:
		return NewTikTokUploader(creds["session_cookie"], TikTokConfig{
			NavigationTimeout: f.cfg.TikTokNavigationTimeout,
			ProcessingTimeout: f.cfg.TikTokProcessingTimeout,
			StepTimeout:       f.cfg.TikTokStepTimeout,
			SettleDelay:       f.cfg.TikTokSettleDelay,
			Headless:          f.cfg.TikTokHeadless,
			ScreenshotDir:     f.cfg.ScreenshotDir,
		}, f.log), nil

	case PlatformFacebook:
		return NewFacebookUploader(MetaCredentials{
			AccessToken: creds["access_token"],
			PageID:      creds["page_id"],
		}, f.cfg.GraphUploadTimeout, f.log), nil

	case PlatformInstagram:
		return NewInstagramUploader(
			MetaCredentials{
				AccessToken:     creds["access_token"],
				InstagramUserID: creds["user_id"],
				PageID:          creds["page_id"], // optional, enables cross-posting
			},
			Poller{
				Interval:    f.cfg.ContainerPollInterval,
				MaxAttempts: f.cfg.ContainerMaxAttempts,
			},
			f.cfg.GraphUploadTimeout,
			f.cfg.GraphPollTimeout,
			f.log,
		), nil

	default:
		return nil, fmt.Errorf("no uploader for platform %q", platform)
	}
}

// NeedsLocalFile mirrors the package-level table so callers holding a
// Factory interface can make the pre-download decision.
func (f *Factory) NeedsLocalFile(platform string) bool {
	return NeedsLocalFile(platform)
}
