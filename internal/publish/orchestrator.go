package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"crosspost/internal/secrets"
	"crosspost/internal/uploaders"
)

// UploaderFactory builds the uploader variant for a platform from its
// resolved credentials.
type UploaderFactory interface {
	ForPlatform(platform string, creds map[string]string) (uploaders.Uploader, error)
	NeedsLocalFile(platform string) bool
}

// Orchestrator owns the job lifecycle: one optional shared download,
// then one attempt per requested platform, in request order. A platform
// failure never stops the loop; only a failed download aborts the job.
type Orchestrator struct {
	log      zerolog.Logger
	resolver *secrets.Resolver
	factory  UploaderFactory
	fetcher  MediaFetcher
}

func New(log zerolog.Logger, resolver *secrets.Resolver, factory UploaderFactory, fetcher MediaFetcher) *Orchestrator {
	return &Orchestrator{
		log:      log,
		resolver: resolver,
		factory:  factory,
		fetcher:  fetcher,
	}
}

// Publish runs one job to completion and returns exactly one result per
// requested platform, in request order — except when the shared
// download fails, which yields a single "all" error result.
func (o *Orchestrator) Publish(ctx context.Context, job Job) []PlatformResult {
	log := o.log.With().Str("channel_id", job.ChannelID).Logger()
	log.Info().Strs("platforms", job.Platforms).Bool("dry_run", job.DryRun).Msg("publish: starting")

	if job.DryRun {
		return o.validateOnly(ctx, job)
	}

	videoPath := ""
	needsLocal := lo.SomeBy(job.Platforms, o.factory.NeedsLocalFile)
	if needsLocal {
		tmpDir, err := os.MkdirTemp("", "crosspost-*")
		if err != nil {
			return []PlatformResult{{
				Platform: PlatformAll,
				Status:   StatusError,
				Message:  fmt.Sprintf("video download failed: %v", err),
			}}
		}
		defer os.RemoveAll(tmpDir)

		videoPath = filepath.Join(tmpDir, filenameFromURL(job.VideoURL))
		log.Info().Str("url", job.VideoURL).Msg("publish: downloading video")
		if err := o.fetcher.Fetch(ctx, job.VideoURL, videoPath); err != nil {
			log.Error().Err(err).Msg("publish: video download failed")
			return []PlatformResult{{
				Platform: PlatformAll,
				Status:   StatusError,
				Message:  err.Error(),
			}}
		}
	}

	results := make([]PlatformResult, 0, len(job.Platforms))
	for _, platform := range job.Platforms {
		log.Info().Str("platform", platform).Msg("publish: uploading")
		res := o.uploadOne(ctx, job, platform, videoPath)
		if res.Status == StatusSuccess {
			log.Info().Str("platform", platform).Str("id", res.ID).Msg("publish: upload succeeded")
		} else {
			log.Error().Str("platform", platform).Str("message", res.Message).Msg("publish: upload failed")
		}
		results = append(results, res)
	}

	summary := Summarize(results)
	log.Info().
		Int("succeeded", summary.SuccessCount).
		Int("total", len(results)).
		Msg("publish: complete")
	return results
}

// uploadOne runs a single platform attempt. Every failure — including a
// panic inside an uploader — is folded into an error result so the
// orchestration loop keeps going.
func (o *Orchestrator) uploadOne(ctx context.Context, job Job, platform, videoPath string) (res PlatformResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Str("platform", platform).Any("panic", r).Msg("publish: uploader panicked")
			res = PlatformResult{
				Platform: platform,
				Status:   StatusError,
				Message:  fmt.Sprintf("internal failure: %v", r),
			}
		}
	}()

	creds, err := o.resolveCredentials(ctx, job.ChannelID, platform)
	if err != nil {
		return errorResult(platform, err)
	}

	up, err := o.factory.ForPlatform(platform, creds)
	if err != nil {
		return errorResult(platform, err)
	}

	result, err := up.Upload(ctx, &uploaders.Request{
		VideoPath:   videoPath,
		VideoURL:    job.VideoURL,
		Title:       job.Title,
		Description: job.Description,
		Caption:     job.Caption,
	})
	if err != nil {
		return errorResult(platform, err)
	}

	return PlatformResult{
		Platform: platform,
		Status:   StatusSuccess,
		Message:  result.Message,
		ID:       result.ID,
		URL:      result.URL,
		Extra:    result.Extra,
	}
}

// resolveCredentials fetches the platform's required key set, plus the
// optional cross-post page id for instagram.
func (o *Orchestrator) resolveCredentials(ctx context.Context, channel, platform string) (map[string]string, error) {
	creds, err := o.resolver.ResolveRequired(ctx, channel, platform)
	if err != nil {
		return nil, err
	}

	if platform == uploaders.PlatformInstagram {
		pageID, err := o.resolver.ResolveOptional(ctx, channel, platform, "page_id")
		if err != nil {
			return nil, err
		}
		if pageID != "" {
			creds["page_id"] = pageID
		}
	}
	return creds, nil
}

// validateOnly resolves required credentials per platform without
// touching the fetcher or any uploader network path.
func (o *Orchestrator) validateOnly(ctx context.Context, job Job) []PlatformResult {
	results := make([]PlatformResult, 0, len(job.Platforms))
	for _, platform := range job.Platforms {
		if _, err := o.resolver.ResolveRequired(ctx, job.ChannelID, platform); err != nil {
			results = append(results, errorResult(platform, err))
			continue
		}
		results = append(results, PlatformResult{
			Platform: platform,
			Status:   StatusValidated,
			Message:  "secrets found",
		})
	}
	return results
}

// errorResult folds the error taxonomy into a platform result: upstream
// rejections keep their status code, automation failures keep the
// screenshot reference.
func errorResult(platform string, err error) PlatformResult {
	res := PlatformResult{
		Platform: platform,
		Status:   StatusError,
		Message:  err.Error(),
	}

	var upstream *uploaders.UpstreamError
	if errors.As(err, &upstream) {
		res.Message = upstream.Message
		res.Code = upstream.Code
	}

	var step *uploaders.StepError
	if errors.As(err, &step) && step.Screenshot != "" {
		res.Extra = map[string]string{"screenshot": step.Screenshot}
	}
	return res
}
