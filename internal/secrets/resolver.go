package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Required key types per platform. A platform missing from this table is
// unknown to the publisher.
var requiredKeys = map[string][]string{
	"youtube":   {"client_id", "client_secret", "refresh_token"},
	"tiktok":    {"session_cookie"},
	"facebook":  {"access_token", "page_id"},
	"instagram": {"access_token", "user_id"},
}

// RequiredKeys returns the key types a platform needs, and whether the
// platform is known at all.
func RequiredKeys(platform string) ([]string, bool) {
	keys, ok := requiredKeys[strings.ToLower(platform)]
	return keys, ok
}

// SecretName builds a secret name following the channel-scoped pattern,
// e.g. ("timeline_b", "youtube", "refresh_token") ->
// "TIMELINE_B_YOUTUBE_REFRESH_TOKEN".
func SecretName(channel, platform, key string) string {
	return strings.ToUpper(channel) + "_" + strings.ToUpper(platform) + "_" + strings.ToUpper(key)
}

// MissingCredentialError marks a secret that does not exist in the store.
// It names the secret, never its value.
type MissingCredentialError struct {
	Secret string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("secret %s not found", e.Secret)
}

func (e *MissingCredentialError) Unwrap() error { return ErrNotFound }

// Resolver resolves channel-scoped platform credentials from a Store.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve fetches one credential. A missing secret becomes a
// MissingCredentialError; any other store failure passes through.
func (r *Resolver) Resolve(ctx context.Context, channel, platform, key string) (string, error) {
	name := SecretName(channel, platform, key)
	v, err := r.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", &MissingCredentialError{Secret: name}
		}
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	return v, nil
}

// ResolveRequired fetches the full required key set for a platform.
func (r *Resolver) ResolveRequired(ctx context.Context, channel, platform string) (map[string]string, error) {
	keys, ok := RequiredKeys(platform)
	if !ok {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}

	creds := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := r.Resolve(ctx, channel, platform, key)
		if err != nil {
			return nil, err
		}
		creds[key] = v
	}
	return creds, nil
}

// ResolveOptional fetches a credential that may legitimately be absent.
// A missing secret yields "" with no error.
func (r *Resolver) ResolveOptional(ctx context.Context, channel, platform, key string) (string, error) {
	v, err := r.Resolve(ctx, channel, platform, key)
	if err != nil {
		var missing *MissingCredentialError
		if errors.As(err, &missing) {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

// Validate reports, per platform, whether the full required key set
// resolves for the channel. Unknown platforms validate to false.
func (r *Resolver) Validate(ctx context.Context, channel string, platforms []string) map[string]bool {
	result := make(map[string]bool, len(platforms))
	for _, platform := range platforms {
		_, err := r.ResolveRequired(ctx, channel, platform)
		result[platform] = err == nil
	}
	return result
}
