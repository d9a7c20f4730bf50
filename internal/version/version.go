// Package version carries build metadata and the release update check.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// AppName is the display name used in logs and embeds.
var AppName = "Herald"

// Version is set at build time with
// -ldflags "-X github.com/keshon/herald/internal/version.Version=v1.2.3".
var Version = "v0.0.0-dev"

// BuildDate is set at build time.
var BuildDate = ""

// Doer is the subset of *http.Client used by CheckForUpdates.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type release struct {
	TagName string `json:"tag_name"`
}

// CheckForUpdates fetches the latest release from url (a GitHub
// "releases/latest" style endpoint) and reports whether its tag is newer than
// Version.
func CheckForUpdates(ctx context.Context, client Doer, url string) (latest string, newer bool, err error) {
	current, err := semver.NewVersion(Version)
	if err != nil {
		return "", false, fmt.Errorf("invalid build version %q: %w", Version, err)
	}
	return checkAgainst(ctx, client, url, current)
}

func checkAgainst(ctx context.Context, client Doer, url string, current *semver.Version) (string, bool, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", AppName+"/"+Version)

	resp, err := client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("unexpected status from release endpoint: %s", resp.Status)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", false, fmt.Errorf("failed to decode release: %w", err)
	}
	tag := strings.TrimSpace(rel.TagName)
	if tag == "" {
		return "", false, fmt.Errorf("release has no tag")
	}

	latest, err := semver.NewVersion(tag)
	if err != nil {
		return tag, false, fmt.Errorf("invalid release tag %q: %w", tag, err)
	}
	return latest.Original(), latest.GreaterThan(current), nil
}

// String returns "Herald v1.2.3" with the build date when known.
func String() string {
	if BuildDate == "" {
		return AppName + " " + Version
	}
	return fmt.Sprintf("%s %s (%s)", AppName, Version, BuildDate)
}
