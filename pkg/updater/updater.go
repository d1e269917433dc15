// Package updater checks GitHub for a newer release of the client
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	GitHubRepo = "aeolun/loungechat"
	apiBaseURL = "https://api.github.com"
)

// Release represents a GitHub release
type Release struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// Checker queries the GitHub releases API
type Checker struct {
	Repo    string
	BaseURL string
	Client  *http.Client
}

// NewChecker returns a checker for the default repository
func NewChecker() *Checker {
	return &Checker{
		Repo:    GitHubRepo,
		BaseURL: apiBaseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// LatestRelease fetches the latest published release
func (c *Checker) LatestRelease(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", strings.TrimSuffix(c.BaseURL, "/"), c.Repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release info: %w", err)
	}
	if release.TagName == "" {
		return nil, fmt.Errorf("release has no tag")
	}
	return &release, nil
}

// CheckLatestVersion fetches the latest version tag
func (c *Checker) CheckLatestVersion(ctx context.Context) (string, error) {
	release, err := c.LatestRelease(ctx)
	if err != nil {
		return "", err
	}
	return release.TagName, nil
}

// CompareVersions returns true if newVersion is newer than currentVersion.
// Versions are dotted numbers with an optional "v" prefix and an optional
// "-suffix" which sorts before the plain release. "dev" builds never update.
func CompareVersions(currentVersion, newVersion string) bool {
	current := strings.TrimPrefix(currentVersion, "v")
	latest := strings.TrimPrefix(newVersion, "v")

	if current == "dev" || current == "" || latest == "" {
		return false
	}

	curNums, curPre := splitVersion(current)
	newNums, newPre := splitVersion(latest)

	for i := 0; i < max(len(curNums), len(newNums)); i++ {
		var a, b int
		if i < len(curNums) {
			a = curNums[i]
		}
		if i < len(newNums) {
			b = newNums[i]
		}
		if a != b {
			return b > a
		}
	}

	// Same numbers: a release beats a pre-release
	if curPre != "" && newPre == "" {
		return true
	}
	if curPre != "" && newPre != "" {
		return newPre > curPre
	}
	return false
}

// splitVersion parses "1.2.3-rc1" into [1 2 3] and "rc1"; non-numeric
// parts count as zero
func splitVersion(v string) ([]int, string) {
	core, pre, _ := strings.Cut(v, "-")
	parts := strings.Split(core, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err == nil {
			nums[i] = n
		}
	}
	return nums, pre
}
