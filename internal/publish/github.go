// Package publish implements the Publishing phase (§4.7): uploading
// rendered MP3s to a GitHub-Releases-shaped artifact host under a daily
// tag, and recording the resulting public asset URL. No GitHub client
// library exists anywhere in the reference corpus, so the client here is
// a raw net/http caller against api.github.com, grounded on the teacher's
// callOllama raw-HTTP idiom (build request, check status class, decode
// JSON) rather than a generated SDK.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
)

const apiBase = "https://api.github.com"

// GitHubClient is a minimal client against the subset of the GitHub
// Releases REST API the Publishing phase needs: ensure-tag, upload-asset,
// list-tags, delete-tag.
type GitHubClient struct {
	Client *http.Client
	Token  string
	Owner  string
	Repo   string
}

func NewGitHubClient(token, owner, repo string) *GitHubClient {
	return &GitHubClient{Client: &http.Client{Timeout: 2 * time.Minute}, Token: token, Owner: owner, Repo: repo}
}

type release struct {
	ID        int64  `json:"id"`
	TagName   string `json:"tag_name"`
	UploadURL string `json:"upload_url"`
	HTMLURL   string `json:"html_url"`
}

type asset struct {
	BrowserDownloadURL string `json:"browser_download_url"`
}

// EnsureTag returns the release id for tag, creating a draftless release
// under that tag if one does not already exist (idempotent — §4.7 step 1).
func (c *GitHubClient) EnsureTag(ctx context.Context, tag string) (int64, error) {
	rel, err := c.getReleaseByTag(ctx, tag)
	if err == nil {
		return rel.ID, nil
	}
	if !isNotFound(err) {
		return 0, err
	}

	body, _ := json.Marshal(map[string]interface{}{
		"tag_name": tag,
		"name":     tag,
	})
	req, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/releases", c.Owner, c.Repo), bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	var created release
	if err := c.do(req, http.StatusCreated, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

func (c *GitHubClient) getReleaseByTag(ctx context.Context, tag string) (release, error) {
	var rel release
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s/releases/tags/%s", c.Owner, c.Repo, tag), nil)
	if err != nil {
		return rel, err
	}
	err = c.do(req, http.StatusOK, &rel)
	return rel, err
}

// UploadAsset uploads the file at localPath to the release identified by
// releaseID with the given MIME type, returning the asset's public
// download URL (§4.7 steps 2-3).
func (c *GitHubClient) UploadAsset(ctx context.Context, releaseID int64, localPath, mimeType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open asset %s: %w", localPath, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat asset %s: %w", localPath, err)
	}

	uploadURL := fmt.Sprintf("https://uploads.github.com/repos/%s/%s/releases/%d/assets?name=%s",
		c.Owner, c.Repo, releaseID, filepath.Base(localPath))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, f)
	if err != nil {
		return "", fmt.Errorf("build asset upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", mimeType)
	req.ContentLength = info.Size()

	var a asset
	if err := c.do(req, http.StatusCreated, &a); err != nil {
		return "", err
	}
	return a.BrowserDownloadURL, nil
}

// ListTags returns every release tag name on the repository.
func (c *GitHubClient) ListTags(ctx context.Context) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s/releases?per_page=100", c.Owner, c.Repo), nil)
	if err != nil {
		return nil, err
	}
	var releases []release
	if err := c.do(req, http.StatusOK, &releases); err != nil {
		return nil, err
	}
	tags := make([]string, len(releases))
	for i, r := range releases {
		tags[i] = r.TagName
	}
	return tags, nil
}

// DeleteTag removes the release (and its assets) under tag, used by
// Retention (§4.8) once every digest referencing that day is gone.
func (c *GitHubClient) DeleteTag(ctx context.Context, tag string) error {
	rel, err := c.getReleaseByTag(ctx, tag)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/repos/%s/%s/releases/%d", c.Owner, c.Repo, rel.ID), nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusNoContent, nil)
}

func (c *GitHubClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, apiBase+path, body)
	if err != nil {
		return nil, fmt.Errorf("build github request %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *GitHubClient) do(req *http.Request, wantStatus int, out interface{}) error {
	resp, err := c.Client.Do(req)
	if err != nil {
		return taxonomy.NewTransient("github api call", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &notFoundError{}
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return taxonomy.NewTransient("github api call", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != wantStatus {
		return taxonomy.NewInputInvalid(fmt.Sprintf("github api returned status %d, wanted %d", resp.StatusCode, wantStatus), nil)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "github resource not found" }

func isNotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}

// DailyTag returns the tag name for a given digest date ("daily-YYYY-MM-DD").
func DailyTag(t time.Time) string {
	return "daily-" + t.Format("2006-01-02")
}
