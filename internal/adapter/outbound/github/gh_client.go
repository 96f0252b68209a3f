package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"
)

// Scheme prefixes locations served from a GitHub repository.
const Scheme = "github://"

// Location is a parsed github://owner/repo/path/to/file[@ref] URL.
type Location struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
}

// ParseLocation parses a github:// URL into its components.
func ParseLocation(githubURL string) (Location, error) {
	if !IsGitHubURL(githubURL) {
		return Location{}, fmt.Errorf("invalid GitHub URL format: %s", githubURL)
	}
	rest := strings.TrimPrefix(githubURL, Scheme)

	var loc Location
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		loc.Ref = rest[at+1:]
		rest = rest[:at]
	}

	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Location{}, fmt.Errorf("invalid GitHub URL format: expected github://owner/repo/path/to/file")
	}
	loc.Owner, loc.Repo, loc.Path = parts[0], parts[1], parts[2]
	return loc, nil
}

// ContentsAPIPath returns the REST path of the contents endpoint for loc.
func (l Location) ContentsAPIPath() string {
	p := fmt.Sprintf("repos/%s/%s/contents/%s", l.Owner, l.Repo, l.Path)
	if l.Ref != "" {
		p += "?ref=" + l.Ref
	}
	return p
}

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// GHClient wraps the gh CLI to read files from GitHub repositories.
type GHClient struct {
	run CommandRunner
}

// NewGHClient creates a client that shells out to gh.
func NewGHClient() *GHClient {
	return &GHClient{run: execRunner}
}

// NewGHClientWithRunner creates a client using a custom command runner.
func NewGHClientWithRunner(run CommandRunner) *GHClient {
	return &GHClient{run: run}
}

// FetchFile retrieves the content of a file addressed by a github:// URL.
func (c *GHClient) FetchFile(ctx context.Context, githubURL string) ([]byte, error) {
	loc, err := ParseLocation(githubURL)
	if err != nil {
		return nil, err
	}

	out, err := c.run(ctx, "gh", "api", loc.ContentsAPIPath(), "--jq", ".content")
	if err != nil {
		return nil, err
	}

	// The contents API returns base64 with embedded newlines.
	encoded := strings.Join(strings.Fields(string(out)), "")
	if encoded == "" || encoded == "null" {
		return nil, fmt.Errorf("empty response from GitHub for %s", githubURL)
	}
	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 content: %w", err)
	}
	return content, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		switch {
		case strings.Contains(err.Error(), "executable file not found"):
			return nil, fmt.Errorf("gh CLI is not installed. Please install it from https://cli.github.com/")
		case strings.Contains(msg, "not logged in"):
			return nil, fmt.Errorf("gh CLI is not authenticated. Please run 'gh auth login' first")
		case msg != "":
			return nil, fmt.Errorf("gh command failed: %s", strings.TrimSpace(msg))
		}
		return nil, fmt.Errorf("gh command failed: %w", err)
	}
	return stdout.Bytes(), nil
}

// IsGitHubURL checks if a location uses the github:// scheme.
func IsGitHubURL(url string) bool {
	return strings.HasPrefix(url, Scheme)
}

// LoadFile fetches a github:// file with a default client.
func LoadFile(ctx context.Context, githubURL string) ([]byte, error) {
	content, err := NewGHClient().FetchFile(ctx, githubURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s from GitHub: %w", githubURL, err)
	}
	return content, nil
}
