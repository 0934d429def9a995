package git

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoOrigin is returned when no origin remote can be found.
var ErrNoOrigin = errors.New("no origin remote found in .git/config")

// Remote is the origin of a local clone.
type Remote struct {
	Host  string
	Owner string
	Name  string
	URL   string
}

// HostURL returns the web address of the host the remote lives on.
func (r Remote) HostURL() string {
	return "https://" + r.Host
}

// DetectRemote finds the enclosing git repository of dir, walking up
// parent directories, and returns its origin remote.
func DetectRemote(dir string) (Remote, error) {
	root, err := findRoot(dir)
	if err != nil {
		return Remote{}, err
	}
	configPath := filepath.Join(root, ".git", "config")
	f, err := os.Open(configPath)
	if err != nil {
		return Remote{}, fmt.Errorf("could not open .git/config: %w", err)
	}
	defer f.Close()

	var inOrigin bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == `[remote "origin"]` {
			inOrigin = true
			continue
		}
		if inOrigin && strings.HasPrefix(line, "[") {
			break
		}
		if inOrigin && strings.HasPrefix(line, "url") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				return ParseRemoteURL(strings.TrimSpace(parts[1]))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Remote{}, fmt.Errorf("reading .git/config: %w", err)
	}
	return Remote{}, ErrNoOrigin
}

func findRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	for {
		if info, err := os.Stat(filepath.Join(abs, ".git")); err == nil && info.IsDir() {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not a git repository: %s", dir)
		}
		abs = parent
	}
}

// ParseRemoteURL parses a git remote URL into a Remote.
// Supports HTTPS (https://github.com/owner/repo.git), SCP-like SSH
// (git@github.com:owner/repo.git) and ssh:// URLs. URL keeps the input unchanged.
func ParseRemoteURL(rawURL string) (Remote, error) {
	normalized := strings.TrimSuffix(strings.TrimSpace(rawURL), ".git")

	var host, path string
	switch {
	case strings.HasPrefix(normalized, "https://"), strings.HasPrefix(normalized, "http://"),
		strings.HasPrefix(normalized, "ssh://"):
		withoutScheme := normalized[strings.Index(normalized, "://")+3:]
		parts := strings.SplitN(withoutScheme, "/", 2)
		if len(parts) != 2 {
			return Remote{}, fmt.Errorf("invalid remote URL: %s", rawURL)
		}
		host, path = parts[0], parts[1]
		// drop credentials and ports
		if at := strings.LastIndex(host, "@"); at >= 0 {
			host = host[at+1:]
		}
		if colon := strings.Index(host, ":"); colon >= 0 {
			host = host[:colon]
		}

	case strings.Contains(normalized, "@") && strings.Contains(normalized, ":"):
		trimmed := normalized[strings.Index(normalized, "@")+1:]
		parts := strings.SplitN(trimmed, ":", 2)
		host, path = parts[0], parts[1]

	default:
		return Remote{}, fmt.Errorf("unsupported remote URL format: %s", rawURL)
	}

	ownerRepo := strings.SplitN(strings.Trim(path, "/"), "/", 2)
	if host == "" || len(ownerRepo) != 2 || ownerRepo[0] == "" || ownerRepo[1] == "" {
		return Remote{}, fmt.Errorf("invalid remote URL path: %s", rawURL)
	}
	return Remote{
		Host:  strings.ToLower(host),
		Owner: ownerRepo[0],
		Name:  ownerRepo[1],
		URL:   rawURL,
	}, nil
}
