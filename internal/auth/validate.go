package auth

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"
)

var (
	legacyPATPattern      = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)
	classicPATPattern     = regexp.MustCompile(`^ghp_[A-Za-z0-9]{36,251}$`)
	fineGrainedPATPattern = regexp.MustCompile(`^github_pat_[A-Za-z0-9]{22}_[A-Za-z0-9]{59}$`)
)

// IsValidPAT reports whether token looks like a GitHub personal access token:
// a legacy 40 character hex token, a ghp_ classic token, or a github_pat_ fine-grained token.
func IsValidPAT(token string) bool {
	return legacyPATPattern.MatchString(token) ||
		classicPATPattern.MatchString(token) ||
		fineGrainedPATPattern.MatchString(token)
}

// BasicAuthHeader returns the value of an Authorization header for HTTP Basic auth.
func BasicAuthHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// IsEnterprise reports whether authURL points at a GitHub Enterprise instance,
// that is anything other than github.com or api.github.com.
// Empty and unparsable URLs are not Enterprise.
func IsEnterprise(authURL string) bool {
	if authURL == "" {
		return false
	}
	u, err := url.Parse(authURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	switch strings.ToLower(u.Hostname()) {
	case "github.com", "api.github.com":
		return false
	}
	return true
}

// Newlineify wraps str at roughly width characters without breaking words.
// Every word is preceded by either a space or a newline.
func Newlineify(width int, str string) string {
	var b strings.Builder
	lineLen := 0
	for _, word := range strings.Split(str, " ") {
		if lineLen+len(word) > width {
			b.WriteByte('\n')
			lineLen = 0
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}
