package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/downcida/internal/shared"
)

var (
	// Spotify ids are 22 base62 characters.
	trackIDPattern = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)
	trackPath      = regexp.MustCompile(`^/(?:intl-[a-z]{2}(?:-[a-z]{2})?/)?track/([0-9A-Za-z]{22})/?$`)
)

// ParseTrackID accepts a bare track id, an open.spotify.com track URL, or a spotify:track: URI and returns the id.
func ParseTrackID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	if trackIDPattern.MatchString(input) {
		return input, nil
	}

	if rest, ok := strings.CutPrefix(input, "spotify:track:"); ok {
		if trackIDPattern.MatchString(rest) {
			return rest, nil
		}
		return "", fmt.Errorf("%w: %q is not a valid track URI", shared.ErrInvalidArgument, input)
	}

	u, err := url.Parse(input)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host != "open.spotify.com" {
		return "", fmt.Errorf("%w: %q is not a track id, URL, or URI", shared.ErrInvalidArgument, input)
	}

	m := trackPath.FindStringSubmatch(u.Path)
	if m == nil {
		return "", fmt.Errorf("%w: %q is not a track URL", shared.ErrInvalidArgument, input)
	}
	return m[1], nil
}
