package youtube

import (
	"net/url"
	"strings"

	appErr "github.com/xxxsen/askyt/internal/pkg/errors"
)

// ExtractVideoID resolves the video identifier from the usual YouTube URL
// shapes: youtu.be short links, /watch?v=, /embed/ and /v/ paths.
func ExtractVideoID(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", appErr.ErrInvalid
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", appErr.ErrInvalid
	}
	host := parsed.Hostname()
	switch host {
	case "youtu.be":
		id := strings.TrimPrefix(parsed.Path, "/")
		if id == "" {
			return "", appErr.ErrInvalid
		}
		return id, nil
	case "www.youtube.com", "youtube.com", "m.youtube.com":
		if parsed.Path == "/watch" {
			id := parsed.Query().Get("v")
			if id == "" {
				return "", appErr.ErrInvalid
			}
			return id, nil
		}
		for _, prefix := range []string{"/embed/", "/v/", "/shorts/"} {
			if strings.HasPrefix(parsed.Path, prefix) {
				id := strings.TrimPrefix(parsed.Path, prefix)
				if idx := strings.Index(id, "/"); idx >= 0 {
					id = id[:idx]
				}
				if id == "" {
					return "", appErr.ErrInvalid
				}
				return id, nil
			}
		}
	}
	return "", appErr.ErrInvalid
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}
