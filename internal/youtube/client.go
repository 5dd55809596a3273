package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/askyt/internal/pkg/errors"
)

const (
	oembedEndpoint = "https://www.youtube.com/oembed"
	watchEndpoint  = "https://www.youtube.com/watch"
)

var (
	lengthSecondsRe = regexp.MustCompile(`"lengthSeconds":"(\d+)"`)
	captionTracksRe = regexp.MustCompile(`"captionTracks":(\[.*?\])`)
)

// Metadata is the typed subset of the oEmbed response the pipeline keeps.
type Metadata struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ProviderName string `json:"provider_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type CaptionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// WatchInfo carries what one watch-page fetch yields: the duration in
// seconds (0 when not found) and the available caption tracks.
type WatchInfo struct {
	Duration int64
	Tracks   []CaptionTrack
}

type Snippet struct {
	Start float64
	Text  string
}

type Client struct {
	client *http.Client
}

func NewClient(client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{client: client}
}

func (c *Client) Metadata(ctx context.Context, videoID string) (*Metadata, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("url", WatchURL(videoID))
	body, err := c.get(ctx, oembedEndpoint+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch oembed: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode oembed: %w", err)
	}
	return &meta, nil
}

func (c *Client) WatchInfo(ctx context.Context, videoID string) (*WatchInfo, error) {
	body, err := c.get(ctx, watchEndpoint+"?v="+url.QueryEscape(videoID))
	if err != nil {
		return nil, fmt.Errorf("fetch watch page: %w", err)
	}
	html := string(body)
	info := &WatchInfo{}
	if m := lengthSecondsRe.FindStringSubmatch(html); m != nil {
		if seconds, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			info.Duration = seconds
		}
	}
	if m := captionTracksRe.FindStringSubmatch(html); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &info.Tracks); err != nil {
			logutil.GetLogger(ctx).Warn("parse caption tracks failed", zap.String("video_id", videoID), zap.Error(err))
		}
	}
	return info, nil
}

// SelectTrack applies the language fallback policy: first preferred language
// with a track, then English, then the first available track.
func SelectTrack(tracks []CaptionTrack, languages []string) (CaptionTrack, error) {
	if len(tracks) == 0 {
		return CaptionTrack{}, appErr.ErrNoCaptions
	}
	for _, lang := range languages {
		for _, track := range tracks {
			if track.LanguageCode == lang {
				return track, nil
			}
		}
	}
	for _, track := range tracks {
		if track.LanguageCode == "en" {
			return track, nil
		}
	}
	return tracks[0], nil
}

// Transcript fetches the captions of the selected track and renders them as
// one timestamped line per snippet, "m:ss - text", joined by ", ".
func (c *Client) Transcript(ctx context.Context, info *WatchInfo, languages []string) (string, error) {
	track, err := SelectTrack(info.Tracks, languages)
	if err != nil {
		return "", err
	}
	snippets, err := c.FetchCaptions(ctx, track)
	if err != nil {
		return "", err
	}
	if len(snippets) == 0 {
		return "", appErr.ErrNoCaptions
	}
	return RenderTimestamps(snippets), nil
}

type json3Response struct {
	Events []struct {
		StartMs int64 `json:"tStartMs"`
		Segs    []struct {
			Utf8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func (c *Client) FetchCaptions(ctx context.Context, track CaptionTrack) ([]Snippet, error) {
	endpoint := track.BaseURL
	if !strings.Contains(endpoint, "fmt=") {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + "fmt=json3"
	}
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch captions: %w", err)
	}
	var out json3Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode captions: %w", err)
	}
	snippets := make([]Snippet, 0, len(out.Events))
	for _, event := range out.Events {
		var sb strings.Builder
		for _, seg := range event.Segs {
			sb.WriteString(seg.Utf8)
		}
		text := strings.TrimSpace(strings.ReplaceAll(sb.String(), "\n", " "))
		if text == "" {
			continue
		}
		snippets = append(snippets, Snippet{
			Start: float64(event.StartMs) / 1000,
			Text:  text,
		})
	}
	return snippets, nil
}

func RenderTimestamps(snippets []Snippet) string {
	parts := make([]string, 0, len(snippets))
	for _, snippet := range snippets {
		start := int(snippet.Start)
		parts = append(parts, fmt.Sprintf("%d:%02d - %s", start/60, start%60, snippet.Text))
	}
	return strings.Join(parts, ", ")
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}
