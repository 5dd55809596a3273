package model

const (
	VideoStatePending = 0
	VideoStateReady   = 1
)

type Video struct {
	VideoID      string `json:"video_id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	Transcript   string `json:"transcript"`
	Duration     int64  `json:"duration"`
	Summary      string `json:"summary"`
	State        int    `json:"state"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}
