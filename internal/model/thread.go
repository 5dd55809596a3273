package model

type Thread struct {
	ThreadID string `json:"thread_id"`
	VideoID  string `json:"video_id"`
	Title    string `json:"title"`
	Ctime    int64  `json:"ctime"`
}
