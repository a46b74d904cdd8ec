// Package resource holds the JSON shapes the REST API returns. Timestamps stay
// strings: the server sends naive ISO-8601 values without a zone.
package resource

type Album struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CreatedAt  string `json:"created_at,omitempty"`
	PhotoCount int    `json:"photo_count"`
}

type Photo struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	Filepath   string `json:"filepath"`
	UploadedAt string `json:"uploaded_at,omitempty"`
	AlbumID    int64  `json:"album_id,omitempty"`
	Size       int64  `json:"size,omitempty"`
}

type Event struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
	ShareID     string `json:"shareId,omitempty"`
}

type Comment struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	Author    string `json:"author"`
	CreatedAt string `json:"created_at"`
}

// Profile is the signed-in owner's account as the settings page shows it.
type Profile struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Subscription string `json:"subscription,omitempty"`
}

type StorageUsage struct {
	UsedGB  float64 `json:"used_gb"`
	LimitGB float64 `json:"limit_gb"`
}

// Share is an issued share link as the owner sees it.
type Share struct {
	ID         int64  `json:"id"`
	Token      string `json:"token"`
	URL        string `json:"url,omitempty"`
	CanComment bool   `json:"can_comment"`
}

// TimeLayout is the naive ISO-8601 form the API uses for timestamps.
const TimeLayout = "2006-01-02T15:04:05"
