package media

import "time"

// Status is the processing state of one media item.
//
// pending -> processing -> completed | failed, plus the explicit retry
// transition failed -> pending. Nothing skips processing and completed is
// terminal; the repository enforces both with conditional updates.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no automatic transition leaves this state.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// Media is the persistent record for one uploaded image and its
// derivatives. Data holds the raw upload until a run completes, so a failed
// item can be retried from the top even across a restart.
type Media struct {
	ID           string `gorm:"column:id;primaryKey" json:"id"`
	OriginalName string `gorm:"column:original_name" json:"original_name"`
	Filename     string `gorm:"column:filename" json:"filename"`
	MimeType     string `gorm:"column:mime_type" json:"mime_type"`
	Size         int64  `gorm:"column:size" json:"size"`

	Status     Status `gorm:"column:status;index" json:"status"`
	FailReason string `gorm:"column:fail_reason" json:"-"`

	Data []byte `gorm:"column:data" json:"-"`

	OriginalKey string `gorm:"column:original_key" json:"-"`
	MediumKey   string `gorm:"column:medium_key" json:"-"`
	ThumbKey    string `gorm:"column:thumb_key" json:"-"`

	OriginalURL string `gorm:"column:original_url" json:"original_url"`
	MediumURL   string `gorm:"column:medium_url" json:"medium_url"`
	ThumbURL    string `gorm:"column:thumb_url" json:"thumbnail_url"`

	OriginalWidth  int `gorm:"column:original_width" json:"original_width"`
	OriginalHeight int `gorm:"column:original_height" json:"original_height"`
	MediumWidth    int `gorm:"column:medium_width" json:"medium_width"`
	MediumHeight   int `gorm:"column:medium_height" json:"medium_height"`
	ThumbWidth     int `gorm:"column:thumb_width" json:"thumb_width"`
	ThumbHeight    int `gorm:"column:thumb_height" json:"thumb_height"`

	Format string `gorm:"column:format" json:"format"`

	Title       string `gorm:"column:title" json:"title"`
	Description string `gorm:"column:description" json:"description"`
	AltText     string `gorm:"column:alt_text" json:"alt_text"`
	Tags        string `gorm:"column:tags" json:"-"` // JSON-encoded []string

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Media) TableName() string { return "media" }
