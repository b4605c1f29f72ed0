package media

import "portfolio/internal/pkg/utils"

// StatusData is the payload a polling client renders once processing is
// done. Present only when the item completed.
type StatusData struct {
	OriginalURL  string   `json:"original_url"`
	MediumURL    string   `json:"medium_url"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	AltText      string   `json:"alt_text"`
	Tags         []string `json:"tags"`
	Filename     string   `json:"filename"`
}

// StatusResponse is the wire shape of GET /media/:id/status. Completion is
// implicit: status is null, processing and failed are false, and data is
// populated. Polling clients stop on the first response with processing
// false.
type StatusResponse struct {
	ID         string      `json:"id"`
	Status     *string     `json:"status"`
	Processing bool        `json:"processing"`
	Failed     bool        `json:"failed"`
	Data       *StatusData `json:"data"`
}

// NewStatusResponse maps a Media row onto the polling contract.
func NewStatusResponse(m *Media) StatusResponse {
	resp := StatusResponse{
		ID:         m.ID,
		Processing: m.Status == StatusPending || m.Status == StatusProcessing,
		Failed:     m.Status == StatusFailed,
	}
	if m.Status == StatusCompleted {
		resp.Data = &StatusData{
			OriginalURL:  m.OriginalURL,
			MediumURL:    m.MediumURL,
			ThumbnailURL: m.ThumbURL,
			Title:        m.Title,
			Description:  m.Description,
			AltText:      m.AltText,
			Tags:         utils.StringToTags(m.Tags),
			Filename:     m.Filename,
		}
	} else {
		status := string(m.Status)
		resp.Status = &status
	}
	return resp
}

// UploadMetaRequest carries the optional descriptive fields alongside an
// upload or metadata update.
type UploadMetaRequest struct {
	Title       string   `json:"title" form:"title"`
	Description string   `json:"description" form:"description"`
	AltText     string   `json:"alt_text" form:"alt_text"`
	Tags        []string `json:"tags" form:"tags"`
}

func (r UploadMetaRequest) toMetadata() Metadata {
	return Metadata{
		Title:       r.Title,
		Description: r.Description,
		AltText:     r.AltText,
		Tags:        r.Tags,
	}
}

// UploadFromURLRequest ingests a remote resource.
type UploadFromURLRequest struct {
	URL      string `json:"url" binding:"required"`
	Filename string `json:"filename"`
	UploadMetaRequest
}

// PresignRequest asks for a direct-upload URL.
type PresignRequest struct {
	Filename  string `json:"filename" binding:"required"`
	MimeType  string `json:"mime_type" binding:"required"`
	ExpiresIn int    `json:"expires_in"` // seconds, default 3600
}
