package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeUploadProductImage = "UPLOAD_PRODUCT_IMAGE"

	DefaultMaxRetries = 3
)

type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Retries    int             `json:"retries"`
	MaxRetries int             `json:"max_retries"`
	CreatedAt  time.Time       `json:"created_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// New wraps payload into a job with a fresh id.
func New(jobType string, payload any) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Payload:    raw,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Exhausted reports whether the job has used up its retries.
func (j *Job) Exhausted() bool {
	max := j.MaxRetries
	if max <= 0 {
		max = DefaultMaxRetries
	}
	return j.Retries >= max
}

// UploadImagePayload carries a product image through the queue.
type UploadImagePayload struct {
	ProductID    int64  `json:"product_id"`
	ImageBase64  string `json:"image_base64"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	Size         int    `json:"size"`
	OldImageURL  string `json:"old_image_url,omitempty"`
}
