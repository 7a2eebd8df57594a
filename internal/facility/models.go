package facility

import (
	"encoding/base64"
	"encoding/json"
)

// User is an officer account as returned by the API.
type User struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	PrisonName        string `json:"prison_name,omitempty"`
	RecognitionsToday int    `json:"recognitions_today,omitempty"`
}

// RegisterRequest creates an officer account. It is also the body of
// Officers.Create.
type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	PrisonName string `json:"prison_name,omitempty"`
}

// OfficerUpdate changes only the non-nil fields.
type OfficerUpdate struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Password   *string `json:"password,omitempty"`
	PrisonName *string `json:"prison_name,omitempty"`
}

// AuthResponse is the result of a successful login.
type AuthResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type,omitempty"`
	User      *User  `json:"user,omitempty"`
}

// UnmarshalJSON accepts the token under either "token" or "access_token".
func (a *AuthResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		User        *User  `json:"user"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Token = raw.Token
	if a.Token == "" {
		a.Token = raw.AccessToken
	}
	a.TokenType = raw.TokenType
	a.User = raw.User
	return nil
}

// ExtraInfo holds the optional descriptive fields of an inmate. A nil field
// is "not provided"; a pointer to the zero value is an explicit value.
type ExtraInfo struct {
	Cell         *string `json:"cell,omitempty"`
	Crime        *string `json:"crime,omitempty"`
	Sentence     *string `json:"sentence,omitempty"`
	Age          *int    `json:"age,omitempty"`
	LegalStatus  *string `json:"legal_status,omitempty"`
	FacilityName *string `json:"facility_name,omitempty"`
	Sex          *string `json:"sex,omitempty"`
}

// StoredImage describes an enrolled face image. Timestamps are kept as the
// server sends them.
type StoredImage struct {
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploaded_at,omitempty"`
}

// InmateRecord is an enrolled inmate.
type InmateRecord struct {
	ID           string        `json:"id"`
	InmateID     string        `json:"inmate_id"`
	Name         string        `json:"name"`
	ExtraInfo    ExtraInfo     `json:"extra_info"`
	Images       []StoredImage `json:"images"`
	CreatedAt    string        `json:"created_at,omitempty"`
	RegisteredBy string        `json:"registered_by,omitempty"`
}

// Image is one binary image upload.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CreateInmateRequest enrolls a new inmate. InmateID and Name are always sent.
type CreateInmateRequest struct {
	InmateID  string
	Name      string
	ExtraInfo *ExtraInfo
	Images    []Image
}

// UpdateInmateRequest is a partial update: only non-nil fields and a non-empty
// image list are transmitted.
type UpdateInmateRequest struct {
	Name      *string
	ExtraInfo *ExtraInfo
	Images    []Image
}

// Box is one detected face.
type Box struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Recognized bool    `json:"recognized"`
	Name       *string `json:"name"`
	Score      float64 `json:"score"`
}

// RecognitionResult is the answer to a single-image query.
type RecognitionResult struct {
	InmateID    *string `json:"inmate_id"`
	Name        *string `json:"name"`
	PrisonName  *string `json:"prison_name"`
	Score       float64 `json:"score"`
	Method      string  `json:"method"`
	Boxes       []Box   `json:"boxes"`
	ImageBase64 string  `json:"image_base64,omitempty"`
}

// Matched reports whether the query face was identified.
func (r *RecognitionResult) Matched() bool {
	return r != nil && r.InmateID != nil && *r.InmateID != ""
}

// AnnotatedImage decodes the server's boxed preview image.
func (r *RecognitionResult) AnnotatedImage() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.ImageBase64)
}

// DailyCount is the number of recognitions on one UTC day (YYYY-MM-DD).
type DailyCount struct {
	Date  string `json:"_id"`
	Count int    `json:"count"`
}

type InmateCount struct {
	Inmate string `json:"inmate"`
	Count  int    `json:"count"`
}

type OfficerCount struct {
	Officer string `json:"officer"`
	Count   int    `json:"count"`
}

// Verification is one entry of the recent verification feed.
type Verification struct {
	InmateID     string  `json:"inmate_id"`
	InmateName   string  `json:"inmate_name"`
	OfficerName  string  `json:"officer_name"`
	Score        float64 `json:"score"`
	RecognizedAt string  `json:"recognized_at"`
}

// Bucket is one group of a distribution report. Key is empty for records
// with no value.
type Bucket struct {
	Key   string `json:"_id"`
	Count int    `json:"count"`
}

// LogEntry is a raw recognition log record.
type LogEntry struct {
	ID           string  `json:"_id"`
	InmateID     string  `json:"inmate_id"`
	InmateName   string  `json:"inmate_name,omitempty"`
	PrisonName   string  `json:"prison_name,omitempty"`
	Score        float64 `json:"score"`
	Image        string  `json:"image,omitempty"`
	RecognizedBy string  `json:"recognized_by,omitempty"`
	RecognizedAt string  `json:"recognized_at"`
}
