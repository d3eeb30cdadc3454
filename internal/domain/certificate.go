package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Certificate is a persisted certificate record shown in the portfolio.
type Certificate struct {
	ID           string      `gorm:"type:text;primaryKey" json:"id"`
	Name         string      `gorm:"type:text;not null" json:"name"`
	Organization string      `gorm:"type:text;not null" json:"organization"`
	Category     string      `gorm:"type:text;index:idx_certificates_category" json:"category"`
	Link         string      `gorm:"type:text" json:"link,omitempty"`
	IssueDate    string      `gorm:"type:text;index:idx_certificates_issue_date" json:"issue_date,omitempty"`
	Description  string      `gorm:"type:text" json:"description"`
	Skills       StringArray `gorm:"type:text" json:"skills"`
	ImageURL     string      `gorm:"type:text" json:"image_url"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Certificate.
func (Certificate) TableName() string {
	return "certificates"
}

// CertificateRecord is one entry of a certificate source dataset, before upload.
// Image holds the embedded image payload (a data URL or raw base64).
type CertificateRecord struct {
	Name         string   `json:"name"`
	Organization string   `json:"organization"`
	Category     string   `json:"category,omitempty"`
	Link         string   `json:"link,omitempty"`
	IssueDate    string   `json:"issue_date,omitempty"`
	Description  string   `json:"description,omitempty"`
	Skills       []string `json:"skills,omitempty"`
	Image        string   `json:"image"`
}
