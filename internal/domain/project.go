package domain

import "time"

// Project is a persisted portfolio project.
type Project struct {
	ID          string      `gorm:"type:text;primaryKey" json:"id"`
	Name        string      `gorm:"type:text;not null" json:"name"`
	Category    string      `gorm:"type:text" json:"category"`
	Description string      `gorm:"type:text" json:"description"`
	TechStack   StringArray `gorm:"type:text" json:"tech_stack"`
	Link        string      `gorm:"type:text" json:"link,omitempty"`
	RepoURL     string      `gorm:"type:text" json:"repo_url,omitempty"`
	ImageURL    string      `gorm:"type:text" json:"image_url,omitempty"`
	StartDate   string      `gorm:"type:text" json:"start_date,omitempty"`
	EndDate     string      `gorm:"type:text;index:idx_projects_end_date" json:"end_date,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Project.
func (Project) TableName() string {
	return "projects"
}
