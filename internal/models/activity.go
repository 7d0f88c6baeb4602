package models

import "time"

// Activity is a schedulable task. StartOn and DueOn hold UTC midnight dates.
type Activity struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	ProjectID    uint        `gorm:"index;index:idx_activity_project_start,priority:1;not null" json:"project_id"`
	Project      *Project    `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Title        string      `gorm:"size:255;not null" json:"title"`
	Description  string      `gorm:"type:text" json:"description"`
	IsDone       bool        `gorm:"not null;default:false" json:"is_done"`
	StartOn      *time.Time  `gorm:"type:date;index;index:idx_activity_project_start,priority:2" json:"start_on"`
	DueOn        *time.Time  `gorm:"type:date;index" json:"due_on"`
	DurationDays *int        `json:"duration_days"`
	DisciplineID *uint       `gorm:"index" json:"discipline_id"`
	Discipline   *Discipline `gorm:"foreignKey:DisciplineID" json:"discipline,omitempty"`
	ZoneID       *uint       `gorm:"index" json:"zone_id"`
	Zone         *Zone       `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`
	AssigneeID   *uint       `gorm:"index" json:"assignee_id"`
	Assignee     *User       `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (Activity) TableName() string { return "activities" }

// AssignedTo reports whether userID is the assignee.
func (a *Activity) AssignedTo(userID uint) bool {
	return a != nil && userID != 0 && a.AssigneeID != nil && *a.AssigneeID == userID
}

type Discipline struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Discipline) TableName() string { return "disciplines" }

type Zone struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Zone) TableName() string { return "zones" }
