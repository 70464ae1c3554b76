package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// Organization model
type Organization struct {
	BaseModel
	Name   string `json:"name" gorm:"size:255;not null"`
	Code   string `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Active bool   `json:"active" gorm:"default:true"`

	// Relationships
	Users    []User    `json:"users,omitempty" gorm:"foreignKey:OrganizationID"`
	Teachers []Teacher `json:"teachers,omitempty" gorm:"foreignKey:OrganizationID"`
	Subjects []Subject `json:"subjects,omitempty" gorm:"foreignKey:OrganizationID"`
}

// User model
type User struct {
	BaseModel
	Username       string `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password       string `json:"-" gorm:"size:255;not null"`
	Email          string `json:"email" gorm:"size:255;uniqueIndex"`
	Role           string `json:"role" gorm:"size:50;not null;default:'teacher';type:enum('owner','admin','teacher')"` // owner, admin, teacher
	OrganizationID uint   `json:"organization_id" gorm:"not null"`
	Status         string `json:"status" gorm:"size:50;not null;default:'active';type:enum('active','inactive','suspended')"` // active, inactive, suspended
	Avatar         string `json:"avatar" gorm:"size:500"`
	LineID         string `json:"line_id" gorm:"size:100"` // linked via the LINE webhook, empty until paired

	// Relationships
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
	Teacher      *Teacher     `json:"teacher,omitempty" gorm:"foreignKey:UserID"`
}

// Teacher model
type Teacher struct {
	BaseModel
	UserID         uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	Name           string `json:"name" gorm:"size:200;not null"`
	Email          string `json:"email" gorm:"size:255"`
	Color          string `json:"color" gorm:"size:20"`
	Active         bool   `json:"active" gorm:"default:true"`
	OrganizationID uint   `json:"organization_id"`

	// Relationships
	User         User                  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Organization Organization          `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
	Availability []TeacherAvailability `json:"availability,omitempty" gorm:"foreignKey:TeacherID"`
	Subjects     []Subject             `json:"subjects,omitempty" gorm:"many2many:subject_teachers"`
}

// TeacherAvailability is an advisory weekly window. Times are minutes from
// midnight so windows stay stable regardless of the event timezone.
type TeacherAvailability struct {
	BaseModel
	TeacherID   uint `json:"teacher_id" gorm:"not null;index"`
	DayOfWeek   int  `json:"day_of_week" gorm:"not null"` // 0 = Sunday, per time.Weekday
	StartMinute int  `json:"start_minute" gorm:"not null"`
	EndMinute   int  `json:"end_minute" gorm:"not null"`
}

// Subject model
type Subject struct {
	BaseModel
	Name           string `json:"name" gorm:"size:255;not null"`
	Color          string `json:"color" gorm:"size:20"`
	OrganizationID uint   `json:"organization_id"`

	// Relationships
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
	Teachers     []Teacher    `json:"teachers,omitempty" gorm:"many2many:subject_teachers"`
}

// Event categories
const (
	CategoryWork      = "work"
	CategoryPersonal  = "personal"
	CategoryImportant = "important"
	CategoryOther     = "other"
)

// CalendarEvent is a scheduled lesson or activity. The ID is an opaque UUID
// assigned at creation and immutable afterwards. Deletion is terminal, so the
// model deliberately carries no soft-delete column.
type CalendarEvent struct {
	ID                  string    `json:"id" gorm:"primaryKey;size:36"`
	Title               string    `json:"title" gorm:"size:255;not null"`
	Description         string    `json:"description" gorm:"type:text"`
	Location            string    `json:"location" gorm:"size:255"`
	StartTime           time.Time `json:"start_time" gorm:"not null;index"`
	EndTime             time.Time `json:"end_time" gorm:"not null"`
	Category            string    `json:"category" gorm:"size:50;not null;default:'work';type:enum('work','personal','important','other')"` // work, personal, important, other
	TeacherID           uint      `json:"teacher_id" gorm:"not null;index"`
	SubstituteTeacherID *uint     `json:"substitute_teacher_id" gorm:"default:null"`
	SubjectID           *uint     `json:"subject_id" gorm:"default:null"`
	Color               string    `json:"color" gorm:"size:20"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	// Relationships
	Teacher           Teacher  `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	SubstituteTeacher *Teacher `json:"substitute_teacher,omitempty" gorm:"foreignKey:SubstituteTeacherID"`
	Subject           *Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
}

// CoveredBy reports the teacher currently responsible for the lesson.
func (e CalendarEvent) CoveredBy() uint {
	if e.SubstituteTeacherID != nil {
		return *e.SubstituteTeacherID
	}
	return e.TeacherID
}

// Notification model. Rows are created exactly once per recipient by the
// fan-out service and only ever mutated by read-state transitions.
type Notification struct {
	BaseModel
	UserID         uint       `json:"user_id" gorm:"not null;index"`
	OrganizationID uint       `json:"organization_id" gorm:"not null;index"`
	Title          string     `json:"title" gorm:"size:255;not null"`
	Message        string     `json:"message" gorm:"type:text;not null"`
	Type           string     `json:"type" gorm:"size:50;not null;type:enum('info','warning','error','success')"` // info, warning, error, success
	RelatedTo      JSON       `json:"related_to" gorm:"type:json"`
	Channels       JSON       `json:"channels" gorm:"type:json"`
	Read           bool       `json:"read" gorm:"default:false"`
	ReadAt         *time.Time `json:"read_at"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID string `json:"resource_id" gorm:"size:100"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
