package utils

import (
	"encoding/json"
	"time"

	"repre_go/models"
)

// Compact representations used across APIs
type TeacherShort struct {
	ID    uint   `json:"id"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

type SubjectShort struct {
	ID   uint   `json:"id"`
	Name string `json:"name,omitempty"`
}

type EventDTO struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	Location          string        `json:"location,omitempty"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
	Category          string        `json:"category"`
	Color             string        `json:"color,omitempty"`
	Teacher           TeacherShort  `json:"teacher"`
	SubstituteTeacher *TeacherShort `json:"substitute_teacher,omitempty"`
	Subject           *SubjectShort `json:"subject,omitempty"`
}

// ToEventDTO maps a models.CalendarEvent to the compact DTO.
// Assumptions: caller has preloaded Teacher, SubstituteTeacher and Subject
// when possible.
func ToEventDTO(e models.CalendarEvent) EventDTO {
	dto := EventDTO{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Category:    e.Category,
		Color:       e.Color,
		Teacher:     TeacherShort{ID: e.TeacherID, Name: e.Teacher.Name, Color: e.Teacher.Color},
	}
	if e.SubstituteTeacherID != nil {
		sub := TeacherShort{ID: *e.SubstituteTeacherID}
		if e.SubstituteTeacher != nil {
			sub.Name = e.SubstituteTeacher.Name
			sub.Color = e.SubstituteTeacher.Color
		}
		dto.SubstituteTeacher = &sub
	}
	if e.SubjectID != nil {
		subj := SubjectShort{ID: *e.SubjectID}
		if e.Subject != nil {
			subj.Name = e.Subject.Name
		}
		dto.Subject = &subj
	}
	return dto
}

type NotificationDTO struct {
	ID        uint        `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	UserID    uint        `json:"user_id"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Type      string      `json:"type"`
	RelatedTo interface{} `json:"related_to,omitempty"`
	Channels  []string    `json:"channels,omitempty"`
	Read      bool        `json:"read"`
	ReadAt    *time.Time  `json:"read_at,omitempty"`
}

// ToNotificationDTO maps a models.Notification to the compact DTO.
func ToNotificationDTO(n models.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:        n.ID,
		CreatedAt: n.CreatedAt,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
	}
	if !n.RelatedTo.IsNull() {
		var related interface{}
		if err := json.Unmarshal(n.RelatedTo, &related); err == nil {
			dto.RelatedTo = related
		}
	}
	if !n.Channels.IsNull() {
		var channels []string
		if err := json.Unmarshal(n.Channels, &channels); err == nil {
			dto.Channels = channels
		}
	}
	return dto
}
