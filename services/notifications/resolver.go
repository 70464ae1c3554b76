package notifications

import (
	"repre_go/models"

	"gorm.io/gorm"
)

// RecipientResolver computes the user set affected by a schedule mutation.
// The identity collaborator is treated as opaque input; no authentication
// logic lives here.
type RecipientResolver interface {
	ScheduleChangeRecipients(ev models.CalendarEvent) ([]uint, uint)
	OrganizationOfTeacher(teacherID uint) uint
	AdminsOf(organizationID uint) []uint
}

// GormRecipientResolver resolves recipients from the database: the owning
// teacher's user, the substitute's user, and the organization admins.
type GormRecipientResolver struct {
	db *gorm.DB
}

func NewGormRecipientResolver(db *gorm.DB) *GormRecipientResolver {
	return &GormRecipientResolver{db: db}
}

func (r *GormRecipientResolver) ScheduleChangeRecipients(ev models.CalendarEvent) ([]uint, uint) {
	seen := make(map[uint]struct{})
	recipients := make([]uint, 0, 4)
	add := func(userID uint) {
		if userID == 0 {
			return
		}
		if _, dup := seen[userID]; dup {
			return
		}
		seen[userID] = struct{}{}
		recipients = append(recipients, userID)
	}

	var orgID uint
	var teacher models.Teacher
	if err := r.db.Select("id", "user_id", "organization_id").First(&teacher, ev.TeacherID).Error; err == nil {
		add(teacher.UserID)
		orgID = teacher.OrganizationID
	}
	if ev.SubstituteTeacherID != nil {
		var sub models.Teacher
		if err := r.db.Select("id", "user_id").First(&sub, *ev.SubstituteTeacherID).Error; err == nil {
			add(sub.UserID)
		}
	}
	for _, admin := range r.AdminsOf(orgID) {
		add(admin)
	}
	return recipients, orgID
}

func (r *GormRecipientResolver) OrganizationOfTeacher(teacherID uint) uint {
	var teacher models.Teacher
	if err := r.db.Select("id", "organization_id").First(&teacher, teacherID).Error; err != nil {
		return 0
	}
	return teacher.OrganizationID
}

func (r *GormRecipientResolver) AdminsOf(organizationID uint) []uint {
	if organizationID == 0 {
		return nil
	}
	var users []models.User
	r.db.Select("id").
		Where("organization_id = ? AND role IN ? AND status = ?", organizationID, []string{"owner", "admin"}, "active").
		Find(&users)
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}
