package services

import (
	"repre_go/models"

	"gorm.io/gorm"
)

// GormTeacherDirectory resolves teacher metadata from the database.
type GormTeacherDirectory struct {
	db *gorm.DB
}

func NewGormTeacherDirectory(db *gorm.DB) *GormTeacherDirectory {
	return &GormTeacherDirectory{db: db}
}

func (d *GormTeacherDirectory) NameOf(teacherID uint) (string, bool) {
	var teacher models.Teacher
	if err := d.db.Select("id", "name").First(&teacher, teacherID).Error; err != nil {
		return "", false
	}
	return teacher.Name, true
}

func (d *GormTeacherDirectory) Qualified(subjectID, teacherID uint) bool {
	var count int64
	d.db.Table("subject_teachers").
		Where("subject_id = ? AND teacher_id = ?", subjectID, teacherID).
		Count(&count)
	return count > 0
}

// GormAvailabilitySource loads advisory availability windows from the database.
type GormAvailabilitySource struct {
	db *gorm.DB
}

func NewGormAvailabilitySource(db *gorm.DB) *GormAvailabilitySource {
	return &GormAvailabilitySource{db: db}
}

func (a *GormAvailabilitySource) AvailabilityOf(teacherID uint) []models.TeacherAvailability {
	var windows []models.TeacherAvailability
	a.db.Where("teacher_id = ?", teacherID).Find(&windows)
	return windows
}
