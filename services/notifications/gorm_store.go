package notifications

import (
	"errors"
	"time"

	"repre_go/models"

	"gorm.io/gorm"
)

// GormStore persists notification rows through GORM.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Insert(ns []models.Notification) ([]models.Notification, error) {
	if len(ns) == 0 {
		return ns, nil
	}
	if err := s.db.Create(&ns).Error; err != nil {
		return nil, err
	}
	return ns, nil
}

// MarkRead is a guarded unread-to-read transition scoped to the owning user.
// Unknown or already-read rows are a silent no-op.
func (s *GormStore) MarkRead(notificationID, userID uint, at time.Time) error {
	var notif models.Notification
	err := s.db.Where("id = ? AND user_id = ?", notificationID, userID).First(&notif).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if notif.Read {
		return nil
	}
	return s.db.Model(&notif).Updates(map[string]interface{}{
		"read":    true,
		"read_at": &at,
	}).Error
}
