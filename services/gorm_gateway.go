package services

import (
	"context"

	"repre_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPersistenceGateway persists calendar events through GORM. It is the
// production implementation of the persistence collaborator.
type GormPersistenceGateway struct {
	db *gorm.DB
}

func NewGormPersistenceGateway(db *gorm.DB) *GormPersistenceGateway {
	return &GormPersistenceGateway{db: db}
}

func (g *GormPersistenceGateway) LoadEvents(ctx context.Context, r DateRange) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	err := g.db.WithContext(ctx).
		Where("start_time < ? AND end_time > ?", r.End, r.Start).
		Order("start_time ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (g *GormPersistenceGateway) SaveEvent(ctx context.Context, ev models.CalendarEvent) error {
	// upsert keyed on the immutable event id
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&ev).Error
}

func (g *GormPersistenceGateway) DeleteEvent(ctx context.Context, id string) error {
	return g.db.WithContext(ctx).Delete(&models.CalendarEvent{}, "id = ?", id).Error
}
