package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"repre_go/config"
	"repre_go/database"
	"repre_go/models"

	"github.com/go-redis/redis/v8"
)

// Payload is one fan-out request. The service creates exactly one
// Notification row per recipient and then attempts delivery through each
// enabled channel independently; the persisted row is the durability
// guarantee, channel delivery is best-effort.
type Payload struct {
	OrganizationID uint        `json:"organization_id"`
	Type           string      `json:"type"`
	Title          string      `json:"title"`
	Message        string      `json:"message"`
	RelatedTo      interface{} `json:"related_to,omitempty"`
	Recipients     []uint      `json:"recipients"`
	Channels       []string    `json:"channels,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

const redisListKey = "notifications:queue"

// Store persists notification rows and read-state transitions.
type Store interface {
	Insert(ns []models.Notification) ([]models.Notification, error)
	// MarkRead flips unread to read. Already-read and unknown rows are a
	// no-op, not an error, so the operation stays idempotent.
	MarkRead(notificationID, userID uint, at time.Time) error
}

// Gateway delivers real-time payloads to connected sessions.
type Gateway interface {
	BroadcastToUser(userID uint, message interface{})
}

// ChannelSender is an external delivery collaborator (LINE, email, push).
type ChannelSender interface {
	Send(userID uint, title, body string, metadata map[string]interface{}) error
}

// Service exposes notification fan-out with an optional Redis queue. If
// Redis is disabled or unavailable it performs direct DB inserts.
type Service struct {
	store    Store
	redis    *redis.Client
	useRedis bool
	hub      Gateway
	senders  map[string]ChannelSender
	resolver RecipientResolver
}

// NewService wires the production store, resolver and Redis client.
func NewService() *Service {
	return &Service{
		store:    NewGormStore(database.GetDB()),
		redis:    database.GetRedisClient(),
		useRedis: config.AppConfig != nil && config.AppConfig.UseRedisNotifications && database.GetRedisClient() != nil,
		senders:  make(map[string]ChannelSender),
		resolver: NewGormRecipientResolver(database.GetDB()),
	}
}

// NewServiceWith builds a service around injected collaborators. Used by
// tests and anywhere the package-level database is not available.
func NewServiceWith(store Store, hub Gateway, resolver RecipientResolver) *Service {
	return &Service{
		store:    store,
		hub:      hub,
		senders:  make(map[string]ChannelSender),
		resolver: resolver,
	}
}

// SetGateway sets the real-time gateway used for the popup channel.
func (s *Service) SetGateway(hub Gateway) {
	s.hub = hub
}

// RegisterSender registers a delivery collaborator for a channel name.
func (s *Service) RegisterSender(channel string, sender ChannelSender) {
	s.senders[channel] = sender
}

// normalizeChannels keeps only allowed values and ensures default channel
func normalizeChannels(in []string) []string {
	if len(in) == 0 {
		return []string{"normal"}
	}
	allowed := map[string]struct{}{"normal": {}, "popup": {}, "line": {}}
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, ch := range in {
		if _, ok := allowed[ch]; ok {
			if _, dup := seen[ch]; !dup {
				out = append(out, ch)
				seen[ch] = struct{}{}
			}
		}
	}
	if len(out) == 0 {
		out = []string{"normal"}
	}
	return out
}

// Notify stores the payload on the Redis queue if enabled, else inserts
// directly.
func (s *Service) Notify(p Payload) error {
	if len(p.Recipients) == 0 {
		return errors.New("no recipients")
	}
	p.Channels = normalizeChannels(p.Channels)
	p.CreatedAt = time.Now().UTC()

	if s.useRedis {
		b, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if err = s.redis.RPush(context.Background(), redisListKey, b).Err(); err == nil {
			return nil // queued successfully
		}
		log.Printf("[notif] Redis queue failed, falling back to direct insert: %v", err)
	}

	return s.createDirect(p)
}

// MarkRead transitions one notification from unread to read for its owner.
func (s *Service) MarkRead(notificationID, userID uint) error {
	return s.store.MarkRead(notificationID, userID, time.Now())
}

// createDirect writes rows to the store, then fires channel deliveries.
// Channel failures are logged and swallowed: the rows already persisted.
func (s *Service) createDirect(p Payload) error {
	channelsJSON, err := json.Marshal(normalizeChannels(p.Channels))
	if err != nil {
		channelsJSON = []byte(`["normal"]`)
	}
	var relatedJSON []byte
	if p.RelatedTo != nil {
		if b, err2 := json.Marshal(p.RelatedTo); err2 == nil {
			relatedJSON = b
		}
	}

	notifs := make([]models.Notification, 0, len(p.Recipients))
	for _, uid := range p.Recipients {
		notifs = append(notifs, models.Notification{
			UserID:         uid,
			OrganizationID: p.OrganizationID,
			Title:          p.Title,
			Message:        p.Message,
			Type:           p.Type,
			RelatedTo:      relatedJSON,
			Channels:       channelsJSON,
			Read:           false,
		})
	}

	created, err := s.store.Insert(notifs)
	if err != nil {
		return err
	}

	for _, notif := range created {
		s.deliver(notif, p)
	}
	return nil
}

// deliver attempts each enabled channel for one recipient independently.
func (s *Service) deliver(notif models.Notification, p Payload) {
	for _, channel := range p.Channels {
		switch channel {
		case "normal":
			// persisted-only; the row itself is the delivery
		case "popup":
			if s.hub != nil {
				s.hub.BroadcastToUser(notif.UserID, map[string]interface{}{
					"type": "notification",
					"data": notif,
				})
			}
		default:
			sender, ok := s.senders[channel]
			if !ok {
				continue
			}
			metadata := map[string]interface{}{
				"notification_id": notif.ID,
				"organization_id": notif.OrganizationID,
				"type":            notif.Type,
			}
			if err := sender.Send(notif.UserID, notif.Title, notif.Message, metadata); err != nil {
				log.Printf("[notif] %s delivery failed for user %d: %v", channel, notif.UserID, err)
			}
		}
	}
}

// StartWorker starts a background worker polling the Redis queue and
// flushing to the store.
func (s *Service) StartWorker(stop <-chan struct{}) {
	if !s.useRedis {
		log.Println("[notif] Redis notifications disabled; worker not started")
		return
	}
	go func() {
		log.Println("[notif] Redis notification worker started")
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		ctx := context.Background()
		batchSize := 200
		for {
			select {
			case <-stop:
				log.Println("[notif] Worker stopping")
				return
			case <-ticker.C:
				s.flushBatch(ctx, batchSize)
			}
		}
	}()
}

// flushBatch polls the Redis queue and processes payloads in batches.
func (s *Service) flushBatch(ctx context.Context, batchSize int) {
	if s.redis == nil {
		return
	}
	for i := 0; i < 5; i++ { // up to 5 sub-batches per tick
		vals, err := s.redis.LRange(ctx, redisListKey, 0, int64(batchSize-1)).Result()
		if err != nil || len(vals) == 0 {
			return
		}
		// Trim immediately to avoid duplicates (best-effort)
		if err = s.redis.LTrim(ctx, redisListKey, int64(len(vals)), -1).Err(); err != nil {
			log.Printf("[notif] LTrim failed: %v", err)
		}
		for _, raw := range vals {
			var p Payload
			if err := json.Unmarshal([]byte(raw), &p); err != nil {
				continue
			}
			if err := s.createDirect(p); err != nil {
				log.Printf("[notif] DB insert failed (retry later?): %v", err)
			}
		}
		if len(vals) < batchSize {
			return
		}
	}
}

// ScheduleChanged is the calendar engine's change hook. It computes the
// affected user set and fans a schedule-change notification out to it.
func (s *Service) ScheduleChanged(ev models.CalendarEvent, action string) {
	if s.resolver == nil {
		return
	}
	recipients, orgID := s.resolver.ScheduleChangeRecipients(ev)
	if len(recipients) == 0 {
		return
	}
	title, message := describeChange(ev, action)
	p := Payload{
		OrganizationID: orgID,
		Type:           "info",
		Title:          title,
		Message:        message,
		RelatedTo: map[string]interface{}{
			"resource": "calendar_event",
			"id":       ev.ID,
		},
		Recipients: recipients,
		Channels:   []string{"normal", "popup"},
	}
	if action == ActionSubstituteAssigned {
		p.Type = "warning"
	}
	if err := s.Notify(p); err != nil {
		log.Printf("[notif] schedule change fan-out failed: %v", err)
	}
}

// ActionSubstituteAssigned mirrors the engine's substitute action tag.
const ActionSubstituteAssigned = "substitute_assigned"

// UncoveredLessons notifies organization admins about lessons that still
// need a substitute.
func (s *Service) UncoveredLessons(events []models.CalendarEvent) {
	if s.resolver == nil {
		return
	}
	byOrg := make(map[uint][]models.CalendarEvent)
	for _, ev := range events {
		orgID := s.resolver.OrganizationOfTeacher(ev.TeacherID)
		byOrg[orgID] = append(byOrg[orgID], ev)
	}
	for orgID, evs := range byOrg {
		admins := s.resolver.AdminsOf(orgID)
		if len(admins) == 0 {
			continue
		}
		p := Payload{
			OrganizationID: orgID,
			Type:           "warning",
			Title:          "Lessons need a substitute",
			Message:        fmt.Sprintf("%d lesson(s) tomorrow have no substitute assigned.", len(evs)),
			Recipients:     admins,
			Channels:       []string{"normal", "popup"},
		}
		if err := s.Notify(p); err != nil {
			log.Printf("[notif] uncovered lesson fan-out failed: %v", err)
		}
	}
}

func describeChange(ev models.CalendarEvent, action string) (string, string) {
	switch action {
	case "created":
		return "New lesson scheduled", fmt.Sprintf("'%s' was scheduled from %s to %s.", ev.Title, ev.StartTime.Format("Mon 15:04"), ev.EndTime.Format("15:04"))
	case "updated":
		return "Lesson updated", fmt.Sprintf("'%s' was changed. It now runs from %s to %s.", ev.Title, ev.StartTime.Format("Mon 15:04"), ev.EndTime.Format("15:04"))
	case "deleted":
		return "Lesson cancelled", fmt.Sprintf("'%s' on %s was removed from the schedule.", ev.Title, ev.StartTime.Format("Mon 02 Jan"))
	case "duplicated":
		return "Lesson duplicated", fmt.Sprintf("'%s' was added to the schedule.", ev.Title)
	case ActionSubstituteAssigned:
		return "Substitute assigned", fmt.Sprintf("A substitute now covers '%s' on %s.", ev.Title, ev.StartTime.Format("Mon 02 Jan 15:04"))
	}
	return "Schedule changed", fmt.Sprintf("'%s' changed.", ev.Title)
}
