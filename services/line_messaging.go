package services

import (
	"fmt"
	"log"
	"os"

	"repre_go/models"

	"github.com/line/line-bot-sdk-go/linebot"
	"gorm.io/gorm"
)

// LineMessagingService wraps the LINE Messaging API client used as a push
// delivery channel.
type LineMessagingService struct {
	Bot *linebot.Client
}

func NewLineMessagingService() *LineMessagingService {
	channelSecret := os.Getenv("LINE_CHANNEL_SECRET")
	channelToken := os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")

	if channelSecret == "" || channelToken == "" {
		log.Println("LINE Messaging API disabled: missing LINE_CHANNEL_SECRET or LINE_CHANNEL_ACCESS_TOKEN")
		return &LineMessagingService{Bot: nil}
	}

	bot, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		log.Printf("Cannot create LINE bot client: %v", err)
		return &LineMessagingService{Bot: nil}
	}

	return &LineMessagingService{Bot: bot}
}

// PushText sends a plain text message to a LINE user or group id.
func (s *LineMessagingService) PushText(to string, message string) error {
	if s.Bot == nil {
		return fmt.Errorf("LINE Bot client is not initialized")
	}

	_, err := s.Bot.PushMessage(to, linebot.NewTextMessage(message)).Do()
	if err != nil {
		return fmt.Errorf("LINE Messaging API failed: %v", err)
	}
	return nil
}

// LineChannelSender adapts the messaging service to the notification
// fan-out's channel interface. Users without a linked LINE account are
// skipped silently.
type LineChannelSender struct {
	line *LineMessagingService
	db   *gorm.DB
}

func NewLineChannelSender(line *LineMessagingService, db *gorm.DB) *LineChannelSender {
	return &LineChannelSender{line: line, db: db}
}

func (s *LineChannelSender) Send(userID uint, title, body string, metadata map[string]interface{}) error {
	var user models.User
	if err := s.db.Select("id", "line_id").First(&user, userID).Error; err != nil {
		return err
	}
	if user.LineID == "" {
		return nil
	}
	return s.line.PushText(user.LineID, fmt.Sprintf("%s\n%s", title, body))
}
