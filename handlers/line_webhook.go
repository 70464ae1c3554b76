package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log"
	"os"
	"strings"

	"repre_go/models"

	"github.com/gofiber/fiber/v2"
	"github.com/line/line-bot-sdk-go/linebot"
	"gorm.io/gorm"
)

// LineWebhookHandler links LINE accounts to users so notifications can reach
// them through the LINE channel. Pairing is driven by the user sending
// "link <username>" to the bot.
type LineWebhookHandler struct {
	DB  *gorm.DB
	Bot *linebot.Client
}

func NewLineWebhookHandler(db *gorm.DB) *LineWebhookHandler {
	secret := os.Getenv("LINE_CHANNEL_SECRET")
	token := os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")

	if secret == "" || token == "" {
		log.Println("LINE credentials missing: webhook disabled")
		return &LineWebhookHandler{DB: db, Bot: nil}
	}

	bot, err := linebot.New(secret, token)
	if err != nil {
		log.Fatalf("cannot create LINE bot client: %v", err)
	}
	return &LineWebhookHandler{DB: db, Bot: bot}
}

// Handle processes incoming webhook events
func (h *LineWebhookHandler) Handle(c *fiber.Ctx) error {
	if h.Bot == nil {
		return c.SendStatus(fiber.StatusOK)
	}

	signature := c.Get("X-Line-Signature")
	if signature == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if !validateSignature(os.Getenv("LINE_CHANNEL_SECRET"), c.Body(), signature) {
		log.Println("LINE webhook signature mismatch")
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	// Acknowledge first, process asynchronously
	go func(body []byte) {
		var webhook struct {
			Events []*linebot.Event `json:"events"`
		}
		if err := json.Unmarshal(body, &webhook); err != nil {
			log.Printf("Failed to parse LINE event JSON: %v", err)
			return
		}

		for _, event := range webhook.Events {
			switch event.Type {
			case linebot.EventTypeFollow:
				h.reply(event.ReplyToken, "Welcome! Send \"link <username>\" to connect your account.")

			case linebot.EventTypeMessage:
				text, ok := event.Message.(*linebot.TextMessage)
				if !ok {
					continue
				}
				h.handleText(event, text.Text)

			case linebot.EventTypeUnfollow:
				lineUserID := event.Source.UserID
				if lineUserID == "" {
					continue
				}
				if err := h.DB.Model(&models.User{}).
					Where("line_id = ?", lineUserID).
					Update("line_id", "").Error; err != nil {
					log.Printf("Failed to unlink LINE account: %v", err)
				}
			}
		}
	}(c.Body())

	return c.SendStatus(fiber.StatusOK)
}

// handleText pairs a LINE account with a user on "link <username>".
func (h *LineWebhookHandler) handleText(event *linebot.Event, text string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) != 2 || !strings.EqualFold(fields[0], "link") {
		return
	}
	lineUserID := event.Source.UserID
	if lineUserID == "" {
		return
	}

	var user models.User
	if err := h.DB.Where("username = ? AND status = ?", fields[1], "active").First(&user).Error; err != nil {
		h.reply(event.ReplyToken, "Unknown username. Check the spelling and try again.")
		return
	}

	if err := h.DB.Model(&user).Update("line_id", lineUserID).Error; err != nil {
		log.Printf("Failed to link LINE account for user %d: %v", user.ID, err)
		return
	}

	log.Printf("Linked LINE account for user %d (%s)", user.ID, user.Username)
	h.reply(event.ReplyToken, "Account linked. You will now receive schedule notifications here.")
}

func (h *LineWebhookHandler) reply(replyToken, message string) {
	if replyToken == "" {
		return
	}
	if _, err := h.Bot.ReplyMessage(replyToken, linebot.NewTextMessage(message)).Do(); err != nil {
		log.Printf("LINE reply failed: %v", err)
	}
}

// validateSignature checks the webhook body against the channel secret
func validateSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
