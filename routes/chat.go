package routes

import (
	"companion-booking-server/models"
	"companion-booking-server/utils"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"
)

// ChatHandler owns the time-boxed booking chat. Permission is recomputed from
// the booking on every read and write; a lapsed window is never actively
// closed, only observed as closed.
type ChatHandler struct {
	DB    *gorm.DB
	Redis *redis.Client

	// now is swappable for tests; defaults to time.Now.
	now func() time.Time
}

func NewChatHandler(db *gorm.DB, rdb *redis.Client) *ChatHandler {
	return &ChatHandler{DB: db, Redis: rdb, now: time.Now}
}

type SendChatMessageInput struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// loadBookingForParticipant fetches the booking and enforces that the caller is
// its requester or its companion's account holder. Writes the error response
// itself and returns nil when the caller may not proceed.
func (h *ChatHandler) loadBookingForParticipant(ctx iris.Context) *models.Booking {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid booking ID.", ctx)
		return nil
	}

	var booking models.Booking
	if err := h.DB.Preload("Companion").First(&booking, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return nil
	}

	if booking.UserID != claims.ID && booking.Companion.UserID != claims.ID {
		utils.CreateForbidden(ctx)
		return nil
	}

	return &booking
}

// ListMessages returns the booking's messages in creation order together with
// the computed chat state, so a polling client needs a single call.
func (h *ChatHandler) ListMessages(ctx iris.Context) {
	booking := h.loadBookingForParticipant(ctx)
	if booking == nil {
		return
	}

	var messages []models.ChatMessage
	if err := h.DB.Where("booking_id = ?", booking.ID).
		Preload("Sender").Order("id ASC").Find(&messages).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	now := h.now()
	ctx.JSON(iris.Map{
		"messages":      messages,
		"chatEnabled":   booking.ChatOpen(now),
		"timeRemaining": booking.TimeRemaining(now),
		"booking":       booking,
	})
}

func (h *ChatHandler) SendMessage(ctx iris.Context) {
	booking := h.loadBookingForParticipant(ctx)
	if booking == nil {
		return
	}

	if !booking.ChatOpen(h.now()) {
		utils.CreateChatClosed(ctx)
		return
	}

	var input SendChatMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jsonWT.Get(ctx).(*utils.AccessToken)
	message := models.ChatMessage{
		BookingID: booking.ID,
		SenderID:  claims.ID,
		Content:   input.Content,
	}

	if err := h.DB.Create(&message).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	h.DB.Preload("Sender").First(&message, message.ID)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"message": message})
}

// Status reports the computed chat state without the message history.
func (h *ChatHandler) Status(ctx iris.Context) {
	booking := h.loadBookingForParticipant(ctx)
	if booking == nil {
		return
	}

	now := h.now()
	ctx.JSON(iris.Map{
		"chatEnabled":   booking.ChatOpen(now),
		"timeRemaining": booking.TimeRemaining(now),
		"booking":       booking,
	})
}

// Typing marks the caller as typing for a few seconds. Best effort; clients
// reconcile through ListMessages, never through presence.
func (h *ChatHandler) Typing(ctx iris.Context) {
	booking := h.loadBookingForParticipant(ctx)
	if booking == nil {
		return
	}

	claims := jsonWT.Get(ctx).(*utils.AccessToken)
	h.Redis.Set(ctx, typingKey(booking.ID, claims.ID), "1", 5*time.Second)
	ctx.JSON(iris.Map{"success": true})
}

// ListTyping reports which other participant is currently typing.
func (h *ChatHandler) ListTyping(ctx iris.Context) {
	booking := h.loadBookingForParticipant(ctx)
	if booking == nil {
		return
	}

	claims := jsonWT.Get(ctx).(*utils.AccessToken)
	typing := []iris.Map{}
	for _, participantID := range []uint{booking.UserID, booking.Companion.UserID} {
		if participantID == claims.ID {
			continue
		}
		if val, err := h.Redis.Get(ctx, typingKey(booking.ID, participantID)).Result(); err == nil && val == "1" {
			typing = append(typing, iris.Map{"userID": participantID})
		}
	}
	ctx.JSON(iris.Map{"typing": typing})
}

func typingKey(bookingID uint, userID uint) string {
	return fmt.Sprintf("typing:bkg:%d:user:%d", bookingID, userID)
}
