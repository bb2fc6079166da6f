package routes

import (
	"companion-booking-server/models"
	"companion-booking-server/utils"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"
)

// SessionConfig fixes the duration and price applied to every new booking.
// Overridable per deployment through the environment.
type SessionConfig struct {
	DurationMinutes int
	Price           int
}

// SessionConfigFromEnv reads SESSION_DURATION_MINUTES and SESSION_PRICE,
// defaulting to a 15 minute session at 299.
func SessionConfigFromEnv() SessionConfig {
	cfg := SessionConfig{DurationMinutes: 15, Price: 299}
	if v, err := strconv.Atoi(os.Getenv("SESSION_DURATION_MINUTES")); err == nil && v > 0 {
		cfg.DurationMinutes = v
	}
	if v, err := strconv.Atoi(os.Getenv("SESSION_PRICE")); err == nil && v > 0 {
		cfg.Price = v
	}
	return cfg
}

// BookingHandler owns the booking lifecycle: creation, admin approval and
// rejection, deletion, and per-role listing.
type BookingHandler struct {
	DB      *gorm.DB
	Session SessionConfig
}

func NewBookingHandler(db *gorm.DB, session SessionConfig) *BookingHandler {
	return &BookingHandler{DB: db, Session: session}
}

type CreateBookingInput struct {
	CompanionID uint   `json:"companionID" validate:"required"`
	Date        string `json:"date" validate:"required"`
}

func (h *BookingHandler) Create(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var input CreateBookingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var companion models.Companion
	if err := h.DB.First(&companion, input.CompanionID).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Companion not found.", ctx)
		return
	}

	if !companion.Available() {
		utils.CreateError(iris.StatusBadRequest, "Unavailable", "Companion is not available.", ctx)
		return
	}

	date, err := time.Parse(time.RFC3339, input.Date)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid date format. Use RFC 3339.", ctx)
		return
	}

	booking := models.Booking{
		UserID:          claims.ID,
		CompanionID:     companion.ID,
		Date:            date,
		DurationMinutes: h.Session.DurationMinutes,
		Price:           h.Session.Price,
		Status:          models.BookingPending,
		ChatEnabled:     false,
	}

	if err := h.DB.Create(&booking).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	h.DB.Preload("User").Preload("Companion").Preload("Companion.User").First(&booking, booking.ID)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"booking": booking})
}

// ListMine returns the caller's bookings: requests they made, or, for a
// companion account, sessions booked against their profile.
func (h *BookingHandler) ListMine(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	q := h.DB.Preload("User").Preload("Companion").Preload("Companion.User").Order("created_at DESC")

	if claims.Role == models.RoleCompanion {
		var companion models.Companion
		profileQuery := h.DB.Where("user_id = ?", claims.ID).Limit(1).Find(&companion)
		if profileQuery.Error != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		if profileQuery.RowsAffected == 0 {
			ctx.JSON(iris.Map{"bookings": []models.Booking{}})
			return
		}
		q = q.Where("companion_id = ?", companion.ID)
	} else {
		q = q.Where("user_id = ?", claims.ID)
	}

	var bookings []models.Booking
	if err := q.Find(&bookings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"bookings": bookings})
}

// AdminList returns all bookings, paged, optionally filtered by status.
// Mounted behind the admin middleware.
func (h *BookingHandler) AdminList(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	q := h.DB.Model(&models.Booking{})
	if status := ctx.URLParamDefault("status", ""); status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	q.Count(&total)

	var bookings []models.Booking
	if err := q.Preload("User").Preload("Companion").Preload("Companion.User").
		Offset((page - 1) * perPage).Limit(perPage).Order("created_at DESC").
		Find(&bookings).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	utils.JSONPage(ctx, bookings, page, perPage, total)
}

// Approve moves a pending booking to approved and enables its chat window.
// Mounted behind the admin middleware.
func (h *BookingHandler) Approve(ctx iris.Context) {
	h.settle(ctx, models.BookingApproved)
}

// Reject moves a pending booking to rejected. Chat is never enabled.
// Mounted behind the admin middleware.
func (h *BookingHandler) Reject(ctx iris.Context) {
	h.settle(ctx, models.BookingRejected)
}

func (h *BookingHandler) settle(ctx iris.Context, target models.BookingStatus) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	var booking models.Booking
	if err := h.DB.First(&booking, id).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "booking not found")
		return
	}

	if !booking.Status.CanTransition(target) {
		utils.JSONError(ctx, http.StatusConflict, "invalid_status",
			"booking is already "+string(booking.Status))
		return
	}

	// Re-applying the current status is a no-op: nothing to write, nothing to
	// audit.
	if booking.Status == target {
		h.DB.Preload("User").Preload("Companion").Preload("Companion.User").First(&booking, booking.ID)
		ctx.JSON(iris.Map{"booking": booking})
		return
	}

	before := booking
	booking.Status = target
	if target == models.BookingApproved {
		booking.ChatEnabled = true
	}

	if err := h.DB.Save(&booking).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	utils.Audit(ctx, h.DB, "booking."+string(target), "booking", booking.ID, before, booking)

	h.DB.Preload("User").Preload("Companion").Preload("Companion.User").First(&booking, booking.ID)
	ctx.JSON(iris.Map{"booking": booking})
}

// Delete removes a booking and its messages. Only the requester or an admin may
// delete.
func (h *BookingHandler) Delete(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid booking ID.", ctx)
		return
	}

	var booking models.Booking
	if err := h.DB.First(&booking, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if booking.UserID != claims.ID && claims.Role != models.RoleAdmin {
		utils.CreateForbidden(ctx)
		return
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("booking_id = ?", booking.ID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&booking).Error
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if claims.Role == models.RoleAdmin && booking.UserID != claims.ID {
		utils.Audit(ctx, h.DB, "booking.delete", "booking", booking.ID, booking, nil)
	}

	ctx.JSON(iris.Map{"deleted": true})
}
