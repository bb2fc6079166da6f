package routes

import (
	"companion-booking-server/models"
	"companion-booking-server/utils"
	"net/http"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// AdminHandler owns the account administration routes. Every route here is
// mounted behind the admin middleware.
type AdminHandler struct {
	DB *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{DB: db}
}

// GET /api/admin/users
func (h *AdminHandler) ListUsers(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	q := h.DB.Model(&models.User{})
	if role := ctx.URLParamDefault("role", ""); role != "" {
		q = q.Where("role = ?", role)
	}
	if search := ctx.URLParamDefault("q", ""); search != "" {
		like := "%" + search + "%"
		q = q.Where("lower(name) LIKE lower(?) OR lower(email) LIKE lower(?)", like, like)
	}

	var total int64
	q.Count(&total)

	var users []models.User
	if err := q.Offset((page - 1) * perPage).Limit(perPage).Order("created_at DESC").Find(&users).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	utils.JSONPage(ctx, users, page, perPage, total)
}

// GET /api/admin/users/:id
func (h *AdminHandler) GetUser(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "user not found")
		return
	}
	ctx.JSON(iris.Map{"data": &user, "meta": iris.Map{}, "links": iris.Map{}})
}

// DELETE /api/admin/users/:id
// Removes the account and cascades: its companion profile with that profile's
// bookings, its own booking requests, and every message under those bookings.
func (h *AdminHandler) DeleteUser(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "user not found")
		return
	}

	// Hard deletes throughout: a soft-deleted row would keep the email's
	// unique index occupied and block the address from registering again.
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		// Bookings the account requested
		var bookingIDs []uint
		if err := tx.Model(&models.Booking{}).Where("user_id = ?", user.ID).Pluck("id", &bookingIDs).Error; err != nil {
			return err
		}
		if len(bookingIDs) > 0 {
			if err := tx.Where("booking_id IN ?", bookingIDs).Delete(&models.ChatMessage{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("id IN ?", bookingIDs).Delete(&models.Booking{}).Error; err != nil {
				return err
			}
		}

		// Companion profile and the bookings made against it
		var companion models.Companion
		profileQuery := tx.Where("user_id = ?", user.ID).Limit(1).Find(&companion)
		if profileQuery.Error != nil {
			return profileQuery.Error
		}
		if profileQuery.RowsAffected > 0 {
			if err := deleteCompanionCascade(tx, companion.ID); err != nil {
				return err
			}
			if err := tx.Unscoped().Delete(&companion).Error; err != nil {
				return err
			}
		}

		return tx.Unscoped().Delete(&user).Error
	})
	if txErr != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", txErr.Error())
		return
	}

	utils.Audit(ctx, h.DB, "user.delete", "user", user.ID, user, nil)
	ctx.JSON(iris.Map{"deleted": true})
}

// GET /api/admin/activity
func (h *AdminHandler) Activity(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 50)
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	q := h.DB.Model(&models.AuditLog{})
	if action := ctx.URLParamDefault("action", ""); action != "" {
		q = q.Where("action = ?", action)
	}

	var total int64
	q.Count(&total)

	var entries []models.AuditLog
	if err := q.Offset((page - 1) * perPage).Limit(perPage).Order("id DESC").Find(&entries).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	utils.JSONPage(ctx, entries, page, perPage, total)
}
