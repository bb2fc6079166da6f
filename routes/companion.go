package routes

import (
	"companion-booking-server/models"
	"companion-booking-server/utils"
	"strings"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// CompanionHandler owns the public companion directory and profile management.
type CompanionHandler struct {
	DB *gorm.DB
}

func NewCompanionHandler(db *gorm.DB) *CompanionHandler {
	return &CompanionHandler{DB: db}
}

// List returns available companions, optionally filtered by comma-separated
// interest tags (case-insensitive, match any of). Public endpoint.
func (h *CompanionHandler) List(ctx iris.Context) {
	var companions []models.Companion
	if err := h.DB.Where("availability = ?", true).Preload("User").Find(&companions).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if interests := ctx.URLParamDefault("interests", ""); interests != "" {
		wanted := splitTags(interests)
		filtered := make([]models.Companion, 0, len(companions))
		for _, companion := range companions {
			if matchesAnyInterest(companion.User.InterestTags(), wanted) {
				filtered = append(filtered, companion)
			}
		}
		companions = filtered
	}

	ctx.JSON(iris.Map{"companions": companions})
}

func (h *CompanionHandler) Get(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid companion ID.", ctx)
		return
	}

	var companion models.Companion
	if err := h.DB.Preload("User").First(&companion, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(iris.Map{"companion": companion})
}

func (h *CompanionHandler) MyProfile(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var companion models.Companion
	if err := h.DB.Preload("User").Where("user_id = ?", claims.ID).First(&companion).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(iris.Map{"companion": companion})
}

func (h *CompanionHandler) Create(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	if claims.Role != models.RoleCompanion {
		utils.CreateError(iris.StatusForbidden, "Forbidden", "Only companions can create profiles.", ctx)
		return
	}

	var existing models.Companion
	duplicateQuery := h.DB.Where("user_id = ?", claims.ID).Limit(1).Find(&existing)
	if duplicateQuery.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if duplicateQuery.RowsAffected > 0 {
		utils.CreateError(iris.StatusConflict, "Conflict", "Companion profile already exists.", ctx)
		return
	}

	var input CreateCompanionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	availability := true
	if input.Availability != nil {
		availability = *input.Availability
	}

	companion := models.Companion{
		UserID:       claims.ID,
		Bio:          input.Bio,
		PricePerHour: input.PricePerHour,
		ImageURL:     input.ImageURL,
		Availability: &availability,
	}

	if err := h.DB.Create(&companion).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	h.DB.Preload("User").First(&companion, companion.ID)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"companion": companion})
}

func (h *CompanionHandler) Update(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid companion ID.", ctx)
		return
	}

	var companion models.Companion
	if err := h.DB.First(&companion, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if companion.UserID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdateCompanionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Bio != nil {
		companion.Bio = *input.Bio
	}
	if input.PricePerHour != nil {
		companion.PricePerHour = *input.PricePerHour
	}
	if input.ImageURL != nil {
		companion.ImageURL = *input.ImageURL
	}
	if input.Availability != nil {
		companion.Availability = input.Availability
	}

	if err := h.DB.Save(&companion).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	h.DB.Preload("User").First(&companion, companion.ID)
	ctx.JSON(iris.Map{"companion": companion})
}

// Delete removes a companion profile together with its bookings and their
// messages, all in one transaction.
func (h *CompanionHandler) Delete(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid companion ID.", ctx)
		return
	}

	var companion models.Companion
	if err := h.DB.First(&companion, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if companion.UserID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := deleteCompanionCascade(tx, companion.ID); err != nil {
			return err
		}
		return tx.Delete(&companion).Error
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"deleted": true})
}

// deleteCompanionCascade removes the companion's bookings and their messages.
// The companion row itself is left to the caller.
func deleteCompanionCascade(tx *gorm.DB, companionID uint) error {
	var bookingIDs []uint
	if err := tx.Model(&models.Booking{}).Where("companion_id = ?", companionID).Pluck("id", &bookingIDs).Error; err != nil {
		return err
	}
	if len(bookingIDs) > 0 {
		if err := tx.Where("booking_id IN ?", bookingIDs).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", bookingIDs).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
	}
	return nil
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// matchesAnyInterest reports whether any wanted tag appears in the companion's
// tag set, ignoring case.
func matchesAnyInterest(have []string, wanted []string) bool {
	for _, w := range wanted {
		if slices.ContainsFunc(have, func(tag string) bool {
			return strings.EqualFold(strings.TrimSpace(tag), w)
		}) {
			return true
		}
	}
	return false
}

type CreateCompanionInput struct {
	Bio          string  `json:"bio" validate:"max=5000"`
	PricePerHour float64 `json:"pricePerHour" validate:"required,gt=0"`
	ImageURL     string  `json:"imageURL" validate:"max=512"`
	Availability *bool   `json:"availability"`
}

type UpdateCompanionInput struct {
	Bio          *string  `json:"bio" validate:"omitempty,max=5000"`
	PricePerHour *float64 `json:"pricePerHour" validate:"omitempty,gt=0"`
	ImageURL     *string  `json:"imageURL" validate:"omitempty,max=512"`
	Availability *bool    `json:"availability"`
}
