package routes

import (
	"companion-booking-server/models"
	"companion-booking-server/utils"
	"encoding/json"
	"strings"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserHandler owns signup, login and profile routes.
type UserHandler struct {
	DB     *gorm.DB
	Tokens *utils.TokenService
}

func NewUserHandler(db *gorm.DB, tokens *utils.TokenService) *UserHandler {
	return &UserHandler{DB: db, Tokens: tokens}
}

func (h *UserHandler) Register(ctx iris.Context) {
	var userInput RegisterUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	role, ok := models.ParseRole(userInput.Role)
	if !ok {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid role.", ctx)
		return
	}

	var newUser models.User
	userExists, userExistsErr := h.getAndHandleUserExists(&newUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if userExists {
		utils.CreateEmailAlreadyRegistered(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(userInput.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	newUser = models.User{
		Name:      userInput.Name,
		Email:     strings.ToLower(userInput.Email),
		Password:  hashedPassword,
		Role:      role,
		State:     userInput.State,
		District:  userInput.District,
		Age:       userInput.Age,
		Interests: marshalInterests(userInput.Interests),
	}

	if err := h.DB.Create(&newUser).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	h.returnUser(newUser, ctx)
}

func (h *UserHandler) Login(ctx iris.Context) {
	var userInput LoginUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var existingUser models.User
	errorMsg := "Invalid email or password."
	userExists, userExistsErr := h.getAndHandleUserExists(&existingUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !userExists {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(existingUser.Password), []byte(userInput.Password))
	if passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	h.returnUser(existingUser, ctx)
}

func (h *UserHandler) GetProfile(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var user models.User
	if err := h.DB.First(&user, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(iris.Map{"user": &user})
}

func (h *UserHandler) UpdateProfile(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var user models.User
	if err := h.DB.First(&user, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var input UpdateProfileInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.State != nil {
		user.State = *input.State
	}
	if input.District != nil {
		user.District = *input.District
	}
	if input.Age != nil {
		user.Age = *input.Age
	}
	if input.Interests != nil {
		user.Interests = marshalInterests(input.Interests)
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"user": &user})
}

func (h *UserHandler) getAndHandleUserExists(user *models.User, email string) (exists bool, err error) {
	userExistsQuery := h.DB.Where("email = ?", strings.ToLower(email)).Limit(1).Find(user)

	if userExistsQuery.Error != nil {
		return false, userExistsQuery.Error
	}

	return userExistsQuery.RowsAffected > 0, nil
}

func hashAndSaltPassword(password string) (hashedPassword string, err error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

func marshalInterests(tags []string) []byte {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return b
}

func (h *UserHandler) returnUser(user models.User, ctx iris.Context) {
	tokenPair, tokenErr := h.Tokens.CreateTokenPair(user.ID)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"ID":           user.ID,
		"name":         user.Name,
		"email":        user.Email,
		"role":         user.Role,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

type RegisterUserInput struct {
	Name      string   `json:"name" validate:"required,max=100"`
	Email     string   `json:"email" validate:"required,max=120,email"`
	Password  string   `json:"password" validate:"required,min=8,max=256"`
	Role      string   `json:"role" validate:"required"`
	State     string   `json:"state" validate:"max=100"`
	District  string   `json:"district" validate:"max=100"`
	Age       int      `json:"age" validate:"omitempty,gte=18,lte=120"`
	Interests []string `json:"interests"`
}

type LoginUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	Name      *string  `json:"name" validate:"omitempty,max=100"`
	State     *string  `json:"state" validate:"omitempty,max=100"`
	District  *string  `json:"district" validate:"omitempty,max=100"`
	Age       *int     `json:"age" validate:"omitempty,gte=18,lte=120"`
	Interests []string `json:"interests"`
}
