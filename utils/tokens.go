package utils

import (
	"companion-booking-server/models"
	"context"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"
)

var bgContext = context.Background()

// AccessToken is the claims payload of an access token. Role is decoded into
// the closed variant here, at the trust boundary.
type AccessToken struct {
	ID   uint        `json:"ID"`
	Role models.Role `json:"role"`
}

type RefreshTokenInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenService signs and rotates token pairs. Refresh tokens are allowlisted in
// Redis so a used or revoked token cannot be replayed.
type TokenService struct {
	DB            *gorm.DB
	Redis         *redis.Client
	accessSecret  string
	refreshSecret string
}

func NewTokenService(db *gorm.DB, rdb *redis.Client) *TokenService {
	return &TokenService{
		DB:            db,
		Redis:         rdb,
		accessSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		refreshSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
	}
}

func (s *TokenService) CreateTokenPair(id uint) (*jwt.TokenPair, error) {
	accessTokenSigner := jwt.NewSigner(jwt.HS256, s.accessSecret, 24*time.Hour)
	refreshTokenSigner := jwt.NewSigner(jwt.HS256, s.refreshSecret, 365*24*time.Hour)

	userID := strconv.FormatUint(uint64(id), 10)
	refreshClaims := jwt.Claims{Subject: userID}

	// Embed the role so middleware can gate without a store round-trip
	var u models.User
	role := models.RoleUser
	if err := s.DB.Select("id, role").First(&u, id).Error; err == nil && u.Role != "" {
		role = u.Role
	}

	accessToken, err := accessTokenSigner.Sign(AccessToken{ID: id, Role: role})
	if err != nil {
		return nil, err
	}

	refreshToken, err := refreshTokenSigner.Sign(refreshClaims)
	if err != nil {
		return nil, err
	}

	var tokenPair jwt.TokenPair
	tokenPair.AccessToken = accessToken
	tokenPair.RefreshToken = refreshToken

	s.Redis.Set(bgContext, string(refreshToken), "true", 365*24*time.Hour+5*time.Minute)

	return &tokenPair, nil
}

// Refresh rotates a verified refresh token: the presented token is consumed and
// a fresh pair is issued.
func (s *TokenService) Refresh(ctx iris.Context) {
	token := jwt.GetVerifiedToken(ctx)
	tokenStr := string(token.Token)
	validToken, tokenErr := s.Redis.Get(bgContext, tokenStr).Result()

	if tokenErr != nil {
		CreateNotFound(ctx)
		return
	}

	if validToken != "true" {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	s.Redis.Del(bgContext, tokenStr)
	userID, parseErr := strconv.ParseUint(token.StandardClaims.Subject, 10, 32)
	if parseErr != nil {
		CreateInternalServerError(ctx)
		return
	}

	tokenPair, tokenPairErr := s.CreateTokenPair(uint(userID))
	if tokenPairErr != nil {
		CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}
