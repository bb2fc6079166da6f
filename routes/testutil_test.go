package routes

import (
	"bytes"
	"companion-booking-server/models"
	"companion-booking-server/storage"
	"companion-booking-server/utils"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "testsecret"

type testEnv struct {
	app  *iris.Application
	db   *gorm.DB
	chat *ChatHandler
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a second pool connection would get its own empty in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, storage.Migrate(db))
	return db
}

// newTestEnv builds an iris app with the same route layout as main, over an
// in-memory store and a throwaway Redis client.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", testSecret)
	t.Setenv("REFRESH_TOKEN_SECRET", testSecret+"-refresh")

	db := newTestDB(t)
	// nothing listens here; refresh-token allowlisting is best effort
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	tokens := utils.NewTokenService(db, rdb)
	users := NewUserHandler(db, tokens)
	companions := NewCompanionHandler(db)
	bookings := NewBookingHandler(db, SessionConfig{DurationMinutes: 15, Price: 299})
	chat := NewChatHandler(db, rdb)
	admins := NewAdminHandler(db)

	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(testSecret))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", users.Register)
		user.Post("/login", users.Login)
		user.Get("/profile", accessTokenVerifierMiddleware, users.GetProfile)
		user.Patch("/profile", accessTokenVerifierMiddleware, users.UpdateProfile)
	}

	companion := app.Party("/api/companion")
	{
		companion.Get("/", companions.List)
		companion.Get("/my-profile", accessTokenVerifierMiddleware, companions.MyProfile)
		companion.Get("/{id:uint}", companions.Get)
		companion.Post("/", accessTokenVerifierMiddleware, companions.Create)
		companion.Put("/{id:uint}", accessTokenVerifierMiddleware, companions.Update)
		companion.Delete("/{id:uint}", accessTokenVerifierMiddleware, companions.Delete)
	}

	booking := app.Party("/api/bookings", accessTokenVerifierMiddleware)
	{
		booking.Get("/", bookings.ListMine)
		booking.Get("/all", utils.AdminOnlyMiddleware, bookings.AdminList)
		booking.Post("/", bookings.Create)
		booking.Put("/{id:uint}/approve", utils.AdminOnlyMiddleware, bookings.Approve)
		booking.Put("/{id:uint}/reject", utils.AdminOnlyMiddleware, bookings.Reject)
		booking.Delete("/{id:uint}", bookings.Delete)
	}

	chatParty := app.Party("/api/chat", accessTokenVerifierMiddleware)
	{
		chatParty.Get("/bookings/{id:uint}/messages", chat.ListMessages)
		chatParty.Post("/bookings/{id:uint}/messages", chat.SendMessage)
		chatParty.Get("/bookings/{id:uint}/status", chat.Status)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/users", admins.ListUsers)
		admin.Get("/users/{id:uint}", admins.GetUser)
		admin.Delete("/users/{id:uint}", admins.DeleteUser)
		admin.Get("/activity", admins.Activity)
	}

	require.NoError(t, app.Build())
	return &testEnv{app: app, db: db, chat: chat}
}

func signToken(t *testing.T, id uint, role models.Role) string {
	t.Helper()
	signer := jwt.NewSigner(jwt.HS256, testSecret, time.Hour)
	token, err := signer.Sign(utils.AccessToken{ID: id, Role: role})
	require.NoError(t, err)
	return string(token)
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.app.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
}

func uintStr(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func seedUser(t *testing.T, db *gorm.DB, name string, role models.Role, interests ...string) models.User {
	t.Helper()
	user := models.User{
		Name:      name,
		Email:     strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Password:  "not-a-real-hash",
		Role:      role,
		Interests: marshalInterests(interests),
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedCompanion(t *testing.T, db *gorm.DB, user models.User, available bool) models.Companion {
	t.Helper()
	companion := models.Companion{
		UserID:       user.ID,
		Bio:          fmt.Sprintf("bio of %s", user.Name),
		PricePerHour: 50,
		Availability: &available,
	}
	require.NoError(t, db.Create(&companion).Error)
	return companion
}

func seedBooking(t *testing.T, db *gorm.DB, requester models.User, companion models.Companion, start time.Time, status models.BookingStatus, chatEnabled bool) models.Booking {
	t.Helper()
	booking := models.Booking{
		UserID:          requester.ID,
		CompanionID:     companion.ID,
		Date:            start,
		DurationMinutes: 15,
		Price:           299,
		Status:          status,
		ChatEnabled:     chatEnabled,
	}
	require.NoError(t, db.Create(&booking).Error)
	return booking
}
