package routes

import (
	"companion-booking-server/models"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env.db, "Regular", models.RoleUser)
	admin := seedUser(t, env.db, "Admin", models.RoleAdmin)

	rec := env.request(t, http.MethodGet, "/api/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/admin/users", signToken(t, user.ID, models.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/admin/users", signToken(t, admin.ID, models.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminListUsersFilters(t *testing.T) {
	env := newTestEnv(t)
	admin := seedUser(t, env.db, "Admin", models.RoleAdmin)
	seedUser(t, env.db, "Alice Walker", models.RoleUser)
	seedUser(t, env.db, "Bob Stone", models.RoleCompanion)
	token := signToken(t, admin.ID, models.RoleAdmin)

	var page struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}

	rec := env.request(t, http.MethodGet, "/api/admin/users?role=companion", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Bob Stone", page.Data[0].Name)
	assert.Equal(t, 1, page.Meta.Total)

	rec = env.request(t, http.MethodGet, "/api/admin/users?q=alice", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Alice Walker", page.Data[0].Name)
}

func TestAdminGetUser(t *testing.T) {
	env := newTestEnv(t)
	admin := seedUser(t, env.db, "Admin", models.RoleAdmin)
	target := seedUser(t, env.db, "Target", models.RoleUser)
	token := signToken(t, admin.ID, models.RoleAdmin)

	rec := env.request(t, http.MethodGet, "/api/admin/users/"+uintStr(target.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Email string `json:"email"`
		} `json:"data"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, target.Email, body.Data.Email)

	rec = env.request(t, http.MethodGet, "/api/admin/users/999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDeleteUserCascades(t *testing.T) {
	env := newTestEnv(t)
	admin := seedUser(t, env.db, "Admin", models.RoleAdmin)
	account := seedUser(t, env.db, "Comp", models.RoleCompanion)
	companion := seedCompanion(t, env.db, account, true)
	requester := seedUser(t, env.db, "Requester", models.RoleUser)
	booking := seedBooking(t, env.db, requester, companion, time.Now(), models.BookingApproved, true)
	require.NoError(t, env.db.Create(&models.ChatMessage{
		BookingID: booking.ID,
		SenderID:  requester.ID,
		Content:   "hello",
	}).Error)

	rec := env.request(t, http.MethodDelete, "/api/admin/users/"+uintStr(account.ID), signToken(t, admin.ID, models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var users, companions, bookings, messages int64
	env.db.Model(&models.User{}).Where("id = ?", account.ID).Count(&users)
	env.db.Model(&models.Companion{}).Count(&companions)
	env.db.Model(&models.Booking{}).Count(&bookings)
	env.db.Model(&models.ChatMessage{}).Count(&messages)
	assert.Zero(t, users)
	assert.Zero(t, companions)
	assert.Zero(t, bookings)
	assert.Zero(t, messages)

	// the requester account was only a party to the booking and survives
	var requesterCount int64
	env.db.Model(&models.User{}).Where("id = ?", requester.ID).Count(&requesterCount)
	assert.Equal(t, int64(1), requesterCount)
}

func TestAdminActivityLog(t *testing.T) {
	env := newTestEnv(t)
	admin := seedUser(t, env.db, "Admin", models.RoleAdmin)
	account := seedUser(t, env.db, "Comp", models.RoleCompanion)
	companion := seedCompanion(t, env.db, account, true)
	requester := seedUser(t, env.db, "Requester", models.RoleUser)
	booking := seedBooking(t, env.db, requester, companion, time.Now(), models.BookingPending, false)
	token := signToken(t, admin.ID, models.RoleAdmin)

	rec := env.request(t, http.MethodPut, "/api/bookings/"+uintStr(booking.ID)+"/approve", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Data []struct {
			Action       string `json:"action"`
			ResourceType string `json:"resourceType"`
			ResourceID   uint   `json:"resourceID"`
			ActorID      uint   `json:"actorID"`
		} `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}

	rec = env.request(t, http.MethodGet, "/api/admin/activity", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &page)
	require.GreaterOrEqual(t, page.Meta.Total, 1)
	require.NotEmpty(t, page.Data)
	assert.Equal(t, "booking.approved", page.Data[0].Action)
	assert.Equal(t, "booking", page.Data[0].ResourceType)
	assert.Equal(t, booking.ID, page.Data[0].ResourceID)
	assert.Equal(t, admin.ID, page.Data[0].ActorID)

	rec = env.request(t, http.MethodGet, "/api/admin/activity?action=user.delete", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &page)
	assert.Empty(t, page.Data)

	// re-approving an approved booking changes nothing and logs nothing
	rec = env.request(t, http.MethodPut, "/api/bookings/"+uintStr(booking.ID)+"/approve", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.request(t, http.MethodGet, "/api/admin/activity", token, nil)
	decodeBody(t, rec, &page)
	assert.Equal(t, 1, page.Meta.Total)
}

func TestAdminDeleteFreesEmail(t *testing.T) {
	env := newTestEnv(t)
	admin := seedUser(t, env.db, "Admin", models.RoleAdmin)
	target := seedUser(t, env.db, "Target", models.RoleUser)

	rec := env.request(t, http.MethodDelete, "/api/admin/users/"+uintStr(target.ID), signToken(t, admin.ID, models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/user/register", "", registerInput(target.Email, "user"))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
