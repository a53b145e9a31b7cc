package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/repository"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_LoginLogout(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "janedoe@fake.com", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "credentials were incorrect", resp.Message)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"janedoe@fake.com","password":"password"}`))
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "successfully logged in")

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// the cookie alone authenticates
	req = httptest.NewRequest(http.MethodGet, "/api/user/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"firstname":"Jane"`)

	resp = app.do(t, http.MethodPost, "/api/auth/logout", cookie.Value, nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	resp = app.do(t, http.MethodGet, "/api/user/", cookie.Value, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = app.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, resp.Status, "logout without a session")
}

func TestAuthHandler_Refresh(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "philjonas@fake.com")

	resp := app.do(t, http.MethodPost, "/api/auth/refresh", token, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	next := decode[sessionResult](t, resp.Result)
	assert.NotEqual(t, token, next.Token)
	assert.Equal(t, int64(2), next.UserID)

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/user/", token, nil).Status)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/user/", next.Token, nil).Status)
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "janedoe@fake.com")

	resp := app.do(t, http.MethodPut, "/api/user/", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "did not give any data to update user to the server", resp.Message)

	resp = app.do(t, http.MethodPut, "/api/user/", token, map[string]string{"lastname": "Smith"})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "updated user account", resp.Message)

	resp = app.do(t, http.MethodGet, "/api/user/", token, nil)
	user := decode[domain.User](t, resp.Result)
	assert.Equal(t, "Smith", user.LastName)
}

func TestTrackingHandler_EmergencyContactRoundTrip(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "janedoe@fake.com")

	resp := app.do(t, http.MethodPost, "/api/user/emergency_contact", token, map[string]string{"contact_name": "Sam"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "must contain a json with contact_name and contact_tel to add a emergency contact", resp.Message)

	name := `Mary "Mo" O'Brien; DELETE FROM users`
	resp = app.do(t, http.MethodPost, "/api/user/emergency_contact", token, map[string]string{
		"contact_name": name, "contact_tel": "555-987-6543",
	})
	require.Equal(t, http.StatusCreated, resp.Status, resp.Message)
	added := decode[domain.EmergencyContact](t, resp.Result)

	resp = app.do(t, http.MethodGet, "/api/user/emergency_contact/"+itoa(added.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	got := decode[domain.EmergencyContact](t, resp.Result)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, "555-987-6543", got.Phone)

	resp = app.do(t, http.MethodGet, "/api/user/emergency_contact", token, nil)
	list := decode[[]domain.EmergencyContact](t, resp.Result)
	assert.Len(t, list, 2)

	resp = app.do(t, http.MethodDelete, "/api/user/emergency_contact/"+itoa(added.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	resp = app.do(t, http.MethodGet, "/api/user/emergency_contact/"+itoa(added.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "emergency contact doesn't exist", resp.Message)

	resp = app.do(t, http.MethodGet, "/api/user/emergency_contact/abc", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestTrackingHandler_TripScenario(t *testing.T) {
	app := newTestApp(t)
	jane := app.login(t, "janedoe@fake.com")
	phil := app.login(t, "philjonas@fake.com")
	trip := map[string]string{"from_location": "Home", "to_location": "Library"}

	resp := app.do(t, http.MethodGet, "/api/user/status", jane, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"status":"inactive"}`, string(resp.Result))

	resp = app.do(t, http.MethodPost, "/api/user/current_trip", jane, trip)
	require.Equal(t, http.StatusCreated, resp.Status, resp.Message)

	resp = app.do(t, http.MethodPost, "/api/user/current_trip", jane, trip)
	assert.Equal(t, http.StatusConflict, resp.Status)

	resp = app.do(t, http.MethodGet, "/api/user/1/status", jane, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"status":"active"}`, string(resp.Result))

	resp = app.do(t, http.MethodGet, "/api/user/current_trip", phil, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "caretaker does not have a impaired user to look at their current trip", resp.Message)

	resp = app.do(t, http.MethodGet, "/api/user/1/status", phil, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	resp = app.do(t, http.MethodGet, "/api/user/1/status", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.Status, "anonymous callers get the same answer as unrelated ones")
	assert.Equal(t, "cannot access status of user if they exist", resp.Message)
	resp = app.do(t, http.MethodGet, "/api/user/999/status", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "cannot access status of user if they exist", resp.Message)

	resp = app.do(t, http.MethodPut, "/api/user/caretaker", jane, map[string]string{"email": "philjonas@fake.com", "password": "password"})
	require.Equal(t, http.StatusOK, resp.Status)

	resp = app.do(t, http.MethodGet, "/api/user/current_trip", phil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"from_location":"Home","to_location":"Library"}`, string(resp.Result))

	resp = app.do(t, http.MethodDelete, "/api/user/current_trip", phil, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status, "only the impaired user ends a trip")

	resp = app.do(t, http.MethodDelete, "/api/user/current_trip", jane, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	resp = app.do(t, http.MethodGet, "/api/user/current_trip", jane, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "user is not on a trip", resp.Message)

	resp = app.do(t, http.MethodPost, "/api/user/current_trip", jane, trip)
	assert.Equal(t, http.StatusCreated, resp.Status)

	resp = app.do(t, http.MethodPost, "/api/user/past_trip", jane, map[string]string{"destination_location": "Library"})
	require.Equal(t, http.StatusCreated, resp.Status)
	past := decode[domain.PastTrip](t, resp.Result)

	resp = app.do(t, http.MethodGet, "/api/user/past_trip/"+itoa(past.ID), phil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Library", decode[domain.PastTrip](t, resp.Result).Destination)
}

func TestTrackingHandler_Activities(t *testing.T) {
	app := newTestApp(t)
	jane := app.login(t, "janedoe@fake.com")

	resp := app.do(t, http.MethodPost, "/api/user/activity", jane, map[string]string{"notice_status": "Fine", "small_description": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "notice_status must contain the value Good, Okay, or Bad", resp.Message)

	resp = app.do(t, http.MethodPost, "/api/user/activity", jane, map[string]string{"notice_status": "Good", "small_description": "park walk"})
	require.Equal(t, http.StatusCreated, resp.Status)
	added := decode[domain.Activity](t, resp.Result)

	resp = app.do(t, http.MethodGet, "/api/user/activity/"+itoa(added.ID), jane, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, domain.ActivityGood, decode[domain.Activity](t, resp.Result).Status)

	resp = app.do(t, http.MethodGet, "/api/user/activity", jane, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Len(t, decode[[]domain.Activity](t, resp.Result), 1)
}

func TestConversationHandler(t *testing.T) {
	app := newTestApp(t)
	jane := app.login(t, "janedoe@fake.com")
	phil := app.login(t, "philjonas@fake.com")

	resp := app.do(t, http.MethodPut, "/api/user/caretaker", jane, map[string]string{"email": "philjonas@fake.com", "password": "password"})
	require.Equal(t, http.StatusOK, resp.Status)

	resp = app.do(t, http.MethodGet, "/api/user/caretaker_conversation/messages", phil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "conversation between users has not been created", resp.Message)

	resp = app.do(t, http.MethodPost, "/api/user/caretaker_conversation", phil, nil)
	assert.Equal(t, http.StatusCreated, resp.Status)
	resp = app.do(t, http.MethodPost, "/api/user/caretaker_conversation", jane, nil)
	assert.Equal(t, http.StatusOK, resp.Status, "existing conversation is returned")

	resp = app.do(t, http.MethodPost, "/api/user/caretaker_conversation/messages", jane, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "must contain a json with msg to add a conversation message", resp.Message)

	for _, tok := range []string{jane, phil, jane} {
		resp = app.do(t, http.MethodPost, "/api/user/caretaker_conversation/messages", tok, map[string]string{"msg": "hi"})
		require.Equal(t, http.StatusCreated, resp.Status, resp.Message)
	}

	resp = app.do(t, http.MethodGet, "/api/user/caretaker_conversation/messages", phil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	msgs := decode[[]domain.ConversationMessage](t, resp.Result)
	require.Len(t, msgs, 3)
	assert.Equal(t, []domain.Role{domain.RoleImpaired, domain.RoleCaretaker, domain.RoleImpaired},
		[]domain.Role{msgs[0].AuthorRole, msgs[1].AuthorRole, msgs[2].AuthorRole})
	assert.Equal(t, int64(3), msgs[2].SequenceNumber)

	resp = app.do(t, http.MethodDelete, "/api/user/caretaker_conversation", jane, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	resp = app.do(t, http.MethodGet, "/api/user/caretaker_conversation/messages", jane, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestConversationHandler_ReassignedCaretaker(t *testing.T) {
	app := newTestApp(t)
	hash, err := service.HashPassword("password")
	require.NoError(t, err)
	_, err = repository.NewUsersRepo(app.mem).CreateUser(context.Background(), &domain.User{
		Email: "bob@fake.com", PasswordHash: hash, FirstName: "Bob", LastName: "Lee", Role: domain.RoleCaretaker,
	})
	require.NoError(t, err)

	jane := app.login(t, "janedoe@fake.com")
	phil := app.login(t, "philjonas@fake.com")
	bob := app.login(t, "bob@fake.com")

	resp := app.do(t, http.MethodPut, "/api/user/caretaker", jane, map[string]string{"email": "philjonas@fake.com", "password": "password"})
	require.Equal(t, http.StatusOK, resp.Status)
	resp = app.do(t, http.MethodPost, "/api/user/caretaker_conversation", jane, nil)
	require.Equal(t, http.StatusCreated, resp.Status)
	resp = app.do(t, http.MethodPost, "/api/user/caretaker_conversation/messages", jane, map[string]string{"msg": "for phil only"})
	require.Equal(t, http.StatusCreated, resp.Status)

	resp = app.do(t, http.MethodPut, "/api/user/caretaker", jane, map[string]string{"email": "bob@fake.com", "password": "password"})
	require.Equal(t, http.StatusOK, resp.Status)

	resp = app.do(t, http.MethodGet, "/api/user/caretaker_conversation/messages", phil, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status, "an unpaired caretaker is refused")
	resp = app.do(t, http.MethodGet, "/api/user/caretaker_conversation/messages", jane, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = app.do(t, http.MethodPost, "/api/user/caretaker_conversation", bob, nil)
	require.Equal(t, http.StatusCreated, resp.Status)
	resp = app.do(t, http.MethodPost, "/api/user/caretaker_conversation/messages", jane, map[string]string{"msg": "hello bob"})
	require.Equal(t, http.StatusCreated, resp.Status)

	resp = app.do(t, http.MethodGet, "/api/user/caretaker_conversation/messages", bob, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	msgs := decode[[]domain.ConversationMessage](t, resp.Result)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello bob", msgs[0].Body)
	assert.Equal(t, int64(1), msgs[0].SequenceNumber)
}

func TestRouter_BadJSONIsValidation(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "janedoe@fake.com")

	req := httptest.NewRequest(http.MethodPost, "/api/user/current_trip", strings.NewReader(`{"from_location":`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
