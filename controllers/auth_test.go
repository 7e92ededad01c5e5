package controllers

import (
	"approvalapi/models"
	"approvalapi/workflow"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"gotest.tools/assert"
)

func TestAuthenticate(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI()
	api.Db = db

	label := []string{"id", "email", "name", "role", "department", "created_at", "updated_at", "is_correct"}

	// nil request (400)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var genericResp GenericResponse

	req, _ := http.NewRequest("POST", "", nil)
	c.Request = req
	api.Authenticate(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request", genericResp.Message)

	// bad request (400)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	payload := parsePayload(models.AuthRequest{})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	api.Authenticate(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing-email-or-password", genericResp.Message)

	// err select (500)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	payload = parsePayload(models.AuthRequest{
		Email:    "test@gmail.com",
		Password: "test1234",
	})

	dbMock.ExpectQuery("SELECT id.*").WillReturnError(errors.New("err-select"))

	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	api.Authenticate(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "err-select", genericResp.Message)

	// unknown email (401)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	payload = parsePayload(models.AuthRequest{
		Email:    "test@gmail.com",
		Password: "test1234",
	})

	dbMock.ExpectQuery("SELECT id.*").WillReturnRows(sqlmock.NewRows(label))

	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	api.Authenticate(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid-email-or-password", genericResp.Message)

	// wrong password (401)
	reqAuth := models.AuthRequest{
		Email:    "test@gmail.com",
		Password: "test1234",
	}
	mockUUID := "d234578a-ee95-4dab-b5ed-e0a83b03bbfc"
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	payload = parsePayload(reqAuth)

	dbMock.ExpectQuery("SELECT id.*").
		WillReturnRows(sqlmock.NewRows(label).
			AddRow(mockUUID, "test@gmail.com", "test", string(workflow.RoleChecker), "Finance", time.Now(), time.Now(), false))

	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	api.Authenticate(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid-email-or-password", genericResp.Message)

	// err generate token (500)
	redisDB, redisMock := redismock.NewClientMock()
	api.Redis = redisDB

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	payload = parsePayload(reqAuth)

	dbMock.ExpectQuery("SELECT id.*").
		WillReturnRows(sqlmock.NewRows(label).
			AddRow(mockUUID, "test@gmail.com", "test", string(workflow.RoleChecker), "Finance", time.Now(), time.Now(), true))

	redisMock.ExpectGet("auth:" + reqAuth.Email).SetVal("test")
	redisMock.Regexp().ExpectSet("[.]", "[.]", 30*time.Minute).SetErr(errors.New("err-set"))

	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	api.Authenticate(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "err-set", genericResp.Message)

	// 200
	redisDB, redisMock = redismock.NewClientMock()
	api.Redis = redisDB

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	payload = parsePayload(reqAuth)

	dbMock.ExpectQuery("SELECT id.*").
		WillReturnRows(sqlmock.NewRows(label).
			AddRow(mockUUID, "test@gmail.com", "test", string(workflow.RoleChecker), "Finance", time.Now(), time.Now(), true))

	redisMock.ExpectGet("auth:" + reqAuth.Email).SetVal("test")
	redisMock.Regexp().ExpectSet("[.]", "[.]", 30*time.Minute).SetVal("OK")
	redisMock.Regexp().ExpectSet("[.]", "[.]", 30*time.Minute).SetVal("OK")
	redisMock.Regexp().ExpectSet("[.]", "[.]", 30*time.Minute).SetVal("OK")

	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	api.Authenticate(c)

	var respOK models.AuthResponse

	err = json.NewDecoder(w.Body).Decode(&respOK)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, reqAuth.Email, respOK.Email)
	assert.Equal(t, "test", respOK.Name)
	assert.Equal(t, "Finance", respOK.Department)
}

func TestCheckSession(t *testing.T) {
	api := NewAPI()

	redisDB, redisMock := redismock.NewClientMock()
	api.Redis = redisDB

	// err redis (500)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var genericResp GenericResponse

	redisMock.ExpectGet("auth:test@gmail.com").SetErr(errors.New("err-redis"))

	req, _ := http.NewRequest("POST", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"email\":\"test@gmail.com\"}}")
	api.CheckSession(c)

	err := json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "err-redis", genericResp.Message)

	// unauthorized (401)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	redisMock.ExpectGet("auth:test@gmail.com").SetErr(redis.Nil)

	req, _ = http.NewRequest("POST", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"email\":\"test@gmail.com\"}}")
	api.CheckSession(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", genericResp.Message)

	// 200
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	redisMock.ExpectGet("auth:test@gmail.com").SetVal("OK")

	req, _ = http.NewRequest("POST", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"email\":\"test@gmail.com\"}}")
	api.CheckSession(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", genericResp.Message)
}

func TestLogout(t *testing.T) {
	api := NewAPI()

	redisDB, redisMock := redismock.NewClientMock()
	api.Redis = redisDB

	// err redis token string (500)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var genericResp GenericResponse

	redisMock.ExpectDel("").SetErr(errors.New("err-redis-token-string"))

	req, _ := http.NewRequest("POST", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", "{\"refresh-token\":\"test-refresh\",\"user\":{\"email\":\"test@gmail.com\"}}")
	api.Logout(c)

	err := json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "err-redis-token-string", genericResp.Message)

	// 200
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	redisMock.ExpectDel("").SetVal(1)
	redisMock.ExpectDel("test-refresh").SetVal(1)
	redisMock.ExpectDel("auth:test@gmail.com").SetVal(1)

	req, _ = http.NewRequest("POST", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", "{\"refresh-token\":\"test-refresh\",\"user\":{\"email\":\"test@gmail.com\"}}")
	api.Logout(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", genericResp.Message)
}

func TestGetPermissions(t *testing.T) {
	api := NewAPI()

	redisDB, redisMock := redismock.NewClientMock()
	api.Redis = redisDB

	mockUserID := "63eb226a-d612-412b-b8d4-a3e17b7d2227"

	// missing session (401)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var genericResp GenericResponse

	req, _ := http.NewRequest("GET", "", nil)
	c.Request = req
	api.GetPermissions(c)

	err := json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", genericResp.Message)

	// cache miss, resolved from role (200)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	redisMock.ExpectGet("perms:" + mockUserID).SetErr(redis.Nil)
	redisMock.Regexp().ExpectSet("perms:"+mockUserID, ".+", 30*time.Minute).SetVal("OK")

	req, _ = http.NewRequest("GET", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", sessionPayload(mockUserID, string(workflow.RoleChecker)))
	api.GetPermissions(c)

	var list models.PermissionList

	err = json.NewDecoder(w.Body).Decode(&list)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, len(list.Permissions))
	assert.Equal(t, models.PermDocumentsRead, list.Permissions[0])

	// cache hit (200)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	cached, _ := json.Marshal(models.PermissionList{Permissions: []string{models.PermDocumentsRead}})
	redisMock.ExpectGet("perms:" + mockUserID).SetVal(string(cached))

	req, _ = http.NewRequest("GET", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", sessionPayload(mockUserID, string(workflow.RoleChecker)))
	api.GetPermissions(c)

	err = json.NewDecoder(w.Body).Decode(&list)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, len(list.Permissions))

	// unknown role gets an empty list (200)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	redisMock.ExpectGet("perms:" + mockUserID).SetErr(redis.Nil)
	redisMock.Regexp().ExpectSet("perms:"+mockUserID, ".+", 30*time.Minute).SetVal("OK")

	req, _ = http.NewRequest("GET", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", sessionPayload(mockUserID, "UNKNOWN"))
	api.GetPermissions(c)

	err = json.NewDecoder(w.Body).Decode(&list)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, len(list.Permissions))
}

func TestVerifyTokenReset(t *testing.T) {
	api := NewAPI()

	redisDB, redisMock := redismock.NewClientMock()
	api.Redis = redisDB

	// token not found (404)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var genericResp GenericResponse

	redisMock.ExpectGet("reset:abc").SetErr(redis.Nil)

	req, _ := http.NewRequest("GET", "", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "abc"}}
	api.VerifyTokenReset(c)

	err := json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "token-not-found", genericResp.Message)

	// 200
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	redisMock.ExpectGet("reset:abc").SetVal("user-id")

	req, _ = http.NewRequest("GET", "", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "abc"}}
	api.VerifyTokenReset(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", genericResp.Message)
}

func TestUpdateUserReset(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI()
	api.Db = db

	redisDB, redisMock := redismock.NewClientMock()
	api.Redis = redisDB

	mockUserID := "63eb226a-d612-412b-b8d4-a3e17b7d2227"

	// password too short (400)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var genericResp GenericResponse

	payload := parsePayload(models.PasswordReset{Password: "short"})
	req, _ := http.NewRequest("POST", "", payload)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "abc"}}
	api.UpdateUserReset(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password-must-be-at-least-8-characters", genericResp.Message)

	// confirmation mismatch (400)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	payload = parsePayload(models.PasswordReset{Password: "test12345", PasswordConfirmation: "other"})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "abc"}}
	api.UpdateUserReset(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password-confirmation-mismatch", genericResp.Message)

	// token not found (404)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	redisMock.ExpectGet("reset:abc").SetErr(redis.Nil)

	payload = parsePayload(models.PasswordReset{Password: "test12345", PasswordConfirmation: "test12345"})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "abc"}}
	api.UpdateUserReset(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "token-not-found", genericResp.Message)

	// 200
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	redisMock.ExpectGet("reset:abc").SetVal(mockUserID)
	dbMock.ExpectQuery("UPDATE users.*").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("test@gmail.com"))
	redisMock.ExpectDel("reset:abc").SetVal(1)

	payload = parsePayload(models.PasswordReset{Password: "test12345", PasswordConfirmation: "test12345"})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "abc"}}
	api.UpdateUserReset(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", genericResp.Message)
}
