package controllers

import (
	"approvalapi/models"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"gotest.tools/assert"
)

func multipartFile(t *testing.T, fieldName, fileName string, content []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(fieldName, fileName)
	assert.Equal(t, nil, err)

	_, err = part.Write(content)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, writer.Close())

	return body, writer.FormDataContentType()
}

func TestUploadAttachment(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI()
	api.Db = db

	os.Setenv("UPLOAD_DIR", t.TempDir())
	defer os.Unsetenv("UPLOAD_DIR")

	handler := api.UploadAttachment(models.CashAdvance)

	mockID := "63eb226a-d612-412b-b8d4-a3e17b7d2226"
	mockUserID := "63eb226a-d612-412b-b8d4-a3e17b7d2227"
	otherUserID := "63eb226a-d612-412b-b8d4-a3e17b7d2228"

	// invalid id (400)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var genericResp GenericResponse

	req, _ := http.NewRequest("POST", "", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "error"}}
	handler(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid-id", genericResp.Message)

	// not the requester (403)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	dbMock.ExpectQuery("SELECT status, requester_id.*").
		WillReturnRows(sqlmock.NewRows([]string{"status", "requester_id"}).AddRow("Draft", otherUserID))

	req, _ = http.NewRequest("POST", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", sessionPayload(mockUserID, "REQUESTER"))
	c.Params = gin.Params{{Key: "id", Value: mockID}}
	handler(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", genericResp.Message)

	// already submitted (409)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	dbMock.ExpectQuery("SELECT status, requester_id.*").
		WillReturnRows(sqlmock.NewRows([]string{"status", "requester_id"}).AddRow("Prepared", mockUserID))

	req, _ = http.NewRequest("POST", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", sessionPayload(mockUserID, "REQUESTER"))
	c.Params = gin.Params{{Key: "id", Value: mockID}}
	handler(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "document-not-editable", genericResp.Message)

	// no file in the form (400)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	dbMock.ExpectQuery("SELECT status, requester_id.*").
		WillReturnRows(sqlmock.NewRows([]string{"status", "requester_id"}).AddRow("Draft", mockUserID))

	req, _ = http.NewRequest("POST", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", sessionPayload(mockUserID, "REQUESTER"))
	c.Params = gin.Params{{Key: "id", Value: mockID}}
	handler(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing-file", genericResp.Message)

	// 200
	respSuccess := struct {
		Message  string `json:"message"`
		Id       string `json:"id"`
		FileName string `json:"file_name"`
	}{}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	dbMock.ExpectQuery("SELECT status, requester_id.*").
		WillReturnRows(sqlmock.NewRows([]string{"status", "requester_id"}).AddRow("Draft", mockUserID))
	dbMock.ExpectExec("INSERT INTO attachments.*").WillReturnResult(sqlmock.NewResult(0, 1))

	body, contentType := multipartFile(t, "file", "receipt.pdf", []byte("dummy"))
	req, _ = http.NewRequest("POST", "", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Request.Header.Set("payload", sessionPayload(mockUserID, "REQUESTER"))
	c.Params = gin.Params{{Key: "id", Value: mockID}}
	handler(c)

	err = json.NewDecoder(w.Body).Decode(&respSuccess)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", respSuccess.Message)
	assert.Equal(t, "receipt.pdf", respSuccess.FileName)

	// the file landed under the document's folder
	saved := filepath.Join(os.Getenv("UPLOAD_DIR"), mockID, respSuccess.Id+"_receipt.pdf")
	_, err = os.Stat(saved)
	assert.Equal(t, nil, err)
}

func TestDownloadAttachment(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI()
	api.Db = db

	dir := t.TempDir()
	os.Setenv("UPLOAD_DIR", dir)
	defer os.Unsetenv("UPLOAD_DIR")

	handler := api.DownloadAttachment(models.CashAdvance)

	mockID := "63eb226a-d612-412b-b8d4-a3e17b7d2226"

	// invalid id (400)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var genericResp GenericResponse

	req, _ := http.NewRequest("GET", "", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "attachmentId", Value: "error"}}
	handler(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid-id", genericResp.Message)

	// not found (404)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	dbMock.ExpectQuery("SELECT a.file_name.*").
		WillReturnRows(sqlmock.NewRows([]string{"file_name", "file_path"}))

	req, _ = http.NewRequest("GET", "", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "attachmentId", Value: mockID}}
	handler(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "attachment-not-found", genericResp.Message)

	// stored path escaping the upload dir (400)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	dbMock.ExpectQuery("SELECT a.file_name.*").
		WillReturnRows(sqlmock.NewRows([]string{"file_name", "file_path"}).
			AddRow("passwd", "../../etc/passwd"))

	req, _ = http.NewRequest("GET", "", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "attachmentId", Value: mockID}}
	handler(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid-file-path", genericResp.Message)

	// 200
	relPath := filepath.Join(mockID, "receipt.pdf")
	assert.Equal(t, nil, os.MkdirAll(filepath.Join(dir, mockID), 0o755))
	assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, relPath), []byte("dummy"), 0o644))

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	dbMock.ExpectQuery("SELECT a.file_name.*").
		WillReturnRows(sqlmock.NewRows([]string{"file_name", "file_path"}).
			AddRow("receipt.pdf", relPath))

	req, _ = http.NewRequest("GET", "", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "attachmentId", Value: mockID}}
	handler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dummy", w.Body.String())
}

func TestDeleteAttachment(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI()
	api.Db = db

	os.Setenv("UPLOAD_DIR", t.TempDir())
	defer os.Unsetenv("UPLOAD_DIR")

	handler := api.DeleteAttachment(models.CashAdvance)

	mockID := "63eb226a-d612-412b-b8d4-a3e17b7d2226"
	mockUserID := "63eb226a-d612-412b-b8d4-a3e17b7d2227"

	// not found (404)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var genericResp GenericResponse

	dbMock.ExpectQuery("SELECT d.status.*").
		WillReturnRows(sqlmock.NewRows([]string{"status", "requester_id", "file_path"}))

	req, _ := http.NewRequest("DELETE", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", sessionPayload(mockUserID, "REQUESTER"))
	c.Params = gin.Params{{Key: "attachmentId", Value: mockID}}
	handler(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "attachment-not-found", genericResp.Message)

	// already submitted (409)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	dbMock.ExpectQuery("SELECT d.status.*").
		WillReturnRows(sqlmock.NewRows([]string{"status", "requester_id", "file_path"}).
			AddRow("Approved", mockUserID, mockID+"/receipt.pdf"))

	req, _ = http.NewRequest("DELETE", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", sessionPayload(mockUserID, "REQUESTER"))
	c.Params = gin.Params{{Key: "attachmentId", Value: mockID}}
	handler(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "document-not-editable", genericResp.Message)

	// 200
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	dbMock.ExpectQuery("SELECT d.status.*").
		WillReturnRows(sqlmock.NewRows([]string{"status", "requester_id", "file_path"}).
			AddRow("Draft", mockUserID, mockID+"/receipt.pdf"))
	dbMock.ExpectExec("UPDATE attachments.*").WillReturnResult(sqlmock.NewResult(0, 1))

	req, _ = http.NewRequest("DELETE", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", sessionPayload(mockUserID, "REQUESTER"))
	c.Params = gin.Params{{Key: "attachmentId", Value: mockID}}
	handler(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", genericResp.Message)
}
