package controllers

import (
	"approvalapi/models"
	"approvalapi/workflow"
	"database/sql"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

const maxAttachmentSize = 10 << 20 // 10 MiB

func uploadDir() string {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "./uploads"
	}
	return dir
}

// UploadAttachment stores one multipart file against a document. Only the
// requester (or an admin) may attach, and only while the document is still
// editable.
func (api *API) UploadAttachment(dt models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := ParsePayload(c)
		documentId := c.Param("id")

		if _, err := uuid.FromString(documentId); err != nil {
			sendError(c, http.StatusBadRequest, "invalid-id")
			return
		}

		var status, requesterId string
		err := api.Db.QueryRow(`
			SELECT status, requester_id FROM documents
			WHERE id = $1 AND doc_type = $2 AND NOT deleted
		`, documentId, dt.Code).Scan(&status, &requesterId)
		if err != nil {
			if err == sql.ErrNoRows {
				sendError(c, http.StatusNotFound, dt.Slug+"-not-found")
				return
			}

			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		if u.Role != string(workflow.RoleAdmin) && u.Id != requesterId {
			sendError(c, http.StatusForbidden, "forbidden")
			return
		}

		if status != workflow.StatusDraft.String() && status != workflow.StatusRevised.String() {
			sendError(c, http.StatusConflict, "document-not-editable")
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusBadRequest, "missing-file")
			return
		}

		if file.Size > maxAttachmentSize {
			sendError(c, http.StatusBadRequest, "file-too-large")
			return
		}

		fileName := filepath.Base(file.Filename)
		if fileName == "." || fileName == string(filepath.Separator) {
			sendError(c, http.StatusBadRequest, "invalid-file-name")
			return
		}

		id := uuid.Must(uuid.NewV4()).String()
		relPath := filepath.Join(documentId, id+"_"+fileName)
		dst := filepath.Join(uploadDir(), relPath)

		// SaveUploadedFile does not create the per-document directory
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		if err := c.SaveUploadedFile(file, dst); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		if _, err := api.Db.Exec(`
		INSERT INTO attachments (id, document_id, file_name, file_path, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		`, id, documentId, fileName, relPath, u.Id); err != nil {
			log.Println(err)
			os.Remove(dst)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "success", "id": id, "file_name": fileName})
	}
}

// DownloadAttachment streams a stored file back by attachment id.
func (api *API) DownloadAttachment(dt models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		attachmentId := c.Param("attachmentId")

		if _, err := uuid.FromString(attachmentId); err != nil {
			sendError(c, http.StatusBadRequest, "invalid-id")
			return
		}

		var fileName, filePath string
		err := api.Db.QueryRow(`
			SELECT a.file_name, a.file_path
			FROM attachments a
			JOIN documents d ON a.document_id = d.id
			WHERE a.id = $1 AND d.doc_type = $2 AND NOT a.deleted AND NOT d.deleted
		`, attachmentId, dt.Code).Scan(&fileName, &filePath)
		if err != nil {
			if err == sql.ErrNoRows {
				sendError(c, http.StatusNotFound, "attachment-not-found")
				return
			}

			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		// stored paths are relative to the upload dir, reject anything that
		// escapes it
		if strings.Contains(filePath, "..") || filepath.IsAbs(filePath) {
			sendError(c, http.StatusBadRequest, "invalid-file-path")
			return
		}

		c.FileAttachment(filepath.Join(uploadDir(), filePath), fileName)
	}
}

// DeleteAttachment soft-deletes an attachment while its document is still
// editable. The file on disk is removed best effort.
func (api *API) DeleteAttachment(dt models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := ParsePayload(c)
		attachmentId := c.Param("attachmentId")

		if _, err := uuid.FromString(attachmentId); err != nil {
			sendError(c, http.StatusBadRequest, "invalid-id")
			return
		}

		var status, requesterId, filePath string
		err := api.Db.QueryRow(`
			SELECT d.status, d.requester_id, a.file_path
			FROM attachments a
			JOIN documents d ON a.document_id = d.id
			WHERE a.id = $1 AND d.doc_type = $2 AND NOT a.deleted AND NOT d.deleted
		`, attachmentId, dt.Code).Scan(&status, &requesterId, &filePath)
		if err != nil {
			if err == sql.ErrNoRows {
				sendError(c, http.StatusNotFound, "attachment-not-found")
				return
			}

			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		if u.Role != string(workflow.RoleAdmin) && u.Id != requesterId {
			sendError(c, http.StatusForbidden, "forbidden")
			return
		}

		if status != workflow.StatusDraft.String() && status != workflow.StatusRevised.String() {
			sendError(c, http.StatusConflict, "document-not-editable")
			return
		}

		if _, err := api.Db.Exec("UPDATE attachments SET deleted = true WHERE id = $1", attachmentId); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		if !strings.Contains(filePath, "..") && !filepath.IsAbs(filePath) {
			if err := os.Remove(filepath.Join(uploadDir(), filePath)); err != nil {
				log.Println(err)
			}
		}

		c.JSON(http.StatusOK, genericOK)
	}
}
