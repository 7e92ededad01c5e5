package controllers

import (
	"approvalapi/format"
	"approvalapi/models"
	"approvalapi/workflow"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/lib/pq"
)

// ListDocuments serves the dashboard list for one document type: role-scoped,
// filterable, paginated, optionally exported as Excel or PDF. One handler
// covers what used to be a separate page per role and type.
func (api *API) ListDocuments(dt models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := ParsePayload(c)
		page, _ := strconv.Atoi(c.Query("page"))
		limit, _ := strconv.Atoi(c.Query("limit"))
		order := c.Query("order")
		orderBy := c.Query("order_by")

		asExcel, _ := strconv.ParseBool(c.Query("export_as_excel"))
		asPdf, _ := strconv.ParseBool(c.Query("export_as_pdf"))

		filter := models.DocumentFilter{
			Status:         c.Query("status"),
			DocumentNumber: c.Query("document_number"),
			RequesterName:  c.Query("requester_name"),
			Department:     c.Query("department"),
			SubmissionDate: c.Query("submission_date"),
			MinDate:        c.Query("min_date"),
			MaxDate:        c.Query("max_date"),
			CashAdvanceId:  c.Query("cash_advance_id"),
		}

		if u.Role == string(workflow.RoleRequester) {
			filter.RequesterId = u.Id
		}

		// scope=pending narrows the list to the status awaiting the caller's role
		if c.Query("scope") == "pending" {
			if pending, ok := workflow.PendingStatus(workflow.Role(u.Role)); ok {
				filter.Status = pending.String()
			}
		}

		if filter.Status != "" && !workflow.Status(filter.Status).IsValid() {
			sendError(c, http.StatusBadRequest, "invalid-status")
			return
		}

		if page < 1 {
			page = 1
		}

		if limit < 1 {
			limit = 20
		}

		if strings.ToUpper(order) != "ASC" && strings.ToUpper(order) != "DESC" {
			order = "DESC"
		}

		mapOrderBy := map[string]string{
			"id":              "d.id",
			"document_number": "d.document_number",
			"requester_name":  "u.name",
			"department":      "d.department",
			"submission_date": "d.submission_date",
			"status":          "d.status",
			"total_amount":    "d.total_amount",
			"created_at":      "d.created_at",
			"updated_at":      "d.updated_at",
		}

		if val, ok := mapOrderBy[orderBy]; ok {
			orderBy = val
		} else {
			orderBy = "d.updated_at"
		}

		countQ := `SELECT COUNT(1) FROM documents d
			JOIN users u ON d.requester_id = u.id
			WHERE NOT d.deleted`
		selectQ := `SELECT
				d.id, d.document_number, d.requester_id, u.name,
				d.department, d.submission_date, d.purpose, d.status,
				d.currency, d.total_amount, d.created_at, d.updated_at
			FROM documents d
			JOIN users u ON d.requester_id = u.id
			WHERE NOT d.deleted`

		filterQ, stms := getFilterDocument(dt, filter)

		selectQ = selectQ + filterQ
		countQ = countQ + filterQ

		offset := (page - 1) * limit
		pagination := fmt.Sprintf(" LIMIT %d OFFSET %d ", limit, offset)
		orderVal := fmt.Sprintf(" ORDER BY %s %s", orderBy, order)

		rows, err := api.Db.Query(selectQ+orderVal+pagination, stms...)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		defer rows.Close()

		var documents []models.Document

		for rows.Next() {
			var doc models.Document

			var requesterName, department, purpose, currency sql.NullString
			var totalAmount sql.NullFloat64
			var submissionDate sql.NullTime

			err = rows.Scan(&doc.Id, &doc.DocumentNumber, &doc.RequesterId, &requesterName,
				&department, &submissionDate, &purpose, &doc.Status,
				&currency, &totalAmount, &doc.CreatedAt, &doc.UpdatedAt)
			if err != nil {
				log.Println(err)
				sendError(c, http.StatusInternalServerError, err.Error())
				return
			}

			doc.DocType = dt.Code
			doc.RequesterName = requesterName.String
			doc.Department = department.String
			doc.Purpose = purpose.String
			doc.Currency = currency.String
			doc.TotalAmount = totalAmount.Float64

			if submissionDate.Valid {
				doc.SubmissionDate = submissionDate.Time.Format(format.DateFormat)
			}

			documents = append(documents, doc)
		}

		if asExcel {
			api.handleExcelDocuments(c, dt, filter.Status, documents)
			return
		}

		if asPdf {
			api.handlePdfDocuments(c, dt, filter.Status, documents)
			return
		}

		var documentList models.DocumentList

		documentList.Total, err = api.GetTotal(countQ, stms)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		documentList.Documents = documents
		documentList.Limit = limit
		documentList.Page = page
		documentList.Pagination = models.Paginate(documentList.Total, page, limit)

		c.JSON(http.StatusOK, documentList)
	}
}

// GetStatusCounts serves the per-status totals behind the dashboard tabs,
// cached in redis for five minutes per document type and scope.
func (api *API) GetStatusCounts(dt models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := ParsePayload(c)
		ctx := context.Background()

		scopeId := ""
		if u.Role == string(workflow.RoleRequester) {
			scopeId = u.Id
		}

		key := countsCacheKey(dt, scopeId)

		cached, err := api.Redis.Get(ctx, key).Result()
		if err == nil && cached != "" {
			var counts models.StatusCounts
			if err := json.Unmarshal([]byte(cached), &counts); err != nil {
				log.Println(err)
			} else {
				c.JSON(http.StatusOK, counts)
				return
			}
		}

		q := `SELECT status, COUNT(1) FROM documents WHERE NOT deleted AND doc_type = $1`
		stms := []interface{}{dt.Code}

		if scopeId != "" {
			q += " AND requester_id = $2"
			stms = append(stms, scopeId)
		}

		q += " GROUP BY status"

		rows, err := api.Db.Query(q, stms...)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		defer rows.Close()

		counts := models.StatusCounts{Counts: map[string]int32{}}
		for _, s := range workflow.Statuses {
			counts.Counts[s.String()] = 0
		}

		for rows.Next() {
			var status string
			var count int32

			if err := rows.Scan(&status, &count); err != nil {
				log.Println(err)
				sendError(c, http.StatusInternalServerError, err.Error())
				return
			}

			counts.Counts[status] = count
			counts.Total += count
		}

		data, _ := json.Marshal(counts)
		if err := api.Redis.Set(ctx, key, string(data), countsTTL).Err(); err != nil {
			log.Println(err)
		}

		c.JSON(http.StatusOK, counts)
	}
}

// GetDocument serves the detail page payload: the document, its approval
// chain, line items, attachments and the actions the caller may fire.
func (api *API) GetDocument(dt models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := ParsePayload(c)
		id := c.Param("id")

		if _, err := uuid.FromString(id); err != nil {
			sendError(c, http.StatusBadRequest, "invalid-id")
			return
		}

		var doc models.Document
		var department, purpose, remarks, currency, cashAdvanceId sql.NullString
		var totalAmount sql.NullFloat64
		var submissionDate sql.NullTime

		slotNames := make([]sql.NullString, 6)
		slotDates := make([]sql.NullTime, 6)

		err := api.Db.QueryRow(`
			SELECT d.id, d.document_number, d.requester_id, u.name,
				d.department, d.submission_date, d.purpose, d.remarks, d.status,
				d.currency, d.total_amount, d.cash_advance_id,
				(SELECT name FROM users WHERE id = d.prepared_by), d.prepared_at,
				(SELECT name FROM users WHERE id = d.checked_by), d.checked_at,
				(SELECT name FROM users WHERE id = d.acknowledged_by), d.acknowledged_at,
				(SELECT name FROM users WHERE id = d.approved_by), d.approved_at,
				(SELECT name FROM users WHERE id = d.received_by), d.received_at,
				(SELECT name FROM users WHERE id = d.closed_by), d.closed_at,
				d.created_at, d.updated_at
			FROM documents d
			JOIN users u ON d.requester_id = u.id
			WHERE d.id = $1 AND d.doc_type = $2 AND NOT d.deleted
		`, id, dt.Code).Scan(&doc.Id, &doc.DocumentNumber, &doc.RequesterId, &doc.RequesterName,
			&department, &submissionDate, &purpose, &remarks, &doc.Status,
			&currency, &totalAmount, &cashAdvanceId,
			&slotNames[0], &slotDates[0],
			&slotNames[1], &slotDates[1],
			&slotNames[2], &slotDates[2],
			&slotNames[3], &slotDates[3],
			&slotNames[4], &slotDates[4],
			&slotNames[5], &slotDates[5],
			&doc.CreatedAt, &doc.UpdatedAt)

		if err != nil {
			if err == sql.ErrNoRows {
				sendError(c, http.StatusNotFound, dt.Slug+"-not-found")
				return
			}

			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		doc.DocType = dt.Code
		doc.Department = department.String
		doc.Purpose = purpose.String
		doc.Remarks = remarks.String
		doc.Currency = currency.String
		doc.TotalAmount = totalAmount.Float64
		doc.CashAdvanceId = cashAdvanceId.String

		if submissionDate.Valid {
			doc.SubmissionDate = submissionDate.Time.Format(format.DateFormat)
		}

		slots := []*models.ApprovalSlot{
			&doc.PreparedBy, &doc.CheckedBy, &doc.AcknowledgedBy,
			&doc.ApprovedBy, &doc.ReceivedBy, &doc.ClosedBy,
		}
		for i, slot := range slots {
			slot.Name = slotNames[i].String
			if slotDates[i].Valid {
				slot.Date = slotDates[i].Time.Format(format.DateFormat)
			}
		}

		doc.LineItems, err = api.getLineItems(doc.Id)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		doc.Attachments, err = api.getAttachments(doc.Id)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		for _, action := range workflow.PermittedActions(workflow.Status(doc.Status)) {
			if workflow.CanFire(workflow.Status(doc.Status), action, workflow.Role(u.Role)) {
				if action == workflow.ActionSubmit && u.Role != string(workflow.RoleAdmin) && u.Id != doc.RequesterId {
					continue
				}
				doc.PermittedActions = append(doc.PermittedActions, action.String())
			}
		}

		c.JSON(http.StatusOK, doc)
	}
}

func (api *API) getLineItems(documentId string) ([]models.LineItem, error) {
	rows, err := api.Db.Query(`
		SELECT id, category, account_code, description, amount
		FROM line_items
		WHERE document_id = $1 AND NOT deleted
		ORDER BY created_at
	`, documentId)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var items []models.LineItem

	for rows.Next() {
		var item models.LineItem
		var category, accountCode, description sql.NullString
		var amount sql.NullFloat64

		if err := rows.Scan(&item.Id, &category, &accountCode, &description, &amount); err != nil {
			return nil, err
		}

		item.Category = category.String
		item.AccountCode = accountCode.String
		item.Description = description.String
		item.Amount = amount.Float64

		items = append(items, item)
	}

	return items, nil
}

func (api *API) getAttachments(documentId string) ([]models.Attachment, error) {
	rows, err := api.Db.Query(`
		SELECT id, file_name, file_path, uploaded_by, uploaded_at
		FROM attachments
		WHERE document_id = $1 AND NOT deleted
		ORDER BY uploaded_at
	`, documentId)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var attachments []models.Attachment

	for rows.Next() {
		var a models.Attachment
		var uploadedBy sql.NullString

		if err := rows.Scan(&a.Id, &a.FileName, &a.FilePath, &uploadedBy, &a.UploadedAt); err != nil {
			return nil, err
		}

		a.UploadedBy = uploadedBy.String
		attachments = append(attachments, a)
	}

	return attachments, nil
}

// CreateDocument inserts a new Draft with its line items.
func (api *API) CreateDocument(dt models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := ParsePayload(c)
		var req models.UpsertDocumentRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			log.Println(err)
			sendError(c, http.StatusBadRequest, err.Error())
			return
		}

		if err := validateDocument(dt, &req); err != nil {
			sendError(c, http.StatusBadRequest, err.Error())
			return
		}

		if dt.Code == models.Settlement.Code {
			if err := api.checkCashAdvance(req.CashAdvanceId); err != nil {
				sendError(c, http.StatusBadRequest, err.Error())
				return
			}
		}

		tx, err := api.Db.Begin()
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		defer tx.Rollback()

		var seq int64
		if err := tx.QueryRow("SELECT nextval('document_number_seq')").Scan(&seq); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		id := uuid.Must(uuid.NewV4()).String()
		number := fmt.Sprintf("%s-%s-%05d", dt.NumberPrefix, req.SubmissionDate[:4], seq)

		var cashAdvanceId interface{}
		if req.CashAdvanceId != "" {
			cashAdvanceId = req.CashAdvanceId
		}

		if _, err := tx.Exec(`
		INSERT INTO documents
		(id, doc_type, document_number, requester_id, department, submission_date,
		purpose, remarks, status, currency, total_amount, cash_advance_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		`, id, dt.Code, number, u.Id, req.Department, req.SubmissionDate,
			req.Purpose, req.Remarks, workflow.StatusDraft.String(), req.Currency,
			lineItemTotal(req.LineItems), cashAdvanceId); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		if errItems := insertLineItems(tx, id, req.LineItems); len(errItems) > 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "error", "details": errItems})
			return
		}

		if err := tx.Commit(); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		api.invalidateCounts(dt)

		c.JSON(http.StatusOK, gin.H{"message": "success", "id": id, "document_number": number})
	}
}

// UpdateDocument replaces the editable fields and line items of a document
// still in Draft or Revised.
func (api *API) UpdateDocument(dt models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := ParsePayload(c)
		var req models.UpsertDocumentRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			log.Println(err)
			sendError(c, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := uuid.FromString(req.Id); err != nil {
			sendError(c, http.StatusBadRequest, "invalid-id")
			return
		}

		if err := validateDocument(dt, &req); err != nil {
			sendError(c, http.StatusBadRequest, err.Error())
			return
		}

		tx, err := api.Db.Begin()
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		defer tx.Rollback()

		var status, requesterId string
		err = tx.QueryRow(`
			SELECT status, requester_id FROM documents
			WHERE id = $1 AND doc_type = $2 AND NOT deleted
			FOR UPDATE
		`, req.Id, dt.Code).Scan(&status, &requesterId)
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

		if _, err := tx.Exec(`
		UPDATE documents SET
		department = $1, submission_date = $2, purpose = $3, remarks = $4,
		currency = $5, total_amount = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
		`, req.Department, req.SubmissionDate, req.Purpose, req.Remarks,
			req.Currency, lineItemTotal(req.LineItems), req.Id); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		if _, err := tx.Exec("UPDATE line_items SET deleted = true WHERE document_id = $1", req.Id); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		if errItems := insertLineItems(tx, req.Id, req.LineItems); len(errItems) > 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "error", "details": errItems})
			return
		}

		if err := tx.Commit(); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		api.invalidateCounts(dt)

		c.JSON(http.StatusOK, genericOK)
	}
}

// DeleteDocuments batch soft-deletes drafts. Requesters may only delete their
// own; nothing past Draft is deletable.
func (api *API) DeleteDocuments(dt models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := ParsePayload(c)
		var req models.BatchDeleteRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			log.Println(err)
			sendError(c, http.StatusBadRequest, err.Error())
			return
		}

		ids := req.Data
		if len(ids) == 0 {
			sendError(c, http.StatusBadRequest, "missing-data")
			return
		}

		var errInvalid []models.RowError

		for i, id := range ids {
			if _, err := uuid.FromString(id); err != nil {
				errInvalid = append(errInvalid, models.RowError{
					Row:     i,
					Message: "invalid-id",
				})
			}
		}

		if len(errInvalid) > 0 {
			c.JSON(http.StatusBadRequest, models.RowResponseError{
				Message: "error",
				Detail:  errInvalid,
			})
			return
		}

		tx, err := api.Db.Begin()
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		defer tx.Rollback()

		q := ""
		stms := []interface{}{pq.Array(ids), dt.Code, workflow.StatusDraft.String()}

		if u.Role != string(workflow.RoleAdmin) {
			q = " AND requester_id = $4"
			stms = append(stms, u.Id)
		}

		tag, err := tx.Exec(`UPDATE documents SET deleted = true
			WHERE id = ANY($1) AND doc_type = $2 AND status = $3 AND NOT deleted`+q, stms...)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		t, _ := tag.RowsAffected()
		if int(t) != len(ids) {
			sendError(c, http.StatusNotFound, fmt.Sprintf("expected-%d-deleted-but-got-%d", len(ids), t))
			return
		}

		if err := tx.Commit(); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		api.invalidateCounts(dt)

		c.JSON(http.StatusOK, genericOK)
	}
}

// TransitionStatus fires one approval action on a document. The workflow table
// decides whether the action is legal from the current status and which role
// may fire it; the approval-chain slot is stamped and a history row appended
// in the same transaction.
func (api *API) TransitionStatus(dt models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := ParsePayload(c)
		var req models.StatusRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			log.Println(err)
			sendError(c, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := uuid.FromString(req.Id); err != nil {
			sendError(c, http.StatusBadRequest, "invalid-id")
			return
		}

		action := workflow.Action(req.Action)
		if !action.IsValid() {
			sendError(c, http.StatusBadRequest, "invalid-action")
			return
		}

		action = action.Canonical()

		if req.UserId != "" && req.UserId != u.Id && u.Role != string(workflow.RoleAdmin) {
			sendError(c, http.StatusForbidden, "user-mismatch")
			return
		}

		tx, err := api.Db.Begin()
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		defer tx.Rollback()

		var statusVal, requesterId, documentNumber string
		err = tx.QueryRow(`
			SELECT status, requester_id, document_number FROM documents
			WHERE id = $1 AND doc_type = $2 AND NOT deleted
			FOR UPDATE
		`, req.Id, dt.Code).Scan(&statusVal, &requesterId, &documentNumber)
		if err != nil {
			if err == sql.ErrNoRows {
				sendError(c, http.StatusNotFound, dt.Slug+"-not-found")
				return
			}

			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		current := workflow.Status(statusVal)

		// a stale dashboard tab must not fire an action against a document
		// that has moved on since the list was rendered
		if req.StatusAt != "" && req.StatusAt != statusVal {
			sendError(c, http.StatusConflict, "status-conflict")
			return
		}

		next, err := workflow.Transition(current, action)
		if err != nil {
			if errors.Is(err, workflow.ErrInvalidTransition) {
				sendError(c, http.StatusConflict, err.Error())
				return
			}
			sendError(c, http.StatusBadRequest, err.Error())
			return
		}

		if !workflow.CanFire(current, action, workflow.Role(u.Role)) {
			sendError(c, http.StatusForbidden, "forbidden-for-role")
			return
		}

		if action == workflow.ActionSubmit && u.Role != string(workflow.RoleAdmin) && u.Id != requesterId {
			sendError(c, http.StatusForbidden, "forbidden")
			return
		}

		needCheckSettlement := dt.Code == models.CashAdvance.Code && action == workflow.ActionClose

		if needCheckSettlement {
			var exists bool
			if err := tx.QueryRow(`
				SELECT EXISTS(SELECT 1 FROM documents
				WHERE doc_type = $1 AND cash_advance_id = $2 AND NOT deleted AND status <> $3)
			`, models.Settlement.Code, req.Id, workflow.StatusRejected.String()).Scan(&exists); err != nil {
				log.Println(err)
				sendError(c, http.StatusInternalServerError, err.Error())
				return
			}

			if !exists {
				sendError(c, http.StatusConflict, "missing-settlement")
				return
			}
		}

		updateQ := "UPDATE documents SET status = $1, updated_at = CURRENT_TIMESTAMP"
		stms := []interface{}{next.String()}

		if byColumn, atColumn, ok := models.ChainColumns(action); ok {
			updateQ += fmt.Sprintf(", %s = $2, %s = CURRENT_TIMESTAMP", byColumn, atColumn)
			stms = append(stms, u.Id)
		}

		stms = append(stms, req.Id)
		updateQ += fmt.Sprintf(" WHERE id = $%d", len(stms))

		if _, err := tx.Exec(updateQ, stms...); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		historyId := uuid.Must(uuid.NewV4()).String()
		if _, err := tx.Exec(`
		INSERT INTO approval_history
		(id, document_id, user_id, action, status_from, status_to, remarks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		`, historyId, req.Id, u.Id, action.String(), current.String(), next.String(), req.Remarks); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		if err := tx.Commit(); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		api.invalidateCounts(dt)

		api.notifyNextApprover(dt, documentNumber, next)

		c.JSON(http.StatusOK, gin.H{"message": "ok", "status": next.String()})
	}
}

// GetApprovalHistory lists the recorded actions on one document, newest first.
func (api *API) GetApprovalHistory(dt models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		if _, err := uuid.FromString(id); err != nil {
			sendError(c, http.StatusBadRequest, "invalid-id")
			return
		}

		rows, err := api.Db.Query(`
			SELECT h.id, h.document_id, h.user_id, u.name, h.action,
				h.status_from, h.status_to, h.remarks, h.created_at
			FROM approval_history h
			JOIN users u ON h.user_id = u.id
			WHERE h.document_id = $1
			ORDER BY h.created_at DESC
		`, id)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		defer rows.Close()

		var entries []models.ApprovalEntry

		for rows.Next() {
			var e models.ApprovalEntry
			var remarks sql.NullString

			if err := rows.Scan(&e.Id, &e.DocumentId, &e.UserId, &e.UserName, &e.Action,
				&e.StatusFrom, &e.StatusTo, &remarks, &e.CreatedAt); err != nil {
				log.Println(err)
				sendError(c, http.StatusInternalServerError, err.Error())
				return
			}

			e.Remarks = remarks.String
			entries = append(entries, e)
		}

		c.JSON(http.StatusOK, gin.H{"history": entries})
	}
}

// notifyNextApprover emails every user holding the role that owns the stage a
// document just entered. Best effort; failures are logged and dropped.
func (api *API) notifyNextApprover(dt models.DocumentType, documentNumber string, status workflow.Status) {
	var nextRole workflow.Role
	found := false
	for _, role := range []workflow.Role{
		workflow.RoleChecker, workflow.RoleAcknowledger, workflow.RoleApprover,
		workflow.RoleReceiver, workflow.RoleCloser,
	} {
		if pending, ok := workflow.PendingStatus(role); ok && pending == status {
			nextRole = role
			found = true
			break
		}
	}

	if !found {
		return
	}

	rows, err := api.Db.Query("SELECT email FROM users WHERE role = $1 AND NOT deleted", string(nextRole))
	if err != nil {
		log.Println(err)
		return
	}

	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			log.Println(err)
			return
		}
		emails = append(emails, email)
	}

	if len(emails) == 0 {
		return
	}

	subject := fmt.Sprintf("%s %s awaiting your action", dt.Name, documentNumber)
	url := os.Getenv("WEB_URL") + "/" + dt.Slug

	if err := api.Mail(emails, subject, "./templates/approval_notification.html", map[string]string{
		"%DOC_TYPE%":   dt.Name,
		"%DOC_NUMBER%": documentNumber,
		"%STATUS%":     status.String(),
		"%URL%":        url,
	}); err != nil {
		log.Println(err)
	}
}

func (api *API) checkCashAdvance(id string) error {
	if _, err := uuid.FromString(id); err != nil {
		return errors.New("invalid-cash-advance-id")
	}

	var status string
	err := api.Db.QueryRow(`
		SELECT status FROM documents WHERE id = $1 AND doc_type = $2 AND NOT deleted
	`, id, models.CashAdvance.Code).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return errors.New("cash-advance-not-found")
		}
		log.Println(err)
		return err
	}

	if status != workflow.StatusReceived.String() {
		return errors.New("cash-advance-not-received")
	}

	return nil
}

func insertLineItems(tx *sql.Tx, documentId string, items []models.LineItem) []models.RowError {
	var errItems []models.RowError

	for i, item := range items {
		if _, err := uuid.FromString(item.Id); err != nil {
			item.Id = uuid.Must(uuid.NewV4()).String()
		}

		res, err := tx.Exec(`
		INSERT INTO line_items
		(id, document_id, category, account_code, description, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
		category = $3, account_code = $4, description = $5, amount = $6, deleted = false
		WHERE line_items.document_id = $2
		`, item.Id, documentId, item.Category, item.AccountCode, item.Description, item.Amount)
		if err != nil {
			log.Println(err)
			errItems = append(errItems, models.RowError{Row: i + 1, Message: err.Error()})
			continue
		}

		// an id colliding with a row of another document updates nothing
		if n, _ := res.RowsAffected(); n == 0 {
			errItems = append(errItems, models.RowError{Row: i + 1, Message: "invalid-line-item-id"})
		}
	}

	return errItems
}

func lineItemTotal(items []models.LineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Amount
	}
	return total
}

func getFilterDocument(dt models.DocumentType, filter models.DocumentFilter) (filterQ string, stms []interface{}) {
	filterQ = " AND d.doc_type = $1"
	stms = []interface{}{dt.Code}

	if _, err := uuid.FromString(filter.RequesterId); err == nil {
		filterQ += fmt.Sprintf(" AND d.requester_id = $%d", len(stms)+1)
		stms = append(stms, filter.RequesterId)
	}

	if filter.Status != "" {
		filterQ += fmt.Sprintf(" AND d.status = $%d", len(stms)+1)
		stms = append(stms, filter.Status)
	}

	if filter.DocumentNumber != "" {
		filterQ += fmt.Sprintf(" AND d.document_number ILIKE $%d", len(stms)+1)
		stms = append(stms, "%"+filter.DocumentNumber+"%")
	}

	if filter.RequesterName != "" {
		filterQ += fmt.Sprintf(" AND u.name ILIKE $%d", len(stms)+1)
		stms = append(stms, "%"+filter.RequesterName+"%")
	}

	if filter.Department != "" {
		filterQ += fmt.Sprintf(" AND d.department ILIKE $%d", len(stms)+1)
		stms = append(stms, "%"+filter.Department+"%")
	}

	if date, err := format.NormalizeDate(filter.SubmissionDate); err == nil {
		filterQ += fmt.Sprintf(" AND d.submission_date = $%d", len(stms)+1)
		stms = append(stms, date)
	}

	if date, err := format.NormalizeDate(filter.MinDate); err == nil {
		filterQ += fmt.Sprintf(" AND d.submission_date >= $%d", len(stms)+1)
		stms = append(stms, date)
	}

	if date, err := format.NormalizeDate(filter.MaxDate); err == nil {
		filterQ += fmt.Sprintf(" AND d.submission_date <= $%d", len(stms)+1)
		stms = append(stms, date)
	}

	if _, err := uuid.FromString(filter.CashAdvanceId); err == nil {
		filterQ += fmt.Sprintf(" AND d.cash_advance_id = $%d", len(stms)+1)
		stms = append(stms, filter.CashAdvanceId)
	}

	return
}

func validateDocument(dt models.DocumentType, req *models.UpsertDocumentRequest) error {
	if req.Department == "" {
		return errors.New("missing-department")
	}

	if req.SubmissionDate == "" {
		return errors.New("missing-submission-date")
	}

	date, err := format.NormalizeDate(req.SubmissionDate)
	if err != nil {
		return err
	}
	req.SubmissionDate = date

	if req.Purpose == "" {
		return errors.New("missing-purpose")
	}

	if req.Currency == "" {
		req.Currency = "IDR"
	}

	if len(req.Currency) != 3 {
		return errors.New("invalid-currency")
	}

	req.Currency = strings.ToUpper(req.Currency)

	if len(req.LineItems) == 0 {
		return errors.New("missing-line-items")
	}

	for _, item := range req.LineItems {
		if item.Category == "" {
			return errors.New("missing-line-item-category")
		}

		if item.Description == "" {
			return errors.New("missing-line-item-description")
		}

		if item.Amount <= 0 {
			return errors.New("invalid-line-item-amount")
		}
	}

	if dt.Code == models.Settlement.Code && req.CashAdvanceId == "" {
		return errors.New("missing-cash-advance-id")
	}

	if dt.Code != models.Settlement.Code && req.CashAdvanceId != "" {
		return errors.New("unexpected-cash-advance-id")
	}

	return nil
}
