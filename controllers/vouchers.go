package controllers

import (
	"approvalapi/format"
	"approvalapi/models"
	"approvalapi/workflow"
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// PrintVoucher renders the approval voucher PDF of one document: the header
// block, line items, the total in figures and in words, and the approval
// chain with the names and dates already stamped. Drafts have no voucher.
func (api *API) PrintVoucher(dt models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		if _, err := uuid.FromString(id); err != nil {
			sendError(c, http.StatusBadRequest, "invalid-id")
			return
		}

		var doc models.Document
		var department, purpose, currency sql.NullString
		var totalAmount sql.NullFloat64
		var submissionDate sql.NullTime

		slotNames := make([]sql.NullString, 6)
		slotDates := make([]sql.NullTime, 6)

		err := api.Db.QueryRow(`
			SELECT d.id, d.document_number, u.name, d.department, d.submission_date,
				d.purpose, d.status, d.currency, d.total_amount,
				(SELECT name FROM users WHERE id = d.prepared_by), d.prepared_at,
				(SELECT name FROM users WHERE id = d.checked_by), d.checked_at,
				(SELECT name FROM users WHERE id = d.acknowledged_by), d.acknowledged_at,
				(SELECT name FROM users WHERE id = d.approved_by), d.approved_at,
				(SELECT name FROM users WHERE id = d.received_by), d.received_at,
				(SELECT name FROM users WHERE id = d.closed_by), d.closed_at
			FROM documents d
			JOIN users u ON d.requester_id = u.id
			WHERE d.id = $1 AND d.doc_type = $2 AND NOT d.deleted
		`, id, dt.Code).Scan(&doc.Id, &doc.DocumentNumber, &doc.RequesterName,
			&department, &submissionDate, &purpose, &doc.Status, &currency, &totalAmount,
			&slotNames[0], &slotDates[0],
			&slotNames[1], &slotDates[1],
			&slotNames[2], &slotDates[2],
			&slotNames[3], &slotDates[3],
			&slotNames[4], &slotDates[4],
			&slotNames[5], &slotDates[5])

		if err != nil {
			if err == sql.ErrNoRows {
				sendError(c, http.StatusNotFound, dt.Slug+"-not-found")
				return
			}

			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		if doc.Status == workflow.StatusDraft.String() {
			sendError(c, http.StatusConflict, "draft-has-no-voucher")
			return
		}

		doc.Department = department.String
		doc.Purpose = purpose.String
		doc.Currency = currency.String
		doc.TotalAmount = totalAmount.Float64

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

		pdf, err := buildVoucherPdf(dt, doc)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		fileName := fmt.Sprintf("voucher_%s.pdf", doc.DocumentNumber)

		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", "attachment;filename=\""+fileName+"\"")

		if _, err := c.Writer.Write(pdf); err != nil {
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}
	}
}

func buildVoucherPdf(dt models.DocumentType, doc models.Document) ([]byte, error) {
	m := newPdf(orientation.Vertical)

	m.AddRow(12,
		text.NewCol(12, dt.Name+" Voucher",
			props.Text{
				Top:   3,
				Size:  16,
				Style: fontstyle.Bold,
				Align: align.Center,
			}),
	)

	m.AddRow(6,
		text.NewCol(12, doc.DocumentNumber,
			props.Text{
				Size:  11,
				Align: align.Center,
			}),
	)

	m.AddRow(5)

	addVoucherField(m, "Requester", doc.RequesterName)
	addVoucherField(m, "Department", doc.Department)
	addVoucherField(m, "Submission Date", doc.SubmissionDate)
	addVoucherField(m, "Purpose", doc.Purpose)
	addVoucherField(m, "Status", doc.Status)

	m.AddRow(5)

	m.AddRow(8,
		pdfHeaderCol(3, "Category"),
		pdfHeaderCol(2, "Account"),
		pdfHeaderCol(4, "Description"),
		pdfHeaderCol(3, "Amount"),
	)

	for _, item := range doc.LineItems {
		m.AddRow(7,
			pdfDataCol(3, item.Category),
			pdfDataCol(2, item.AccountCode),
			pdfDataCol(4, item.Description),
			pdfDataCol(3, format.Rupiah(item.Amount)),
		)
	}

	m.AddRow(3)

	m.AddRow(8,
		pdfHeaderCol(9, "Total"),
		pdfHeaderCol(3, format.Rupiah(doc.TotalAmount)),
	)

	m.AddRow(8,
		col.New(3).Add(
			text.New("In words:", props.Text{
				Size:  9,
				Style: fontstyle.Bold,
			}),
		),
		col.New(9).Add(
			text.New(format.AmountInWords(doc.TotalAmount), props.Text{
				Size:  9,
				Style: fontstyle.Italic,
			}),
		),
	)

	m.AddRow(8)

	m.AddRow(8,
		pdfHeaderCol(2, "Prepared By"),
		pdfHeaderCol(2, "Checked By"),
		pdfHeaderCol(2, "Acknowledged By"),
		pdfHeaderCol(2, "Approved By"),
		pdfHeaderCol(2, "Received By"),
		pdfHeaderCol(2, "Closed By"),
	)

	m.AddRow(7,
		pdfDataCol(2, slotOrDash(doc.PreparedBy.Name)),
		pdfDataCol(2, slotOrDash(doc.CheckedBy.Name)),
		pdfDataCol(2, slotOrDash(doc.AcknowledgedBy.Name)),
		pdfDataCol(2, slotOrDash(doc.ApprovedBy.Name)),
		pdfDataCol(2, slotOrDash(doc.ReceivedBy.Name)),
		pdfDataCol(2, slotOrDash(doc.ClosedBy.Name)),
	)

	m.AddRow(7,
		pdfDataCol(2, slotOrDash(doc.PreparedBy.Date)),
		pdfDataCol(2, slotOrDash(doc.CheckedBy.Date)),
		pdfDataCol(2, slotOrDash(doc.AcknowledgedBy.Date)),
		pdfDataCol(2, slotOrDash(doc.ApprovedBy.Date)),
		pdfDataCol(2, slotOrDash(doc.ReceivedBy.Date)),
		pdfDataCol(2, slotOrDash(doc.ClosedBy.Date)),
	)

	pdfDoc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return pdfDoc.GetBytes(), nil
}

func addVoucherField(m core.Maroto, label, value string) {
	m.AddRow(8,
		col.New(4).Add(
			text.New(label+":", props.Text{
				Size:  10,
				Style: fontstyle.Bold,
			}),
		),
		col.New(8).Add(
			text.New(value, props.Text{
				Size: 10,
			}),
		),
	)
}

func slotOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
