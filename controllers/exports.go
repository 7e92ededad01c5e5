package controllers

import (
	"approvalapi/format"
	"approvalapi/models"
	"fmt"
	"net/http"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/gin-gonic/gin"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

func exportFileName(dt models.DocumentType, ext string) string {
	loc, _ := time.LoadLocation("Asia/Jakarta")
	return fmt.Sprintf("report_%s_%s.%s", dt.Slug, time.Now().In(loc).Format("20060102_150405"), ext)
}

func (api *API) handleExcelDocuments(c *gin.Context, dt models.DocumentType, status string, documents []models.Document) {
	if len(documents) == 0 {
		sendError(c, http.StatusNotFound, dt.Slug+"-not-found")
		return
	}

	f := excelize.NewFile()

	sheet := "List " + dt.Name + "s"
	f.NewSheet(sheet)
	// delete default sheet
	f.DeleteSheet("Sheet1")

	err := f.SetColWidth(sheet, "A", "G", 30)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	headerStyle, err := f.NewStyle(s1)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	dataStyle, err := f.NewStyle(s2)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	streamWriter, err := f.NewStreamWriter(sheet)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if err = streamWriter.SetRow("A1", []interface{}{
		excelize.Cell{StyleID: headerStyle, Value: "Number"},
		excelize.Cell{StyleID: headerStyle, Value: "Requester"},
		excelize.Cell{StyleID: headerStyle, Value: "Department"},
		excelize.Cell{StyleID: headerStyle, Value: "Submission Date"},
		excelize.Cell{StyleID: headerStyle, Value: "Purpose"},
		excelize.Cell{StyleID: headerStyle, Value: "Status"},
		excelize.Cell{StyleID: headerStyle, Value: "Total"}}); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	for n, doc := range documents {
		row := make([]interface{}, 7)
		row[0] = excelize.Cell{StyleID: dataStyle, Value: doc.DocumentNumber}
		row[1] = excelize.Cell{StyleID: dataStyle, Value: doc.RequesterName}
		row[2] = excelize.Cell{StyleID: dataStyle, Value: doc.Department}
		row[3] = excelize.Cell{StyleID: dataStyle, Value: doc.SubmissionDate}
		row[4] = excelize.Cell{StyleID: dataStyle, Value: doc.Purpose}
		row[5] = excelize.Cell{StyleID: dataStyle, Value: doc.Status}
		row[6] = excelize.Cell{StyleID: dataStyle, Value: format.Rupiah(doc.TotalAmount)}

		cell, _ := excelize.CoordinatesToCellName(1, n+2)
		if err = streamWriter.SetRow(cell, row); err != nil {
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if err := streamWriter.Flush(); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment;filename=\""+exportFileName(dt, "xlsx")+"\"")

	if _, err := f.WriteTo(c.Writer); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
}

func (api *API) handlePdfDocuments(c *gin.Context, dt models.DocumentType, status string, documents []models.Document) {
	if len(documents) == 0 {
		sendError(c, http.StatusNotFound, dt.Slug+"-not-found")
		return
	}

	m := newPdf(orientation.Horizontal)

	title := "List " + dt.Name + "s"
	if status != "" {
		title += " - " + status
	}

	m.AddRow(12,
		text.NewCol(12, title,
			props.Text{
				Top:   3,
				Size:  14,
				Style: fontstyle.Bold,
				Align: align.Center,
			}),
	)

	m.AddRow(5)

	m.AddRow(8,
		pdfHeaderCol(2, "Number"),
		pdfHeaderCol(2, "Requester"),
		pdfHeaderCol(2, "Department"),
		pdfHeaderCol(2, "Submission Date"),
		pdfHeaderCol(2, "Status"),
		pdfHeaderCol(2, "Total"),
	)

	var total float64
	for _, doc := range documents {
		total += doc.TotalAmount

		m.AddRow(7,
			pdfDataCol(2, doc.DocumentNumber),
			pdfDataCol(2, doc.RequesterName),
			pdfDataCol(2, doc.Department),
			pdfDataCol(2, doc.SubmissionDate),
			pdfDataCol(2, doc.Status),
			pdfDataCol(2, format.Rupiah(doc.TotalAmount)),
		)
	}

	m.AddRow(3)

	m.AddRow(8,
		pdfHeaderCol(10, "Total"),
		pdfHeaderCol(2, format.Rupiah(total)),
	)

	doc, err := m.Generate()
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", "attachment;filename=\""+exportFileName(dt, "pdf")+"\"")

	if _, err := c.Writer.Write(doc.GetBytes()); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
}

func newPdf(o orientation.Type) core.Maroto {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(o).
		WithLeftMargin(10).
		WithTopMargin(15).
		WithRightMargin(10).
		WithBottomMargin(10).
		Build()

	return maroto.New(cfg)
}

func pdfHeaderCol(size int, value string) core.Col {
	return col.New(size).Add(
		text.New(value, props.Text{
			Size:  9,
			Style: fontstyle.Bold,
		}),
	)
}

func pdfDataCol(size int, value string) core.Col {
	return col.New(size).Add(
		text.New(value, props.Text{
			Size: 9,
		}),
	)
}
