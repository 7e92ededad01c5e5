package models

import (
	"time"

	"approvalapi/workflow"
)

// DocumentType describes one of the four approval document kinds. Every
// dashboard, detail and voucher endpoint is parameterized by one of these
// instead of being duplicated per kind.
type DocumentType struct {
	Code         string
	Slug         string
	Name         string
	NumberPrefix string
}

var (
	CashAdvance     = DocumentType{Code: "CA", Slug: "cash-advances", Name: "Cash Advance", NumberPrefix: "CA"}
	Reimbursement   = DocumentType{Code: "RB", Slug: "reimbursements", Name: "Reimbursement", NumberPrefix: "RB"}
	Settlement      = DocumentType{Code: "ST", Slug: "settlements", Name: "Settlement", NumberPrefix: "ST"}
	PurchaseRequest = DocumentType{Code: "PR", Slug: "purchase-requests", Name: "Purchase Request", NumberPrefix: "PR"}
)

var DocumentTypes = []DocumentType{CashAdvance, Reimbursement, Settlement, PurchaseRequest}

// ApprovalSlot is one named entry of the approval chain.
type ApprovalSlot struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

type Document struct {
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Id             string    `json:"id"`
	DocType        string    `json:"doc_type"`
	DocumentNumber string    `json:"document_number"`
	RequesterId    string    `json:"requester_id"`
	RequesterName  string    `json:"requester_name"`
	Department     string    `json:"department"`
	SubmissionDate string    `json:"submission_date"`
	Purpose        string    `json:"purpose"`
	Remarks        string    `json:"remarks"`
	Status         string    `json:"status"`
	Currency       string    `json:"currency"`
	TotalAmount    float64   `json:"total_amount"`

	// settlements reference the cash advance they settle
	CashAdvanceId string `json:"cash_advance_id,omitempty"`

	PreparedBy     ApprovalSlot `json:"prepared_by"`
	CheckedBy      ApprovalSlot `json:"checked_by"`
	AcknowledgedBy ApprovalSlot `json:"acknowledged_by"`
	ApprovedBy     ApprovalSlot `json:"approved_by"`
	ReceivedBy     ApprovalSlot `json:"received_by"`
	ClosedBy       ApprovalSlot `json:"closed_by"`

	LineItems   []LineItem   `json:"line_items,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// actions the caller may fire from the current status, detail view only
	PermittedActions []string `json:"permitted_actions,omitempty"`
}

type LineItem struct {
	Id          string  `json:"id"`
	Category    string  `json:"category"`
	AccountCode string  `json:"account_code"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type Attachment struct {
	Id         string    `json:"id"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type DocumentList struct {
	Documents  []Document `json:"documents"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Total      int32      `json:"total"`
	Pagination Pagination `json:"pagination"`
}

type DocumentFilter struct {
	Status         string
	DocumentNumber string
	RequesterId    string
	RequesterName  string
	Department     string
	SubmissionDate string
	MinDate        string
	MaxDate        string
	CashAdvanceId  string
}

type UpsertDocumentRequest struct {
	Id             string     `json:"id"`
	Department     string     `json:"department"`
	SubmissionDate string     `json:"submission_date"`
	Purpose        string     `json:"purpose"`
	Remarks        string     `json:"remarks"`
	Currency       string     `json:"currency"`
	CashAdvanceId  string     `json:"cash_advance_id"`
	LineItems      []LineItem `json:"line_items"`
}

// StatusRequest is the shared payload of every status-transition POST.
type StatusRequest struct {
	Id       string `json:"id"`
	UserId   string `json:"user_id"`
	StatusAt string `json:"status_at"`
	Action   string `json:"action"`
	Remarks  string `json:"remarks"`
}

// StatusCounts carries the per-status totals shown on the dashboard tabs.
type StatusCounts struct {
	Counts map[string]int32 `json:"counts"`
	Total  int32            `json:"total"`
}

// ApprovalEntry is one row of a document's approval history.
type ApprovalEntry struct {
	CreatedAt  time.Time `json:"created_at"`
	Id         string    `json:"id"`
	DocumentId string    `json:"document_id"`
	UserId     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	Action     string    `json:"action"`
	StatusFrom string    `json:"status_from"`
	StatusTo   string    `json:"status_to"`
	Remarks    string    `json:"remarks"`
}

// ChainColumns maps a firing action to the approval-chain columns it stamps.
func ChainColumns(action workflow.Action) (byColumn, atColumn string, ok bool) {
	switch action {
	case workflow.ActionSubmit:
		return "prepared_by", "prepared_at", true
	case workflow.ActionCheck:
		return "checked_by", "checked_at", true
	case workflow.ActionAcknowledge:
		return "acknowledged_by", "acknowledged_at", true
	case workflow.ActionApprove:
		return "approved_by", "approved_at", true
	case workflow.ActionReceive:
		return "received_by", "received_at", true
	case workflow.ActionClose:
		return "closed_by", "closed_at", true
	}

	return "", "", false
}
