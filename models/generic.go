package models

// RowError points a validation message at one row of a request, either a line
// item by its position or an id in a batch delete.
type RowError struct {
	Message string `json:"message"`
	Row     int    `json:"row"`
}

// BatchDeleteRequest carries the document ids selected on a dashboard.
type BatchDeleteRequest struct {
	Data []string `json:"data"`
}

type RowResponseError struct {
	Message string     `json:"message"`
	Detail  []RowError `json:"detail"`
}
