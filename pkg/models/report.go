package models

// ReportRequest selects the entries of one board over an inclusive date range.
// Dates are ISO calendar dates (YYYY-MM-DD).
type ReportRequest struct {
	ProjectID string `json:"project_id"`
	BoardID   string `json:"board_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ReportRow is one billed time-log entry, already formatted for display.
type ReportRow struct {
	Date       string `json:"date" yaml:"date"`
	Specialist string `json:"specialist" yaml:"specialist"`
	Position   string `json:"position" yaml:"position"`
	Rate       string `json:"rate" yaml:"rate"`
	Work       string `json:"work" yaml:"work"`
	Hours      string `json:"hours" yaml:"hours"`
	Cost       string `json:"cost" yaml:"cost"`
}

// Dataset is the report handed to rendering collaborators.
type Dataset struct {
	ProjectID   string      `json:"project_id" yaml:"project_id"`
	BoardID     string      `json:"board_id" yaml:"board_id"`
	StartDate   string      `json:"start_date" yaml:"start_date"`
	EndDate     string      `json:"end_date" yaml:"end_date"`
	Rows        []ReportRow `json:"rows" yaml:"rows"`
	TotalHours  string      `json:"total_hours" yaml:"total_hours"`
	TotalAmount string      `json:"total_amount" yaml:"total_amount"`
	// AmountInWords is the spelled-out total, e.g. "Одна тысяча пятьсот рублей ноль копеек".
	AmountInWords string `json:"amount_in_words" yaml:"amount_in_words"`
	// Filename is a suggested base name for the rendered document.
	Filename string `json:"filename" yaml:"filename"`
	// Degraded is set when some remote fetches failed and contributed no rows.
	Degraded bool `json:"degraded" yaml:"degraded"`
	// Refused is set when the remote service declined at least one request.
	Refused bool `json:"refused" yaml:"refused"`
	// AutoRates is set when any row was billed at a role's default rate.
	AutoRates bool `json:"auto_rates" yaml:"auto_rates"`
}
