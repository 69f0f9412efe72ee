package dto

// SubmitRequest is one reviewer answer, posted from the review form or the JSON API.
type SubmitRequest struct {
	Email    string   `json:"email" validate:"required"`
	ID       int64    `json:"id" validate:"required,gt=0"`
	Slot     string   `json:"slot"`
	Answer   string   `json:"answer"`
	Problems []string `json:"problems"`
	// ProblemsSubmitted is true when the form carried the problem checkbox section,
	// even with nothing checked.
	ProblemsSubmitted bool `json:"problems_submitted"`
}

// NextPendingResponse tells the client where to go after a submission.
type NextPendingResponse struct {
	Done     bool   `json:"done"`
	ID       int64  `json:"id,omitempty"`
	Slot     string `json:"slot,omitempty"`
	Location string `json:"location"`
}

// ImportRow is one feedback record read from a spreadsheet or CSV file.
type ImportRow struct {
	Line      int    `json:"line"`
	Feedback  string `json:"feedback" validate:"required"`
	Reviewer1 string `json:"reviewer_1" validate:"omitempty,email"`
	Reviewer2 string `json:"reviewer_2" validate:"omitempty,email"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Inserted int           `json:"inserted"`
	Rejected []ImportIssue `json:"rejected,omitempty"`
}

// ImportIssue explains why a row was skipped.
type ImportIssue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// InvitationResult summarises an invitation run.
type InvitationResult struct {
	Reviewers int `json:"reviewers"`
	Enqueued  int `json:"enqueued"`
}
