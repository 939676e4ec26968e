package model

import (
	"time"
)

// Loan is a micro-loan managed through the back office.
type Loan struct {
	ID             string     `db:"id" json:"id"`
	Reference      string     `db:"reference" json:"reference"`
	BorrowerName   string     `db:"borrower_name" json:"borrowerName"`
	BorrowerEmail  string     `db:"borrower_email" json:"borrowerEmail"`
	PrincipalCents int64      `db:"principal_cents" json:"principalCents"`
	InterestBps    int        `db:"interest_bps" json:"interestBps"`
	TermMonths     int        `db:"term_months" json:"termMonths"`
	Status         LoanStatus `db:"status" json:"status"`
	DecidedBy      *string    `db:"decided_by" json:"decidedBy,omitempty"`
	DecidedAt      *time.Time `db:"decided_at" json:"decidedAt,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// Transaction is a money movement recorded against a loan.
type Transaction struct {
	ID          string          `db:"id" json:"id"`
	LoanID      string          `db:"loan_id" json:"loanId"`
	Type        TransactionType `db:"type" json:"type"`
	AmountCents int64           `db:"amount_cents" json:"amountCents"`
	RecordedBy  string          `db:"recorded_by" json:"recordedBy"`
	Note        *string         `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

type CreateTransactionParams struct {
	LoanID      string
	Type        TransactionType
	AmountCents int64
	RecordedBy  string
	Note        *string
}
