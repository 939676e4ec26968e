package model

// AdminStatus is the lifecycle state of an administrator account.
type AdminStatus string

const (
	AdminStatusActive    AdminStatus = "active"
	AdminStatusInactive  AdminStatus = "inactive"
	AdminStatusSuspended AdminStatus = "suspended"
)

// SessionType distinguishes the two pending session ceremonies.
type SessionType string

const (
	// SessionTypeSetup bridges password verification and first-time
	// authenticator enrollment.
	SessionTypeSetup SessionType = "setup"
	// SessionTypeMFA bridges password verification and a second-factor
	// code for an already-enrolled administrator.
	SessionTypeMFA SessionType = "mfa"
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusRejected  LoanStatus = "rejected"
	LoanStatusDisbursed LoanStatus = "disbursed"
	LoanStatusRepaid    LoanStatus = "repaid"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// TransactionType classifies money movement on a loan.
type TransactionType string

const (
	TransactionTypeDisbursement TransactionType = "disbursement"
	TransactionTypeRepayment    TransactionType = "repayment"
	TransactionTypeFee          TransactionType = "fee"
)

// TicketStatus is the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)
