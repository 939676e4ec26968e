package service

import (
	"context"

	"github.com/lendstack/backoffice-server-go/internal/audit"
	apperrors "github.com/lendstack/backoffice-server-go/internal/errors"
	"github.com/lendstack/backoffice-server-go/internal/model"
	"github.com/lendstack/backoffice-server-go/internal/repository"
)

// loanTransitions encodes the permitted status changes.
var loanTransitions = map[model.LoanStatus][]model.LoanStatus{
	model.LoanStatusPending:   {model.LoanStatusApproved, model.LoanStatusRejected},
	model.LoanStatusApproved:  {model.LoanStatusDisbursed},
	model.LoanStatusDisbursed: {model.LoanStatusRepaid, model.LoanStatusDefaulted},
}

type LoanService struct {
	loanRepo repository.LoanRepository
	txnRepo  repository.TransactionRepository
}

func NewLoanService(loanRepo repository.LoanRepository, txnRepo repository.TransactionRepository) *LoanService {
	return &LoanService{loanRepo: loanRepo, txnRepo: txnRepo}
}

func (s *LoanService) List(ctx context.Context, limit, offset int, status, borrower string) ([]model.Loan, int, error) {
	return s.loanRepo.List(ctx, limit, offset, status, borrower)
}

func (s *LoanService) GetByID(ctx context.Context, id string) (*model.Loan, error) {
	return s.loanRepo.FindByID(ctx, id)
}

// Decide moves a loan along its lifecycle; illegal transitions are rejected.
func (s *LoanService) Decide(ctx context.Context, id string, next model.LoanStatus, decidedBy string) (*model.Loan, error) {
	loan, err := s.loanRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if loan == nil {
		return nil, apperrors.NotFound("Loan")
	}

	allowed := false
	for _, candidate := range loanTransitions[loan.Status] {
		if candidate == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.Conflict("Loan status transition not allowed")
	}

	if err := s.loanRepo.UpdateStatus(ctx, id, next, decidedBy); err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventLoanDecision, AdminID: decidedBy,
		Details: map[string]interface{}{"loan_id": id, "from": loan.Status, "to": next}})

	return s.loanRepo.FindByID(ctx, id)
}

func (s *LoanService) ListTransactions(ctx context.Context, loanID string, limit, offset int) ([]model.Transaction, int, error) {
	return s.txnRepo.ListByLoan(ctx, loanID, limit, offset)
}

func (s *LoanService) RecordTransaction(ctx context.Context, params model.CreateTransactionParams) (*model.Transaction, error) {
	loan, err := s.loanRepo.FindByID(ctx, params.LoanID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if loan == nil {
		return nil, apperrors.NotFound("Loan")
	}
	if params.AmountCents <= 0 {
		return nil, apperrors.InvalidInput("amountCents", "must be positive")
	}

	txn, err := s.txnRepo.Create(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventTransactionRecorded, AdminID: params.RecordedBy,
		Details: map[string]interface{}{"loan_id": params.LoanID, "type": params.Type}})

	return txn, nil
}
