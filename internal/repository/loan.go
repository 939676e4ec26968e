package repository

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/lendstack/backoffice-server-go/internal/model"
)

type LoanRepository interface {
	List(ctx context.Context, limit, offset int, status, borrower string) ([]model.Loan, int, error)
	FindByID(ctx context.Context, id string) (*model.Loan, error)
	UpdateStatus(ctx context.Context, id string, status model.LoanStatus, decidedBy string) error
}

type TransactionRepository interface {
	ListByLoan(ctx context.Context, loanID string, limit, offset int) ([]model.Transaction, int, error)
	Create(ctx context.Context, params model.CreateTransactionParams) (*model.Transaction, error)
}

type loanRepo struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepo{db: db}
}

func (r *loanRepo) List(ctx context.Context, limit, offset int, status, borrower string) ([]model.Loan, int, error) {
	query := `SELECT * FROM loans WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM loans WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if status != "" {
		query += ` AND status = $` + strconv.Itoa(argIndex)
		countQuery += ` AND status = $` + strconv.Itoa(argIndex)
		args = append(args, status)
		argIndex++
	}

	if borrower != "" {
		query += ` AND (borrower_name ILIKE '%' || $` + strconv.Itoa(argIndex) + ` || '%' OR borrower_email ILIKE '%' || $` + strconv.Itoa(argIndex) + ` || '%')`
		countQuery += ` AND (borrower_name ILIKE '%' || $` + strconv.Itoa(argIndex) + ` || '%' OR borrower_email ILIKE '%' || $` + strconv.Itoa(argIndex) + ` || '%')`
		args = append(args, borrower)
		argIndex++
	}

	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argIndex) + ` OFFSET $` + strconv.Itoa(argIndex+1)
	args = append(args, limit, offset)

	var loans []model.Loan
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, 0, err
	}

	var total int
	countArgs := args[:len(args)-2]
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}

	return loans, total, nil
}

func (r *loanRepo) FindByID(ctx context.Context, id string) (*model.Loan, error) {
	var loan model.Loan
	err := r.db.GetContext(ctx, &loan, `
		SELECT * FROM loans WHERE id = $1
	`, id)
	return HandleNotFound(&loan, err)
}

func (r *loanRepo) UpdateStatus(ctx context.Context, id string, status model.LoanStatus, decidedBy string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE loans
		SET status = $2, decided_by = $3, decided_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id, status, decidedBy)
	return err
}

type transactionRepo struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) ListByLoan(ctx context.Context, loanID string, limit, offset int) ([]model.Transaction, int, error) {
	var transactions []model.Transaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT * FROM transactions
		WHERE loan_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, loanID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM transactions WHERE loan_id = $1
	`, loanID); err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

func (r *transactionRepo) Create(ctx context.Context, params model.CreateTransactionParams) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.GetContext(ctx, &txn, `
		INSERT INTO transactions (loan_id, type, amount_cents, recorded_by, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.LoanID, params.Type, params.AmountCents, params.RecordedBy, params.Note)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
