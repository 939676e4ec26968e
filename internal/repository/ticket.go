package repository

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/lendstack/backoffice-server-go/internal/model"
)

type TicketRepository interface {
	List(ctx context.Context, limit, offset int, status string) ([]model.Ticket, int, error)
	FindByID(ctx context.Context, id string) (*model.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status model.TicketStatus) error
	Assign(ctx context.Context, id string, assigneeID *string) error
	AddNote(ctx context.Context, ticketID, authorID, body string) (*model.TicketNote, error)
	ListNotes(ctx context.Context, ticketID string) ([]model.TicketNote, error)
}

type ticketRepo struct {
	db *sqlx.DB
}

func NewTicketRepository(db *sqlx.DB) TicketRepository {
	return &ticketRepo{db: db}
}

func (r *ticketRepo) List(ctx context.Context, limit, offset int, status string) ([]model.Ticket, int, error) {
	query := `SELECT * FROM tickets WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM tickets WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if status != "" {
		query += ` AND status = $` + strconv.Itoa(argIndex)
		countQuery += ` AND status = $` + strconv.Itoa(argIndex)
		args = append(args, status)
		argIndex++
	}

	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argIndex) + ` OFFSET $` + strconv.Itoa(argIndex+1)
	args = append(args, limit, offset)

	var tickets []model.Ticket
	if err := r.db.SelectContext(ctx, &tickets, query, args...); err != nil {
		return nil, 0, err
	}

	var total int
	countArgs := args[:len(args)-2]
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}

	return tickets, total, nil
}

func (r *ticketRepo) FindByID(ctx context.Context, id string) (*model.Ticket, error) {
	var ticket model.Ticket
	err := r.db.GetContext(ctx, &ticket, `
		SELECT * FROM tickets WHERE id = $1
	`, id)
	return HandleNotFound(&ticket, err)
}

func (r *ticketRepo) UpdateStatus(ctx context.Context, id string, status model.TicketStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET status = $2,
		    resolved_at = CASE WHEN $2 IN ('resolved', 'closed') THEN NOW() ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $1
	`, id, status)
	return err
}

func (r *ticketRepo) Assign(ctx context.Context, id string, assigneeID *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tickets SET assignee_id = $2, updated_at = NOW() WHERE id = $1
	`, id, assigneeID)
	return err
}

func (r *ticketRepo) AddNote(ctx context.Context, ticketID, authorID, body string) (*model.TicketNote, error) {
	var note model.TicketNote
	err := r.db.GetContext(ctx, &note, `
		INSERT INTO ticket_notes (ticket_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING *
	`, ticketID, authorID, body)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *ticketRepo) ListNotes(ctx context.Context, ticketID string) ([]model.TicketNote, error) {
	var notes []model.TicketNote
	err := r.db.SelectContext(ctx, &notes, `
		SELECT * FROM ticket_notes
		WHERE ticket_id = $1
		ORDER BY created_at
	`, ticketID)
	if err != nil {
		return nil, err
	}
	return notes, nil
}
