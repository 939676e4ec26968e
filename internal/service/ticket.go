package service

import (
	"context"

	"github.com/lendstack/backoffice-server-go/internal/audit"
	apperrors "github.com/lendstack/backoffice-server-go/internal/errors"
	"github.com/lendstack/backoffice-server-go/internal/model"
	"github.com/lendstack/backoffice-server-go/internal/repository"
)

type TicketService struct {
	ticketRepo repository.TicketRepository
	adminRepo  repository.AdminRepository
}

func NewTicketService(ticketRepo repository.TicketRepository, adminRepo repository.AdminRepository) *TicketService {
	return &TicketService{ticketRepo: ticketRepo, adminRepo: adminRepo}
}

func (s *TicketService) List(ctx context.Context, limit, offset int, status string) ([]model.Ticket, int, error) {
	return s.ticketRepo.List(ctx, limit, offset, status)
}

func (s *TicketService) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	return s.ticketRepo.FindByID(ctx, id)
}

func (s *TicketService) UpdateStatus(ctx context.Context, id string, status model.TicketStatus, actorID string) (*model.Ticket, error) {
	ticket, err := s.ticketRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if ticket == nil {
		return nil, apperrors.NotFound("Ticket")
	}

	if err := s.ticketRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventTicketStatusChanged, AdminID: actorID,
		Details: map[string]interface{}{"ticket_id": id, "from": ticket.Status, "to": status}})

	return s.ticketRepo.FindByID(ctx, id)
}

func (s *TicketService) Assign(ctx context.Context, id string, assigneeID *string) (*model.Ticket, error) {
	ticket, err := s.ticketRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if ticket == nil {
		return nil, apperrors.NotFound("Ticket")
	}

	if assigneeID != nil {
		assignee, err := s.adminRepo.FindByID(ctx, *assigneeID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if assignee == nil {
			return nil, apperrors.NotFound("Assignee")
		}
	}

	if err := s.ticketRepo.Assign(ctx, id, assigneeID); err != nil {
		return nil, apperrors.Database(err)
	}

	return s.ticketRepo.FindByID(ctx, id)
}

func (s *TicketService) AddNote(ctx context.Context, ticketID, authorID, body string) (*model.TicketNote, error) {
	if body == "" {
		return nil, apperrors.MissingRequired("body")
	}

	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if ticket == nil {
		return nil, apperrors.NotFound("Ticket")
	}

	note, err := s.ticketRepo.AddNote(ctx, ticketID, authorID, body)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return note, nil
}

func (s *TicketService) ListNotes(ctx context.Context, ticketID string) ([]model.TicketNote, error) {
	return s.ticketRepo.ListNotes(ctx, ticketID)
}
