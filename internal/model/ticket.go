package model

import (
	"time"
)

// Ticket is a customer support ticket handled by the back office desk.
type Ticket struct {
	ID         string       `db:"id" json:"id"`
	Reference  string       `db:"reference" json:"reference"`
	Subject    string       `db:"subject" json:"subject"`
	Body       string       `db:"body" json:"body"`
	Requester  string       `db:"requester" json:"requester"`
	Status     TicketStatus `db:"status" json:"status"`
	AssigneeID *string      `db:"assignee_id" json:"assigneeId,omitempty"`
	ResolvedAt *time.Time   `db:"resolved_at" json:"resolvedAt,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updatedAt"`
}

// TicketNote is an internal note appended to a ticket by an administrator.
type TicketNote struct {
	ID        string    `db:"id" json:"id"`
	TicketID  string    `db:"ticket_id" json:"ticketId"`
	AuthorID  string    `db:"author_id" json:"authorId"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
