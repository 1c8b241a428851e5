package entity

import "time"

type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

type SupportTicket struct {
	Id         uint
	Subject    string
	Message    string
	Status     TicketStatus
	UserId     uint
	ThreadLink string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const ActivityPaymentFailed = "PAYMENT_FAILED"

type ActivityLog struct {
	Id          uint
	UserId      uint
	Action      string
	Description string
	Metadata    map[string]any
	CreatedAt   time.Time
}
