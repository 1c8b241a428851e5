package mapper

import (
	"encoding/json"

	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/internal/model"

	"gorm.io/datatypes"
)

type SupportMapper struct{}

func NewSupportMapper() *SupportMapper {
	return &SupportMapper{}
}

func (m *SupportMapper) TicketToEntity(t *model.SupportTicket) *entity.SupportTicket {
	if t == nil {
		return nil
	}
	return &entity.SupportTicket{
		Id:         t.Id,
		Subject:    t.Subject,
		Message:    t.Message,
		Status:     entity.TicketStatus(t.Status),
		UserId:     t.UserId,
		ThreadLink: t.ThreadLink,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func (m *SupportMapper) TicketToModel(t *entity.SupportTicket) *model.SupportTicket {
	if t == nil {
		return nil
	}
	return &model.SupportTicket{
		Id:         t.Id,
		Subject:    t.Subject,
		Message:    t.Message,
		Status:     string(t.Status),
		UserId:     t.UserId,
		ThreadLink: t.ThreadLink,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func (m *SupportMapper) ActivityToEntity(a *model.ActivityLog) *entity.ActivityLog {
	if a == nil {
		return nil
	}
	var metadata map[string]any
	if len(a.Metadata) > 0 {
		_ = json.Unmarshal(a.Metadata, &metadata)
	}
	return &entity.ActivityLog{
		Id:          a.Id,
		UserId:      a.UserId,
		Action:      a.Action,
		Description: a.Description,
		Metadata:    metadata,
		CreatedAt:   a.CreatedAt,
	}
}

func (m *SupportMapper) ActivityToModel(a *entity.ActivityLog) (*model.ActivityLog, error) {
	if a == nil {
		return nil, nil
	}
	var metadata datatypes.JSON
	if a.Metadata != nil {
		raw, err := json.Marshal(a.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = datatypes.JSON(raw)
	}
	return &model.ActivityLog{
		Id:          a.Id,
		UserId:      a.UserId,
		Action:      a.Action,
		Description: a.Description,
		Metadata:    metadata,
		CreatedAt:   a.CreatedAt,
	}, nil
}

func (m *SupportMapper) WebhookEventToEntity(e *model.PaymentWebhookEvent) *entity.PaymentWebhookEvent {
	if e == nil {
		return nil
	}
	return &entity.PaymentWebhookEvent{
		Id:              e.Id,
		Provider:        entity.PaymentProvider(e.Provider),
		ProviderEventId: e.ProviderEventId,
		EventType:       e.EventType,
		Payload:         []byte(e.Payload),
		SignatureValid:  e.SignatureValid,
		ProcessedAt:     e.ProcessedAt,
		ProcessingError: e.ProcessingError,
		CreatedAt:       e.CreatedAt,
	}
}

func (m *SupportMapper) WebhookEventToModel(e *entity.PaymentWebhookEvent) *model.PaymentWebhookEvent {
	if e == nil {
		return nil
	}
	var payload datatypes.JSON
	if json.Valid(e.Payload) {
		payload = datatypes.JSON(e.Payload)
	}
	return &model.PaymentWebhookEvent{
		Id:              e.Id,
		Provider:        string(e.Provider),
		ProviderEventId: e.ProviderEventId,
		EventType:       e.EventType,
		Payload:         payload,
		SignatureValid:  e.SignatureValid,
		ProcessedAt:     e.ProcessedAt,
		ProcessingError: e.ProcessingError,
		CreatedAt:       e.CreatedAt,
	}
}
