package testutil

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"chatbot-billing-be/internal/entity"

	"gorm.io/gorm"
)

func duplicate(table, column string) error {
	return fmt.Errorf("%s.%s: %w", table, column, gorm.ErrDuplicatedKey)
}

func notFound(table string, id uint) error {
	return fmt.Errorf("%s %d: %w", table, id, gorm.ErrRecordNotFound)
}

func strEq(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

type transactionRepo struct{ u *UnitOfWork }

func (r *transactionRepo) checkUnique(t *tables, tx *entity.Transaction) error {
	for id, existing := range t.transactions {
		if id == tx.Id {
			continue
		}
		if existing.OrderId == tx.OrderId {
			return duplicate("transactions", "order_id")
		}
		if strEq(existing.ProviderPaymentId, tx.ProviderPaymentId) {
			return duplicate("transactions", "provider_payment_id")
		}
		if existing.Provider == tx.Provider && strEq(existing.ProviderTransactionId, tx.ProviderTransactionId) {
			return duplicate("transactions", "provider_transaction_id")
		}
	}
	return nil
}

func (r *transactionRepo) Create(ctx context.Context, tx *entity.Transaction) error {
	return r.u.with(func(t *tables) error {
		if err := r.checkUnique(t, tx); err != nil {
			return err
		}
		tx.Id = r.u.store.nextID("transactions", tx.Id)
		now := r.u.store.now()
		tx.CreatedAt, tx.UpdatedAt = now, now
		t.transactions[tx.Id] = *tx
		return nil
	})
}

func (r *transactionRepo) Update(ctx context.Context, tx *entity.Transaction) error {
	return r.u.with(func(t *tables) error {
		if _, ok := t.transactions[tx.Id]; !ok {
			return notFound("transactions", tx.Id)
		}
		if err := r.checkUnique(t, tx); err != nil {
			return err
		}
		tx.UpdatedAt = r.u.store.now()
		t.transactions[tx.Id] = *tx
		return nil
	})
}

func (r *transactionRepo) findFirst(match func(entity.Transaction) bool) (*entity.Transaction, error) {
	var found *entity.Transaction
	err := r.u.with(func(t *tables) error {
		for _, tx := range sortedValues(t.transactions) {
			tx := tx
			if match(tx) {
				found = &tx
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *transactionRepo) FindByID(ctx context.Context, id uint) (*entity.Transaction, error) {
	return r.findFirst(func(tx entity.Transaction) bool { return tx.Id == id })
}

func (r *transactionRepo) FindByOrderID(ctx context.Context, orderID string) (*entity.Transaction, error) {
	return r.findFirst(func(tx entity.Transaction) bool { return tx.OrderId == orderID })
}

func (r *transactionRepo) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*entity.Transaction, error) {
	return r.findFirst(func(tx entity.Transaction) bool {
		return tx.ProviderPaymentId != nil && *tx.ProviderPaymentId == providerPaymentID
	})
}

func (r *transactionRepo) FindByProviderTransactionID(ctx context.Context, provider entity.PaymentProvider, providerTransactionID string) (*entity.Transaction, error) {
	return r.findFirst(func(tx entity.Transaction) bool {
		if provider != "" && tx.Provider != provider {
			return false
		}
		return tx.ProviderTransactionId != nil && *tx.ProviderTransactionId == providerTransactionID
	})
}

func (r *transactionRepo) ListByUserID(ctx context.Context, userID uint) ([]*entity.Transaction, error) {
	var out []*entity.Transaction
	err := r.u.with(func(t *tables) error {
		for _, tx := range sortedValues(t.transactions) {
			tx := tx
			if tx.UserId == userID {
				out = append(out, &tx)
			}
		}
		slices.Reverse(out)
		return nil
	})
	return out, err
}

type creditRepo struct{ u *UnitOfWork }

func (r *creditRepo) Create(ctx context.Context, credits *entity.UserCredits) error {
	return r.u.with(func(t *tables) error {
		for _, existing := range t.credits {
			if existing.UserId == credits.UserId {
				return duplicate("user_credits", "user_id")
			}
		}
		credits.Id = r.u.store.nextID("user_credits", credits.Id)
		now := r.u.store.now()
		credits.CreatedAt, credits.UpdatedAt = now, now
		t.credits[credits.Id] = *credits
		return nil
	})
}

func (r *creditRepo) Update(ctx context.Context, credits *entity.UserCredits) error {
	return r.u.with(func(t *tables) error {
		if _, ok := t.credits[credits.Id]; !ok {
			return notFound("user_credits", credits.Id)
		}
		credits.UpdatedAt = r.u.store.now()
		t.credits[credits.Id] = *credits
		return nil
	})
}

func (r *creditRepo) Delete(ctx context.Context, id uint) error {
	return r.u.with(func(t *tables) error {
		delete(t.credits, id)
		return nil
	})
}

func (r *creditRepo) find(match func(entity.UserCredits) bool) (*entity.UserCredits, error) {
	var found *entity.UserCredits
	err := r.u.with(func(t *tables) error {
		for _, c := range sortedValues(t.credits) {
			c := c
			if match(c) {
				found = &c
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *creditRepo) FindByID(ctx context.Context, id uint) (*entity.UserCredits, error) {
	return r.find(func(c entity.UserCredits) bool { return c.Id == id })
}

func (r *creditRepo) FindByUserID(ctx context.Context, userID uint) (*entity.UserCredits, error) {
	return r.find(func(c entity.UserCredits) bool { return c.UserId == userID })
}

func (r *creditRepo) FindByUserIDForUpdate(ctx context.Context, userID uint) (*entity.UserCredits, error) {
	return r.FindByUserID(ctx, userID)
}

func (r *creditRepo) CreateHistory(ctx context.Context, history *entity.HistoryUserCredits) error {
	return r.u.with(func(t *tables) error {
		history.Id = r.u.store.nextID("history_user_credits", history.Id)
		t.creditHistory = append(t.creditHistory, *history)
		return nil
	})
}

func (r *creditRepo) ListHistoryByUserID(ctx context.Context, userID uint) ([]*entity.HistoryUserCredits, error) {
	var out []*entity.HistoryUserCredits
	err := r.u.with(func(t *tables) error {
		for _, h := range t.creditHistory {
			h := h
			if h.UserId == userID {
				out = append(out, &h)
			}
		}
		slices.Reverse(out)
		return nil
	})
	return out, err
}

func (r *creditRepo) CreateTopup(ctx context.Context, topup *entity.CreditTopup) error {
	return r.u.with(func(t *tables) error {
		for _, existing := range t.topups {
			if existing.TransId == topup.TransId {
				return duplicate("credit_topups", "trans_id")
			}
		}
		topup.Id = r.u.store.nextID("credit_topups", topup.Id)
		topup.CreatedAt = r.u.store.now()
		t.topups[topup.Id] = *topup
		return nil
	})
}

func (r *creditRepo) FindTopupByTransID(ctx context.Context, transID uint) (*entity.CreditTopup, error) {
	var found *entity.CreditTopup
	err := r.u.with(func(t *tables) error {
		for _, topup := range t.topups {
			topup := topup
			if topup.TransId == transID {
				found = &topup
				return nil
			}
		}
		return nil
	})
	return found, err
}

type tokenUsageRepo struct{ u *UnitOfWork }

func (r *tokenUsageRepo) injected(botID uint) error {
	return r.u.store.usageErrs[botID]
}

func (r *tokenUsageRepo) Create(ctx context.Context, usage *entity.TokenUsage) error {
	return r.u.with(func(t *tables) error {
		if err := r.injected(usage.BotId); err != nil {
			return err
		}
		for _, existing := range t.usages {
			if existing.BotId == usage.BotId && existing.UserId == usage.UserId {
				return duplicate("token_usages", "bot_id,user_id")
			}
		}
		usage.Id = r.u.store.nextID("token_usages", usage.Id)
		now := r.u.store.now()
		usage.CreatedAt, usage.UpdatedAt = now, now
		t.usages[usage.Id] = *usage
		return nil
	})
}

func (r *tokenUsageRepo) Update(ctx context.Context, usage *entity.TokenUsage) error {
	return r.u.with(func(t *tables) error {
		if err := r.injected(usage.BotId); err != nil {
			return err
		}
		if _, ok := t.usages[usage.Id]; !ok {
			return notFound("token_usages", usage.Id)
		}
		usage.UpdatedAt = r.u.store.now()
		t.usages[usage.Id] = *usage
		return nil
	})
}

func (r *tokenUsageRepo) find(match func(entity.TokenUsage) bool) (*entity.TokenUsage, error) {
	var found *entity.TokenUsage
	err := r.u.with(func(t *tables) error {
		for _, usage := range sortedValues(t.usages) {
			usage := usage
			if match(usage) {
				found = &usage
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *tokenUsageRepo) FindByBotID(ctx context.Context, botID uint) (*entity.TokenUsage, error) {
	return r.find(func(u entity.TokenUsage) bool { return u.BotId == botID })
}

func (r *tokenUsageRepo) FindByBotAndUser(ctx context.Context, botID, userID uint) (*entity.TokenUsage, error) {
	return r.find(func(u entity.TokenUsage) bool { return u.BotId == botID && u.UserId == userID })
}

func (r *tokenUsageRepo) ListByUserID(ctx context.Context, userID uint) ([]*entity.TokenUsage, error) {
	var out []*entity.TokenUsage
	err := r.u.with(func(t *tables) error {
		for _, usage := range sortedValues(t.usages) {
			usage := usage
			if usage.UserId == userID {
				out = append(out, &usage)
			}
		}
		return nil
	})
	return out, err
}

func (r *tokenUsageRepo) IncrementCombinedConsumption(ctx context.Context, userID uint, delta float64) error {
	return r.u.with(func(t *tables) error {
		for id, usage := range t.usages {
			if usage.UserId != userID {
				continue
			}
			usage.CombinedTokenConsumption += delta
			usage.UpdatedAt = r.u.store.now()
			t.usages[id] = usage
		}
		return nil
	})
}

func (r *tokenUsageRepo) CreateHistory(ctx context.Context, history *entity.TokenUsageHistory) error {
	return r.u.with(func(t *tables) error {
		if err := r.injected(history.BotId); err != nil {
			return err
		}
		history.Id = r.u.store.nextID("token_usage_histories", history.Id)
		t.usageHistory = append(t.usageHistory, *history)
		return nil
	})
}

func (r *tokenUsageRepo) ListHistoryByBotID(ctx context.Context, botID uint) ([]*entity.TokenUsageHistory, error) {
	var out []*entity.TokenUsageHistory
	err := r.u.with(func(t *tables) error {
		for _, h := range t.usageHistory {
			h := h
			if h.BotId == botID {
				out = append(out, &h)
			}
		}
		slices.Reverse(out)
		return nil
	})
	return out, err
}

type supportRepo struct{ u *UnitOfWork }

func (r *supportRepo) CreateTicket(ctx context.Context, ticket *entity.SupportTicket) error {
	return r.u.with(func(t *tables) error {
		ticket.Id = r.u.store.nextID("support_tickets", ticket.Id)
		now := r.u.store.now()
		ticket.CreatedAt, ticket.UpdatedAt = now, now
		t.tickets[ticket.Id] = *ticket
		return nil
	})
}

func (r *supportRepo) FindTicketBySubject(ctx context.Context, subject string, userID uint) (*entity.SupportTicket, error) {
	var found *entity.SupportTicket
	err := r.u.with(func(t *tables) error {
		for _, ticket := range sortedValues(t.tickets) {
			ticket := ticket
			if ticket.Subject == subject && ticket.UserId == userID {
				found = &ticket
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *supportRepo) ListTicketsByUserID(ctx context.Context, userID uint) ([]*entity.SupportTicket, error) {
	var out []*entity.SupportTicket
	err := r.u.with(func(t *tables) error {
		for _, ticket := range sortedValues(t.tickets) {
			ticket := ticket
			if ticket.UserId == userID {
				out = append(out, &ticket)
			}
		}
		return nil
	})
	return out, err
}

func (r *supportRepo) CreateActivityLog(ctx context.Context, log *entity.ActivityLog) error {
	return r.u.with(func(t *tables) error {
		log.Id = r.u.store.nextID("activity_logs", log.Id)
		log.CreatedAt = r.u.store.now()
		t.activityLogs = append(t.activityLogs, *log)
		return nil
	})
}

type userRepo struct{ u *UnitOfWork }

func (r *userRepo) Create(ctx context.Context, user *entity.User) error {
	return r.u.with(func(t *tables) error {
		for _, existing := range t.users {
			if strings.EqualFold(existing.Email, user.Email) {
				return duplicate("users", "email")
			}
		}
		user.Id = r.u.store.nextID("users", user.Id)
		t.users[user.Id] = *user
		return nil
	})
}

func (r *userRepo) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	var found *entity.User
	err := r.u.with(func(t *tables) error {
		if user, ok := t.users[id]; ok {
			found = &user
		}
		return nil
	})
	return found, err
}

type planRepo struct{ u *UnitOfWork }

func (r *planRepo) Create(ctx context.Context, plan *entity.Plan) error {
	return r.u.with(func(t *tables) error {
		plan.Id = r.u.store.nextID("plans", plan.Id)
		t.plans[plan.Id] = *plan
		return nil
	})
}

func (r *planRepo) FindByID(ctx context.Context, id uint) (*entity.Plan, error) {
	var found *entity.Plan
	err := r.u.with(func(t *tables) error {
		if plan, ok := t.plans[id]; ok {
			found = &plan
		}
		return nil
	})
	return found, err
}

func (r *planRepo) FindActive(ctx context.Context) ([]*entity.Plan, error) {
	var out []*entity.Plan
	err := r.u.with(func(t *tables) error {
		for _, plan := range sortedValues(t.plans) {
			plan := plan
			if plan.IsActive {
				out = append(out, &plan)
			}
		}
		return nil
	})
	return out, err
}

type botRepo struct{ u *UnitOfWork }

func (r *botRepo) Create(ctx context.Context, bot *entity.Bot) error {
	return r.u.with(func(t *tables) error {
		bot.Id = r.u.store.nextID("bots", bot.Id)
		t.bots[bot.Id] = *bot
		return nil
	})
}

func (r *botRepo) FindByID(ctx context.Context, id uint) (*entity.Bot, error) {
	var found *entity.Bot
	err := r.u.with(func(t *tables) error {
		if bot, ok := t.bots[id]; ok {
			found = &bot
		}
		return nil
	})
	return found, err
}

func (r *botRepo) ListByUserID(ctx context.Context, userID uint) ([]*entity.Bot, error) {
	var out []*entity.Bot
	err := r.u.with(func(t *tables) error {
		for _, bot := range sortedValues(t.bots) {
			bot := bot
			if bot.UserId == userID {
				out = append(out, &bot)
			}
		}
		return nil
	})
	return out, err
}

type settingsRepo struct{ u *UnitOfWork }

func (r *settingsRepo) FindAll(ctx context.Context) ([]*entity.Setting, error) {
	var out []*entity.Setting
	err := r.u.with(func(t *tables) error {
		for _, s := range t.settings {
			s := s
			out = append(out, &s)
		}
		return nil
	})
	return out, err
}

func (r *settingsRepo) Upsert(ctx context.Context, setting *entity.Setting) error {
	return r.u.with(func(t *tables) error {
		setting.UpdatedAt = r.u.store.now()
		t.settings[setting.Key] = *setting
		return nil
	})
}

type webhookEventRepo struct{ u *UnitOfWork }

func (r *webhookEventRepo) Create(ctx context.Context, event *entity.PaymentWebhookEvent) error {
	return r.u.with(func(t *tables) error {
		for _, existing := range t.webhookEvents {
			if existing.Provider == event.Provider && strEq(existing.ProviderEventId, event.ProviderEventId) {
				return duplicate("payment_webhook_events", "provider_event_id")
			}
		}
		event.Id = r.u.store.nextID("payment_webhook_events", event.Id)
		event.CreatedAt = r.u.store.now()
		t.webhookEvents[event.Id] = *event
		return nil
	})
}

func (r *webhookEventRepo) Update(ctx context.Context, event *entity.PaymentWebhookEvent) error {
	return r.u.with(func(t *tables) error {
		if _, ok := t.webhookEvents[event.Id]; !ok {
			return notFound("payment_webhook_events", event.Id)
		}
		t.webhookEvents[event.Id] = *event
		return nil
	})
}

func (r *webhookEventRepo) FindByProviderEventID(ctx context.Context, provider entity.PaymentProvider, eventID string) (*entity.PaymentWebhookEvent, error) {
	var found *entity.PaymentWebhookEvent
	err := r.u.with(func(t *tables) error {
		for _, event := range sortedValues(t.webhookEvents) {
			event := event
			if event.Provider == provider && event.ProviderEventId != nil && *event.ProviderEventId == eventID {
				found = &event
				return nil
			}
		}
		return nil
	})
	return found, err
}
