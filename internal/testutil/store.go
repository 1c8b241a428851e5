// Package testutil provides an in-memory unit of work with transaction and
// savepoint semantics so billing flows can be tested without Postgres.
package testutil

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/internal/repository/unitofwork"
)

type tables struct {
	transactions  map[uint]entity.Transaction
	credits       map[uint]entity.UserCredits
	creditHistory []entity.HistoryUserCredits
	topups        map[uint]entity.CreditTopup
	usages        map[uint]entity.TokenUsage
	usageHistory  []entity.TokenUsageHistory
	tickets       map[uint]entity.SupportTicket
	activityLogs  []entity.ActivityLog
	users         map[uint]entity.User
	plans         map[uint]entity.Plan
	bots          map[uint]entity.Bot
	settings      map[string]entity.Setting
	webhookEvents map[uint]entity.PaymentWebhookEvent
}

func newTables() *tables {
	return &tables{
		transactions:  map[uint]entity.Transaction{},
		credits:       map[uint]entity.UserCredits{},
		topups:        map[uint]entity.CreditTopup{},
		usages:        map[uint]entity.TokenUsage{},
		tickets:       map[uint]entity.SupportTicket{},
		users:         map[uint]entity.User{},
		plans:         map[uint]entity.Plan{},
		bots:          map[uint]entity.Bot{},
		settings:      map[string]entity.Setting{},
		webhookEvents: map[uint]entity.PaymentWebhookEvent{},
	}
}

func (t *tables) clone() *tables {
	return &tables{
		transactions:  maps.Clone(t.transactions),
		credits:       maps.Clone(t.credits),
		creditHistory: slices.Clone(t.creditHistory),
		topups:        maps.Clone(t.topups),
		usages:        maps.Clone(t.usages),
		usageHistory:  slices.Clone(t.usageHistory),
		tickets:       maps.Clone(t.tickets),
		activityLogs:  slices.Clone(t.activityLogs),
		users:         maps.Clone(t.users),
		plans:         maps.Clone(t.plans),
		bots:          maps.Clone(t.bots),
		settings:      maps.Clone(t.settings),
		webhookEvents: maps.Clone(t.webhookEvents),
	}
}

// Store is the shared committed state behind every unit of work it hands out.
type Store struct {
	mu        sync.Mutex
	committed *tables
	sequences map[string]uint
	usageErrs map[uint]error
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		committed: newTables(),
		sequences: map[string]uint{},
		usageErrs: map[uint]error{},
		now:       time.Now,
	}
}

// nextID mimics a Postgres sequence: ids are never reused, even after rollback.
func (s *Store) nextID(table string, requested uint) uint {
	if requested != 0 {
		if requested > s.sequences[table] {
			s.sequences[table] = requested
		}
		return requested
	}
	s.sequences[table]++
	return s.sequences[table]
}

// FailUsageWritesForBot makes every token usage write for botID return err.
func (s *Store) FailUsageWritesForBot(botID uint, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usageErrs[botID] = err
}

func (s *Store) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &UnitOfWork{store: s}
}

// Factory returns the store as a RepositoryFactory.
func (s *Store) Factory() unitofwork.RepositoryFactory {
	return s
}

// Seeding helpers write straight to committed state.

func (s *Store) AddUser(user entity.User) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Id = s.nextID("users", user.Id)
	user.CreatedAt = s.now()
	s.committed.users[user.Id] = user
	return &user
}

func (s *Store) AddPlan(plan entity.Plan) *entity.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan.Id = s.nextID("plans", plan.Id)
	s.committed.plans[plan.Id] = plan
	return &plan
}

func (s *Store) AddBot(bot entity.Bot) *entity.Bot {
	s.mu.Lock()
	defer s.mu.Unlock()
	bot.Id = s.nextID("bots", bot.Id)
	s.committed.bots[bot.Id] = bot
	return &bot
}

func (s *Store) AddTransaction(tx entity.Transaction) *entity.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Id = s.nextID("transactions", tx.Id)
	s.committed.transactions[tx.Id] = tx
	return &tx
}

func (s *Store) AddCredits(credits entity.UserCredits) *entity.UserCredits {
	s.mu.Lock()
	defer s.mu.Unlock()
	credits.Id = s.nextID("user_credits", credits.Id)
	s.committed.credits[credits.Id] = credits
	return &credits
}

func (s *Store) AddTokenUsage(usage entity.TokenUsage) *entity.TokenUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	usage.Id = s.nextID("token_usages", usage.Id)
	s.committed.usages[usage.Id] = usage
	return &usage
}

func (s *Store) AddTokenUsageHistory(history entity.TokenUsageHistory) *entity.TokenUsageHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	history.Id = s.nextID("token_usage_histories", history.Id)
	s.committed.usageHistory = append(s.committed.usageHistory, history)
	return &history
}

func (s *Store) SetSetting(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.settings[key] = entity.Setting{Key: key, Value: value, UpdatedAt: s.now()}
}

// Inspection helpers read committed state only.

func (s *Store) Transactions() []entity.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.committed.transactions)
}

func (s *Store) Credits() []entity.UserCredits {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.committed.credits)
}

func (s *Store) CreditHistory() []entity.HistoryUserCredits {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.committed.creditHistory)
}

func (s *Store) Topups() []entity.CreditTopup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.committed.topups)
}

func (s *Store) TokenUsages() []entity.TokenUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.committed.usages)
}

func (s *Store) TokenUsageHistory() []entity.TokenUsageHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.committed.usageHistory)
}

func (s *Store) Tickets() []entity.SupportTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.committed.tickets)
}

func (s *Store) ActivityLogs() []entity.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.committed.activityLogs)
}

func (s *Store) WebhookEvents() []entity.PaymentWebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.committed.webhookEvents)
}

func sortedValues[V any](m map[uint]V) []V {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
