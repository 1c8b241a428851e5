package testutil

import (
	"context"
	"fmt"

	"chatbot-billing-be/internal/repository/contract"
)

// UnitOfWork works on a private copy of the store while a transaction is open.
// Outside a transaction every write is committed immediately.
type UnitOfWork struct {
	store      *Store
	working    *tables
	savepoints map[string]*tables
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.working != nil {
		return fmt.Errorf("transaction already started")
	}
	u.working = u.store.committed.clone()
	u.savepoints = map[string]*tables{}
	return nil
}

func (u *UnitOfWork) Commit() error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.working == nil {
		return fmt.Errorf("no transaction to commit")
	}
	u.store.committed = u.working
	u.working = nil
	u.savepoints = nil
	return nil
}

func (u *UnitOfWork) Rollback() error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.working == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	u.working = nil
	u.savepoints = nil
	return nil
}

func (u *UnitOfWork) InTransaction() bool {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	return u.working != nil
}

func (u *UnitOfWork) SavePoint(name string) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.working == nil {
		return fmt.Errorf("savepoint %s requires an active transaction", name)
	}
	u.savepoints[name] = u.working.clone()
	return nil
}

func (u *UnitOfWork) RollbackTo(name string) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.working == nil {
		return fmt.Errorf("rollback to %s requires an active transaction", name)
	}
	snapshot, ok := u.savepoints[name]
	if !ok {
		return fmt.Errorf("savepoint %s does not exist", name)
	}
	u.working = snapshot.clone()
	return nil
}

// with runs fn against the tables visible to this unit of work under the store lock.
func (u *UnitOfWork) with(fn func(t *tables) error) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.working != nil {
		return fn(u.working)
	}
	return fn(u.store.committed)
}

func (u *UnitOfWork) TransactionRepository() contract.TransactionRepository {
	return &transactionRepo{u: u}
}

func (u *UnitOfWork) CreditRepository() contract.CreditRepository {
	return &creditRepo{u: u}
}

func (u *UnitOfWork) TokenUsageRepository() contract.TokenUsageRepository {
	return &tokenUsageRepo{u: u}
}

func (u *UnitOfWork) SupportRepository() contract.SupportRepository {
	return &supportRepo{u: u}
}

func (u *UnitOfWork) UserRepository() contract.UserRepository {
	return &userRepo{u: u}
}

func (u *UnitOfWork) PlanRepository() contract.PlanRepository {
	return &planRepo{u: u}
}

func (u *UnitOfWork) BotRepository() contract.BotRepository {
	return &botRepo{u: u}
}

func (u *UnitOfWork) SettingsRepository() contract.SettingsRepository {
	return &settingsRepo{u: u}
}

func (u *UnitOfWork) WebhookEventRepository() contract.WebhookEventRepository {
	return &webhookEventRepo{u: u}
}
