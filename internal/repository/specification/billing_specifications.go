package specification

import "gorm.io/gorm"

type ByOrderID struct {
	OrderID string
}

func (s ByOrderID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("order_id = ?", s.OrderID)
}

type ByProviderPaymentID struct {
	ProviderPaymentID string
}

func (s ByProviderPaymentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("provider_payment_id = ?", s.ProviderPaymentID)
}

// ByProviderTransactionID matches the (provider, provider_transaction_id) pair.
// An empty provider matches any provider.
type ByProviderTransactionID struct {
	Provider              string
	ProviderTransactionID string
}

func (s ByProviderTransactionID) Apply(db *gorm.DB) *gorm.DB {
	db = db.Where("provider_transaction_id = ?", s.ProviderTransactionID)
	if s.Provider != "" {
		db = db.Where("provider = ?", s.Provider)
	}
	return db
}

type ByTransID struct {
	TransID uint
}

func (s ByTransID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("trans_id = ?", s.TransID)
}

type BySubject struct {
	Subject string
}

func (s BySubject) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("subject = ?", s.Subject)
}

type ByProviderEvent struct {
	Provider string
	EventID  string
}

func (s ByProviderEvent) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("provider = ? AND provider_event_id = ?", s.Provider, s.EventID)
}
