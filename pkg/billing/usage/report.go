package usage

type ResyncStatus string

const (
	ResyncNoBots                ResyncStatus = "no_bots"
	ResyncCompleted             ResyncStatus = "completed"
	ResyncCompletedWithFailures ResyncStatus = "completed_with_failures"
)

type BotFailure struct {
	BotID uint   `json:"bot_id"`
	Error string `json:"error"`
}

// ResyncReport is the per-bot outcome of a resync. A bot listed in FailedBots
// was rolled back to its savepoint; every other bot's change stands.
type ResyncReport struct {
	Status        ResyncStatus `json:"status"`
	UserID        uint         `json:"user_id"`
	CreditID      uint         `json:"credit_id"`
	TransactionID uint         `json:"transaction_id,omitempty"`
	TokenLimit    float64      `json:"token_limit"`
	Created       []uint       `json:"created"`
	Reset         []uint       `json:"reset"`
	Updated       []uint       `json:"updated"`
	Skipped       []uint       `json:"skipped"`
	FailedBots    []BotFailure `json:"failed_bots"`
}

func (r *ResyncReport) finish(botCount int) {
	switch {
	case botCount == 0:
		r.Status = ResyncNoBots
	case len(r.FailedBots) > 0:
		r.Status = ResyncCompletedWithFailures
	default:
		r.Status = ResyncCompleted
	}
}

func (r *ResyncReport) HasFailures() bool {
	return len(r.FailedBots) > 0
}

// Map flattens the report for logs and event payloads.
func (r *ResyncReport) Map() map[string]interface{} {
	return map[string]interface{}{
		"status":         r.Status,
		"user_id":        r.UserID,
		"credit_id":      r.CreditID,
		"transaction_id": r.TransactionID,
		"token_limit":    r.TokenLimit,
		"created":        r.Created,
		"reset":          r.Reset,
		"updated":        r.Updated,
		"skipped":        r.Skipped,
		"failed_bots":    r.FailedBots,
	}
}
