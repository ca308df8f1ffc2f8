// Package ingest wires the parsers, the categorization engine and storage
// into the two ways transactions arrive: bank SMS and statement PDFs.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/notify"
	"github.com/Veraticus/spendwise/internal/pattern"
	"github.com/Veraticus/spendwise/internal/sms"
)

// Message is one SMS as delivered by the phone.
type Message struct {
	DeliveredAt time.Time `json:"delivered_at"`
	Sender      string    `json:"sender"`
	Body        string    `json:"body"`
}

// Outcome says what happened to a message.
type Outcome string

// Message outcomes.
const (
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeNotBank        Outcome = "not_bank"
	OutcomeNotTransaction Outcome = "not_transaction"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeStored         Outcome = "stored"
	OutcomeFailed         Outcome = "failed"
)

// Result is the outcome of one message. Transaction is set only when the
// message was stored.
type Result struct {
	Err          error              `json:"-"`
	Transaction  *model.Transaction `json:"transaction,omitempty"`
	Outcome      Outcome            `json:"outcome"`
	CategoryName string             `json:"category,omitempty"`
}

// SMSStore is the persistence the SMS pipeline needs.
type SMSStore interface {
	pattern.RuleSource
	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	GetCategory(ctx context.Context, id int) (*model.Category, error)
}

// SMSPipelineOptions configures an SMSPipeline. Zero values select defaults.
type SMSPipelineOptions struct {
	Parser      *sms.Parser
	Dedup       *sms.DedupCache
	Notifier    notify.Notifier
	Logger      *slog.Logger
	Now         func() time.Time
	SkipCredits bool
}

// SMSPipeline turns bank SMS into stored, categorized transactions.
type SMSPipeline struct {
	store       SMSStore
	parser      *sms.Parser
	dedup       *sms.DedupCache
	notifier    notify.Notifier
	logger      *slog.Logger
	now         func() time.Time
	skipCredits bool
}

// NewSMSPipeline creates a pipeline. Without a dedup cache every message is
// treated as new; without a notifier nothing is announced.
func NewSMSPipeline(store SMSStore, opts SMSPipelineOptions) *SMSPipeline {
	p := &SMSPipeline{
		store:       store,
		parser:      opts.Parser,
		dedup:       opts.Dedup,
		notifier:    opts.Notifier,
		logger:      common.LoggerOrDefault(opts.Logger),
		now:         opts.Now,
		skipCredits: opts.SkipCredits,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.parser == nil {
		p.parser = sms.NewParser(sms.WithLogger(p.logger), sms.WithClock(p.now))
	}
	return p
}

// Handle runs one message through dedup, sender and parse checks, then
// stores and announces it. Notification failures are logged, not returned.
func (p *SMSPipeline) Handle(ctx context.Context, msg Message) (Result, error) {
	now := p.now()
	deliveredAt := msg.DeliveredAt
	if deliveredAt.IsZero() {
		deliveredAt = now
	}

	if p.dedup != nil && p.dedup.Seen(sms.Key(msg.Sender, deliveredAt, msg.Body), now) {
		p.logger.Debug("Dropping duplicate delivery", "sender", msg.Sender)
		return Result{Outcome: OutcomeDuplicate}, nil
	}

	if !sms.IsBankSender(msg.Sender) {
		return Result{Outcome: OutcomeNotBank}, nil
	}

	parsed, ok := p.parser.Parse(msg.Body, msg.Sender)
	if !ok {
		p.logger.Debug("Message is not a transaction", "sender", msg.Sender)
		return Result{Outcome: OutcomeNotTransaction}, nil
	}

	if p.skipCredits && parsed.Type == model.TransactionCredit {
		p.logger.Debug("Skipping credit", "sender", msg.Sender, "amount", parsed.Amount.String())
		return Result{Outcome: OutcomeSkipped}, nil
	}

	engine, err := pattern.LoadEngine(ctx, p.store)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}, err
	}
	categoryID := engine.Categorize(parsed.Merchant)

	txn := model.Transaction{
		Amount:        parsed.Amount,
		Merchant:      parsed.Merchant,
		CategoryID:    model.IntPtr(categoryID),
		Timestamp:     parsed.Timestamp,
		RawSourceText: msg.Body,
		BankName:      parsed.BankName,
		AccountLast4:  model.StringPtr(parsed.AccountLast4),
		Type:          parsed.Type,
	}
	if err := p.store.InsertTransaction(ctx, &txn); err != nil {
		err = fmt.Errorf("failed to store sms transaction: %w", err)
		return Result{Outcome: OutcomeFailed, Err: err}, err
	}

	categoryName := p.categoryName(ctx, categoryID)
	p.logger.Info("Stored sms transaction",
		"id", txn.ID,
		"merchant", txn.Merchant,
		"amount", txn.Amount.String(),
		"category", categoryName)

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, notify.New(txn, categoryName)); err != nil {
			p.logger.Warn("Failed to send notification", "id", txn.ID, "error", err)
		}
	}

	return Result{Outcome: OutcomeStored, Transaction: &txn, CategoryName: categoryName}, nil
}

// HandleBatch handles messages in order. A failing message is recorded in
// its result and does not stop the batch.
func (p *SMSPipeline) HandleBatch(ctx context.Context, msgs []Message) []Result {
	results := make([]Result, 0, len(msgs))
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Outcome: OutcomeFailed, Err: err})
			continue
		}
		result, err := p.Handle(ctx, msg)
		if err != nil {
			p.logger.Warn("Failed to ingest message", "sender", msg.Sender, "error", err)
		}
		results = append(results, result)
	}
	return results
}

func (p *SMSPipeline) categoryName(ctx context.Context, id int) string {
	category, err := p.store.GetCategory(ctx, id)
	if err != nil {
		p.logger.Warn("Failed to resolve category name", "category_id", id, "error", err)
		return ""
	}
	return category.Name
}
