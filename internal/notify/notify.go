// Package notify decides which notification a stored transaction gets and
// delivers it.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/shopspring/decimal"
)

// Variant is the kind of notification to show.
type Variant int

const (
	// Categorized announces a transaction with a resolved category.
	Categorized Variant = iota
	// NeedsCategorization asks the user to pick a category.
	NeedsCategorization
)

func (v Variant) String() string {
	if v == NeedsCategorization {
		return "needs_categorization"
	}
	return "categorized"
}

// SelectVariant picks NeedsCategorization for the Others category and
// Categorized for everything else.
func SelectVariant(categoryID int) Variant {
	if categoryID == model.OthersCategoryID {
		return NeedsCategorization
	}
	return Categorized
}

// Notification describes one stored transaction.
type Notification struct {
	Amount        decimal.Decimal
	Merchant      string
	CategoryName  string
	TransactionID int64
	Variant       Variant
}

// New builds the notification for a stored transaction.
func New(txn model.Transaction, categoryName string) Notification {
	categoryID := txn.CategoryIDOr(model.OthersCategoryID)
	return Notification{
		Variant:       SelectVariant(categoryID),
		TransactionID: txn.ID,
		Merchant:      txn.Merchant,
		Amount:        txn.Amount,
		CategoryName:  categoryName,
	}
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: common.LoggerOrDefault(logger)}
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, "Transaction stored",
		"variant", n.Variant.String(),
		"transaction_id", n.TransactionID,
		"merchant", n.Merchant,
		"amount", n.Amount.StringFixed(2),
		"category", n.CategoryName)
	return nil
}

// ConsoleNotifier prints styled one-line notifications.
type ConsoleNotifier struct {
	w  io.Writer
	mu sync.Mutex
}

// NewConsoleNotifier creates a ConsoleNotifier writing to w.
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

// Notify implements Notifier.
func (c *ConsoleNotifier) Notify(_ context.Context, n Notification) error {
	var line string
	switch n.Variant {
	case NeedsCategorization:
		line = cli.FormatWarning(fmt.Sprintf("%s at %s needs a category (id %d)",
			cli.FormatMoney(n.Amount), n.Merchant, n.TransactionID))
	default:
		line = cli.FormatSuccess(fmt.Sprintf("%s at %s filed under %s",
			cli.FormatMoney(n.Amount), n.Merchant, n.CategoryName))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintln(c.w, line); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}

// Multi fans a notification out to several notifiers. Every notifier is
// tried; their errors are joined.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
