package payouts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/zealits/bulkpayout-sub001/internal/mailer"
)

// Notifier emails the operator when a batch reaches a terminal state.
type Notifier struct {
	db     *gorm.DB
	mail   mailer.Service
	from   string
	to     []string
	logger *slog.Logger
}

func NewNotifier(db *gorm.DB, mail mailer.Service, from string, to []string) *Notifier {
	return &Notifier{db: db, mail: mail, from: from, to: to, logger: slog.Default()}
}

func (n *Notifier) SetLogger(l *slog.Logger) { n.logger = l }

func (n *Notifier) BatchFinished(ctx context.Context, batchID string) error {
	if n.mail == nil || len(n.to) == 0 {
		return nil
	}

	var b Batch
	if err := n.db.WithContext(ctx).First(&b, "id = ?", batchID).Error; err != nil {
		return err
	}

	switch b.Status {
	case BatchCompleted, BatchFailed, BatchPartial:
	default:
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Batch %q (%s) finished with status %s.\n\n", b.Name, b.ID, b.Status)
	fmt.Fprintf(&body, "Method:     %s\n", b.PaymentMethod)
	fmt.Fprintf(&body, "Succeeded:  %d\n", b.SuccessCount)
	fmt.Fprintf(&body, "Failed:     %d\n", b.FailureCount)
	fmt.Fprintf(&body, "Pending:    %d\n", b.PendingCount)
	fmt.Fprintf(&body, "Paid out:   %.2f\n", float64(b.TotalAmountCents)/100)
	if b.ErrorMessage != nil && *b.ErrorMessage != "" {
		fmt.Fprintf(&body, "\nError: %s\n", *b.ErrorMessage)
	}

	return n.mail.Send(ctx, mailer.Email{
		FromName: "Bulk Payout",
		From:     n.from,
		To:       n.to,
		Subject:  fmt.Sprintf("Payout batch %s: %s", b.Name, b.Status),
		TextBody: body.String(),
	})
}
