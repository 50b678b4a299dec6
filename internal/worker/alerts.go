package worker

import (
	"context"
	"fmt"
	"strings"
)

// LowStockItem is one product at or below the alert threshold.
type LowStockItem struct {
	PID          uint
	Title        string
	ItemQuantity int
}

// LowStockAlert lists the products a Save action left low on stock.
type LowStockAlert struct {
	Operation string
	Date      string
	// Threshold is the on-hand quantity at or below which Items were picked.
	Threshold int
	Items     []LowStockItem
}

// EnqueueLowStock queues an alert email for the configured recipient. It is a
// no-op when alerts are disabled or there is nothing to report.
func (d *Dispatcher) EnqueueLowStock(ctx context.Context, alert LowStockAlert) error {
	if d == nil || d.alertEmail == "" || len(alert.Items) == 0 {
		return nil
	}
	return d.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: d.alertEmail,
		Subject: fmt.Sprintf("Low stock after %s on %s", alert.Operation, alert.Date),
		Body:    renderLowStock(alert),
	})
}

func renderLowStock(alert LowStockAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following products are at or below %d units after the %s save for %s:\n\n",
		alert.Threshold, alert.Operation, alert.Date)
	for _, it := range alert.Items {
		fmt.Fprintf(&b, "  #%d %s: %d\n", it.PID, it.Title, it.ItemQuantity)
	}
	return b.String()
}
