package cache

import (
	"context"
	"time"
)

// ReceiptCache mirrors delivered scheduled messages so other tooling can
// look up recent receipts without touching the JSON store.
type ReceiptCache interface {
	StoreReceipt(ctx context.Context, messageID, recipient string, sentAt time.Time) error
}
