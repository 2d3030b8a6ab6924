package scan

import (
	"context"
	"log/slog"

	"github.com/karanved/smsledger/internal/model"
	"github.com/karanved/smsledger/internal/service"
)

// Bookkeeper persists rule matching bookkeeping through a RuleStore.
// All persistence failures are logged and never propagated into the
// matching path.
type Bookkeeper struct {
	store service.RuleStore
}

// NewBookkeeper creates a bookkeeper writing through store.
func NewBookkeeper(store service.RuleStore) *Bookkeeper {
	return &Bookkeeper{store: store}
}

// RecordSuccess implements extract.RuleBookkeeper.
func (b *Bookkeeper) RecordSuccess(ctx context.Context, rule *model.ParserRule) {
	rule.SuccessCount++
	rule.LastError = ""
	if err := b.store.RecordRuleSuccess(ctx, rule.ID); err != nil {
		slog.Warn("Failed to persist rule success", "rule", rule.Name, "error", err)
	}
}

// RecordError implements extract.RuleBookkeeper.
func (b *Bookkeeper) RecordError(ctx context.Context, rule *model.ParserRule, matchErr error) {
	rule.LastError = matchErr.Error()
	if err := b.store.RecordRuleError(ctx, rule.ID, matchErr.Error()); err != nil {
		slog.Warn("Failed to persist rule error", "rule", rule.Name, "error", err)
	}
}
