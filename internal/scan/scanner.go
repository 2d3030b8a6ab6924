// Package scan orchestrates one end-to-end run of loading SMS messages for a
// date range, extracting transactions via the rule engine, filtering
// duplicates, and persisting the accepted results.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/karanved/smsledger/internal/common"
	"github.com/karanved/smsledger/internal/extract"
	"github.com/karanved/smsledger/internal/model"
	"github.com/karanved/smsledger/internal/service"
)

// State identifies the orchestrator's position in the scan lifecycle.
type State string

// Scan states.
const (
	StateIdle            State = "idle"
	StateLoadingRules    State = "loading-rules"
	StateLoadingMessages State = "loading-messages"
	StateExtracting      State = "extracting"
	StatePersisting      State = "persisting"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Progress is emitted after each processed message.
type Progress struct {
	Total     int
	Done      int
	Processed int
	Skipped   int
}

// ProgressFunc receives progress events during extraction.
type ProgressFunc func(Progress)

// Summary reports the result of a completed scan.
type Summary struct {
	Accepted     []model.Transaction
	TotalScanned int
	Processed    int
	Skipped      int
	Failed       int
}

// Config holds scanner options.
type Config struct {
	Currency string
	DryRun   bool
}

// DefaultConfig returns the default scanner configuration.
func DefaultConfig() Config {
	return Config{Currency: "INR"}
}

// Scanner runs scans. Only one scan may run at a time; concurrent calls are
// rejected with common.ErrScanInProgress.
type Scanner struct {
	rules      service.RuleStore
	txns       service.TransactionStore
	source     service.MessageSource
	engine     *extract.Engine
	onProgress ProgressFunc
	currency   string
	dryRun     bool
	state      atomic.Value
	running    atomic.Bool
}

// New creates a scanner with default configuration.
func New(rules service.RuleStore, txns service.TransactionStore, source service.MessageSource) *Scanner {
	return NewWithConfig(rules, txns, source, DefaultConfig())
}

// NewWithConfig creates a scanner with custom configuration.
func NewWithConfig(rules service.RuleStore, txns service.TransactionStore, source service.MessageSource, cfg Config) *Scanner {
	s := &Scanner{
		rules:    rules,
		txns:     txns,
		source:   source,
		engine:   extract.NewEngine(NewBookkeeper(rules)),
		currency: cfg.Currency,
		dryRun:   cfg.DryRun,
	}
	s.state.Store(StateIdle)
	return s
}

// OnProgress registers a callback invoked after each message during
// extraction. Must be set before Scan is called.
func (s *Scanner) OnProgress(fn ProgressFunc) {
	s.onProgress = fn
}

// State returns the orchestrator's current lifecycle state.
func (s *Scanner) State() State {
	return s.state.Load().(State)
}

// Scan runs one scan over the given window. It fails terminally only when no
// enabled rules exist, when the window contains no messages, or when a store
// error occurs before extraction begins; every other error is absorbed into
// per-message skip accounting. Already-persisted transactions are never
// rolled back.
func (s *Scanner) Scan(ctx context.Context, from, to time.Time) (*Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, common.ErrScanInProgress
	}
	defer s.running.Store(false)

	slog.Info("Starting SMS scan", "from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"))

	s.state.Store(StateLoadingRules)
	rules, err := s.rules.ListRules(ctx)
	if err != nil {
		s.state.Store(StateFailed)
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	if countEnabled(rules) == 0 {
		s.state.Store(StateFailed)
		return nil, common.ErrNoEnabledRules
	}

	s.state.Store(StateLoadingMessages)
	msgs, err := s.source.Load(ctx, from, to)
	if err != nil {
		s.state.Store(StateFailed)
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	if len(msgs) == 0 {
		s.state.Store(StateFailed)
		return nil, common.ErrNoMessages
	}

	slog.Info("Loaded scan inputs", "rules", len(rules), "messages", len(msgs))

	s.state.Store(StateExtracting)
	summary := &Summary{TotalScanned: len(msgs)}
	seen := make(map[string]struct{})

	for _, msg := range msgs {
		select {
		case <-ctx.Done():
			s.state.Store(StateFailed)
			return nil, ctx.Err()
		default:
		}

		txn, ok := s.extractOne(ctx, msg, rules)
		switch {
		case !ok:
			summary.Skipped++
		case s.isDuplicate(ctx, seen, txn.ID):
			slog.Debug("Skipping duplicate transaction", "id", txn.ID, "merchant", txn.MerchantName)
			summary.Skipped++
		default:
			seen[txn.ID] = struct{}{}
			summary.Accepted = append(summary.Accepted, txn)
			summary.Processed++
		}

		if s.onProgress != nil {
			s.onProgress(Progress{
				Total:     summary.TotalScanned,
				Done:      summary.Processed + summary.Skipped,
				Processed: summary.Processed,
				Skipped:   summary.Skipped,
			})
		}
	}

	s.state.Store(StatePersisting)
	if !s.dryRun {
		for _, txn := range summary.Accepted {
			if err := s.txns.InsertTransaction(ctx, txn); err != nil {
				slog.Error("Failed to persist transaction",
					"id", txn.ID,
					"merchant", txn.MerchantName,
					"error", err)
				summary.Failed++
			}
		}
	}

	s.state.Store(StateDone)
	slog.Info("Scan complete",
		"total", summary.TotalScanned,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	return summary, nil
}

// extractOne runs one message through the engine. A panic while processing a
// single message is caught and counted as skipped so it cannot abort the
// batch.
func (s *Scanner) extractOne(ctx context.Context, msg model.RawMessage, rules []model.ParserRule) (txn model.Transaction, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Message processing failed", "sender", msg.Sender, "panic", r)
			ok = false
		}
	}()

	res := s.engine.Extract(ctx, msg, rules)
	if !res.Matched {
		return model.Transaction{}, false
	}

	candidate := model.ExtractedTransaction{
		Timestamp:    msg.Timestamp,
		Rule:         res.Rule,
		MerchantName: res.Merchant,
		Sender:       msg.Sender,
		Body:         msg.Body,
		Type:         res.Type,
		Amount:       res.Amount,
	}

	return candidate.Transaction(s.currency), true
}

// isDuplicate checks the in-batch set first, then the transaction store. A
// store error is logged and treated as not-duplicate: losing a real
// transaction silently is worse than a failed insert, which the persistence
// phase reports.
func (s *Scanner) isDuplicate(ctx context.Context, seen map[string]struct{}, id string) bool {
	if _, inBatch := seen[id]; inBatch {
		return true
	}
	exists, err := s.txns.ExistsTransaction(ctx, id)
	if err != nil {
		slog.Warn("Duplicate check failed", "id", id, "error", err)
		return false
	}
	return exists
}

func countEnabled(rules []model.ParserRule) int {
	n := 0
	for i := range rules {
		if rules[i].Enabled {
			n++
		}
	}
	return n
}
