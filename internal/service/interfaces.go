// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/karanved/smsledger/internal/model"
)

// RuleStore defines the contract for parser rule persistence.
type RuleStore interface {
	ListRules(ctx context.Context) ([]model.ParserRule, error)
	GetRule(ctx context.Context, id string) (*model.ParserRule, error)
	CreateRule(ctx context.Context, rule *model.ParserRule) error
	UpdateRule(ctx context.Context, rule *model.ParserRule) error
	// RecordRuleSuccess increments the rule's success count and clears its
	// last error without touching the rest of the rule.
	RecordRuleSuccess(ctx context.Context, id string) error
	// RecordRuleError stores the most recent matching error for the rule.
	RecordRuleError(ctx context.Context, id, msg string) error
	SetRuleEnabled(ctx context.Context, id string, enabled bool) error
	DeleteRule(ctx context.Context, id string) error
}

// TransactionStore defines the contract for transaction persistence.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, txn model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	ExistsTransaction(ctx context.Context, id string) (bool, error)
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	ListTransactionsByRange(ctx context.Context, from, to time.Time) ([]model.Transaction, error)
}

// MessageSource supplies raw SMS messages for a caller-specified time window.
// It is the stand-in for the platform SMS bridge.
type MessageSource interface {
	Load(ctx context.Context, from, to time.Time) ([]model.RawMessage, error)
}
