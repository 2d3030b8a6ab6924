package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/karanved/smsledger/internal/common"
	"github.com/karanved/smsledger/internal/model"
)

const ruleColumns = `id, name, enabled, bank, priority, type,
	sender_patterns, amount_patterns, merchant_extractions,
	merchant_conditions, merchant_cleanup, skip_patterns,
	success_count, last_error, created_at, updated_at`

// CreateRule persists a new parser rule.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.ParserRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	cols, err := encodeRulePatterns(rule)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO parser_rules (
			id, name, enabled, bank, priority, type,
			sender_patterns, amount_patterns, merchant_extractions,
			merchant_conditions, merchant_cleanup, skip_patterns,
			success_count, last_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rule.ID, rule.Name, rule.Enabled, rule.Bank, rule.Priority, string(rule.Type),
		cols.senders, cols.amounts, cols.extractions,
		cols.conditions, cols.cleanup, cols.skips,
		rule.SuccessCount, rule.LastError,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()

	return nil
}

// GetRule retrieves a parser rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id string) (*model.ParserRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM parser_rules WHERE id = ?", ruleColumns), id)

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// ListRules returns all parser rules ordered by priority (highest first),
// ties broken by creation order. This is the snapshot consumed per scan.
func (s *SQLiteStorage) ListRules(ctx context.Context) ([]model.ParserRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM parser_rules ORDER BY priority DESC, created_at ASC, id ASC", ruleColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.ParserRule
	for rows.Next() {
		rule, scanErr := scanRule(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", scanErr)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}

	return rules, nil
}

// UpdateRule replaces all user-editable fields of the rule.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.ParserRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	cols, err := encodeRulePatterns(rule)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE parser_rules SET
			name = ?, enabled = ?, bank = ?, priority = ?, type = ?,
			sender_patterns = ?, amount_patterns = ?, merchant_extractions = ?,
			merchant_conditions = ?, merchant_cleanup = ?, skip_patterns = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		rule.Name, rule.Enabled, rule.Bank, rule.Priority, string(rule.Type),
		cols.senders, cols.amounts, cols.extractions,
		cols.conditions, cols.cleanup, cols.skips,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	return requireRowAffected(result, rule.ID)
}

// RecordRuleSuccess increments the rule's success count and clears its last
// error.
func (s *SQLiteStorage) RecordRuleSuccess(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE parser_rules SET
			success_count = success_count + 1,
			last_error = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to record rule success: %w", err)
	}

	return requireRowAffected(result, id)
}

// RecordRuleError stores the most recent matching error for the rule.
func (s *SQLiteStorage) RecordRuleError(ctx context.Context, id, msg string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE parser_rules SET
			last_error = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, msg, id)
	if err != nil {
		return fmt.Errorf("failed to record rule error: %w", err)
	}

	return requireRowAffected(result, id)
}

// SetRuleEnabled toggles a rule without touching its patterns.
func (s *SQLiteStorage) SetRuleEnabled(ctx context.Context, id string, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE parser_rules SET enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, enabled, id)
	if err != nil {
		return fmt.Errorf("failed to toggle rule: %w", err)
	}

	return requireRowAffected(result, id)
}

// DeleteRule removes a rule permanently.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM parser_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	return requireRowAffected(result, id)
}

// rulePatternColumns holds the JSON-encoded pattern list columns.
type rulePatternColumns struct {
	senders     string
	amounts     string
	extractions string
	conditions  string
	cleanup     string
	skips       string
}

func encodeRulePatterns(rule *model.ParserRule) (rulePatternColumns, error) {
	normalized := rule.Normalized()

	var cols rulePatternColumns
	for _, field := range []struct {
		dst *string
		src any
	}{
		{&cols.senders, normalized.SenderPatterns},
		{&cols.amounts, normalized.AmountPatterns},
		{&cols.extractions, normalized.MerchantExtractions},
		{&cols.conditions, normalized.MerchantConditions},
		{&cols.cleanup, normalized.MerchantCleanup},
		{&cols.skips, normalized.SkipPatterns},
	} {
		data, err := json.Marshal(field.src)
		if err != nil {
			return rulePatternColumns{}, fmt.Errorf("failed to encode rule patterns: %w", err)
		}
		*field.dst = string(data)
	}

	return cols, nil
}

func scanRule(row scanner) (*model.ParserRule, error) {
	var rule model.ParserRule
	var ruleType string
	var bank, lastError sql.NullString
	var senders, amounts string
	var extractions, conditions, cleanup, skips sql.NullString

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Enabled, &bank, &rule.Priority, &ruleType,
		&senders, &amounts, &extractions,
		&conditions, &cleanup, &skips,
		&rule.SuccessCount, &lastError, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Type = model.TransactionType(ruleType)
	rule.Bank = bank.String
	rule.LastError = lastError.String

	for _, field := range []struct {
		dst  any
		data string
	}{
		{&rule.SenderPatterns, senders},
		{&rule.AmountPatterns, amounts},
		{&rule.MerchantExtractions, extractions.String},
		{&rule.MerchantConditions, conditions.String},
		{&rule.MerchantCleanup, cleanup.String},
		{&rule.SkipPatterns, skips.String},
	} {
		if field.data == "" || field.data == "null" {
			continue
		}
		if err := json.Unmarshal([]byte(field.data), field.dst); err != nil {
			return nil, fmt.Errorf("corrupt pattern data for rule %s: %w", rule.ID, err)
		}
	}

	return &rule, nil
}

func requireRowAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
	}
	return nil
}
