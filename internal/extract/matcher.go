package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/karanved/smsledger/internal/model"
)

// MatchStatus describes the outcome of evaluating one rule against one
// message.
type MatchStatus int

// Match outcomes.
const (
	// StatusNoMatch means the rule's criteria did not apply to the message.
	StatusNoMatch MatchStatus = iota
	// StatusMatched means the rule extracted an amount (and possibly a merchant).
	StatusMatched
	// StatusSkipped means a skip condition excluded the rule for this message.
	StatusSkipped
	// StatusFailed means rule evaluation hit an error; the rule is treated as
	// non-matching and the error is recorded on the rule.
	StatusFailed
)

// MatchResult is the outcome of one (message, rule) evaluation. Recoverable
// failures are carried as data so callers derive their counts from explicit
// results rather than control flow.
type MatchResult struct {
	Err      error
	Merchant string
	Amount   decimal.Decimal
	Status   MatchStatus
}

// RuleBookkeeper receives best-effort bookkeeping updates as a side effect of
// matching. Implementations must never propagate persistence failures back
// into the matching path.
type RuleBookkeeper interface {
	// RecordSuccess increments the rule's success count and clears its last error.
	RecordSuccess(ctx context.Context, rule *model.ParserRule)
	// RecordError stores the most recent matching error on the rule.
	RecordError(ctx context.Context, rule *model.ParserRule, err error)
}

// NopBookkeeper discards all bookkeeping updates.
type NopBookkeeper struct{}

// RecordSuccess implements RuleBookkeeper.
func (NopBookkeeper) RecordSuccess(context.Context, *model.ParserRule) {}

// RecordError implements RuleBookkeeper.
func (NopBookkeeper) RecordError(context.Context, *model.ParserRule, error) {}

// Matcher evaluates single (message, rule) pairs.
type Matcher struct {
	books RuleBookkeeper
}

// NewMatcher creates a matcher that reports rule bookkeeping to books.
func NewMatcher(books RuleBookkeeper) *Matcher {
	if books == nil {
		books = NopBookkeeper{}
	}
	return &Matcher{books: books}
}

// Match evaluates a message against a single rule. Evaluation short-circuits
// in the order: sender match, rule-level skip condition, amount extraction,
// merchant extraction, merchant cleanup. Amounts are normalized to their
// absolute value; the transaction type comes from the rule group, never from
// the sign in the text.
func (m *Matcher) Match(ctx context.Context, msg model.RawMessage, rule model.ParserRule) MatchResult {
	rule = rule.Normalized()

	if !matchSender(msg.Sender, rule.SenderPatterns) {
		return MatchResult{Status: StatusNoMatch}
	}

	if matchesAnySkip(msg.Body, rule.SkipPatterns) {
		return MatchResult{Status: StatusSkipped}
	}

	amount, ok, err := extractAmount(msg.Body, rule.AmountPatterns)
	if err != nil && !ok {
		m.books.RecordError(ctx, &rule, err)
		return MatchResult{Status: StatusFailed, Err: err}
	}
	if !ok {
		return MatchResult{Status: StatusNoMatch}
	}

	merchant := ExtractMerchant(msg.Body, rule.MerchantExtractions)
	if merchant == model.UnknownMerchant {
		merchant = merchantFromConditions(msg.Body, rule.MerchantConditions)
	}
	merchant = cleanupMerchant(merchant, rule.MerchantCleanup)

	m.books.RecordSuccess(ctx, &rule)

	return MatchResult{
		Status:   StatusMatched,
		Amount:   amount,
		Merchant: merchant,
	}
}

// GroupSkip reports whether any rule in the group declares a skip pattern
// matching the message body. A hit excludes the whole message from the group.
func GroupSkip(body string, rules []model.ParserRule) bool {
	for i := range rules {
		if matchesAnySkip(body, rules[i].SkipPatterns) {
			return true
		}
	}
	return false
}

// matchSender tries the patterns as case-insensitive literal substrings
// first, then as case-insensitive regular expressions. Invalid regex patterns
// are logged and treated as non-matching.
func matchSender(sender string, patterns []string) bool {
	lowered := strings.ToLower(sender)
	for _, p := range patterns {
		if strings.Contains(lowered, strings.ToLower(p)) {
			return true
		}
	}

	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			slog.Warn("Invalid sender pattern", "pattern", p, "error", err)
			continue
		}
		if re.MatchString(sender) {
			return true
		}
	}

	return false
}

func matchesAnySkip(body string, patterns []string) bool {
	for _, raw := range patterns {
		if raw == "" {
			continue
		}
		matched, err := model.ParsePattern(raw).Match(body)
		if err != nil {
			slog.Warn("Invalid skip pattern", "pattern", raw, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// extractAmount tries each amount regex in order. The first capturing-group
// match that parses to a finite decimal wins; the sign in the text is
// ignored. It returns the first compile error encountered when no pattern
// succeeds, so the caller can record it on the rule.
func extractAmount(body string, patterns []string) (decimal.Decimal, bool, error) {
	var firstErr error

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			slog.Warn("Invalid amount pattern", "pattern", p, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		for _, match := range re.FindAllStringSubmatch(body, -1) {
			if len(match) < 2 {
				continue
			}
			amount, perr := parseAmount(match[1])
			if perr != nil {
				continue
			}
			return amount.Abs(), true, nil
		}
	}

	return decimal.Zero, false, firstErr
}

// parseAmount normalizes a captured amount string: thousands separators are
// removed and stray dots picked up by loose character classes are trimmed
// from the edges.
func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.Trim(raw, ".")
	return decimal.NewFromString(raw)
}

// merchantFromConditions applies fallback capture regexes when direct
// extraction produced no merchant name.
func merchantFromConditions(body string, patterns []string) string {
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			slog.Warn("Invalid merchant condition", "pattern", p, "error", err)
			continue
		}
		match := re.FindStringSubmatch(body)
		if len(match) >= 2 {
			if name := strings.TrimSpace(match[1]); name != "" {
				return name
			}
		}
	}
	return model.UnknownMerchant
}

// cleanupMerchant shrinks an extracted merchant name with the rule's cleanup
// regexes. The first regex whose capturing group matches replaces the name.
func cleanupMerchant(merchant string, patterns []string) string {
	if merchant == model.UnknownMerchant {
		return merchant
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			slog.Warn("Invalid merchant cleanup pattern", "pattern", p, "error", err)
			continue
		}
		match := re.FindStringSubmatch(merchant)
		if len(match) >= 2 && strings.TrimSpace(match[1]) != "" {
			return strings.TrimSpace(match[1])
		}
	}
	return merchant
}
