package extract

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/karanved/smsledger/internal/model"
)

// Result is the outcome of running one message through the full rule set.
// When no rule matches, Matched is false, Rule is nil and Merchant is the
// unknown sentinel.
type Result struct {
	Rule     *model.ParserRule
	Merchant string
	Type     model.TransactionType
	Amount   decimal.Decimal
	Matched  bool
}

// Engine iterates rules by transaction-type group and priority, returning the
// first successful match.
type Engine struct {
	matcher *Matcher
}

// NewEngine creates an extraction engine reporting bookkeeping to books.
func NewEngine(books RuleBookkeeper) *Engine {
	return &Engine{matcher: NewMatcher(books)}
}

// groupOrder fixes the tie-break between groups: expense rules are evaluated
// before income rules when both could match.
var groupOrder = []model.TransactionType{model.TypeExpense, model.TypeIncome}

// Extract runs the message against the rule set. Within each group, enabled
// rules are tried in descending priority order (ties keep input order) after
// a group-wide skip check; the first match wins.
func (e *Engine) Extract(ctx context.Context, msg model.RawMessage, rules []model.ParserRule) Result {
	for _, typ := range groupOrder {
		group := groupByType(rules, typ)
		if len(group) == 0 {
			continue
		}

		if GroupSkip(msg.Body, group) {
			continue
		}

		for i := range group {
			res := e.matcher.Match(ctx, msg, group[i])
			if res.Status != StatusMatched {
				continue
			}
			return Result{
				Matched:  true,
				Amount:   res.Amount,
				Merchant: res.Merchant,
				Rule:     &group[i],
				Type:     typ,
			}
		}
	}

	return Result{Merchant: model.UnknownMerchant}
}

// groupByType selects enabled rules of the given type, ordered by descending
// priority with ties broken by input order.
func groupByType(rules []model.ParserRule, typ model.TransactionType) []model.ParserRule {
	var group []model.ParserRule
	for _, r := range rules {
		if r.Enabled && r.Type == typ {
			group = append(group, r)
		}
	}
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].Priority > group[j].Priority
	})
	return group
}
