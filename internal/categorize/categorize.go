// Package categorize assigns scraped projects to lead-quality tiers by
// simple threshold matching on estimated amount and received date.
package categorize

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// Data map keys consumed by the classifier
const (
	FieldEstimatedAmt = "Estimated Amt"
	FieldReceivedDate = "Received Date"
	FieldApprovedDate = "Approved Date"
)

// Rule is one tier's match condition. Rules are evaluated in order and
// the first match wins.
type Rule struct {
	Category      domain.Category
	MinAmount     float64
	ReceivedAfter *time.Time
	ApprovedAfter *time.Time
	Keywords      []string
}

// Classifier assigns a tier to a project's raw field map.
type Classifier struct {
	rules []Rule
}

// tierOrder is the match precedence, best tier first.
var tierOrder = []domain.Category{
	domain.CategoryStrongLeads,
	domain.CategoryWeakLeads,
	domain.CategoryWatchlist,
}

func date(year int) *time.Time {
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

// Default returns the built-in classifier used when stored criteria
// cannot be read.
func Default() *Classifier {
	return &Classifier{rules: []Rule{
		{Category: domain.CategoryStrongLeads, MinAmount: 2_000_000, ReceivedAfter: date(2023)},
		{Category: domain.CategoryWeakLeads, MinAmount: 1_000_000, ReceivedAfter: date(2020)},
		{Category: domain.CategoryWatchlist, MinAmount: 100_000, ReceivedAfter: date(2018)},
	}}
}

// FromCriteria builds a classifier from stored criteria, ordered by
// tier precedence. Criteria for unknown tiers and the ignored tier are
// skipped; a list with no usable rows yields the default classifier.
func FromCriteria(list []*domain.Criteria) *Classifier {
	byCategory := make(map[domain.Category]*domain.Criteria, len(list))
	for _, c := range list {
		byCategory[c.Category] = c
	}

	var rules []Rule
	for _, tier := range tierOrder {
		c, ok := byCategory[tier]
		if !ok {
			continue
		}

		rules = append(rules, Rule{
			Category:      c.Category,
			MinAmount:     c.MinAmount,
			ReceivedAfter: c.ReceivedAfter,
			ApprovedAfter: c.ApprovedAfter,
			Keywords:      c.Keywords,
		})
	}

	if len(rules) == 0 {
		return Default()
	}

	return &Classifier{rules: rules}
}

// Load reads criteria from the repository, falling back to the built-in
// thresholds when the read fails.
func Load(ctx context.Context, repo domain.CriteriaRepository, logger zerolog.Logger) *Classifier {
	list, err := repo.List(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load scoring criteria, using built-in thresholds")
		return Default()
	}

	return FromCriteria(list)
}

// Classify returns the tier and score for a project's field map. Score
// is 1 for any matched tier and 0 for ignored.
func (c *Classifier) Classify(data map[string]string) (domain.Category, int) {
	amount, _ := ParseAmount(data[FieldEstimatedAmt])
	received, hasReceived := ParseDate(data[FieldReceivedDate])
	approved, hasApproved := ParseDate(data[FieldApprovedDate])

	for _, rule := range c.rules {
		if amount < rule.MinAmount {
			continue
		}
		if rule.ReceivedAfter != nil && (!hasReceived || received.Before(*rule.ReceivedAfter)) {
			continue
		}
		if rule.ApprovedAfter != nil && (!hasApproved || approved.Before(*rule.ApprovedAfter)) {
			continue
		}
		if len(rule.Keywords) > 0 && !matchesKeyword(data, rule.Keywords) {
			continue
		}

		return rule.Category, 1
	}

	return domain.CategoryIgnored, 0
}

func matchesKeyword(data map[string]string, keywords []string) bool {
	for _, v := range data {
		lower := strings.ToLower(v)
		for _, kw := range keywords {
			kw = strings.TrimSpace(strings.ToLower(kw))
			if kw != "" && strings.Contains(lower, kw) {
				return true
			}
		}
	}

	return false
}

var amountCleaner = regexp.MustCompile(`[$,\s]`)

// ParseAmount extracts a numeric amount from a raw tracker value like
// "$1,234,567.00". Returns false when the value has no parsable number.
func ParseAmount(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}

	clean := amountCleaner.ReplaceAllString(s, "")

	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}

	return f, true
}

// dateFormats are the layouts seen in tracker exports, tried in order.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"01-02-2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"02/01/2006",
}

// ParseDate parses a raw tracker date value. Returns false when no
// known layout matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
