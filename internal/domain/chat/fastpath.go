package chat

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
)

// FastPath answers unambiguous messages without calling the oracle.
type FastPath struct {
	zeroRe   *regexp.Regexp
	friendRe *regexp.Regexp
	amountRe *regexp.Regexp
	typeRe   *regexp.Regexp
}

var debtKeywords = []string{"debt", "owe", "owes", "owed", "lend", "lent", "borrow", "borrowed"}

var debtStopwords = map[string]bool{
	"debt": true, "debts": true, "owe": true, "owes": true, "friend": true,
	"name": true, "they": true, "me": true, "i": true, "for": true,
}

// NewFastPath compiles the matcher.
func NewFastPath() *FastPath {
	return &FastPath{
		// "0" on its own, so "budget 5000" is not a reset
		zeroRe:   regexp.MustCompile(`(?:^|[^\d.,])0(?:$|[^\d.,])`),
		friendRe: regexp.MustCompile(`(?i)(?:friend name\s*:\s*(\w+)|(\w+)\s+owe|owe\s+(\w+)|lent?\s+(?:₹?\d+\s+)?(?:to\s+)?(\w+)|(\w+)\s+lent)`),
		amountRe: regexp.MustCompile(`(\d+)`),
		typeRe:   regexp.MustCompile(`(?i)\b(they owe me|i owe|owe me|lent to|gave to|paid for)\b`),
	}
}

// Match returns an intent for the first rule that fires. Rules in order:
// reset today, zero budget, debt.
func (f *FastPath) Match(message string) (Intent, bool) {
	lower := strings.ToLower(message)

	if strings.Contains(lower, "reset today") || strings.Contains(lower, "clear today") ||
		(strings.Contains(lower, "set today") && f.zeroRe.MatchString(lower)) {
		return &ResetToday{draft{ResponseText: "Resetting today's spending to ₹0."}}, true
	}

	if (strings.Contains(lower, "budget") && f.zeroRe.MatchString(lower)) ||
		strings.Contains(lower, "remove budget") || strings.Contains(lower, "no budget") {
		return &SetBudget{draft: draft{ResponseText: "Removing your monthly budget."}, Amount: decimal.Zero}, true
	}

	if containsAny(lower, debtKeywords) {
		if debt, ok := f.matchDebt(message); ok {
			return debt, true
		}
	}

	return nil, false
}

func (f *FastPath) matchDebt(message string) (*AddDebt, bool) {
	amountMatch := f.amountRe.FindStringSubmatch(message)
	if amountMatch == nil {
		return nil, false
	}
	friend, ok := f.friendName(message)
	if !ok {
		return nil, false
	}

	amount, err := decimal.NewFromString(amountMatch[1])
	if err != nil || !amount.IsPositive() {
		return nil, false
	}

	direction := ledger.TheyOweMe
	if m := f.typeRe.FindString(message); m != "" {
		t := strings.ToLower(m)
		if strings.Contains(t, "i owe") || strings.Contains(t, "owe them") {
			direction = ledger.IOweThem
		}
	}

	return &AddDebt{
		draft:       draft{ResponseText: "I'll add that debt record for you."},
		FriendName:  friend,
		Amount:      amount,
		Direction:   direction,
		Description: debtDescription(message, friend),
	}, true
}

// friendName scans left to right, skipping captures that are pronouns or
// numbers ("I owe john" names john, not I).
func (f *FastPath) friendName(message string) (string, bool) {
	offset := 0
	for offset < len(message) {
		loc := f.friendRe.FindStringSubmatchIndex(message[offset:])
		if loc == nil {
			return "", false
		}
		next := offset + loc[1]
		for g := 1; g < len(loc)/2; g++ {
			start, end := loc[2*g], loc[2*g+1]
			if start < 0 {
				continue
			}
			name := message[offset+start : offset+end]
			if !notAName[strings.ToLower(name)] && strings.IndexFunc(name, unicode.IsDigit) < 0 {
				return name, true
			}
			next = offset + end
			break
		}
		offset = next
	}
	return "", false
}

var notAName = map[string]bool{
	"i": true, "me": true, "you": true, "we": true, "they": true, "he": true,
	"she": true, "him": true, "her": true, "them": true, "us": true, "to": true,
}

func debtDescription(message, friend string) string {
	friend = strings.ToLower(friend)
	var words []string
	for _, w := range strings.Split(strings.ToLower(message), " ") {
		w = strings.TrimFunc(w, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSpace(r) })
		if w == "" || strings.ContainsAny(w, "0123456789") || debtStopwords[w] || w == friend {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return "expense"
	}
	return strings.Join(words, " ")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
