// Package categorization infers an expense category from free text. Keywords
// are matched exactly first, then through a typo-tolerant Bleve index, then by
// fuzzy ranking; anything left over lands in "others".
package categorization

import (
	"strings"
	"unicode"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
)

// Rule maps a keyword or phrase to a category. Higher priority wins when
// several rules match the same text.
type Rule struct {
	Keyword  string
	Category ledger.Category
	Priority int
}

// Phrases outrank single words so "movie ticket" beats "ticket".
var defaultKeywords = map[ledger.Category][]string{
	ledger.CategoryCanteen: {
		"canteen", "mess", "lunch", "dinner", "breakfast", "snack", "snacks", "chai", "tea",
		"coffee", "samosa", "maggi", "thali", "biryani", "pizza", "burger", "juice", "food",
		"meal", "meals", "cafe", "zomato", "swiggy", "dosa", "vada pav",
	},
	ledger.CategoryTravel: {
		"bus", "auto", "rickshaw", "metro", "train", "cab", "taxi", "uber", "ola", "rapido",
		"petrol", "fuel", "flight", "ticket", "bus pass", "train ticket", "travel", "toll",
	},
	ledger.CategoryBooks: {
		"book", "books", "textbook", "novel", "notes", "guide", "reference book", "lab manual",
		"kindle", "library fine",
	},
	ledger.CategoryMobile: {
		"recharge", "mobile", "phone", "data pack", "sim", "jio", "airtel", "vi", "charger",
		"earphones", "phone cover", "wifi",
	},
	ledger.CategoryAccommodation: {
		"rent", "hostel", "pg", "room", "electricity", "electricity bill", "hostel fee",
		"water bill", "deposit", "accommodation",
	},
	ledger.CategoryEntertainment: {
		"movie", "movies", "movie ticket", "cinema", "netflix", "spotify", "prime", "hotstar",
		"concert", "game", "games", "party", "outing", "bowling", "entertainment",
	},
	ledger.CategoryMedical: {
		"medicine", "medicines", "doctor", "hospital", "pharmacy", "clinic", "tablet",
		"tablets", "checkup", "medical", "dentist", "chemist",
	},
	ledger.CategoryClothing: {
		"shirt", "t-shirt", "tshirt", "jeans", "shoes", "clothes", "kurta", "jacket", "dress",
		"socks", "clothing", "sandals",
	},
	ledger.CategoryStationery: {
		"pen", "pens", "pencil", "notebook", "notebooks", "stationery", "xerox", "printout",
		"photocopy", "register", "files", "highlighter", "calculator", "printing",
	},
}

// DefaultRules returns the built-in keyword table.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, 160)
	for _, category := range ledger.Categories {
		for _, kw := range defaultKeywords[category] {
			priority := 0
			if strings.Contains(kw, " ") {
				priority = 10
			}
			rules = append(rules, Rule{Keyword: kw, Category: category, Priority: priority})
		}
	}
	return rules
}

// normalize lowercases text, turns punctuation into spaces and pads with a
// space on each side so keyword patterns only match whole words.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "spent": true,
	"spend": true, "paid": true, "pay": true, "bought": true, "buy": true, "got": true,
	"today": true, "yesterday": true, "some": true, "this": true, "that": true, "was": true,
	"rupees": true, "rupee": true, "inr": true, "add": true, "expense": true, "on": true,
}

// tokens returns the words of text worth looking up: three letters or more,
// no digits, no filler.
func tokens(text string) []string {
	var out []string
	for _, w := range strings.Fields(normalize(text)) {
		if len(w) < 3 || stopwords[w] || strings.IndexFunc(w, unicode.IsDigit) >= 0 {
			continue
		}
		out = append(out, w)
	}
	return out
}
