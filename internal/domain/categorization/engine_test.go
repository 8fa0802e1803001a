package categorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
)

func TestEngine_Match(t *testing.T) {
	e := NewEngine(DefaultRules())
	require.Positive(t, e.PatternCount())

	tests := []struct {
		text string
		want ledger.Category
	}{
		{"lunch at canteen", ledger.CategoryCanteen},
		{"Auto to college", ledger.CategoryTravel},
		{"Jio recharge", ledger.CategoryMobile},
		{"movie ticket", ledger.CategoryEntertainment},
		{"train ticket home", ledger.CategoryTravel},
		{"xerox 20 pages", ledger.CategoryStationery},
		{"PG rent for July", ledger.CategoryAccommodation},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			m := e.Match(tt.text)
			require.NotNil(t, m)
			assert.Equal(t, tt.want, m.Category)
		})
	}
}

func TestEngine_WholeWordsOnly(t *testing.T) {
	e := NewEngine(DefaultRules())
	assert.Nil(t, e.Match("spend"), "pen inside spend")
	assert.Nil(t, e.Match("steam"), "tea inside steam")

	m := e.Match("chai, samosa!")
	require.NotNil(t, m)
	assert.Equal(t, ledger.CategoryCanteen, m.Category)
}

func TestEngine_PhraseOutranksWord(t *testing.T) {
	e := NewEngine(DefaultRules())
	all := e.MatchAll("movie ticket")
	require.Len(t, all, 3)
	assert.Equal(t, "movie ticket", all[0].Keyword)
}

func TestEngine_Empty(t *testing.T) {
	e := NewEngine(nil)
	assert.Nil(t, e.Match("lunch"))
	assert.Zero(t, e.PatternCount())

	e.Build([]Rule{{Keyword: "Samosa", Category: ledger.CategoryCanteen}, {Keyword: "samosa", Category: ledger.CategoryOthers, Priority: 5}})
	assert.Equal(t, 1, e.PatternCount())
	m := e.Match("two samosa")
	require.NotNil(t, m)
	assert.Equal(t, ledger.CategoryOthers, m.Category)
}
