package deck

import (
	"strings"
	"testing"

	"github.com/conorfennell/lexiquiz/internal/domain"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedItems int
		expected      domain.LearningItem
	}{
		{
			name:          "Simple source and target",
			input:         "S: kot\nT: cat",
			expectedItems: 1,
			expected:      domain.LearningItem{Kind: domain.Word, SourceText: "kot", TargetText: "cat"},
		},
		{
			name:          "All fields",
			input:         "S: dzień dobry\nT: good morning\nE: Dzień dobry, panie!\nN: formal\nK: expression",
			expectedItems: 1,
			expected: domain.LearningItem{
				Kind:       domain.Expression,
				SourceText: "dzień dobry",
				TargetText: "good morning",
				Example:    "Dzień dobry, panie!",
				Notes:      "formal",
			},
		},
		{
			name: "Multiline notes",
			input: `
S: mieć
T: to have
N: irregular
mam, masz, ma
`,
			expectedItems: 1,
			expected: domain.LearningItem{
				Kind:       domain.Word,
				SourceText: "mieć",
				TargetText: "to have",
				Notes:      "irregular\nmam, masz, ma",
			},
		},
		{
			name: "Two entries without separator",
			input: `
S: kot
T: cat

S: pies
T: dog
`,
			expectedItems: 2,
		},
		{
			name:          "Separator",
			input:         "S: kot\nT: cat\n---\nS: pies\nT: dog\nK: words",
			expectedItems: 2,
		},
		{
			name:          "Kind before source",
			input:         "K: expression\nS: na zdrowie\nT: cheers",
			expectedItems: 1,
			expected:      domain.LearningItem{Kind: domain.Expression, SourceText: "na zdrowie", TargetText: "cheers"},
		},
		{
			name:          "Entry without target is skipped",
			input:         "S: kot\n---\nS: pies\nT: dog",
			expectedItems: 1,
			expected:      domain.LearningItem{Kind: domain.Word, SourceText: "pies", TargetText: "dog"},
		},
		{
			name:          "No entries, just text",
			input:         "This is a file with no vocabulary.",
			expectedItems: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "S:kot\nT:cat",
			expectedItems: 1,
			expected:      domain.LearningItem{Kind: domain.Word, SourceText: "kot", TargetText: "cat"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(items) != tc.expectedItems {
				t.Fatalf("Expected %d items, but got %d", tc.expectedItems, len(items))
			}

			if tc.expectedItems == 1 && items[0] != tc.expected {
				t.Errorf("Expected item %+v, but got %+v", tc.expected, items[0])
			}
		})
	}
}

func TestParseUnknownKind(t *testing.T) {
	items, err := Parse(strings.NewReader("S: kot\nT: cat\nK: phrase\n---\nS: pies\nT: dog"))
	if err == nil {
		t.Fatal("Expected an error for an unknown kind")
	}
	if len(items) != 1 || items[0].SourceText != "pies" {
		t.Errorf("Expected the valid entry to survive, got %+v", items)
	}
}

func TestHash(t *testing.T) {
	t.Run("hash is deterministic", func(t *testing.T) {
		a := domain.LearningItem{Kind: domain.Word, SourceText: "kot", TargetText: "cat"}
		if Hash(a) != Hash(a) {
			t.Error("Expected hashes for identical items to be the same")
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		a := domain.LearningItem{Kind: domain.Word, SourceText: "  Kot ", TargetText: "Cat"}
		b := domain.LearningItem{Kind: domain.Word, SourceText: "kot", TargetText: "cat"}
		if Hash(a) != Hash(b) {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})

	t.Run("kind is part of the identity", func(t *testing.T) {
		a := domain.LearningItem{Kind: domain.Word, SourceText: "kot", TargetText: "cat"}
		b := domain.LearningItem{Kind: domain.Expression, SourceText: "kot", TargetText: "cat"}
		if Hash(a) == Hash(b) {
			t.Error("Expected words and expressions to hash differently")
		}
	})

	t.Run("field boundaries matter", func(t *testing.T) {
		a := domain.LearningItem{Kind: domain.Word, SourceText: "ab", TargetText: "c"}
		b := domain.LearningItem{Kind: domain.Word, SourceText: "a", TargetText: "bc"}
		if Hash(a) == Hash(b) {
			t.Error("Expected different splits to hash differently")
		}
	})
}
