package deck

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/lexiquiz/internal/domain"
	"github.com/conorfennell/lexiquiz/internal/normalize"
)

// Hash identifies a deck entry by its normalized content, so an unchanged
// entry keeps its identity across syncs.
func Hash(item domain.LearningItem) string {
	// Joined with newlines so "ab"+"c" and "a"+"bc" differ.
	joined := strings.Join([]string{
		string(item.Kind),
		normalize.Text(item.SourceText),
		normalize.Text(item.TargetText),
		normalize.Text(item.Example),
		normalize.Text(item.Notes),
	}, "\n")
	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%x", sum)
}
