// Package deck reads vocabulary decks from markdown files.
//
// A deck entry looks like:
//
//	S: dzień dobry
//	T: good morning
//	E: Dzień dobry, jak się masz?
//	N: formal greeting
//	K: expression
//
// Entries are separated by a line containing only "---" or by the next "S:"
// line. Values may continue over several lines. K defaults to word.
package deck

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/lexiquiz/internal/domain"
)

const (
	sourcePrefix  = "S:"
	targetPrefix  = "T:"
	examplePrefix = "E:"
	notesPrefix   = "N:"
	kindPrefix    = "K:"
	separator     = "---"
)

type field int

const (
	seeking field = iota
	readingSource
	readingTarget
	readingExample
	readingNotes
	readingKind
)

var prefixes = []struct {
	prefix string
	field  field
}{
	{sourcePrefix, readingSource},
	{targetPrefix, readingTarget},
	{examplePrefix, readingExample},
	{notesPrefix, readingNotes},
	{kindPrefix, readingKind},
}

// ParseFile reads a file from the given path and extracts all entries.
func ParseFile(path string) ([]domain.LearningItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all entries. Entries without
// source or target text are skipped.
func Parse(r io.Reader) ([]domain.LearningItem, error) {
	scanner := bufio.NewScanner(r)
	var items []domain.LearningItem
	var current domain.LearningItem
	var kind string
	var block []string
	state := seeking
	var firstErr error

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch state {
		case readingSource:
			current.SourceText = content
		case readingTarget:
			current.TargetText = content
		case readingExample:
			current.Example = content
		case readingNotes:
			current.Notes = content
		case readingKind:
			kind = content
		}
		block = nil
	}

	finishEntry := func() {
		flushBlock()
		if current.SourceText != "" && current.TargetText != "" {
			current.Kind = domain.Word
			var err error
			if kind != "" {
				current.Kind, err = domain.ParseKind(kind)
			}
			if err == nil {
				items = append(items, current)
			} else if firstErr == nil {
				firstErr = fmt.Errorf("entry %q: %w", current.SourceText, err)
			}
		}
		current = domain.LearningItem{}
		kind = ""
		state = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			finishEntry()
			continue
		}

		matched := false
		for _, p := range prefixes {
			if !strings.HasPrefix(line, p.prefix) {
				continue
			}
			matched = true
			flushBlock()
			if p.field == readingSource && current.SourceText != "" {
				finishEntry() // a second source starts a new entry
			}
			state = p.field
			block = append(block, strings.TrimPrefix(line[len(p.prefix):], " "))
			break
		}

		if !matched && state != seeking {
			block = append(block, line)
		}
	}

	finishEntry() // Finish the very last entry in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return items, firstErr
}
