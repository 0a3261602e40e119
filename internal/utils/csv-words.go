package utils

import (
	"crypto/rand"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/AlrightyTighty/baddle-backend/internal"
)

//go:embed words.csv
var embeddedWords string

var ErrNoWords = errors.New("word list is empty")

// WordList is an immutable set of playable secret words.
type WordList struct {
	words []string
}

// LoadWords reads the CSV at path, or the embedded list when path is empty.
func LoadWords(path string) (*WordList, error) {
	if path == "" {
		return ParseWords(strings.NewReader(embeddedWords))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list %s: %w", path, err)
	}
	defer f.Close()

	return ParseWords(f)
}

// ParseWords keeps the first column of every record that is a five letter
// alphabetic word, lower-cased. Duplicates are dropped.
func ParseWords(r io.Reader) (*WordList, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse word list: %w", err)
	}

	seen := make(map[string]struct{}, len(records))
	words := make([]string, 0, len(records))
	skipped := 0
	for _, record := range records {
		if len(record) == 0 {
			continue
		}
		word := strings.ToLower(strings.TrimSpace(record[0]))
		if !IsPlayableWord(word) {
			skipped++
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}

	if skipped > 0 {
		log.Debug().Int("skipped", skipped).Msg("ignored unplayable word list entries")
	}
	if len(words) == 0 {
		return nil, ErrNoWords
	}
	return &WordList{words: words}, nil
}

// IsPlayableWord reports whether w is exactly WordLength lower-case ASCII
// letters.
func IsPlayableWord(w string) bool {
	if len(w) != internal.WordLength {
		return false
	}
	for i := 0; i < len(w); i++ {
		if w[i] < 'a' || w[i] > 'z' {
			return false
		}
	}
	return true
}

func (l *WordList) Len() int { return len(l.words) }

func (l *WordList) Contains(w string) bool {
	for _, word := range l.words {
		if word == w {
			return true
		}
	}
	return false
}

// RandomWord picks a word uniformly at random.
func (l *WordList) RandomWord() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(l.words))))
	if err != nil {
		return l.words[0]
	}
	return l.words[n.Int64()]
}
