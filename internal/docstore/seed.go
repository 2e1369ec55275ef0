package docstore

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var seedCorpus []byte

// Seed returns the embedded handbook passages. The slice is freshly
// allocated on every call so callers can append to a Store without
// sharing state.
func Seed() ([]Passage, error) {
	var passages []Passage
	if err := yaml.Unmarshal(seedCorpus, &passages); err != nil {
		return nil, fmt.Errorf("parsing embedded corpus: %w", err)
	}
	return passages, nil
}
