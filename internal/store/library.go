package store

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadLibrary parses a sentence library JSON file of the form:
//
//	{"sentences": [{"text": "...", "difficulty": 1, "category": "..."}]}
//
// Missing word counts are derived from the text at seed time.
func LoadLibrary(path string) ([]Sentence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read sentence library: %w", err)
	}
	var parsed struct {
		Sentences []struct {
			Text       string `json:"text"`
			Difficulty int    `json:"difficulty"`
			Category   string `json:"category"`
			WordCount  int    `json:"word_count"`
		} `json:"sentences"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("store: parse sentence library %q: %w", path, err)
	}

	out := make([]Sentence, 0, len(parsed.Sentences))
	for _, s := range parsed.Sentences {
		if s.Text == "" {
			continue
		}
		difficulty := s.Difficulty
		if difficulty == 0 {
			difficulty = 1
		}
		out = append(out, Sentence{
			Text:       s.Text,
			Difficulty: difficulty,
			Category:   s.Category,
			WordCount:  s.WordCount,
		})
	}
	return out, nil
}

// DefaultLibrary is the built-in starter library used when no external
// sentence file is configured.
func DefaultLibrary() []Sentence {
	return []Sentence{
		{Text: "The cat sat on the mat.", Difficulty: 1, Category: "simple"},
		{Text: "I like to eat apples.", Difficulty: 1, Category: "simple"},
		{Text: "The sun is shining today.", Difficulty: 1, Category: "simple"},
		{Text: "My dog likes to play fetch.", Difficulty: 1, Category: "simple"},
		{Text: "We went to the park yesterday.", Difficulty: 2, Category: "everyday"},
		{Text: "She reads a book every evening.", Difficulty: 2, Category: "everyday"},
		{Text: "The children played in the garden all afternoon.", Difficulty: 2, Category: "everyday"},
		{Text: "Please remember to water the plants before you leave.", Difficulty: 3, Category: "complex"},
		{Text: "The weather forecast predicts rain for the entire weekend.", Difficulty: 3, Category: "complex"},
		{Text: "Strong thunderstorms rumbled through the valley throughout the night.", Difficulty: 3, Category: "complex"},
	}
}
