package classify

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"
)

// Model is a bag-of-words logistic classifier loaded from a JSON artifact
// (the export format of the offline training script): per-class bias plus a
// weight row per vocabulary token.
type Model struct {
	Labels  []string             `json:"labels"`
	Bias    []float64            `json:"bias"`
	Weights map[string][]float64 `json:"weights"`
}

// LoadModel reads and validates a model artifact.
func LoadModel(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if len(m.Labels) < 2 {
		return nil, fmt.Errorf("model needs at least 2 labels, got %d", len(m.Labels))
	}
	if len(m.Bias) != len(m.Labels) {
		return nil, fmt.Errorf("bias length %d does not match %d labels", len(m.Bias), len(m.Labels))
	}
	for tok, row := range m.Weights {
		if len(row) != len(m.Labels) {
			return nil, fmt.Errorf("weight row for %q has length %d, want %d", tok, len(row), len(m.Labels))
		}
	}
	return &m, nil
}

// Predict scores text against each label and returns the best label plus a
// softmax confidence.
func (m *Model) Predict(text string) (string, float64, error) {
	if strings.TrimSpace(text) == "" {
		return "", 0, fmt.Errorf("empty text")
	}

	scores := make([]float64, len(m.Labels))
	copy(scores, m.Bias)
	for _, tok := range tokenize(text) {
		row, ok := m.Weights[tok]
		if !ok {
			continue
		}
		for i, w := range row {
			scores[i] += w
		}
	}

	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}

	// Softmax, shifted by the max score for numeric stability.
	var sum float64
	for _, sc := range scores {
		sum += math.Exp(sc - scores[best])
	}
	conf := 1 / sum

	return m.Labels[best], conf, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
