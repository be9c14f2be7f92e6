package harvest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"InsightHub/internal/domain/models"
)

// envelope is the wire shape accepted from pushing producers.
type envelope struct {
	Type     string           `json:"type"`
	Insights []models.Insight `json:"insights"`
	Data     []models.Insight `json:"data"`
}

// decodeInsights accepts a bare insight, an array of insights, or an
// object carrying them under "insights" or "data".
func decodeInsights(b []byte) ([]models.Insight, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	if b[0] == '[' {
		var list []models.Insight
		if err := json.Unmarshal(b, &list); err != nil {
			return nil, fmt.Errorf("decode insight list: %w", err)
		}
		return list, nil
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode insight envelope: %w", err)
	}
	if len(env.Insights) > 0 || len(env.Data) > 0 {
		return append(env.Insights, env.Data...), nil
	}

	var single models.Insight
	if err := json.Unmarshal(b, &single); err != nil {
		return nil, fmt.Errorf("decode insight: %w", err)
	}
	if single.Subject == "" {
		return nil, nil
	}
	return []models.Insight{single}, nil
}
