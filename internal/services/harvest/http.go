package harvest

import (
	"context"
	"fmt"

	"InsightHub/internal/domain/models"
	domsvc "InsightHub/internal/domain/service"
	xhttp "InsightHub/pkg/http"
)

// HTTPHarvester polls a JSON endpoint once per harvest cycle.
type HTTPHarvester struct {
	name   string
	url    string
	client *xhttp.Client
}

func NewHTTPHarvester(name, url string, client *xhttp.Client) *HTTPHarvester {
	if client == nil {
		client = xhttp.NewClient()
	}
	return &HTTPHarvester{name: name, url: url, client: client}
}

func (h *HTTPHarvester) Name() string { return h.name }

func (h *HTTPHarvester) Fetch(ctx context.Context) ([]models.Insight, error) {
	var body []byte
	if err := h.client.GetJSON(ctx, h.url, &body); err != nil {
		return nil, fmt.Errorf("poll %s: %w", h.url, err)
	}
	if len(body) == 0 {
		return nil, nil
	}
	out, err := decodeInsights(body)
	if err != nil {
		return nil, err
	}
	return withSource(out, h.name), nil
}

var _ domsvc.Harvester = (*HTTPHarvester)(nil)
