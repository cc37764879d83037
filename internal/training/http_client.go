package training

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/frauddesk/control-plane/internal/models"
)

type HTTPClientConfig struct {
	BaseURL    string
	Path       string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HTTPClient calls the trainer service over HTTP. Exactly one attempt per
// cycle: a duplicate submission would start a second training run and
// register a second model version.
type HTTPClient struct {
	baseURL string
	path    string
	client  *http.Client
	timeout time.Duration
}

func NewHTTPClient(cfg HTTPClientConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("trainer base url required")
	}
	path := cfg.Path
	if path == "" {
		path = "/train"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		// Training runs for minutes, not seconds.
		timeout = 15 * time.Minute
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		path:    path,
		client:  client,
		timeout: timeout,
	}, nil
}

type trainRequest struct {
	ReferenceDataset string `json:"reference_dataset"`
}

type trainResponse struct {
	RunID            string  `json:"run_id"`
	AUC              float64 `json:"auc"`
	AveragePrecision float64 `json:"average_precision"`
}

func (c *HTTPClient) Train(ctx context.Context, referenceDataset string) (models.TrainingResult, error) {
	if referenceDataset == "" {
		return models.TrainingResult{}, fmt.Errorf("reference dataset required")
	}
	body, err := json.Marshal(trainRequest{ReferenceDataset: referenceDataset})
	if err != nil {
		return models.TrainingResult{}, fmt.Errorf("trainer marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return models.TrainingResult{}, fmt.Errorf("trainer build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return models.TrainingResult{}, fmt.Errorf("trainer call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.TrainingResult{}, fmt.Errorf("trainer returned %s", resp.Status)
	}
	var out trainResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.TrainingResult{}, fmt.Errorf("trainer decode response: %w", err)
	}
	if out.RunID == "" {
		return models.TrainingResult{}, fmt.Errorf("trainer response missing run_id")
	}
	return models.TrainingResult{
		SchemaVersion:    models.SchemaVersion,
		RunID:            out.RunID,
		AUC:              out.AUC,
		AveragePrecision: out.AveragePrecision,
	}, nil
}
