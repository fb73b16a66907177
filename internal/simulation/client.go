// Package simulation calls the external eligibility simulation service.
package simulation

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	httpclient "prospect-onboarding/internal/common/http"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/models"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	logger  logger.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpclient.NewClient(timeout),
		logger:  log.WithFields(map[string]interface{}{"component": "simulation"}),
	}
}

type runRequest struct {
	ProspectID string              `json:"prospectId"`
	Profile    models.ProfileHints `json:"profile"`
}

type runResponse struct {
	SimulationID string                   `json:"simulationId"`
	Products     []models.EligibleProduct `json:"products"`
}

// Run starts a simulation for the prospect and returns its products ordered
// by priority rank.
func (c *Client) Run(ctx context.Context, prospectID string, hints models.ProfileHints) (*models.SimulationResult, error) {
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["X-API-Key"] = c.apiKey
	}

	var resp runResponse
	err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/simulations", headers,
		runRequest{ProspectID: prospectID, Profile: hints}, &resp)
	if err != nil {
		return nil, fmt.Errorf("run simulation: %w", err)
	}

	sort.SliceStable(resp.Products, func(i, j int) bool {
		return resp.Products[i].Priority < resp.Products[j].Priority
	})

	c.logger.Info("simulation completed", map[string]interface{}{
		"prospectId":   prospectID,
		"simulationId": resp.SimulationID,
		"products":     len(resp.Products),
	})
	return &models.SimulationResult{SimulationID: resp.SimulationID, Products: resp.Products}, nil
}
