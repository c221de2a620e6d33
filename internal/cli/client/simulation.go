package client

import (
	"context"
	"fmt"
	"net/http"
)

// The simulation endpoints are public: recipients hold a tracking token, not a session.

// GetSimulation loads the landing page for a tracking token
func (c *Client) GetSimulation(ctx context.Context, token string) (*SimulationLanding, error) {
	var landing SimulationLanding
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/simulate/%s", pathEscape(token)), false, nil, &landing); err != nil {
		return nil, err
	}
	return &landing, nil
}

// SubmitSimulation records a simulated form submission
func (c *Client) SubmitSimulation(ctx context.Context, token string, submission SimulationSubmission) (*SimulationResult, error) {
	var result SimulationResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/simulate/%s/submit", pathEscape(token)), false, submission, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAwareness loads the educational page shown after a simulated phish
func (c *Client) GetAwareness(ctx context.Context, token string) (*Awareness, error) {
	var awareness Awareness
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/awareness/%s", pathEscape(token)), false, nil, &awareness); err != nil {
		return nil, err
	}
	return &awareness, nil
}
