package client

import (
	"context"
	"fmt"
	"net/http"
)

// CreateCampaign submits a new campaign for review. New campaigns start pending.
func (c *Client) CreateCampaign(ctx context.Context, req CampaignRequest) (*Campaign, error) {
	var campaign Campaign
	if err := c.do(ctx, http.MethodPost, "/api/user/campaigns", true, req, &campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// ListCampaigns returns the caller's campaigns, newest first
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var campaigns []Campaign
	if err := c.do(ctx, http.MethodGet, "/api/user/campaigns", true, nil, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// GetCampaign returns one of the caller's campaigns
func (c *Client) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	var campaign Campaign
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/user/campaigns/%s", pathEscape(id)), true, nil, &campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// UpdateCampaign replaces the editable fields of a campaign
func (c *Client) UpdateCampaign(ctx context.Context, id string, req CampaignRequest) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/user/campaigns/%s", pathEscape(id)), true, req, nil)
}

// DeleteCampaign removes one of the caller's campaigns
func (c *Client) DeleteCampaign(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/user/campaigns/%s", pathEscape(id)), true, nil, nil)
}

// ShareCampaign emails the simulation link of an approved campaign
func (c *Client) ShareCampaign(ctx context.Context, id, email string) (*ShareResponse, error) {
	var resp ShareResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/user/campaigns/%s/share", pathEscape(id)), true, ShareRequest{Email: email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetUserAnalytics returns stats, per-campaign performance and a 30 day timeline
func (c *Client) GetUserAnalytics(ctx context.Context) (*UserAnalytics, error) {
	var analytics UserAnalytics
	if err := c.do(ctx, http.MethodGet, "/api/user/analytics", true, nil, &analytics); err != nil {
		return nil, err
	}
	return &analytics, nil
}

// GetLeaderboard returns the public (logged-in) leaderboard
func (c *Client) GetLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, "/api/leaderboard", true, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
