package client

import (
	"context"
	"fmt"
	"net/http"
)

// ListAllCampaigns returns every campaign with its owner's email
func (c *Client) ListAllCampaigns(ctx context.Context) ([]Campaign, error) {
	var campaigns []Campaign
	if err := c.do(ctx, http.MethodGet, "/api/admin/campaigns", true, nil, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// ApproveCampaign approves a pending campaign
func (c *Client) ApproveCampaign(ctx context.Context, id, comment string) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/admin/campaigns/%s/approve", pathEscape(id)), true, ReviewRequest{Comment: comment}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RejectCampaign rejects a campaign. The backend requires a comment.
func (c *Client) RejectCampaign(ctx context.Context, id, comment string) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/admin/campaigns/%s/reject", pathEscape(id)), true, ReviewRequest{Comment: comment}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUsers returns every registered user
func (c *Client) ListUsers(ctx context.Context) ([]AdminUser, error) {
	var users []AdminUser
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", true, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes a user together with their campaigns and events
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/users/%s", pathEscape(id)), true, nil, nil)
}

// ListAuditLogs returns the most recent administrative actions
func (c *Client) ListAuditLogs(ctx context.Context) ([]AuditLog, error) {
	var logs []AuditLog
	if err := c.do(ctx, http.MethodGet, "/api/admin/audit-logs", true, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// GetAdminLeaderboard returns the full scoring breakdown
func (c *Client) GetAdminLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, "/api/admin/leaderboard", true, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetAdminAnalytics returns platform-wide stats
func (c *Client) GetAdminAnalytics(ctx context.Context) (*AdminAnalytics, error) {
	var analytics AdminAnalytics
	if err := c.do(ctx, http.MethodGet, "/api/admin/analytics", true, nil, &analytics); err != nil {
		return nil, err
	}
	return &analytics, nil
}
