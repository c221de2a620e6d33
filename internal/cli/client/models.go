package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is a backend identifier. The SEAP backend has served both numeric ids
// and hex object ids, so ID decodes from either a JSON number or string and
// always encodes as a string.
type ID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// User is the identity record returned by the auth endpoints.
type User struct {
	ID    ID     `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthResponse is the union of the login, register and verify-otp payloads.
type AuthResponse struct {
	Message     string `json:"message,omitempty"`
	Token       string `json:"token,omitempty"`
	User        *User  `json:"user,omitempty"`
	OTP         string `json:"otp,omitempty"`
	OTPRequired bool   `json:"otp_required,omitempty"`
}

// OTPPending reports whether the backend wants a passcode before issuing a
// credential.
func (r *AuthResponse) OTPPending() bool {
	return r.Token == "" && (r.OTPRequired || r.OTP != "")
}

// HasCredential reports whether the response carries both halves of a session.
func (r *AuthResponse) HasCredential() bool {
	return r.Token != "" && r.User != nil
}

// MessageResponse is the generic {"message": "..."} acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// UpdateProfileRequest only sends the fields that changed.
type UpdateProfileRequest struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Campaign statuses.
const (
	CampaignPending  = "pending"
	CampaignApproved = "approved"
	CampaignRejected = "rejected"
)

// Campaign is a simulated phishing campaign.
type Campaign struct {
	ID             ID         `json:"id"`
	UserID         ID         `json:"user_id"`
	UserEmail      string     `json:"user_email,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	EmailText      string     `json:"email_text"`
	LandingPageURL string     `json:"landing_page_url"`
	TrackingToken  string     `json:"tracking_token"`
	Status         string     `json:"status"`
	ExpiryDate     *time.Time `json:"expiry_date"`
	AdminComment   string     `json:"admin_comment"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CampaignRequest creates or replaces a campaign. A nil ExpiryDate clears it.
type CampaignRequest struct {
	Title          string     `json:"title" validate:"required"`
	Description    string     `json:"description"`
	EmailText      string     `json:"email_text" validate:"required"`
	LandingPageURL string     `json:"landing_page_url" validate:"omitempty,url"`
	ExpiryDate     *time.Time `json:"expiry_date"`
}

// ReviewRequest carries the admin comment for approve/reject.
type ReviewRequest struct {
	Comment string `json:"comment"`
}

// ShareRequest sends an approved campaign's link to a recipient.
type ShareRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ShareResponse acknowledges a share.
type ShareResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// UserStats summarises a user's own campaigns.
type UserStats struct {
	TotalCampaigns      int     `json:"total_campaigns"`
	ApprovedCampaigns   int     `json:"approved_campaigns"`
	PendingCampaigns    int     `json:"pending_campaigns"`
	RejectedCampaigns   int     `json:"rejected_campaigns"`
	TotalClicks         int     `json:"total_clicks"`
	TotalSubmissions    int     `json:"total_submissions"`
	TotalAwarenessViews int     `json:"total_awareness_views"`
	ConversionRate      float64 `json:"conversion_rate"`
}

// CampaignPerformance is one row of the per-campaign analytics table.
type CampaignPerformance struct {
	ID             ID     `json:"id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	Clicks         int    `json:"clicks"`
	Submissions    int    `json:"submissions"`
	AwarenessViews int    `json:"awareness_views"`
}

// TimelineEntry counts events on one day (YYYY-MM-DD).
type TimelineEntry struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// UserAnalytics is returned by /api/user/analytics.
type UserAnalytics struct {
	Stats     UserStats             `json:"stats"`
	Campaigns []CampaignPerformance `json:"campaigns"`
	Timeline  []TimelineEntry       `json:"timeline"`
}

// AdminStats summarises the whole platform.
type AdminStats struct {
	TotalUsers            int     `json:"total_users"`
	TotalCampaigns        int     `json:"total_campaigns"`
	ApprovedCampaigns     int     `json:"approved_campaigns"`
	PendingCampaigns      int     `json:"pending_campaigns"`
	RejectedCampaigns     int     `json:"rejected_campaigns"`
	TotalEvents           int     `json:"total_events"`
	TotalClicks           int     `json:"total_clicks"`
	TotalConversions      int     `json:"total_conversions"`
	AverageConversionRate float64 `json:"average_conversion_rate"`
}

// StatusCount is one bucket of the campaign status distribution.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// AdminAnalytics is returned by /api/admin/analytics.
type AdminAnalytics struct {
	Stats        AdminStats      `json:"stats"`
	Distribution []StatusCount   `json:"distribution"`
	Timeline     []TimelineEntry `json:"timeline"`
}

// AdminUser is a row of the admin user listing.
type AdminUser struct {
	ID            ID     `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at"`
}

// AuditLog records an administrative action.
type AuditLog struct {
	ID           ID      `json:"id"`
	AdminID      ID      `json:"admin_id"`
	AdminEmail   string  `json:"admin_email"`
	Action       string  `json:"action"`
	ResourceType string  `json:"resource_type"`
	ResourceID   *string `json:"resource_id"`
	Details      string  `json:"details"`
	CreatedAt    string  `json:"created_at"`
}

// LeaderboardEntry ranks a user by campaign effectiveness.
type LeaderboardEntry struct {
	UserID           ID     `json:"user_id"`
	Email            string `json:"email"`
	TotalClicks      int    `json:"total_clicks"`
	TotalConversions int    `json:"total_conversions"`
	TotalCampaigns   int    `json:"total_campaigns"`
	RejectedCount    int    `json:"rejected_count"`
	Score            int    `json:"score"`
}

// SimulationLanding is what a recipient sees after following a campaign link.
type SimulationLanding struct {
	CampaignID ID     `json:"campaign_id"`
	Title      string `json:"title"`
	LandingURL string `json:"landing_url"`
	Token      string `json:"token"`
}

// SimulationSubmission is the payload a recipient "submits" on the landing page.
// The backend records the event and discards the values.
type SimulationSubmission struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SimulationResult points the recipient at the awareness page.
type SimulationResult struct {
	Redirect string `json:"redirect"`
	Message  string `json:"message"`
}

// AwarenessContent is the educational copy shown after a simulated phish.
type AwarenessContent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Tips        string `json:"tips"`
}

// Awareness is returned by /api/awareness/{token}.
type Awareness struct {
	CampaignID ID               `json:"campaign_id"`
	Message    string           `json:"message"`
	Content    AwarenessContent `json:"content"`
}
