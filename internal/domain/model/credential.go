package model

import "time"

// Service identifies one of the two external CRM platforms a credential
// belongs to.
type Service string

const (
	ServiceZoho    Service = "zoho"
	ServiceHubSpot Service = "hubspot"
)

// TokenSet is a persisted OAuth credential for one service. Mutated only on
// refresh or a fresh interactive grant; the tool runs single-process so the
// set is never shared concurrently.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Fresh reports whether the access token is still usable, requiring at least
// margin of remaining lifetime so a token cannot expire mid-request.
func (t TokenSet) Fresh(now time.Time, margin time.Duration) bool {
	return t.AccessToken != "" && t.ExpiresAt.After(now.Add(margin))
}
