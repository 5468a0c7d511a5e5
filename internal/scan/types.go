package scan

import (
	"context"
	"iter"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/tagscout/tagscout/internal/identity"
)

// Community is one scannable group of members, immutable for the duration of a scan.
type Community struct {
	ID          snowflake.ID
	Name        string
	MemberCount int
}

// Member is one entry of a community's member directory.
type Member struct {
	Snapshot  *identity.MemberSnapshot
	Bot       bool
	AvatarURL string
}

// MemberSource enumerates communities and their member directories.
type MemberSource interface {
	// Communities returns the communities to scan, in scan order.
	Communities(ctx context.Context) ([]Community, error)
	// Members yields the member directory of a community in directory order.
	// A non-nil error ends the enumeration.
	Members(ctx context.Context, community Community) iter.Seq2[Member, error]
	// Enrich returns a copy of the snapshot with extended profile data filled in.
	Enrich(ctx context.Context, snapshot *identity.MemberSnapshot) (*identity.MemberSnapshot, error)
}

// Notifier receives one message per confirmed HIGH confidence match.
type Notifier interface {
	Notify(ctx context.Context, match *Match) error
}

// Counters is a point-in-time read of the global scan counters.
type Counters struct {
	TotalScanned int64
	TotalFound   int64
}

// Match carries the full context of a confirmed match.
type Match struct {
	ScanID          uuid.UUID
	Community       Community
	Member          Member
	Snapshot        *identity.MemberSnapshot
	Result          *identity.Result
	AccountAgeYears float64
	Counters        Counters
	FoundAt         time.Time
}

// ServerInfo is the dashboard projection of a community.
type ServerInfo struct {
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
}

// MatchRecord is the dashboard projection of a match.
type MatchRecord struct {
	Username      string `json:"username"`
	Gamertag      string `json:"gamertag"`
	Avatar        string `json:"avatar"`
	Server        string `json:"server"`
	DetectionType string `json:"detectionType"`
	AccountAge    int    `json:"accountAge"`
	Status        string `json:"status"`
}

// NewMatchRecord builds the dashboard record of a match.
// Members without observed presence are shown as offline.
func NewMatchRecord(match *Match) MatchRecord {
	status := match.Snapshot.Status()
	if status == identity.StatusUnknown {
		status = identity.StatusOffline
	}

	return MatchRecord{
		Username:      match.Snapshot.Username,
		Gamertag:      match.Result.Gamertag,
		Avatar:        match.Member.AvatarURL,
		Server:        match.Community.Name,
		DetectionType: match.Result.Type.String(),
		AccountAge:    int(match.AccountAgeYears),
		Status:        status.String(),
	}
}

// CommunityResult is the local outcome of scanning one community.
// A failed community reports zero scanned and zero found.
type CommunityResult struct {
	Community Community
	Scanned   int
	Found     int
	Err       error
}

// Summary describes a completed scan.
type Summary struct {
	ScanID      uuid.UUID
	StartedAt   time.Time
	Duration    time.Duration
	Communities []CommunityResult
	Counters    Counters
}

// ToggleResult is the response of the control surface.
type ToggleResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
