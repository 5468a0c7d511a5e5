package identity

import (
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// PresenceStatus is the last known online status of a member.
type PresenceStatus int

const (
	StatusUnknown PresenceStatus = iota
	StatusOnline
	StatusIdle
	StatusDND
	StatusOffline
)

// String returns the lowercase wire name used by the dashboard and notifications.
func (s PresenceStatus) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusIdle:
		return "idle"
	case StatusDND:
		return "dnd"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// ParsePresenceStatus maps a gateway status string to a PresenceStatus.
// Unrecognized values map to StatusUnknown.
func ParsePresenceStatus(s string) PresenceStatus {
	switch strings.ToLower(s) {
	case "online":
		return StatusOnline
	case "idle":
		return StatusIdle
	case "dnd":
		return StatusDND
	case "offline", "invisible":
		return StatusOffline
	default:
		return StatusUnknown
	}
}

// ActivityKind mirrors the gateway activity type numbering.
type ActivityKind int

const (
	ActivityPlaying ActivityKind = iota
	ActivityStreaming
	ActivityListening
	ActivityWatching
	ActivityCustom
	ActivityCompeting
)

// Activity is a single entry of a member's current rich presence.
type Activity struct {
	Name string
	Kind ActivityKind
}

// Presence holds the presence data of a member. A nil *Presence on a
// snapshot means no presence was observed for the member.
type Presence struct {
	Status     PresenceStatus
	Activities []Activity
}

// Badge is a public profile badge name such as "PREMIUM_EARLY_SUPPORTER".
type Badge string

// MemberSnapshot is the immutable classification input for one member.
// It is built fresh for every member on every scan pass.
type MemberSnapshot struct {
	ID             snowflake.ID
	Username       string
	DisplayName    string
	CreatedAt      time.Time
	AvatarHash     string
	AvatarAnimated bool
	BannerHash     string
	BannerPresent  bool
	Discriminator  string
	Presence       *Presence
	Badges         []Badge

	// Enriched reports whether banner and badges came from an extended profile fetch.
	Enriched bool
}

// Status returns the presence status, or StatusUnknown when presence is absent.
func (m *MemberSnapshot) Status() PresenceStatus {
	if m.Presence == nil {
		return StatusUnknown
	}

	return m.Presence.Status
}

// Activities returns the current activities, or nil when presence is absent.
func (m *MemberSnapshot) Activities() []Activity {
	if m.Presence == nil {
		return nil
	}

	return m.Presence.Activities
}

// AccountCreated returns the account creation time. When CreatedAt was not
// populated it falls back to the timestamp embedded in the snowflake ID.
func (m *MemberSnapshot) AccountCreated() time.Time {
	if !m.CreatedAt.IsZero() {
		return m.CreatedAt
	}

	if m.ID != 0 {
		return m.ID.Time()
	}

	return time.Time{}
}

// AccountAgeYears returns the fractional account age in 365-day years relative to now.
// Unknown creation times yield zero.
func (m *MemberSnapshot) AccountAgeYears(now time.Time) float64 {
	created := m.AccountCreated()
	if created.IsZero() || created.After(now) {
		return 0
	}

	return float64(now.Sub(created)) / float64(Year)
}

// NameVariants returns the candidate names in evaluation order: the username,
// followed by the display name when it is set and differs from the username.
func (m *MemberSnapshot) NameVariants() []string {
	names := []string{m.Username}
	if m.DisplayName != "" && m.DisplayName != m.Username {
		names = append(names, m.DisplayName)
	}

	return names
}

// Confidence is the certainty level of a classification.
type Confidence int

const (
	ConfidenceMedium Confidence = iota + 1
	ConfidenceHigh
)

// String returns the uppercase confidence label.
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "HIGH"
	case ConfidenceMedium:
		return "MEDIUM"
	default:
		return "NONE"
	}
}

// DetectionType identifies the rule stage that produced a result.
type DetectionType int

const (
	DetectionKeyword DetectionType = iota + 1
	DetectionFormattedTag
	DetectionCleanTag
	DetectionActivity
	DetectionComposite
)

// String returns the snake_case detection type name.
func (d DetectionType) String() string {
	switch d {
	case DetectionKeyword:
		return "keyword"
	case DetectionFormattedTag:
		return "formatted_tag"
	case DetectionCleanTag:
		return "clean_tag"
	case DetectionActivity:
		return "activity"
	case DetectionComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// Evidence carries the stage-specific detail behind a result.
type Evidence struct {
	// Name is the name variant the result was derived from, if any.
	Name string
	// Keyword is the substring matched by a keyword pattern.
	Keyword string
	// Template is the id of the structured tag template that matched.
	Template string
	// Activity is the activity name that matched.
	Activity string
	// Indicators lists the composite indicators that were true.
	Indicators []string
}

// Summary renders the evidence as a single human readable line.
func (e Evidence) Summary() string {
	switch {
	case e.Keyword != "":
		return "keyword " + e.Keyword
	case e.Template != "":
		return "template " + e.Template
	case e.Activity != "":
		return "activity " + e.Activity
	case len(e.Indicators) > 0:
		return strings.Join(e.Indicators, ", ")
	case e.Name != "":
		return "name " + e.Name
	default:
		return ""
	}
}

// Result is the outcome of a successful classification.
type Result struct {
	Gamertag   string
	Confidence Confidence
	Type       DetectionType
	Evidence   Evidence
}

// IsHigh reports whether the result is strong enough to notify on.
func (r *Result) IsHigh() bool {
	return r != nil && r.Confidence == ConfidenceHigh
}
