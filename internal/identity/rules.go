package identity

import (
	"regexp"
	"time"
)

// Year is the fixed year length used for account age math.
const Year = 365 * 24 * time.Hour

const (
	// MinTagLength is the shortest accepted gamertag candidate.
	MinTagLength = 3
	// MaxTagLength is the longest accepted gamertag candidate.
	MaxTagLength = 15

	// CorroborationThreshold is the number of true corroboration signals required.
	CorroborationThreshold = 2
	// CompositeThreshold is the number of true composite indicators required.
	CompositeThreshold = 3

	// MinAccountAgeYears must be exceeded before any corroboration is considered.
	MinAccountAgeYears = 1.0
	// EstablishedAccountAgeYears counts as an extra corroboration signal when exceeded.
	EstablishedAccountAgeYears = 2.0
	// VeteranAccountAgeYears counts as a composite indicator when exceeded.
	VeteranAccountAgeYears = 5.0

	// OldDiscriminatorCeiling marks pre-migration discriminators that corroborate a tag.
	OldDiscriminatorCeiling = 5000
	// LowDiscriminatorCeiling marks early-account discriminators for the composite stage.
	LowDiscriminatorCeiling = 1000
)

// KeywordRule is one case-insensitive platform keyword pattern.
type KeywordRule struct {
	ID      string
	Pattern *regexp.Regexp
}

// TemplateRule is one structured "prefix: value" style template. The first
// capture group holds the tag.
type TemplateRule struct {
	ID      string
	Pattern *regexp.Regexp
}

const tagGroup = `([A-Za-z0-9_]{3,15})`

// KeywordRules are evaluated in order; the first match wins.
var KeywordRules = []KeywordRule{
	{ID: "xbox", Pattern: regexp.MustCompile(`(?i)xbox`)},
	{ID: "xbl", Pattern: regexp.MustCompile(`(?i)xbl`)},
	{ID: "xbox_live", Pattern: regexp.MustCompile(`(?i)xbox.*live`)},
	{ID: "live_xbox", Pattern: regexp.MustCompile(`(?i)live.*xbox`)},
	{ID: "gamertag_xbox", Pattern: regexp.MustCompile(`(?i)gamertag.*xbox`)},
	{ID: "xbox_gamertag", Pattern: regexp.MustCompile(`(?i)xbox.*gamertag`)},
	{ID: "gt_xbox", Pattern: regexp.MustCompile(`(?i)gt.*xbox`)},
	{ID: "xbox_gt", Pattern: regexp.MustCompile(`(?i)xbox.*gt`)},
	{ID: "bracket_xbox", Pattern: regexp.MustCompile(`(?i)\[xbox\]`)},
	{ID: "bracket_xbl", Pattern: regexp.MustCompile(`(?i)\[xbl\]`)},
	{ID: "paren_xbox", Pattern: regexp.MustCompile(`(?i)\(xbox\)`)},
	{ID: "paren_xbl", Pattern: regexp.MustCompile(`(?i)\(xbl\)`)},
	{ID: "xbox_com", Pattern: regexp.MustCompile(`(?i)xbox\s*\.\s*com`)},
	{ID: "xbox_gamer", Pattern: regexp.MustCompile(`(?i)xbox\s*gamer`)},
	{ID: "microsoft_gamer", Pattern: regexp.MustCompile(`(?i)microsoft\s*gamer`)},
	{ID: "xbox_club", Pattern: regexp.MustCompile(`(?i)xbox\s*club`)},
	{ID: "xbox_pass", Pattern: regexp.MustCompile(`(?i)xbox\s*pass`)},
	{ID: "xbox_game_pass", Pattern: regexp.MustCompile(`(?i)xbox\s*game\s*pass`)},
}

// TemplateRules are evaluated in order; the first match wins.
var TemplateRules = []TemplateRule{
	{ID: "gt_prefix", Pattern: regexp.MustCompile(`(?i)^(?:gt|gamertag)[:\s]+` + tagGroup + `$`)},
	{ID: "gt_bracket_prefix", Pattern: regexp.MustCompile(`(?i)^\[(?:gt|gamertag)\]\s*` + tagGroup + `$`)},
	{ID: "gt_paren_prefix", Pattern: regexp.MustCompile(`(?i)^\((?:gt|gamertag)\)\s*` + tagGroup + `$`)},
	{ID: "gt_suffix", Pattern: regexp.MustCompile(`(?i)^` + tagGroup + `\s*[|\-]\s*(?:gt|gamertag)$`)},
	{ID: "xbox_prefix", Pattern: regexp.MustCompile(`(?i)^xbox[:\s]+` + tagGroup + `$`)},
	{ID: "xbl_prefix", Pattern: regexp.MustCompile(`(?i)^xbl[:\s]+` + tagGroup + `$`)},
	{ID: "platform_paren_suffix", Pattern: regexp.MustCompile(`(?i)^` + tagGroup + `\s*\((?:xbox|xbl)\)$`)},
}

// PlatformTitles match any activity whose name contains them, regardless of kind.
var PlatformTitles = []string{
	"xbox live",
	"xbox app",
	"xbox game pass",
	"xbox cloud gaming",
	"xbox console companion",
	"xbox game bar",
	"xbox network",
}

// PopularTitles match only "playing" activities whose name contains them.
var PopularTitles = []string{
	"minecraft",
	"fortnite",
	"call of duty",
	"warzone",
	"halo",
	"forza",
	"gears of war",
	"sea of thieves",
	"grand theft auto",
	"gta",
	"fifa",
	"nba 2k",
	"madden",
}

// CommonWords are rejected by the clean-tag heuristic.
var CommonWords = map[string]struct{}{
	"admin":     {},
	"mod":       {},
	"owner":     {},
	"user":      {},
	"test":      {},
	"hello":     {},
	"world":     {},
	"discord":   {},
	"server":    {},
	"bot":       {},
	"system":    {},
	"null":      {},
	"undefined": {},
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)
	trailingDigits  = regexp.MustCompile(`\d{2,}$`)
	// At least two consecutive x; a single x would tag names like Rexford or Xander.
	repeatedX = regexp.MustCompile(`(?i)xx`)
)
