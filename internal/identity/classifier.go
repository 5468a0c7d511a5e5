package identity

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/tagscout/tagscout/pkg/utils"
)

// Classifier decides whether a member snapshot likely carries a gamertag.
// It performs no I/O; the clock is the only input beyond the snapshot.
type Classifier struct {
	now func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock overrides the time source used for account age math.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		c.now = now
	}
}

// NewClassifier creates a Classifier using the wall clock unless overridden.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Classify runs the rule chain over the snapshot and returns the first result
// produced, or nil when no stage matches.
func (c *Classifier) Classify(snapshot *MemberSnapshot) *Result {
	if snapshot == nil {
		return nil
	}

	now := c.now()

	for _, name := range snapshot.NameVariants() {
		if name == "" {
			continue
		}

		if result := matchKeyword(name); result != nil {
			return result
		}

		if result := matchTemplate(name); result != nil {
			return result
		}

		if result := c.matchCleanTag(snapshot, name, now); result != nil {
			return result
		}
	}

	if result := matchActivity(snapshot); result != nil {
		return result
	}

	indicators := CompositeIndicators(snapshot, now)
	if len(indicators) >= CompositeThreshold {
		return &Result{
			Gamertag:   snapshot.Username,
			Confidence: ConfidenceMedium,
			Type:       DetectionComposite,
			Evidence:   Evidence{Indicators: indicators},
		}
	}

	return nil
}

// matchKeyword tests the name against the platform keyword table.
func matchKeyword(name string) *Result {
	for _, rule := range KeywordRules {
		matched := rule.Pattern.FindString(name)
		if matched == "" {
			continue
		}

		return &Result{
			Gamertag:   name,
			Confidence: ConfidenceHigh,
			Type:       DetectionKeyword,
			Evidence:   Evidence{Name: name, Keyword: matched},
		}
	}

	return nil
}

// matchTemplate extracts a tag from structured "GT: tag" style names.
func matchTemplate(name string) *Result {
	for _, rule := range TemplateRules {
		groups := rule.Pattern.FindStringSubmatch(name)
		if len(groups) < 2 {
			continue
		}

		return &Result{
			Gamertag:   groups[1],
			Confidence: ConfidenceHigh,
			Type:       DetectionFormattedTag,
			Evidence:   Evidence{Name: name, Template: rule.ID},
		}
	}

	return nil
}

// matchCleanTag applies the clean-tag heuristic followed by corroboration.
func (c *Classifier) matchCleanTag(snapshot *MemberSnapshot, name string, now time.Time) *Result {
	cleaned := CleanName(name)
	if !LooksLikeTag(name, cleaned) {
		return nil
	}

	if !Corroborated(snapshot, now) {
		return nil
	}

	return &Result{
		Gamertag:   cleaned,
		Confidence: ConfidenceHigh,
		Type:       DetectionCleanTag,
		Evidence:   Evidence{Name: cleaned},
	}
}

// CleanName strips every character outside [A-Za-z0-9].
func CleanName(name string) string {
	return nonAlphanumeric.ReplaceAllString(name, "")
}

// LooksLikeTag reports whether the cleaned name has the shape of a gamertag.
// The raw name is consulted only for underscores, which cleaning removes.
func LooksLikeTag(raw, cleaned string) bool {
	if len(cleaned) < MinTagLength || len(cleaned) > MaxTagLength {
		return false
	}

	if _, common := CommonWords[strings.ToLower(cleaned)]; common {
		return false
	}

	digits := 0
	for _, r := range cleaned {
		if unicode.IsDigit(r) {
			digits++
		}
	}

	return digits >= 2 ||
		trailingDigits.MatchString(cleaned) ||
		strings.Contains(raw, "_") ||
		repeatedX.MatchString(cleaned)
}

// Corroborated checks the non-text signals backing a clean-tag match.
// Account age above one year is required; beyond that at least
// CorroborationThreshold signals, the age itself included, must hold.
func Corroborated(snapshot *MemberSnapshot, now time.Time) bool {
	age := snapshot.AccountAgeYears(now)
	if age <= MinAccountAgeYears {
		return false
	}

	signals := []bool{
		true,
		age > EstablishedAccountAgeYears,
		snapshot.AvatarAnimated,
		len(snapshot.Activities()) > 0,
		hasOldDiscriminator(snapshot.Discriminator),
	}

	count := 0
	for _, ok := range signals {
		if ok {
			count++
		}
	}

	return count >= CorroborationThreshold
}

// matchActivity looks for platform or popular titles in the member's activities.
func matchActivity(snapshot *MemberSnapshot) *Result {
	for _, activity := range snapshot.Activities() {
		if !activityMatches(activity) {
			continue
		}

		return &Result{
			Gamertag:   snapshot.Username,
			Confidence: ConfidenceHigh,
			Type:       DetectionActivity,
			Evidence:   Evidence{Activity: activity.Name},
		}
	}

	return nil
}

func activityMatches(activity Activity) bool {
	name := utils.FoldText(activity.Name)

	for _, title := range PlatformTitles {
		if strings.Contains(name, title) {
			return true
		}
	}

	if activity.Kind != ActivityPlaying {
		return false
	}

	for _, title := range PopularTitles {
		if strings.Contains(name, title) {
			return true
		}
	}

	return false
}

// CompositeIndicators returns the descriptions of every composite indicator
// that holds for the snapshot.
func CompositeIndicators(snapshot *MemberSnapshot, now time.Time) []string {
	var indicators []string

	if age := snapshot.AccountAgeYears(now); age > VeteranAccountAgeYears {
		indicators = append(indicators, fmt.Sprintf("Old account (%d years)", int(math.Floor(age))))
	}

	if snapshot.AvatarAnimated {
		indicators = append(indicators, "Animated avatar")
	}

	if snapshot.BannerPresent {
		indicators = append(indicators, "Custom banner")
	}

	switch {
	case snapshot.Discriminator == "0":
		indicators = append(indicators, "Custom username")
	case hasLowDiscriminator(snapshot.Discriminator):
		indicators = append(indicators, "Low discriminator (early account)")
	}

	if len(snapshot.Badges) > 0 {
		indicators = append(indicators, fmt.Sprintf("Badges: %d", len(snapshot.Badges)))
	}

	return indicators
}

func hasOldDiscriminator(discriminator string) bool {
	if discriminator == "0" {
		return false
	}

	n, err := strconv.Atoi(discriminator)

	return err == nil && n < OldDiscriminatorCeiling
}

func hasLowDiscriminator(discriminator string) bool {
	n, err := strconv.Atoi(discriminator)
	return err == nil && n < LowDiscriminatorCeiling
}
