package notify

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/tagscout/tagscout/internal/discord/cdn"
	"github.com/tagscout/tagscout/internal/identity"
	"github.com/tagscout/tagscout/internal/scan"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// EmbedColor is the accent color of match notifications.
const EmbedColor = 0x107C10

// dateLayout formats the account creation date.
const dateLayout = "2006-01-02"

var statusEmoji = map[identity.PresenceStatus]string{
	identity.StatusOnline:  "🟢",
	identity.StatusIdle:    "🟡",
	identity.StatusDND:     "🔴",
	identity.StatusOffline: "⚫",
}

// Formatter renders matches into webhook messages.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter creates a formatter printing numbers for the given locale.
func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Headline returns the message content announcing a match.
func (f *Formatter) Headline(match *scan.Match) string {
	return fmt.Sprintf("🎮 **Xbox account found: `%s`** 🎮", match.Result.Gamertag)
}

// Message builds the full webhook message for a match.
func (f *Formatter) Message(match *scan.Match) discord.WebhookMessageCreate {
	return discord.WebhookMessageCreate{
		Content: f.Headline(match),
		Embeds:  []discord.Embed{f.Embed(match)},
	}
}

// Embed builds the notification embed for a match.
func (f *Formatter) Embed(match *scan.Match) discord.Embed {
	snapshot := match.Snapshot
	result := match.Result

	status := snapshot.Status()
	if status == identity.StatusUnknown {
		status = identity.StatusOffline
	}

	created := "unknown"
	if at := snapshot.AccountCreated(); !at.IsZero() {
		created = at.UTC().Format(dateLayout)
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("🎮 Xbox account detected 🎮").
		SetDescription("**Member with a likely Xbox gamertag**").
		SetColor(EmbedColor).
		AddField("👤 Username", code(snapshot.Username), true).
		AddField("🎮 Gamertag", code(result.Gamertag), true).
		AddField("🌐 Server", code(match.Community.Name), true).
		AddField(statusEmoji[status]+" Status", code(status.String()), true).
		AddField("📅 Account created",
			fmt.Sprintf("%s (%s)", code(created), code(f.printer.Sprintf("%d years", int(match.AccountAgeYears)))), true).
		AddField("👥 Server members", code(f.printer.Sprintf("%d", match.Community.MemberCount)), true).
		AddField("🔍 Detection",
			fmt.Sprintf("%s\nConfidence: %s", code(result.Type.String()), code(result.Confidence.String())), true).
		SetThumbnail(cdn.AvatarURL(snapshot.ID, snapshot.AvatarHash, snapshot.Discriminator, cdn.EmbedSize)).
		SetTimestamp(match.FoundAt).
		SetFooterText(fmt.Sprintf("ID: %s | tagscout", snapshot.ID))

	if banner := cdn.BannerURL(snapshot.ID, snapshot.BannerHash, cdn.EmbedSize); banner != "" {
		embed.SetImage(banner)
	}

	if result.Evidence.Keyword != "" {
		embed.AddField("🔤 Keyword", code(result.Evidence.Keyword), true)
	}

	if result.Evidence.Activity != "" {
		embed.AddField("🎯 Activity", code(result.Evidence.Activity), true)
	}

	if len(snapshot.Badges) > 0 {
		labels := make([]string, 0, len(snapshot.Badges))
		for _, badge := range snapshot.Badges {
			labels = append(labels, badge.Label())
		}

		embed.AddField("🏅 Badges", code(strings.Join(labels, ", ")), false)
	}

	embed.AddField("📊 Scan statistics", f.printer.Sprintf(
		"Total scanned: `%d`\nGamertags found: `%d`",
		match.Counters.TotalScanned, match.Counters.TotalFound), false)

	return embed.Build()
}

func code(s string) string {
	if s == "" {
		return "`-`"
	}

	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}
