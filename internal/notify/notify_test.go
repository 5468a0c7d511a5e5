package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagscout/tagscout/internal/identity"
	"github.com/tagscout/tagscout/internal/notify"
	"github.com/tagscout/tagscout/internal/scan"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

var errDelivery = errors.New("webhook returned 500")

type fakeSender struct {
	mu       sync.Mutex
	err      error
	messages []discord.WebhookMessageCreate
}

func (f *fakeSender) CreateMessage(msg discord.WebhookMessageCreate, _ ...rest.RequestOpt) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages = append(f.messages, msg)
	if f.err != nil {
		return nil, f.err
	}

	return &discord.Message{}, nil
}

func newMatch() *scan.Match {
	foundAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshot := &identity.MemberSnapshot{
		ID:            snowflake.ID(80351110224678912),
		Username:      "gt_tag",
		CreatedAt:     time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
		AvatarHash:    "a_anim",
		BannerHash:    "banner",
		Presence:      &identity.Presence{Status: identity.StatusDND},
		Badges:        []identity.Badge{"PREMIUM_EARLY_SUPPORTER", "HOUSE_BALANCE"},
		Discriminator: "0",
	}

	return &scan.Match{
		Community: scan.Community{ID: 1, Name: "Halo Hangout", MemberCount: 12345},
		Snapshot:  snapshot,
		Result: &identity.Result{
			Gamertag:   "gt_tag",
			Confidence: identity.ConfidenceHigh,
			Type:       identity.DetectionKeyword,
			Evidence:   identity.Evidence{Keyword: "xbox"},
		},
		AccountAgeYears: 6.75,
		Counters:        scan.Counters{TotalScanned: 1234567, TotalFound: 42},
		FoundAt:         foundAt,
	}
}

func fieldValues(embed discord.Embed) map[string]string {
	values := make(map[string]string, len(embed.Fields))
	for _, field := range embed.Fields {
		values[field.Name] = field.Value
	}

	return values
}

func TestFormatterEmbed(t *testing.T) {
	t.Parallel()

	formatter := notify.NewFormatter(language.English)
	match := newMatch()

	msg := formatter.Message(match)
	assert.Contains(t, msg.Content, "gt_tag")
	require.Len(t, msg.Embeds, 1)

	embed := msg.Embeds[0]
	assert.Equal(t, notify.EmbedColor, embed.Color)
	require.NotNil(t, embed.Thumbnail)
	assert.Contains(t, embed.Thumbnail.URL, "/avatars/80351110224678912/a_anim.gif?size=1024")
	require.NotNil(t, embed.Image)
	assert.Contains(t, embed.Image.URL, "/banners/80351110224678912/banner.png")
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "ID: 80351110224678912 | tagscout", embed.Footer.Text)

	fields := fieldValues(embed)
	assert.Equal(t, "`gt_tag`", fields["🎮 Gamertag"])
	assert.Equal(t, "`Halo Hangout`", fields["🌐 Server"])
	assert.Equal(t, "`dnd`", fields["🔴 Status"])
	assert.Equal(t, "`2019-06-01` (`6 years`)", fields["📅 Account created"])
	assert.Equal(t, "`12,345`", fields["👥 Server members"])
	assert.Equal(t, "`keyword`\nConfidence: `HIGH`", fields["🔍 Detection"])
	assert.Equal(t, "`xbox`", fields["🔤 Keyword"])
	assert.Equal(t, "`Early Supporter, HOUSE_BALANCE`", fields["🏅 Badges"])
	assert.Equal(t, "Total scanned: `1,234,567`\nGamertags found: `42`", fields["📊 Scan statistics"])
	assert.NotContains(t, fields, "🎯 Activity")
}

func TestFormatterEmbedWithoutPresence(t *testing.T) {
	t.Parallel()

	match := newMatch()
	match.Snapshot.Presence = nil
	match.Snapshot.BannerHash = ""
	match.Snapshot.Badges = nil
	match.Result.Evidence = identity.Evidence{Activity: "Halo Infinite"}

	embed := notify.NewFormatter(language.English).Embed(match)
	fields := fieldValues(embed)

	assert.Equal(t, "`offline`", fields["⚫ Status"])
	assert.Equal(t, "`Halo Infinite`", fields["🎯 Activity"])
	assert.NotContains(t, fields, "🏅 Badges")
	assert.Nil(t, embed.Image)
}

func TestWebhookNotify(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	w := notify.New(sender, notify.Options{Timeout: time.Second}, zap.NewNop())

	require.NoError(t, w.Notify(t.Context(), newMatch()))
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].Content, "gt_tag")
}

func TestWebhookNotifyFailure(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{err: errDelivery}
	w := notify.New(sender, notify.Options{Timeout: time.Second, BreakerTimeout: time.Minute}, zap.NewNop())

	for range 10 {
		err := w.Notify(context.Background(), newMatch())
		require.ErrorIs(t, err, errDelivery)
	}

	// Ten straight failures trip the breaker, so the next call never reaches the sender
	err := w.Notify(context.Background(), newMatch())
	require.ErrorIs(t, err, notify.ErrBreakerOpen)
	assert.Len(t, sender.messages, 10)
}

func TestNewWebhookRequiresURL(t *testing.T) {
	t.Parallel()

	_, err := notify.NewWebhook("", notify.Options{}, zap.NewNop())
	require.ErrorIs(t, err, notify.ErrWebhookNotConfigured)
}
