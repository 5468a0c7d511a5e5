package discord_test

import (
	"fmt"
	"testing"

	"github.com/bytedance/sonic"
	arikawa "github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagscout/tagscout/internal/discord"
	"github.com/tagscout/tagscout/internal/identity"
)

const memberItemJSON = `{
	"member": {
		"user": {
			"id": "80351110224678912",
			"username": "gt_tag",
			"global_name": "Tag",
			"discriminator": "0",
			"avatar": "a_1269e74af4df7417b13759eae50c83dc",
			"public_flags": 512
		},
		"roles": [],
		"joined_at": "2020-01-01T00:00:00+00:00",
		"deaf": false,
		"mute": false,
		"presence": {
			"user": {"id": "80351110224678912"},
			"status": "dnd",
			"activities": [
				{"name": "Halo Infinite", "type": 0},
				{"name": "Custom Status", "type": 4}
			]
		}
	}
}`

func decodeItem(t *testing.T, raw string) gateway.GuildMemberListOpItem {
	t.Helper()

	var item gateway.GuildMemberListOpItem
	require.NoError(t, sonic.UnmarshalString(raw, &item))

	return item
}

func TestMemberFromItem(t *testing.T) {
	t.Parallel()

	m, ok := discord.MemberFromItem(decodeItem(t, memberItemJSON))
	require.True(t, ok)

	snapshot := m.Snapshot
	assert.Equal(t, snowflake.ID(80351110224678912), snapshot.ID)
	assert.Equal(t, "gt_tag", snapshot.Username)
	assert.Equal(t, "Tag", snapshot.DisplayName)
	assert.True(t, snapshot.AvatarAnimated)
	assert.False(t, snapshot.BannerPresent)
	assert.Equal(t, snapshot.ID.Time(), snapshot.CreatedAt)
	assert.Equal(t, []identity.Badge{"PREMIUM_EARLY_SUPPORTER"}, snapshot.Badges)
	assert.Equal(t, identity.StatusDND, snapshot.Status())
	assert.Equal(t, []identity.Activity{
		{Name: "Halo Infinite", Kind: identity.ActivityPlaying},
		{Name: "Custom Status", Kind: identity.ActivityCustom},
	}, snapshot.Activities())
	assert.False(t, m.Bot)
	assert.Contains(t, m.AvatarURL, ".gif?size=256")
	assert.False(t, snapshot.Enriched)
}

func TestMemberFromItemSkipsGroups(t *testing.T) {
	t.Parallel()

	_, ok := discord.MemberFromItem(decodeItem(t, `{"group": {"id": "online", "count": 12}}`))
	assert.False(t, ok)
}

func TestPresenceFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		presence *arikawa.Presence
		want     *identity.Presence
	}{
		{name: "nil", presence: nil, want: nil},
		{name: "empty", presence: &arikawa.Presence{}, want: nil},
		{
			name:     "status only",
			presence: &arikawa.Presence{Status: arikawa.IdleStatus},
			want:     &identity.Presence{Status: identity.StatusIdle, Activities: []identity.Activity{}},
		},
		{
			name: "watching",
			presence: &arikawa.Presence{
				Status:     arikawa.OnlineStatus,
				Activities: []arikawa.Activity{{Name: "Xbox Game Pass", Type: arikawa.WatchingActivity}},
			},
			want: &identity.Presence{
				Status:     identity.StatusOnline,
				Activities: []identity.Activity{{Name: "Xbox Game Pass", Kind: identity.ActivityWatching}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, discord.PresenceFrom(tt.presence))
		})
	}
}

func TestApplyProfile(t *testing.T) {
	t.Parallel()

	base := &identity.MemberSnapshot{
		ID:         80351110224678912,
		Username:   "gt_tag",
		AvatarHash: "static",
		Presence:   &identity.Presence{Status: identity.StatusOnline},
	}

	enriched := discord.ApplyProfile(base, &arikawa.User{
		Username:    "gt_tag",
		Avatar:      "a_animated",
		Banner:      "bannerhash",
		PublicFlags: 1 << 9,
	})

	assert.True(t, enriched.Enriched)
	assert.True(t, enriched.BannerPresent)
	assert.True(t, enriched.AvatarAnimated)
	assert.Equal(t, []identity.Badge{"PREMIUM_EARLY_SUPPORTER"}, enriched.Badges)
	assert.Same(t, base.Presence, enriched.Presence)

	// The input snapshot is left untouched
	assert.False(t, base.Enriched)
	assert.Equal(t, "static", base.AvatarHash)
}

func TestMemberFromItemDisplayName(t *testing.T) {
	t.Parallel()

	const itemFormat = `{"member": {
		"user": {"id": "80351110224678912", "username": "bob", "global_name": %q, "discriminator": "0"},
		"nick": %q,
		"roles": [],
		"joined_at": "2020-01-01T00:00:00+00:00",
		"deaf": false,
		"mute": false,
		"presence": {"user": {"id": "80351110224678912"}, "status": "online", "activities": []}
	}}`

	tests := []struct {
		name       string
		globalName string
		nick       string
		want       string
	}{
		{name: "nickname wins over global name", globalName: "Bobby", nick: "GT: Shadow99", want: "GT: Shadow99"},
		{name: "global name without nickname", globalName: "Bobby", want: "Bobby"},
		{name: "neither set", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, ok := discord.MemberFromItem(decodeItem(t, fmt.Sprintf(itemFormat, tt.globalName, tt.nick)))
			require.True(t, ok)
			assert.Equal(t, tt.want, m.Snapshot.DisplayName)
		})
	}
}

func TestNicknameIsClassified(t *testing.T) {
	t.Parallel()

	item := decodeItem(t, `{"member": {
		"user": {"id": "80351110224678912", "username": "bob", "discriminator": "0"},
		"nick": "GT: Shadow99",
		"roles": [],
		"joined_at": "2020-01-01T00:00:00+00:00",
		"deaf": false,
		"mute": false,
		"presence": {"user": {"id": "80351110224678912"}, "status": "offline", "activities": []}
	}}`)

	m, ok := discord.MemberFromItem(item)
	require.True(t, ok)
	assert.Equal(t, []string{"bob", "GT: Shadow99"}, m.Snapshot.NameVariants())

	// Enrichment keeps the nickname rather than the account-wide name.
	enriched := discord.ApplyProfile(m.Snapshot, &arikawa.User{Username: "bob", DisplayName: "Robert"})
	assert.Equal(t, "GT: Shadow99", enriched.DisplayName)

	result := identity.NewClassifier().Classify(enriched)
	require.NotNil(t, result)
	assert.Equal(t, "Shadow99", result.Gamertag)
	assert.Equal(t, identity.DetectionFormattedTag, result.Type)
	assert.True(t, result.IsHigh())
}
