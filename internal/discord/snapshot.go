package discord

import (
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/tagscout/tagscout/internal/discord/cdn"
	"github.com/tagscout/tagscout/internal/identity"
	"github.com/tagscout/tagscout/internal/scan"
)

// activityKind maps a gateway activity type. Unknown types count as playing,
// the gateway default.
func activityKind(t discord.ActivityType) identity.ActivityKind {
	switch t {
	case discord.GameActivity:
		return identity.ActivityPlaying
	case discord.StreamingActivity:
		return identity.ActivityStreaming
	case discord.ListeningActivity:
		return identity.ActivityListening
	case discord.WatchingActivity:
		return identity.ActivityWatching
	case discord.CustomActivity:
		return identity.ActivityCustom
	case discord.CompetingActivity:
		return identity.ActivityCompeting
	default:
		return identity.ActivityPlaying
	}
}

// PresenceFrom converts a gateway presence. An empty presence yields nil.
func PresenceFrom(p *discord.Presence) *identity.Presence {
	if p == nil || (p.Status == "" && len(p.Activities) == 0) {
		return nil
	}

	activities := make([]identity.Activity, 0, len(p.Activities))
	for _, activity := range p.Activities {
		activities = append(activities, identity.Activity{
			Name: activity.Name,
			Kind: activityKind(activity.Type),
		})
	}

	return &identity.Presence{
		Status:     identity.ParsePresenceStatus(string(p.Status)),
		Activities: activities,
	}
}

// SnapshotFromUser builds the base snapshot of a user. Banner and badges are
// only set when the user object carries them.
func SnapshotFromUser(user *discord.User, presence *discord.Presence) *identity.MemberSnapshot {
	id := snowflake.ID(user.ID)
	avatar := string(user.Avatar)
	banner := string(user.Banner)

	return &identity.MemberSnapshot{
		ID:             id,
		Username:       user.Username,
		DisplayName:    user.DisplayName,
		CreatedAt:      id.Time(),
		AvatarHash:     avatar,
		AvatarAnimated: cdn.IsAnimated(avatar),
		BannerHash:     banner,
		BannerPresent:  banner != "",
		Discriminator:  user.Discriminator,
		Presence:       PresenceFrom(presence),
		Badges:         identity.BadgesFromFlags(uint64(user.PublicFlags)),
	}
}

// MemberFromItem converts one member list entry. Group headers and empty
// entries report false.
func MemberFromItem(item gateway.GuildMemberListOpItem) (scan.Member, bool) {
	if item.Member == nil || item.Member.User.ID == 0 {
		return scan.Member{}, false
	}

	user := &item.Member.User
	snapshot := SnapshotFromUser(user, &item.Member.Presence)

	// The guild nickname is the name shown in the community.
	if item.Member.Nick != "" {
		snapshot.DisplayName = item.Member.Nick
	}

	return scan.Member{
		Snapshot:  snapshot,
		Bot:       user.Bot,
		AvatarURL: cdn.AvatarURL(snapshot.ID, snapshot.AvatarHash, snapshot.Discriminator, cdn.DashboardSize),
	}, true
}

// ApplyProfile returns a copy of snapshot with the fetched profile merged in.
// Presence and an existing display name are kept from the original snapshot.
func ApplyProfile(snapshot *identity.MemberSnapshot, user *discord.User) *identity.MemberSnapshot {
	enriched := *snapshot

	if user.Avatar != "" {
		enriched.AvatarHash = string(user.Avatar)
		enriched.AvatarAnimated = cdn.IsAnimated(enriched.AvatarHash)
	}

	if enriched.DisplayName == "" {
		enriched.DisplayName = user.DisplayName
	}

	enriched.BannerHash = string(user.Banner)
	enriched.BannerPresent = user.Banner != ""
	enriched.Badges = identity.BadgesFromFlags(uint64(user.PublicFlags))
	enriched.Enriched = true

	return &enriched
}
