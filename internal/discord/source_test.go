package discord_test

import (
	"testing"
	"time"

	arikawa "github.com/diamondburned/arikawa/v3/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagscout/tagscout/internal/discord"
	"github.com/tagscout/tagscout/internal/identity"
	"github.com/tagscout/tagscout/internal/scan"
	"go.uber.org/zap"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// pageFunc answers one member list read. chunk is the highest chunk requested
// so far on the channel, call counts reads on the channel starting at 1.
type pageFunc func(channelID arikawa.ChannelID, call, chunk int) (discord.MemberPage, error)

type fakeLists struct {
	clock    *fakeClock
	channels []arikawa.Channel
	page     pageFunc
	pollCost time.Duration
	calls    map[arikawa.ChannelID]int
	chunks   map[arikawa.ChannelID]int
}

func (f *fakeLists) TextChannels(arikawa.GuildID) ([]arikawa.Channel, error) {
	return f.channels, nil
}

func (f *fakeLists) RequestMemberList(_ arikawa.GuildID, channelID arikawa.ChannelID, chunk int) {
	f.chunks[channelID] = max(f.chunks[channelID], chunk)
}

func (f *fakeLists) MemberList(_ arikawa.GuildID, channelID arikawa.ChannelID) (discord.MemberPage, error) {
	f.calls[channelID]++
	f.clock.Advance(f.pollCost)

	return f.page(channelID, f.calls[channelID], f.chunks[channelID])
}

func listMember(id int) scan.Member {
	return scan.Member{
		Snapshot: &identity.MemberSnapshot{ID: snowflake.ID(id), Username: "member"},
	}
}

func memberPage(from, to, maxChunk, total int) discord.MemberPage {
	page := discord.MemberPage{MaxChunk: maxChunk, TotalVisible: total}
	for id := from; id <= to; id++ {
		page.Members = append(page.Members, listMember(id))
	}

	return page
}

func memberIDs(from, to int) []snowflake.ID {
	ids := make([]snowflake.ID, 0, to-from+1)
	for id := from; id <= to; id++ {
		ids = append(ids, snowflake.ID(id))
	}

	return ids
}

func TestSourceMembers(t *testing.T) {
	t.Parallel()

	channels := []arikawa.Channel{
		{ID: 1, Name: "general"},
		{ID: 2, Name: "memes", LastMessageID: 50},
	}

	tests := []struct {
		name         string
		channels     []arikawa.Channel
		page         pageFunc
		pollCost     time.Duration
		consumerCost time.Duration
		limit        int
		want         []snowflake.ID
		wantErr      error
	}{
		{
			name:     "slow consumer reads the whole list",
			channels: channels,
			page: func(_ arikawa.ChannelID, _, chunk int) (discord.MemberPage, error) {
				if chunk == 0 {
					return memberPage(1, 100, 0, 250), nil
				}

				return memberPage(1, min(100*(chunk+1), 250), chunk, 250), nil
			},
			consumerCost: 2 * time.Second,
			want:         memberIDs(1, 250),
		},
		{
			name:     "falls back to another channel without repeating members",
			channels: channels,
			page: func(channelID arikawa.ChannelID, call, _ int) (discord.MemberPage, error) {
				if channelID == 1 && call == 1 {
					return memberPage(1, 2, 0, 3), nil
				}

				if channelID == 1 {
					return discord.MemberPage{}, discord.ErrListNotLoaded
				}

				return memberPage(1, 3, 0, 3), nil
			},
			want: memberIDs(1, 3),
		},
		{
			name:     "times out when nothing arrives",
			channels: channels,
			page: func(arikawa.ChannelID, int, int) (discord.MemberPage, error) {
				return discord.MemberPage{MaxChunk: 0, TotalVisible: 10}, nil
			},
			pollCost: 30 * time.Second,
			wantErr:  discord.ErrMemberListTimeout,
		},
		{
			name:     "keeps partial list after waiting for the rest",
			channels: channels,
			page: func(arikawa.ChannelID, int, int) (discord.MemberPage, error) {
				return memberPage(1, 2, 0, 10), nil
			},
			pollCost: 50 * time.Second,
			want:     memberIDs(1, 2),
		},
		{
			name:     "stops after polls without progress",
			channels: channels,
			page: func(arikawa.ChannelID, int, int) (discord.MemberPage, error) {
				return memberPage(1, 4, 0, 10), nil
			},
			want: memberIDs(1, 4),
		},
		{
			name:     "consumer stops early",
			channels: channels,
			page: func(arikawa.ChannelID, int, int) (discord.MemberPage, error) {
				return memberPage(1, 5, 0, 5), nil
			},
			limit: 2,
			want:  memberIDs(1, 2),
		},
		{
			name:    "no text channel",
			page:    func(arikawa.ChannelID, int, int) (discord.MemberPage, error) { return discord.MemberPage{}, nil },
			wantErr: discord.ErrNoTextChannel,
		},
		{
			name:     "list never loads",
			channels: channels,
			page: func(arikawa.ChannelID, int, int) (discord.MemberPage, error) {
				return discord.MemberPage{}, discord.ErrListNotLoaded
			},
			wantErr: discord.ErrMemberListUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clock := &fakeClock{now: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
			lists := &fakeLists{
				clock:    clock,
				channels: tt.channels,
				page:     tt.page,
				pollCost: tt.pollCost,
				calls:    make(map[arikawa.ChannelID]int),
				chunks:   make(map[arikawa.ChannelID]int),
			}

			source := discord.NewListSource(lists, discord.Options{
				MemberListTimeout: time.Minute,
				PollInterval:      time.Millisecond,
				Now:               clock.Now,
			}, zap.NewNop())

			var (
				got    []snowflake.ID
				gotErr error
			)

			for m, err := range source.Members(t.Context(), scan.Community{ID: 42, Name: "Forza Hub"}) {
				if err != nil {
					gotErr = err
					break
				}

				got = append(got, m.Snapshot.ID)
				clock.Advance(tt.consumerCost)

				if tt.limit > 0 && len(got) >= tt.limit {
					break
				}
			}

			if tt.wantErr != nil {
				require.ErrorIs(t, gotErr, tt.wantErr)
				return
			}

			require.NoError(t, gotErr)
			assert.Equal(t, tt.want, got)
		})
	}
}
