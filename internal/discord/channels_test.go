package discord_test

import (
	"testing"

	arikawa "github.com/diamondburned/arikawa/v3/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagscout/tagscout/internal/discord"
)

func TestPickTextChannel(t *testing.T) {
	t.Parallel()

	channels := []arikawa.Channel{
		{ID: 1, Name: "rules", LastMessageID: 10},
		{ID: 2, Name: "memes", LastMessageID: 500},
		{ID: 3, Name: "General", LastMessageID: 20},
		{ID: 4, Name: "clips", LastMessageID: 300},
	}

	tests := []struct {
		name      string
		channels  []arikawa.Channel
		attempted map[arikawa.ChannelID]struct{}
		want      arikawa.ChannelID
		wantErr   error
	}{
		{name: "priority name wins", channels: channels, want: 3},
		{name: "most active after priority", channels: channels, attempted: map[arikawa.ChannelID]struct{}{3: {}}, want: 2},
		{name: "skips attempted", channels: channels, attempted: map[arikawa.ChannelID]struct{}{2: {}, 3: {}}, want: 4},
		{
			name:      "all attempted",
			channels:  channels,
			attempted: map[arikawa.ChannelID]struct{}{1: {}, 2: {}, 3: {}, 4: {}},
			wantErr:   discord.ErrAllChannelsAttempted,
		},
		{name: "no channels", wantErr: discord.ErrNoTextChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := discord.PickTextChannel(tt.channels, tt.attempted)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
