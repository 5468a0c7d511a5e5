package discord

import (
	"errors"
	"strings"

	"github.com/diamondburned/arikawa/v3/discord"
)

var (
	// ErrNoTextChannel indicates that a guild has no visible text channel.
	ErrNoTextChannel = errors.New("no text channel found in guild")
	// ErrAllChannelsAttempted indicates that every text channel was already tried.
	ErrAllChannelsAttempted = errors.New("all available channels have been attempted")
)

// priorityChannelNames typically expose the full member list.
var priorityChannelNames = map[string]struct{}{
	"general":       {},
	"main":          {},
	"announcements": {},
	"welcome":       {},
	"lobby":         {},
	"chat":          {},
	"lounge":        {},
	"hangout":       {},
	"discussion":    {},
	"community":     {},
}

// PickTextChannel selects the channel to subscribe a member list on. Well
// known channel names win, then the most recently active channel.
func PickTextChannel(channels []discord.Channel, attempted map[discord.ChannelID]struct{}) (discord.ChannelID, error) {
	if len(channels) == 0 {
		return 0, ErrNoTextChannel
	}

	var (
		mostActive discord.ChannelID
		lastMsg    discord.MessageID
	)

	for _, channel := range channels {
		if _, done := attempted[channel.ID]; done {
			continue
		}

		if _, ok := priorityChannelNames[strings.ToLower(channel.Name)]; ok {
			return channel.ID, nil
		}

		if mostActive == 0 || channel.LastMessageID > lastMsg {
			mostActive = channel.ID
			lastMsg = channel.LastMessageID
		}
	}

	if mostActive == 0 {
		return 0, ErrAllChannelsAttempted
	}

	return mostActive, nil
}
