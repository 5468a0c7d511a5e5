package discord

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/state"
	"github.com/diamondburned/ningen/v3"
	"github.com/diamondburned/ningen/v3/states/member"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sony/gobreaker"
	"github.com/tagscout/tagscout/internal/discord/rate"
	"github.com/tagscout/tagscout/internal/identity"
	"github.com/tagscout/tagscout/internal/scan"
	"github.com/tagscout/tagscout/pkg/utils"
	"go.uber.org/zap"
)

const (
	maxChannelAttempts = 8
	maxListNotFound    = 5
	maxNoProgress      = 3
	// Lists at or below this size arrive complete in the first chunk.
	firstChunkSize = 100
)

var (
	// ErrMemberListTimeout indicates that no member arrived before the list timeout.
	ErrMemberListTimeout = errors.New("timed out waiting for member list")
	// ErrMemberListUnavailable indicates that no channel produced a member list.
	ErrMemberListUnavailable = errors.New("member list unavailable")
	// ErrBreakerOpen indicates that profile fetches are paused by the circuit breaker.
	ErrBreakerOpen = errors.New("profile circuit breaker open")
	// ErrEmptyProfile indicates that a profile fetch returned no user.
	ErrEmptyProfile = errors.New("empty profile response")

	errListNotFound = errors.New("member list not found after multiple attempts")
	errStopped      = errors.New("enumeration stopped by consumer")
)

// Options configures a Source.
type Options struct {
	// MemberListTimeout bounds the wait for one channel's member list.
	MemberListTimeout time.Duration
	// PollInterval is the delay between member list reads.
	PollInterval time.Duration
	// EnrichInterval and EnrichJitter space out profile fetches.
	EnrichInterval time.Duration
	EnrichJitter   time.Duration
	// Breaker settings for profile fetches.
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
	// Now overrides the clock used for member list deadlines.
	Now func() time.Time
}

// MemberPage is a copy of one lazy member list as currently loaded.
type MemberPage struct {
	Members      []scan.Member
	MaxChunk     int
	TotalVisible int
}

// MemberLists requests and reads lazy guild member lists.
type MemberLists interface {
	TextChannels(guildID discord.GuildID) ([]discord.Channel, error)
	RequestMemberList(guildID discord.GuildID, channelID discord.ChannelID, chunk int)
	// MemberList returns ErrListNotLoaded until the gateway sent the list.
	MemberList(guildID discord.GuildID, channelID discord.ChannelID) (MemberPage, error)
}

// ErrListNotLoaded indicates that a requested member list has not arrived yet.
var ErrListNotLoaded = errors.New("member list not loaded")

// ningenLists reads member lists from a ningen member state.
type ningenLists struct {
	state *ningen.State
}

func (l ningenLists) TextChannels(guildID discord.GuildID) ([]discord.Channel, error) {
	return l.state.Channels(guildID, []discord.ChannelType{discord.GuildText})
}

func (l ningenLists) RequestMemberList(guildID discord.GuildID, channelID discord.ChannelID, chunk int) {
	l.state.MemberState.RequestMemberList(guildID, channelID, chunk)
}

func (l ningenLists) MemberList(guildID discord.GuildID, channelID discord.ChannelID) (MemberPage, error) {
	list, err := l.state.MemberState.GetMemberList(guildID, channelID)
	if err != nil {
		if errors.Is(err, member.ErrListNotFound) {
			return MemberPage{}, ErrListNotLoaded
		}

		return MemberPage{}, err
	}

	page := MemberPage{
		MaxChunk:     list.MaxChunk(),
		TotalVisible: list.TotalVisible(),
	}

	list.ViewItems(func(items []gateway.GuildMemberListOpItem) {
		for i := range items {
			if m, ok := MemberFromItem(items[i]); ok {
				page.Members = append(page.Members, m)
			}
		}
	})

	return page, nil
}

// Source implements scan.MemberSource over a user session, enumerating
// members through lazy guild member lists.
type Source struct {
	state   *ningen.State
	lists   MemberLists
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	options Options
	logger  *zap.Logger
	now     func() time.Time

	mu           sync.RWMutex
	memberCounts map[discord.GuildID]int

	ready     chan struct{}
	readyOnce sync.Once
}

var _ scan.MemberSource = (*Source)(nil)

// NewSource wraps s with member list tracking and registers its gateway handlers.
func NewSource(s *state.State, options Options, logger *zap.Logger) *Source {
	n := ningen.FromState(s)

	source := NewListSource(ningenLists{state: n}, options, logger)
	source.state = n

	n.MemberState.OnError = func(err error) {
		source.logger.Warn("Member state error", zap.Error(err))
	}

	n.AddHandler(source.handleReady)
	n.AddHandler(source.handleGuildCreate)

	return source
}

// NewListSource creates a source enumerating members from lists. Only Members
// is usable without a session.
func NewListSource(lists MemberLists, options Options, logger *zap.Logger) *Source {
	sourceLogger := logger.Named("discord_source")

	if options.PollInterval <= 0 {
		options.PollInterval = time.Second
	}

	if options.MemberListTimeout <= 0 {
		options.MemberListTimeout = time.Minute
	}

	if options.Now == nil {
		options.Now = time.Now
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "discord_profile",
		MaxRequests: options.BreakerMaxRequests,
		Interval:    options.BreakerInterval,
		Timeout:     options.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			sourceLogger.Warn("Profile circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Source{
		lists:        lists,
		breaker:      breaker,
		limiter:      rate.New(options.EnrichInterval, options.EnrichJitter),
		options:      options,
		logger:       sourceLogger,
		now:          options.Now,
		memberCounts: make(map[discord.GuildID]int),
		ready:        make(chan struct{}),
	}
}

// Open connects the gateway.
func (s *Source) Open(ctx context.Context) error {
	if err := s.state.Open(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	return nil
}

// Close disconnects the gateway.
func (s *Source) Close() error {
	return s.state.Close()
}

// WaitReady blocks until the session received its ready event.
func (s *Source) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Source) handleReady(ev *gateway.ReadyEvent) {
	s.mu.Lock()
	for i := range ev.Guilds {
		s.memberCounts[ev.Guilds[i].ID] = int(ev.Guilds[i].MemberCount)
	}
	s.mu.Unlock()

	s.logger.Info("Session ready",
		zap.String("username", ev.User.Username),
		zap.Int("guilds", len(ev.Guilds)))

	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Source) handleGuildCreate(ev *gateway.GuildCreateEvent) {
	if ev.MemberCount == 0 {
		return
	}

	s.mu.Lock()
	s.memberCounts[ev.ID] = int(ev.MemberCount)
	s.mu.Unlock()
}

// Communities returns the joined guilds ordered by ID.
func (s *Source) Communities(_ context.Context) ([]scan.Community, error) {
	guilds, err := s.state.Guilds()
	if err != nil {
		return nil, fmt.Errorf("failed to get guilds: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	communities := make([]scan.Community, 0, len(guilds))
	for i := range guilds {
		count, ok := s.memberCounts[guilds[i].ID]
		if !ok {
			count = int(guilds[i].ApproximateMembers)
		}

		communities = append(communities, scan.Community{
			ID:          snowflake.ID(guilds[i].ID),
			Name:        guilds[i].Name,
			MemberCount: count,
		})
	}

	slices.SortFunc(communities, func(a, b scan.Community) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return communities, nil
}

// Members enumerates the member list of a community. Channels are tried in
// turn until one produces a list.
func (s *Source) Members(ctx context.Context, community scan.Community) iter.Seq2[scan.Member, error] {
	return func(yield func(scan.Member, error) bool) {
		guildID := discord.GuildID(community.ID)
		attempted := make(map[discord.ChannelID]struct{})
		seen := make(map[discord.UserID]struct{})

		for attempt := range maxChannelAttempts {
			channels, err := s.lists.TextChannels(guildID)
			if err != nil {
				yield(scan.Member{}, fmt.Errorf("failed to get guild channels: %w", err))
				return
			}

			channelID, err := PickTextChannel(channels, attempted)
			if err != nil {
				if attempt > 0 {
					err = fmt.Errorf("%w: %w", ErrMemberListUnavailable, err)
				}

				yield(scan.Member{}, err)

				return
			}

			attempted[channelID] = struct{}{}

			s.logger.Debug("Requesting member list",
				zap.String("guild", community.Name),
				zap.String("channelID", channelID.String()),
				zap.Int("attempt", attempt+1))

			err = s.crawl(ctx, guildID, channelID, seen, yield)
			switch {
			case err == nil, errors.Is(err, errStopped):
				return
			case errors.Is(err, errListNotFound):
				s.logger.Info("Retrying member list with different channel",
					zap.String("guild", community.Name),
					zap.String("previousChannel", channelID.String()),
					zap.Int("membersSoFar", len(seen)))
			default:
				yield(scan.Member{}, err)
				return
			}
		}

		yield(scan.Member{}, fmt.Errorf("%w after %d channel attempts", ErrMemberListUnavailable, maxChannelAttempts))
	}
}

// crawl polls one channel's member list, yielding unseen members as chunks
// arrive, and requests further chunks until the visible list is exhausted.
// The list timeout only counts time spent waiting for list data: the deadline
// restarts after each batch handed to the consumer.
func (s *Source) crawl(
	ctx context.Context,
	guildID discord.GuildID,
	channelID discord.ChannelID,
	seen map[discord.UserID]struct{},
	yield func(scan.Member, error) bool,
) error {
	s.lists.RequestMemberList(guildID, channelID, 0)

	deadline := s.now().Add(s.options.MemberListTimeout)
	seenBefore := len(seen)
	lastMaxChunk := -1
	noProgress := 0
	notFound := 0

	for {
		if utils.ContextSleep(ctx, s.options.PollInterval) == utils.SleepCancelled {
			return ctx.Err()
		}

		if s.now().After(deadline) {
			if len(seen) > seenBefore {
				s.logger.Warn("Member list timed out, keeping partial list",
					zap.String("guildID", guildID.String()),
					zap.Int("members", len(seen)-seenBefore))

				return nil
			}

			return ErrMemberListTimeout
		}

		page, err := s.lists.MemberList(guildID, channelID)
		if err != nil {
			if !errors.Is(err, ErrListNotLoaded) {
				return fmt.Errorf("failed to get member list: %w", err)
			}

			notFound++
			if notFound >= maxListNotFound {
				return errListNotFound
			}

			s.lists.RequestMemberList(guildID, channelID, 0)

			continue
		}

		notFound = 0

		fresh := unseenMembers(page.Members, seen)
		for _, m := range fresh {
			if !yield(m, nil) {
				return errStopped
			}
		}

		if len(fresh) > 0 {
			deadline = s.now().Add(s.options.MemberListTimeout)
		}

		if len(fresh) == 0 && page.MaxChunk == lastMaxChunk {
			noProgress++
		} else {
			noProgress = 0
			lastMaxChunk = page.MaxChunk
		}

		if page.TotalVisible > 0 && len(seen) >= page.TotalVisible {
			return nil
		}

		if noProgress >= maxNoProgress {
			s.logger.Debug("No new members for several polls, considering list complete",
				zap.String("guildID", guildID.String()),
				zap.Int("totalVisible", page.TotalVisible),
				zap.Int("seen", len(seen)))

			return nil
		}

		if page.MaxChunk >= 0 && page.TotalVisible > firstChunkSize && page.TotalVisible > len(seen) {
			s.lists.RequestMemberList(guildID, channelID, page.MaxChunk+1)
		}
	}
}

// unseenMembers marks and returns the members not seen before, in list order.
func unseenMembers(members []scan.Member, seen map[discord.UserID]struct{}) []scan.Member {
	var fresh []scan.Member

	for _, m := range members {
		userID := discord.UserID(m.Snapshot.ID)
		if _, done := seen[userID]; done {
			continue
		}

		seen[userID] = struct{}{}
		fresh = append(fresh, m)
	}

	return fresh
}

// Enrich fetches the full user object for banner and badge data. Fetches are
// rate limited and pass through a circuit breaker.
func (s *Source) Enrich(ctx context.Context, snapshot *identity.MemberSnapshot) (*identity.MemberSnapshot, error) {
	if err := s.limiter.WaitForNextSlot(ctx); err != nil {
		return nil, err
	}

	result, err := s.breaker.Execute(func() (any, error) {
		return s.state.Client.WithContext(ctx).User(discord.UserID(snapshot.ID))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrBreakerOpen, err)
		}

		return nil, fmt.Errorf("failed to fetch user %s: %w", snapshot.ID, err)
	}

	user, ok := result.(*discord.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", snapshot.ID, ErrEmptyProfile)
	}

	return ApplyProfile(snapshot, user), nil
}
