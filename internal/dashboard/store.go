// Package dashboard serves the live scanner dashboard and its HTTP API.
package dashboard

import (
	"slices"
	"sync"

	"github.com/tagscout/tagscout/internal/scan"
)

// Snapshot is the full dashboard state pushed to observers.
type Snapshot struct {
	IsScanning    bool               `json:"isScanning"`
	TotalScanned  int64              `json:"totalScanned"`
	TotalFound    int64              `json:"totalFound"`
	Servers       []scan.ServerInfo  `json:"servers"`
	XboxUsers     []scan.MatchRecord `json:"xboxUsers"`
	CurrentServer *string            `json:"currentServer"`
}

func (s Snapshot) clone() Snapshot {
	s.Servers = slices.Clone(s.Servers)
	s.XboxUsers = slices.Clone(s.XboxUsers)

	if s.CurrentServer != nil {
		name := *s.CurrentServer
		s.CurrentServer = &name
	}

	return s
}

// Store holds the dashboard state and implements scan.Reporter. Every
// mutation is published to the subscriber in the order it was applied.
type Store struct {
	mu      sync.RWMutex
	state   Snapshot
	publish func(Snapshot)
}

var _ scan.Reporter = (*Store)(nil)

// NewStore creates an empty idle store.
func NewStore() *Store {
	return &Store{
		state: Snapshot{
			Servers:   []scan.ServerInfo{},
			XboxUsers: []scan.MatchRecord{},
		},
	}
}

// Subscribe sets the function receiving every new snapshot. It runs while
// the store is locked and must not block.
func (s *Store) Subscribe(publish func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.publish = publish
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.clone()
}

// View calls fn with the current state while no mutation can be published.
func (s *Store) View(fn func(Snapshot)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fn(s.state.clone())
}

// Report applies a scan event.
func (s *Store) Report(event scan.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := event.(type) {
	case scan.ServersSet:
		s.state.Servers = slices.Clone(e.Servers)
		if s.state.Servers == nil {
			s.state.Servers = []scan.ServerInfo{}
		}
	case scan.ScanningChanged:
		s.state.IsScanning = e.Scanning
		s.state.TotalScanned = e.Counters.TotalScanned
		s.state.TotalFound = e.Counters.TotalFound
	case scan.CurrentServerChanged:
		if e.Name == "" {
			s.state.CurrentServer = nil
		} else {
			name := e.Name
			s.state.CurrentServer = &name
		}
	case scan.ProgressUpdated:
		s.state.TotalScanned = e.TotalScanned
	case scan.MatchFound:
		s.state.XboxUsers = slices.Insert(s.state.XboxUsers, 0, e.Record)
		s.state.TotalScanned = e.Counters.TotalScanned
		s.state.TotalFound = e.Counters.TotalFound
	default:
		return
	}

	if s.publish != nil {
		s.publish(s.state.clone())
	}
}
