package scan

// Event is a state change emitted by the orchestrator.
type Event interface {
	isEvent()
}

// ServersSet replaces the known community list.
type ServersSet struct {
	Servers []ServerInfo
}

// ScanningChanged reports a phase transition along with the counters at that moment.
type ScanningChanged struct {
	Scanning bool
	Counters Counters
}

// CurrentServerChanged reports the community being scanned. An empty name means none.
type CurrentServerChanged struct {
	Name string
}

// ProgressUpdated reports the running scanned total.
type ProgressUpdated struct {
	TotalScanned int64
}

// MatchFound reports a confirmed HIGH confidence match.
type MatchFound struct {
	Record   MatchRecord
	Counters Counters
}

// CommunityFinished reports the local result of one community.
type CommunityFinished struct {
	Result CommunityResult
	Index  int
	Total  int
}

func (ServersSet) isEvent()           {}
func (ScanningChanged) isEvent()      {}
func (CurrentServerChanged) isEvent() {}
func (ProgressUpdated) isEvent()      {}
func (MatchFound) isEvent()           {}
func (CommunityFinished) isEvent()    {}

// Reporter observes orchestrator events. Implementations must not block for long
// since events are delivered synchronously from the scan loop.
type Reporter interface {
	Report(event Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(event Event)

// Report calls f(event).
func (f ReporterFunc) Report(event Event) {
	f(event)
}

// Reporters fans an event out to every reporter in order.
type Reporters []Reporter

// Report delivers the event to each non-nil reporter.
func (rs Reporters) Report(event Event) {
	for _, r := range rs {
		if r != nil {
			r.Report(event)
		}
	}
}

// ServerInfos projects communities for reporting.
func ServerInfos(communities []Community) []ServerInfo {
	servers := make([]ServerInfo, 0, len(communities))
	for _, c := range communities {
		servers = append(servers, ServerInfo{Name: c.Name, MemberCount: c.MemberCount})
	}

	return servers
}
