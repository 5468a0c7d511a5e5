package dashboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagscout/tagscout/internal/dashboard"
	"github.com/tagscout/tagscout/internal/scan"
)

func TestStoreReport(t *testing.T) {
	t.Parallel()

	store := dashboard.NewStore()

	var published []dashboard.Snapshot
	store.Subscribe(func(s dashboard.Snapshot) { published = append(published, s) })

	events := []scan.Event{
		scan.ServersSet{Servers: []scan.ServerInfo{{Name: "Halo Hangout", MemberCount: 10}}},
		scan.ScanningChanged{Scanning: true},
		scan.CurrentServerChanged{Name: "Halo Hangout"},
		scan.ProgressUpdated{TotalScanned: 50},
		scan.MatchFound{
			Record:   scan.MatchRecord{Username: "first", Gamertag: "First"},
			Counters: scan.Counters{TotalScanned: 51, TotalFound: 1},
		},
		scan.MatchFound{
			Record:   scan.MatchRecord{Username: "second", Gamertag: "Second"},
			Counters: scan.Counters{TotalScanned: 60, TotalFound: 2},
		},
		scan.CommunityFinished{Result: scan.CommunityResult{Scanned: 60, Found: 2}, Index: 1, Total: 1},
		scan.CurrentServerChanged{},
		scan.ScanningChanged{Scanning: false, Counters: scan.Counters{TotalScanned: 60, TotalFound: 2}},
	}

	for _, event := range events {
		store.Report(event)
	}

	// Community summaries do not change the dashboard state
	require.Len(t, published, len(events)-1)

	assert.Equal(t, "Halo Hangout", *published[2].CurrentServer)
	assert.Equal(t, int64(50), published[3].TotalScanned)

	final := store.Snapshot()
	assert.False(t, final.IsScanning)
	assert.Nil(t, final.CurrentServer)
	assert.Equal(t, int64(60), final.TotalScanned)
	assert.Equal(t, int64(2), final.TotalFound)
	require.Len(t, final.XboxUsers, 2)
	assert.Equal(t, "second", final.XboxUsers[0].Username)
	assert.Equal(t, "first", final.XboxUsers[1].Username)
}

func TestStoreScanStartResetsCounters(t *testing.T) {
	t.Parallel()

	store := dashboard.NewStore()
	store.Report(scan.ProgressUpdated{TotalScanned: 500})
	store.Report(scan.ScanningChanged{Scanning: true})

	snapshot := store.Snapshot()
	assert.True(t, snapshot.IsScanning)
	assert.Zero(t, snapshot.TotalScanned)
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	store := dashboard.NewStore()
	store.Report(scan.ServersSet{Servers: []scan.ServerInfo{{Name: "a"}}})
	store.Report(scan.CurrentServerChanged{Name: "a"})

	snapshot := store.Snapshot()
	snapshot.Servers[0].Name = "changed"
	*snapshot.CurrentServer = "changed"

	fresh := store.Snapshot()
	assert.Equal(t, "a", fresh.Servers[0].Name)
	assert.Equal(t, "a", *fresh.CurrentServer)
}

func TestEncodeStateEmpty(t *testing.T) {
	t.Parallel()

	payload, err := dashboard.EncodeState(dashboard.NewStore().Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"event": "state-update",
		"data": {
			"isScanning": false,
			"totalScanned": 0,
			"totalFound": 0,
			"servers": [],
			"xboxUsers": [],
			"currentServer": null
		}
	}`, string(payload))
}
