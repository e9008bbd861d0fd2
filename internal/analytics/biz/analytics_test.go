package biz

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memEvents struct {
	mu     sync.Mutex
	events map[string]Event
	ttls   []time.Duration
	err    error
}

func newMemEvents() *memEvents { return &memEvents{events: map[string]Event{}} }

func (m *memEvents) Append(_ context.Context, e *Event, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := e.AssetID + ":" + strconv.FormatInt(e.Timestamp.UnixMilli(), 10) + ":" + e.Nonce
	if _, ok := m.events[key]; ok {
		return false, nil
	}
	m.events[key] = *e
	m.ttls = append(m.ttls, ttl)
	return true, nil
}

func (m *memEvents) List(_ context.Context, assetID string, limit int) ([]*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Event
	for _, e := range m.events {
		if e.AssetID == assetID {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memSnapshots map[string][]byte

func (m memSnapshots) Get(_ context.Context, id string) ([]byte, error) {
	if id == "broken" {
		return nil, errors.New("store unavailable")
	}
	raw, ok := m[id]
	if !ok {
		return nil, ErrSnapshotAbsent
	}
	return raw, nil
}

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in      string
		want    EventType
		wantErr bool
	}{
		{"VIEW", EventView, false},
		{"play", EventPlay, false},
		{" Click ", EventClick, false},
		{"SHARE", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEventType(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidEventType, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRecord(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		in      *RecordInput
		wantErr error
	}{
		{name: "view", in: &RecordInput{AssetID: "abc", EventType: "view", Platform: "discord"}},
		{name: "with metadata", in: &RecordInput{AssetID: "abc", EventType: "PLAY", Metadata: map[string]interface{}{"position": 12.5}}},
		{name: "missing asset", in: &RecordInput{EventType: "VIEW"}, wantErr: ErrMissingAssetID},
		{name: "nil input", wantErr: ErrMissingAssetID},
		{name: "bad type", in: &RecordInput{AssetID: "abc", EventType: "LIKE"}, wantErr: ErrInvalidEventType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := newMemEvents()
			uc := NewAnalyticsUseCase(events, memSnapshots{}, 0, nil)

			e, err := uc.Record(ctx, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, events.events)
				return
			}
			require.NoError(t, err)
			assert.Len(t, e.Nonce, 32)
			assert.Equal(t, time.UTC, e.Timestamp.Location())
			assert.Equal(t, []time.Duration{DefaultEventTTL}, events.ttls)
		})
	}
}

func TestRecord_SameMillisecondBurst(t *testing.T) {
	events := newMemEvents()
	uc := NewAnalyticsUseCase(events, memSnapshots{}, time.Hour, nil)
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return fixed }

	const n = 500
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Record(context.Background(), &RecordInput{AssetID: "abc", EventType: "VIEW"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, events.events, n)
}

func TestRecord_CollisionRetry(t *testing.T) {
	events := newMemEvents()
	uc := NewAnalyticsUseCase(events, memSnapshots{}, time.Hour, nil)
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return fixed }

	nonces := []string{"same", "same", "fresh"}
	uc.nonce = func() string {
		n := nonces[0]
		nonces = nonces[1:]
		return n
	}

	_, err := uc.Record(context.Background(), &RecordInput{AssetID: "abc", EventType: "VIEW"})
	require.NoError(t, err)
	e, err := uc.Record(context.Background(), &RecordInput{AssetID: "abc", EventType: "VIEW"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", e.Nonce)

	uc.nonce = func() string { return "same" }
	_, err = uc.Record(context.Background(), &RecordInput{AssetID: "abc", EventType: "VIEW"})
	assert.ErrorIs(t, err, ErrKeyCollision)
}

func TestRecord_StoreFailure(t *testing.T) {
	events := newMemEvents()
	events.err = errors.New("connection refused")
	uc := NewAnalyticsUseCase(events, memSnapshots{}, time.Hour, nil)

	_, err := uc.Record(context.Background(), &RecordInput{AssetID: "abc", EventType: "VIEW"})
	assert.ErrorIs(t, err, ErrEventWrite)
}

func TestRecordClick(t *testing.T) {
	events := newMemEvents()
	uc := NewAnalyticsUseCase(events, memSnapshots{}, time.Hour, nil)

	require.NoError(t, uc.RecordClick(context.Background(), "abc", "promo"))

	list, err := uc.ListEvents(context.Background(), "abc", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, EventClick, list[0].Type)
	assert.Equal(t, "short-link:promo", list[0].Platform)
	assert.Equal(t, "promo", list[0].Metadata["short_code"])
}

func TestGetMetrics(t *testing.T) {
	snaps := memSnapshots{
		"hot":     []byte(`{"views":120,"plays":40,"clicks":12,"ctr":0.1,"extra":"kept"}`),
		"garbage": []byte(`not json`),
		"array":   []byte(`[1,2,3]`),
	}
	uc := NewAnalyticsUseCase(newMemEvents(), snaps, time.Hour, nil)
	ctx := context.Background()

	m, err := uc.GetMetrics(ctx, "hot")
	require.NoError(t, err)
	assert.True(t, m.Cached())
	assert.Equal(t, MetricsSnapshot{Views: 120, Plays: 40, Clicks: 12, CTR: 0.1}, m.Snapshot)
	assert.Equal(t, snaps["hot"], m.Raw)

	for _, id := range []string{"unknown", "garbage", "array"} {
		m, err := uc.GetMetrics(ctx, id)
		require.NoError(t, err, id)
		assert.False(t, m.Cached(), id)
		assert.Equal(t, MetricsSnapshot{}, m.Snapshot, id)
	}

	_, err = uc.GetMetrics(ctx, "broken")
	assert.Error(t, err)
}

func TestListEvents_Limit(t *testing.T) {
	events := newMemEvents()
	uc := NewAnalyticsUseCase(events, memSnapshots{}, time.Hour, nil)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 150; i++ {
		at := base.Add(time.Duration(i) * time.Millisecond)
		uc.now = func() time.Time { return at }
		_, err := uc.Record(ctx, &RecordInput{AssetID: "abc", EventType: "VIEW"})
		require.NoError(t, err)
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultListLimit},
		{-5, DefaultListLimit},
		{10, 10},
		{5000, 150},
	}
	for _, tt := range tests {
		list, err := uc.ListEvents(ctx, "abc", tt.limit)
		require.NoError(t, err)
		assert.Len(t, list, tt.want)
	}

	list, err := uc.ListEvents(ctx, "abc", 1)
	require.NoError(t, err)
	assert.Equal(t, base.Add(149*time.Millisecond), list[0].Timestamp)

	_, err = uc.ListEvents(ctx, "", 10)
	assert.ErrorIs(t, err, ErrMissingAssetID)
}
