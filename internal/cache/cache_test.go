package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/apscanner/pkg/models"
)

func testReading(ch24 uint8, rec models.Suggestions5G) *models.Reading {
	return &models.Reading{
		Timestamp: 1,
		Local:     "lab",
		Wifi24GHz: models.ChannelGroups{
			3: {{
				Observation: models.Observation{SSID: "home", MAC: "aa:bb:cc:dd:ee:01", Channel: 3, Frequency: 2422},
				Suggestion:  models.Suggest24(ch24),
			}},
		},
		Wifi5GHz: models.ChannelGroups{
			36: {{
				Observation: models.Observation{SSID: "home-5g", MAC: "aa:bb:cc:dd:ee:02", Channel: 36, Frequency: 5180},
				Suggestion:  models.Suggest5(rec),
			}},
		},
	}
}

var record5 = models.Suggestions5G{NDFS20: 40, DFS20: 52, NDFS40: 46, DFS40: 54, NDFS80: 42, DFS80: 58, DFS160: 50}

func TestIngestThenLookup(t *testing.T) {
	c := New(WithFs(afero.NewMemMapFs()))
	rec := record5
	c.Ingest(testReading(11, rec), "upload/f1.json")

	s, ok := c.Lookup("home", "aa:bb:cc:dd:ee:01")
	require.True(t, ok)
	assert.Equal(t, models.Suggest24(11), s)

	s, ok = c.Lookup("home-5g", "aa:bb:cc:dd:ee:02")
	require.True(t, ok)
	assert.Equal(t, models.Suggest5(rec), s)

	e, ok := c.Get("aa:bb:cc:dd:ee:01")
	require.True(t, ok)
	assert.Equal(t, "upload/f1.json", e.File)
	assert.Equal(t, 2, c.Len())
}

func TestLookupMisses(t *testing.T) {
	c := New(WithFs(afero.NewMemMapFs()))
	c.Ingest(testReading(1, record5), "f1")

	tests := []struct {
		name string
		ssid string
		mac  string
	}{
		{"unknown mac", "home", "aa:bb:cc:dd:ee:99"},
		{"mac reused under another ssid", "neighbour", "aa:bb:cc:dd:ee:01"},
		{"ssid is case sensitive", "HOME", "aa:bb:cc:dd:ee:01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := c.Lookup(tt.ssid, tt.mac)
			assert.False(t, ok)
			assert.True(t, s.IsZero())
		})
	}
}

func TestLastIngestWins(t *testing.T) {
	c := New(WithFs(afero.NewMemMapFs()))
	c.Ingest(testReading(1, record5), "f1")
	c.Ingest(testReading(6, record5), "f2")

	s, ok := c.Lookup("home", "aa:bb:cc:dd:ee:01")
	require.True(t, ok)
	assert.Equal(t, models.Suggest24(6), s)

	e, _ := c.Get("aa:bb:cc:dd:ee:01")
	assert.Equal(t, "f2", e.File)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	rec := models.Suggestions5G{NDFS20: 36, DFS20: 100, NDFS40: 38, DFS40: 102, NDFS80: 42, DFS80: 106, DFS160: 114}

	c := New(WithFs(fs))
	c.Ingest(testReading(6, rec), "f1")
	require.NoError(t, c.Save("upload/cache"))

	fresh := New(WithFs(fs))
	require.True(t, fresh.Load("upload/cache"))

	want, err := c.Snapshot()
	require.NoError(t, err)
	got, err := fresh.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))

	s, ok := fresh.Lookup("home-5g", "aa:bb:cc:dd:ee:02")
	require.True(t, ok)
	assert.Equal(t, models.Suggest5(rec), s)
}

func TestLoadFallsBackToEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"upload/garbage":           "{not json",
		"upload/empty":             "",
		"upload/null":              "null",
		"upload/array":             `[]`,
		"upload/no-suggestion":     `{"aa:bb:cc:dd:ee:01":{"ssid":"home","file":"f1"}}`,
		"upload/null-suggestion":   `{"aa:bb:cc:dd:ee:01":{"ssid":"home","file":"f1","suggestion":null}}`,
		"upload/zero-channel":      `{"aa:bb:cc:dd:ee:01":{"ssid":"home","file":"f1","suggestion":0}}`,
		"upload/empty-5ghz-record": `{"aa:bb:cc:dd:ee:01":{"ssid":"home","file":"f1","suggestion":{}}}`,
		"upload/empty-mac":         `{"":{"ssid":"home","file":"f1","suggestion":6}}`,
	}
	paths := []string{"upload/missing"}
	for path, body := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o644))
		paths = append(paths, path)
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			c := New(WithFs(fs))
			assert.False(t, c.Load(path))
			assert.Equal(t, 0, c.Len())

			_, ok := c.Lookup("home", "aa:bb:cc:dd:ee:01")
			assert.False(t, ok)

			// the cache stays usable after a rejected snapshot
			c.Ingest(testReading(6, record5), "f2")
			assert.Equal(t, 2, c.Len())
			_, err := c.Snapshot()
			assert.NoError(t, err)
		})
	}
}

func TestRejectedSnapshotKeepsContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "upload/cache", []byte("null"), 0o644))

	c := New(WithFs(fs))
	c.Ingest(testReading(11, record5), "f1")
	assert.False(t, c.Load("upload/cache"))

	s, ok := c.Lookup("home", "aa:bb:cc:dd:ee:01")
	require.True(t, ok)
	assert.Equal(t, models.Suggest24(11), s)

	NewSnapshotter(c, NewFileSink(fs, "upload/cache"), time.Hour).Restore(context.Background())
	assert.Equal(t, 2, c.Len())
}

func TestSaveToAndLoadFrom(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFileSink(fs, "upload/cache")
	ctx := context.Background()

	empty := New(WithFs(fs))
	assert.ErrorIs(t, empty.LoadFrom(ctx, sink), ErrNoSnapshot)

	c := New(WithFs(fs))
	c.Ingest(testReading(1, record5), "f1")
	n, err := c.SaveTo(ctx, sink)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "upload/cache")
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	// a snapshot written through the sink is what Load reads back by path
	fresh := New(WithFs(fs))
	require.True(t, fresh.Load("upload/cache"))
	assert.Equal(t, 2, fresh.Len())

	require.NoError(t, sink.Write(ctx, []byte(`{"m1":{"ssid":"n","file":"f","suggestion":null}}`)))
	assert.Error(t, fresh.LoadFrom(ctx, sink))
	assert.Equal(t, 2, fresh.Len())
}

func TestSnapshotFormat(t *testing.T) {
	c := New(WithFs(afero.NewMemMapFs()))
	c.Ingest(&models.Reading{Wifi24GHz: models.ChannelGroups{4: {{
		Observation: models.Observation{SSID: "n", MAC: "m1", Channel: 4, Frequency: 2427},
		Suggestion:  models.Suggest24(1),
	}}}}, "upload/x.json")

	data, err := c.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, `{"m1":{"ssid":"n","file":"upload/x.json","suggestion":1}}`, string(data))
}

func TestConcurrentIngestAndLookup(t *testing.T) {
	c := New(WithFs(afero.NewMemMapFs()))
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Ingest(&models.Reading{Wifi24GHz: models.ChannelGroups{2: {{
					Observation: models.Observation{SSID: "n", MAC: fmt.Sprintf("m%d-%d", w, i%10), Channel: 2, Frequency: 2417},
					Suggestion:  models.Suggest24(6),
				}}}}, "f")
			}
		}(w)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Lookup("n", fmt.Sprintf("m%d-%d", w, i%10))
				_, _ = c.Snapshot()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 80, c.Len())
}

func TestSnapshotter_FileSinkFlushAndRestore(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFileSink(fs, "upload/cache")

	c := New(WithFs(fs))
	c.Ingest(testReading(11, record5), "f1")
	s := NewSnapshotter(c, sink, time.Hour)
	require.NoError(t, s.Flush(context.Background()))

	restored := New(WithFs(fs))
	NewSnapshotter(restored, sink, time.Hour).Restore(context.Background())
	assert.Equal(t, 2, restored.Len())
}

func TestSnapshotter_PeriodicAndFinalFlush(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFileSink(fs, "upload/cache")
	c := New(WithFs(fs))

	s := NewSnapshotter(c, sink, 20*time.Millisecond)
	require.NoError(t, s.Start(context.Background()))

	c.Ingest(testReading(1, record5), "f1")
	assert.Eventually(t, func() bool {
		ok, _ := afero.Exists(fs, "upload/cache")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	c.Ingest(&models.Reading{Wifi24GHz: models.ChannelGroups{1: {{
		Observation: models.Observation{SSID: "late", MAC: "late-mac", Channel: 1, Frequency: 2412},
		Suggestion:  models.Suggest24(1),
	}}}}, "f2")
	s.Stop(context.Background())

	fresh := New(WithFs(fs))
	require.True(t, fresh.Load("upload/cache"))
	_, ok := fresh.Lookup("late", "late-mac")
	assert.True(t, ok)
}

func TestRedisSink(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	sink := NewRedisSink(rdb, "apscanner:cache")
	ctx := context.Background()

	_, err = sink.Read(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	c := New()
	c.Ingest(testReading(6, record5), "f1")
	require.NoError(t, NewSnapshotter(c, sink, time.Hour).Flush(ctx))
	assert.True(t, mr.Exists("apscanner:cache"))

	restored := New()
	NewSnapshotter(restored, sink, time.Hour).Restore(ctx)
	s, ok := restored.Lookup("home", "aa:bb:cc:dd:ee:01")
	require.True(t, ok)
	assert.Equal(t, models.Suggest24(6), s)
}
