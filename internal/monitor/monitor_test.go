package monitor

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phototrip/phototrip/internal/model"
	"github.com/phototrip/phototrip/internal/session"
)

type fixed int

func (f fixed) QueueLen() int { return int(f) }
func (f fixed) Clients() int  { return int(f) }
func (f fixed) Pending() int  { return int(f) }

type history struct {
	runs []model.LoadRun
	err  error
}

func (h history) RecentLoads(limit int) ([]model.LoadRun, error) {
	if h.err != nil {
		return nil, h.err
	}
	if limit < len(h.runs) {
		return h.runs[:limit], nil
	}
	return h.runs, nil
}

func TestGetStatus(t *testing.T) {
	ctx := session.NewContext()
	ctx.Update(func(s *session.Snapshot) {
		s.Generation = 3
		s.Source = "photos.json"
		s.Visible = 12
	})

	svc := NewService(Dependencies{
		Session: ctx,
		Queue:   fixed(4),
		Clients: fixed(2),
		Metrics: fixed(7),
		History: history{runs: []model.LoadRun{{ID: "b"}, {ID: "a"}}},
	})

	st := svc.GetStatus()
	assert.Equal(t, 4, st.QueueDepth)
	assert.Equal(t, 2, st.Clients)
	assert.Equal(t, 7, st.MetricsPending)
	assert.Equal(t, uint64(3), st.Session.Generation)
	assert.Equal(t, 12, st.Session.Visible)
	require.Len(t, st.RecentLoads, 2)
	assert.Equal(t, "b", st.RecentLoads[0].ID)
}

func TestGetStatus_OptionalDependencies(t *testing.T) {
	svc := NewService(Dependencies{History: history{err: errors.New("db gone")}})

	st := svc.GetStatus()
	assert.Zero(t, st.QueueDepth)
	assert.Zero(t, st.Clients)
	assert.NotNil(t, st.RecentLoads)
	assert.Empty(t, st.RecentLoads)
}

func TestWriteStatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	svc := NewService(Dependencies{Session: session.NewContext(), Queue: fixed(1), StatusFile: path})

	require.NoError(t, svc.WriteStatusFile())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var st map[string]any
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, float64(1), st["queueDepth"])
	assert.Equal(t, "idle", decodePhase(t, data))
}

func decodePhase(t *testing.T, data []byte) string {
	t.Helper()
	var raw struct {
		Session struct {
			Player struct {
				Phase string `json:"phase"`
			} `json:"player"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	return raw.Session.Player.Phase
}

func TestWriteStatusFile_Disabled(t *testing.T) {
	svc := NewService(Dependencies{})
	assert.NoError(t, svc.WriteStatusFile())
}

func TestStartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	svc := NewService(Dependencies{Session: session.NewContext(), StatusFile: path})

	require.Error(t, svc.Start(0))
	require.NoError(t, svc.Start(10*time.Millisecond))
	assert.True(t, svc.IsRunning())
	require.NoError(t, svc.Start(10*time.Millisecond), "second start is a no-op")

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	svc.Stop()
	assert.False(t, svc.IsRunning())
	svc.Stop()
}
