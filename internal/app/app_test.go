package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhtc/classpoint/config"
	"github.com/lhtc/classpoint/internal/application/command"
	"github.com/lhtc/classpoint/internal/application/query"
	"github.com/lhtc/classpoint/internal/domain/student"
)

func testConfig(driver config.StorageDriver, path string) *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:            "classpoint",
			Environment:     config.EnvTest,
			Version:         "test",
			Timezone:        "Asia/Ho_Chi_Minh",
			LeaderboardSize: 10,
			ShutdownTimeout: time.Second,
		},
		Storage: config.StorageConfig{Driver: driver, Path: path, Timeout: 5 * time.Second},
		HTTP: config.HTTPConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			IdleTimeout:  time.Second,
		},
		Auth:          config.AuthConfig{Realm: "classpoint"},
		Features:      config.LoadFeatureFlags(),
		Observability: config.ObservabilityConfig{LogLevel: "error", LogFormat: "json", MetricsEnabled: true},
	}
}

func TestNew_MemoryDriverWiresEvents(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(config.StorageMemory, ""), nil)
	require.NoError(t, err)

	st, err := a.Students.Add(ctx, command.AddStudentCommand{Name: "An"})
	require.NoError(t, err)
	res, err := a.Points.Adjust(ctx, command.AdjustPointsCommand{StudentID: st.ID, Change: 20, Reason: "Quiz"})
	require.NoError(t, err)
	require.NotNil(t, res.LevelUp)

	board, err := a.Leaderboard.Handle(ctx, query.LeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, 20, board.Entries[0].Score)

	// Close drains the asynchronous bus.
	require.NoError(t, a.Close())
	assert.Equal(t, 1, a.LevelUps.Celebrated(student.LevelSprout))
}

func TestNew_SQLitePersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.StorageSQLite, filepath.Join(t.TempDir(), "classpoint.db"))

	first, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	class, err := first.Classes.Create(ctx, command.CreateClassCommand{Name: "6A"})
	require.NoError(t, err)
	_, err = first.Students.Add(ctx, command.AddStudentCommand{Name: "Bình"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer second.Close()

	list, err := second.ListStudents.Handle(ctx, query.ListStudentsQuery{})
	require.NoError(t, err)
	assert.Equal(t, class.ID, list.Class.ID)
	require.Len(t, list.Students, 1)
	assert.Equal(t, "Bình", list.Students[0].Name)
}

func TestNew_BadgerDriver(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.StorageBadger, filepath.Join(t.TempDir(), "badger"))

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Rewards.Add(ctx, command.AddRewardCommand{Name: "Sticker", Icon: "⭐", Cost: 5})
	require.NoError(t, err)
	res, err := a.ListRewards.Handle(ctx, query.ListRewardsQuery{})
	require.NoError(t, err)
	assert.Len(t, res.Rewards, 7)
}

func TestNew_InvalidSettings(t *testing.T) {
	cfg := testConfig(config.StorageMemory, "")
	cfg.App.Timezone = "Mars/Olympus"
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = testConfig(config.StorageMemory, "")
	cfg.Auth.Accounts = []string{"lan:not-a-hash"}
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestHTTPServer_HealthAndMetrics(t *testing.T) {
	a, err := New(context.Background(), testConfig(config.StorageMemory, ""), nil)
	require.NoError(t, err)
	defer a.Close()

	h := a.HTTPServer().Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"snapshot"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "classpoint_"))
}
