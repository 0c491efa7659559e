package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/session"
)

func newTestStorage(t *testing.T) (*Storage, session.Service) {
	t.Helper()
	svc := session.InMemoryService()
	_, err := svc.Create(t.Context(), &session.CreateRequest{AppName: "clausereview", UserID: "user-1", SessionID: "sess-1"})
	require.NoError(t, err)
	return NewStorage(svc), svc
}

func TestStorageSaveLoadClear(t *testing.T) {
	storage, _ := newTestStorage(t)

	state := NewState("task-1", "sess-1", "user-1", "clausereview").
		WithReviewState(domain.NewState("task-1"))

	require.NoError(t, storage.Save(t.Context(), state))

	loaded, err := storage.Load(t.Context(), "clausereview", "user-1", "sess-1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", loaded.TaskID)

	require.NoError(t, storage.Clear(t.Context(), "clausereview", "user-1", "sess-1", "task-1"))
	_, err = storage.Load(t.Context(), "clausereview", "user-1", "sess-1", "task-1")
	assert.Error(t, err)
}

func TestManagerSkipsSaveWhenDisabled(t *testing.T) {
	storage, svc := newTestStorage(t)
	_ = storage
	cfg := &Config{}
	cfg.SetDefaults()
	manager := NewManager(cfg, svc)

	state := NewState("task-2", "sess-1", "user-1", "clausereview")
	require.NoError(t, manager.SaveCheckpoint(t.Context(), state))

	_, err := manager.LoadCheckpoint(t.Context(), "clausereview", "user-1", "sess-1", "task-2")
	assert.Error(t, err, "disabled manager should never have persisted the checkpoint")
}
