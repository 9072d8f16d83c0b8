package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/videora/internal/client/storage"
	"github.com/atinyakov/videora/internal/models"
	"github.com/atinyakov/videora/internal/service"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// fakeLibraryAPI records calls; unset funcs fail the test when reached.
type fakeLibraryAPI struct {
	t      *testing.T
	videos []models.Video

	followFunc func(ctx context.Context, token, id string) (bool, error)
	playErr    error
	playCalls  int
	uploads    []models.Upload
}

func (f *fakeLibraryAPI) Videos(_ context.Context, _ string) ([]models.Video, error) {
	out := make([]models.Video, len(f.videos))
	copy(out, f.videos)
	return out, nil
}

func (f *fakeLibraryAPI) Video(_ context.Context, _, id string) (models.Video, error) {
	for _, v := range f.videos {
		if v.ID == id {
			return v, nil
		}
	}
	return models.Video{}, errors.New("not found")
}

func (f *fakeLibraryAPI) UploadVideo(_ context.Context, _ string, u models.Upload) (models.Video, error) {
	f.uploads = append(f.uploads, u)
	return models.Video{ID: "new", Title: u.Title}, nil
}

func (f *fakeLibraryAPI) PlayVideo(_ context.Context, _, id string) (string, error) {
	f.playCalls++
	if f.playErr != nil {
		return "", f.playErr
	}
	return "https://cdn/" + id, nil
}

func (f *fakeLibraryAPI) DeleteVideo(context.Context, string, string) error { return nil }

func (f *fakeLibraryAPI) SavedVideos(context.Context, string) ([]models.Video, error) {
	return []models.Video{{ID: "s1"}}, nil
}

func (f *fakeLibraryAPI) ToggleSaved(context.Context, string, string) (bool, error) { return true, nil }

func (f *fakeLibraryAPI) WatchLater(context.Context, string) ([]models.Video, error) {
	return nil, nil
}

func (f *fakeLibraryAPI) ToggleWatchLater(context.Context, string, string) (bool, error) {
	return true, nil
}

func (f *fakeLibraryAPI) Creators(context.Context, string) ([]models.Creator, error) {
	return []models.Creator{{ID: "c1"}}, nil
}

func (f *fakeLibraryAPI) Follow(ctx context.Context, token, id string) (bool, error) {
	return f.followFunc(ctx, token, id)
}

func (f *fakeLibraryAPI) CheckFollow(context.Context, string, string) (bool, error) {
	return true, nil
}

func TestLibrary_RequiresSession(t *testing.T) {
	fake := &fakeLibraryAPI{t: t}
	lib := service.NewLibrary(fake, staticToken(""), nil, 0, nil)
	ctx := context.Background()

	_, err := lib.Saved(ctx)
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
	_, err = lib.WatchLater(ctx)
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
	_, err = lib.ToggleFollow(ctx, "c1")
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
	_, err = lib.ToggleSaved(ctx, "v1")
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
	_, err = lib.Play(ctx, "v1")
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
	assert.ErrorIs(t, lib.Delete(ctx, "v1"), service.ErrNotAuthenticated)
	assert.Zero(t, fake.playCalls)

	// public views work anonymously
	_, err = lib.Feed(ctx)
	assert.NoError(t, err)
	_, err = lib.Creators(ctx)
	assert.NoError(t, err)
}

func TestLibrary_Trending(t *testing.T) {
	fake := &fakeLibraryAPI{videos: []models.Video{
		{ID: "a", Views: 10},
		{ID: "b", Views: 300},
		{ID: "c", Views: 40},
		{ID: "d", Views: 300},
	}}
	lib := service.NewLibrary(fake, staticToken(""), nil, 0, nil)

	got, err := lib.Trending(context.Background(), 3)
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, v := range got {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"b", "d", "c"}, ids)
}

func TestLibrary_CreatorVideos(t *testing.T) {
	fake := &fakeLibraryAPI{videos: []models.Video{
		{ID: "a", CreatorID: "c1"},
		{ID: "b", CreatorID: "c2"},
		{ID: "c", CreatorID: "c1"},
	}}
	lib := service.NewLibrary(fake, staticToken(""), nil, 0, nil)

	got, err := lib.CreatorVideos(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLibrary_ToggleSupersedesInFlight(t *testing.T) {
	firstStarted := make(chan struct{})
	calls := 0
	fake := &fakeLibraryAPI{}
	fake.followFunc = func(ctx context.Context, _, _ string) (bool, error) {
		calls++
		if calls == 1 {
			close(firstStarted)
			<-ctx.Done()
			return false, ctx.Err()
		}
		return true, nil
	}
	lib := service.NewLibrary(fake, staticToken("tok"), nil, 0, nil)

	firstErr := make(chan error, 1)
	go func() {
		_, err := lib.ToggleFollow(context.Background(), "c1")
		firstErr <- err
	}()
	<-firstStarted

	following, err := lib.ToggleFollow(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, following)

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, service.ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("superseded toggle was not cancelled")
	}
}

func TestLibrary_ToggleDifferentKeysIndependent(t *testing.T) {
	fake := &fakeLibraryAPI{followFunc: func(context.Context, string, string) (bool, error) { return true, nil }}
	lib := service.NewLibrary(fake, staticToken("tok"), nil, 0, nil)

	a, err := lib.ToggleFollow(context.Background(), "c1")
	require.NoError(t, err)
	b, err := lib.ToggleFollow(context.Background(), "c2")
	require.NoError(t, err)
	assert.True(t, a && b)

	saved, err := lib.ToggleSaved(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, saved)
}

func TestLibrary_PlayConsumesQuota(t *testing.T) {
	store := storage.NewMemoryStore()
	fake := &fakeLibraryAPI{}
	lib := service.NewLibrary(fake, staticToken("tok"), service.NewQuota(store, 2), 0, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := lib.Play(ctx, "v1")
		require.NoError(t, err)
	}
	_, err := lib.Play(ctx, "v1")
	assert.ErrorIs(t, err, service.ErrQueryLimitReached)
	assert.Equal(t, 2, fake.playCalls)
}

func TestLibrary_UploadValidatesFirst(t *testing.T) {
	fake := &fakeLibraryAPI{}
	lib := service.NewLibrary(fake, staticToken("tok"), nil, 1<<20, nil)

	empty := filepath.Join(t.TempDir(), "empty.mp4")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err := lib.Upload(context.Background(), models.Upload{Title: "t", Path: empty})
	assert.ErrorIs(t, err, service.ErrEmptyFile)
	assert.Empty(t, fake.uploads)

	avi := writeAVI(t, 64)
	v, err := lib.Upload(context.Background(), models.Upload{Title: "clip", Path: avi})
	require.NoError(t, err)
	assert.Equal(t, "new", v.ID)
	assert.Len(t, fake.uploads, 1)
}

func TestLibrary_PlayFailureKeepsQuota(t *testing.T) {
	store := storage.NewMemoryStore()
	quota := service.NewQuota(store, 1)
	fake := &fakeLibraryAPI{playErr: errors.New("bad gateway")}
	lib := service.NewLibrary(fake, staticToken("tok"), quota, 0, nil)
	ctx := context.Background()

	_, err := lib.Play(ctx, "v1")
	assert.EqualError(t, err, "bad gateway")
	assert.Equal(t, 0, quota.Used())
	assert.False(t, quota.LimitReached())

	fake.playErr = nil
	_, err = lib.Play(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, quota.LimitReached())
	assert.Equal(t, 2, fake.playCalls)
}
