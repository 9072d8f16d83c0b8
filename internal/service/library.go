package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/videora/internal/models"
)

// ErrSuperseded is returned by a toggle whose result was discarded because a
// newer toggle for the same resource was issued while it was in flight.
var ErrSuperseded = errors.New("superseded by a newer request")

// LibraryAPI defines the backend operations behind the views.
type LibraryAPI interface {
	Videos(ctx context.Context, token string) ([]models.Video, error)
	Video(ctx context.Context, token, id string) (models.Video, error)
	UploadVideo(ctx context.Context, token string, u models.Upload) (models.Video, error)
	PlayVideo(ctx context.Context, token, id string) (string, error)
	DeleteVideo(ctx context.Context, token, id string) error
	SavedVideos(ctx context.Context, token string) ([]models.Video, error)
	ToggleSaved(ctx context.Context, token, id string) (bool, error)
	WatchLater(ctx context.Context, token string) ([]models.Video, error)
	ToggleWatchLater(ctx context.Context, token, id string) (bool, error)
	Creators(ctx context.Context, token string) ([]models.Creator, error)
	Follow(ctx context.Context, token, creatorID string) (bool, error)
	CheckFollow(ctx context.Context, token, creatorID string) (bool, error)
}

// TokenSource yields the bearer token of the current session.
type TokenSource interface {
	Token() string
}

// Library serves videos, creators and the user's lists to the views.
type Library struct {
	api       LibraryAPI
	tokens    TokenSource
	quota     *Quota
	maxUpload int64
	log       *zap.Logger

	inflight inflight
}

// NewLibrary returns a Library. quota may be nil to disable the stylized
// playback limit.
func NewLibrary(api LibraryAPI, tokens TokenSource, quota *Quota, maxUpload int64, log *zap.Logger) *Library {
	if log == nil {
		log = zap.NewNop()
	}
	return &Library{
		api:       api,
		tokens:    tokens,
		quota:     quota,
		maxUpload: maxUpload,
		log:       log,
		inflight:  inflight{calls: make(map[string]*inflightCall)},
	}
}

func (l *Library) requireToken() (string, error) {
	tok := l.tokens.Token()
	if tok == "" {
		return "", ErrNotAuthenticated
	}
	return tok, nil
}

// Feed lists the videos of the home feed.
func (l *Library) Feed(ctx context.Context) ([]models.Video, error) {
	return l.api.Videos(ctx, l.tokens.Token())
}

// Trending returns up to limit videos ordered by view count, most viewed
// first. limit <= 0 returns all of them.
func (l *Library) Trending(ctx context.Context, limit int) ([]models.Video, error) {
	videos, err := l.api.Videos(ctx, l.tokens.Token())
	if err != nil {
		return nil, err
	}
	sort.SliceStable(videos, func(i, j int) bool { return videos[i].Views > videos[j].Views })
	if limit > 0 && len(videos) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

// Video fetches one video.
func (l *Library) Video(ctx context.Context, id string) (models.Video, error) {
	return l.api.Video(ctx, l.tokens.Token(), id)
}

// Creators lists creator channels.
func (l *Library) Creators(ctx context.Context) ([]models.Creator, error) {
	return l.api.Creators(ctx, l.tokens.Token())
}

// CreatorVideos lists the videos published by one creator.
func (l *Library) CreatorVideos(ctx context.Context, creatorID string) ([]models.Video, error) {
	videos, err := l.api.Videos(ctx, l.tokens.Token())
	if err != nil {
		return nil, err
	}
	out := videos[:0]
	for _, v := range videos {
		if v.CreatorID == creatorID {
			out = append(out, v)
		}
	}
	return out, nil
}

// Play requests a stylized playback URL. A successful call uses one
// generation query; a failed one gives it back.
func (l *Library) Play(ctx context.Context, id string) (string, error) {
	tok, err := l.requireToken()
	if err != nil {
		return "", err
	}
	if l.quota == nil {
		return l.api.PlayVideo(ctx, tok, id)
	}
	if err := l.quota.Consume(); err != nil {
		return "", err
	}
	url, err := l.api.PlayVideo(ctx, tok, id)
	if err != nil {
		if rerr := l.quota.Refund(); rerr != nil {
			l.log.Error("failed to refund generation query", zap.Error(rerr))
		}
		return "", err
	}
	return url, nil
}

// Upload validates the file locally and then uploads it.
func (l *Library) Upload(ctx context.Context, u models.Upload) (models.Video, error) {
	tok, err := l.requireToken()
	if err != nil {
		return models.Video{}, err
	}
	if err := ValidateUpload(u, l.maxUpload); err != nil {
		return models.Video{}, err
	}
	return l.api.UploadVideo(ctx, tok, u)
}

// Delete removes a video owned by the user.
func (l *Library) Delete(ctx context.Context, id string) error {
	tok, err := l.requireToken()
	if err != nil {
		return err
	}
	return l.api.DeleteVideo(ctx, tok, id)
}

// Saved lists the user's saved videos.
func (l *Library) Saved(ctx context.Context) ([]models.Video, error) {
	tok, err := l.requireToken()
	if err != nil {
		return nil, err
	}
	return l.api.SavedVideos(ctx, tok)
}

// WatchLater lists the user's watch-later queue.
func (l *Library) WatchLater(ctx context.Context) ([]models.Video, error) {
	tok, err := l.requireToken()
	if err != nil {
		return nil, err
	}
	return l.api.WatchLater(ctx, tok)
}

// IsFollowing reports whether the user follows a creator.
func (l *Library) IsFollowing(ctx context.Context, creatorID string) (bool, error) {
	tok, err := l.requireToken()
	if err != nil {
		return false, err
	}
	return l.api.CheckFollow(ctx, tok, creatorID)
}

// ToggleFollow follows or unfollows a creator.
func (l *Library) ToggleFollow(ctx context.Context, creatorID string) (bool, error) {
	return l.toggle(ctx, "follow:"+creatorID, func(ctx context.Context, tok string) (bool, error) {
		return l.api.Follow(ctx, tok, creatorID)
	})
}

// ToggleSaved saves or unsaves a video.
func (l *Library) ToggleSaved(ctx context.Context, videoID string) (bool, error) {
	return l.toggle(ctx, "saved:"+videoID, func(ctx context.Context, tok string) (bool, error) {
		return l.api.ToggleSaved(ctx, tok, videoID)
	})
}

// ToggleWatchLater queues or dequeues a video.
func (l *Library) ToggleWatchLater(ctx context.Context, videoID string) (bool, error) {
	return l.toggle(ctx, "watch-later:"+videoID, func(ctx context.Context, tok string) (bool, error) {
		return l.api.ToggleWatchLater(ctx, tok, videoID)
	})
}

func (l *Library) toggle(ctx context.Context, key string, fn func(context.Context, string) (bool, error)) (bool, error) {
	tok, err := l.requireToken()
	if err != nil {
		return false, err
	}
	v, err := l.inflight.do(ctx, key, func(ctx context.Context) (bool, error) {
		return fn(ctx, tok)
	})
	if errors.Is(err, ErrSuperseded) {
		l.log.Debug("toggle superseded", zap.String("key", key))
	}
	return v, err
}

// inflight tracks at most one request per key. Starting a request for a key
// cancels the one already running for it.
type inflight struct {
	mu    sync.Mutex
	calls map[string]*inflightCall
}

type inflightCall struct {
	cancel context.CancelFunc
}

func (f *inflight) do(ctx context.Context, key string, fn func(context.Context) (bool, error)) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	me := &inflightCall{cancel: cancel}

	f.mu.Lock()
	if prev, ok := f.calls[key]; ok {
		prev.cancel()
	}
	f.calls[key] = me
	f.mu.Unlock()

	v, err := fn(ctx)

	f.mu.Lock()
	superseded := f.calls[key] != me
	if !superseded {
		delete(f.calls, key)
	}
	f.mu.Unlock()
	cancel()

	if superseded {
		return false, ErrSuperseded
	}
	return v, err
}
