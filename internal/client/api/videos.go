package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/atinyakov/videora/internal/models"
)

// Videos lists every published video.
func (c *Client) Videos(ctx context.Context, token string) ([]models.Video, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: apiVideos, token: token}, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.Video](raw, "videos")
}

// Video fetches a single video record.
func (c *Client) Video(ctx context.Context, token, id string) (models.Video, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: apiVideo + url.PathEscape(id), token: token}, &raw); err != nil {
		return models.Video{}, err
	}
	var env struct {
		Video *models.Video `json:"video"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.Video{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Video == nil {
		env.Video = &models.Video{}
		if err := json.Unmarshal(raw, env.Video); err != nil {
			return models.Video{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	if env.Video.ID == "" {
		return models.Video{}, fmt.Errorf("%w: video without id", ErrMalformedResponse)
	}
	return *env.Video, nil
}

// UploadVideo streams the file at u.Path as a multipart form.
func (c *Client) UploadVideo(ctx context.Context, token string, u models.Upload) (models.Video, error) {
	f, err := os.Open(u.Path)
	if err != nil {
		return models.Video{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeUploadForm(mw, u, f)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	var env struct {
		Video *models.Video `json:"video"`
	}
	r := request{
		method:      http.MethodPost,
		path:        apiUpload,
		token:       token,
		body:        pr,
		contentType: mw.FormDataContentType(),
	}
	err = c.do(ctx, r, &env)
	_ = pr.Close()
	if err != nil {
		return models.Video{}, err
	}
	if env.Video == nil {
		return models.Video{}, fmt.Errorf("%w: missing video", ErrMalformedResponse)
	}
	return *env.Video, nil
}

func writeUploadForm(mw *multipart.Writer, u models.Upload, src io.Reader) error {
	if err := mw.WriteField("title", u.Title); err != nil {
		return err
	}
	if err := mw.WriteField("description", u.Description); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("video", filepath.Base(u.Path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

// PlayVideo asks the backend for a processed playback URL.
func (c *Client) PlayVideo(ctx context.Context, token, id string) (string, error) {
	r, err := c.jsonRequest(http.MethodPost, apiPlay, token, map[string]string{"videoId": id})
	if err != nil {
		return "", err
	}
	var out struct {
		URL      string `json:"url"`
		VideoURL string `json:"videoUrl"`
	}
	if err := c.do(ctx, r, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		out.URL = out.VideoURL
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: missing playback url", ErrMalformedResponse)
	}
	return out.URL, nil
}

// DeleteVideo removes a video owned by the caller.
func (c *Client) DeleteVideo(ctx context.Context, token, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: apiDeleteVideo + url.PathEscape(id), token: token}, nil)
}

// SavedVideos lists the caller's saved videos.
func (c *Client) SavedVideos(ctx context.Context, token string) ([]models.Video, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: apiSavedList, token: token}, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.Video](raw, "videos")
}

// ToggleSaved flips the saved flag of a video and returns the new value.
func (c *Client) ToggleSaved(ctx context.Context, token, id string) (bool, error) {
	r, err := c.jsonRequest(http.MethodPost, apiSavedToggle, token, map[string]string{"videoId": id})
	if err != nil {
		return false, err
	}
	var out struct {
		Saved bool `json:"saved"`
	}
	if err := c.do(ctx, r, &out); err != nil {
		return false, err
	}
	return out.Saved, nil
}

// WatchLater lists the caller's watch-later queue.
func (c *Client) WatchLater(ctx context.Context, token string) ([]models.Video, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: apiWatchLaterList, token: token}, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.Video](raw, "videos")
}

// ToggleWatchLater adds or removes a video from the watch-later queue and
// returns whether it is queued afterwards.
func (c *Client) ToggleWatchLater(ctx context.Context, token, id string) (bool, error) {
	r, err := c.jsonRequest(http.MethodPost, apiWatchLaterAdd, token, map[string]string{"videoId": id})
	if err != nil {
		return false, err
	}
	var out struct {
		WatchLater bool `json:"watchLater"`
	}
	if err := c.do(ctx, r, &out); err != nil {
		return false, err
	}
	return out.WatchLater, nil
}
