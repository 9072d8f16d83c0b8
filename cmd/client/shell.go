package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/videora/internal/client/view"
	"github.com/atinyakov/videora/internal/config"
	"github.com/atinyakov/videora/internal/service"
)

// trendingSize is how many videos the trending view shows.
const trendingSize = 10

const helpText = `Available commands:
  feed                 home feed
  trending             most viewed videos
  creators             list creators
  creator <id>         videos of a creator
  video <id>           video details
  play <id>            stylized playback (counts against the query limit)
  follow <id>          follow or unfollow a creator
  save <id>            save or unsave a video
  later <id>           add or remove a video from watch later
  saved                saved videos
  watchlater           watch-later list
  upload <path>        upload a video file
  delete <id>          delete one of your videos
  profile              show your profile
  edit-profile         change your profile
  refresh              re-fetch your profile
  login                sign in with Google
  logout               sign out
  exit                 leave the shell`

// app bundles what the shell needs.
type app struct {
	ctrl   *service.Controller
	lib    *service.Library
	quota  *service.Quota
	render *view.Renderer
	prompt *view.Prompter
	out    io.Writer
	opts   *config.Options
	log    *zap.Logger
}

// repl runs the interactive shell loop until exit or end of input.
func (a *app) repl(ctx context.Context) {
	for {
		line, ok := a.prompt.Line("videora> ")
		if !ok {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if quit := a.exec(ctx, args); quit {
			fmt.Fprintln(a.out, "Bye")
			return
		}
	}
}

// exec runs one shell command and reports whether the shell should end.
func (a *app) exec(ctx context.Context, args []string) bool {
	cmd, arg := args[0], ""
	if len(args) > 1 {
		arg = args[1]
	}
	if needsArg[cmd] && arg == "" {
		fmt.Fprintf(a.out, "Usage: %s <%s>\n", cmd, needsArg.name(cmd))
		return false
	}

	var err error
	switch cmd {
	case "help":
		fmt.Fprintln(a.out, helpText)
	case "feed":
		err = a.feed(ctx)
	case "trending":
		videos, e := a.lib.Trending(ctx, trendingSize)
		if err = e; err == nil {
			a.render.Videos("Trending", videos)
		}
	case "creators":
		creators, e := a.lib.Creators(ctx)
		if err = e; err == nil {
			a.render.Creators(creators)
		}
	case "creator":
		videos, e := a.lib.CreatorVideos(ctx, arg)
		if err = e; err == nil {
			a.render.Videos("Creator "+arg, videos)
		}
	case "video":
		v, e := a.lib.Video(ctx, arg)
		if err = e; err == nil {
			a.render.Video(v)
		}
	case "play":
		url, e := a.lib.Play(ctx, arg)
		if err = e; err == nil {
			fmt.Fprintf(a.out, "Stream: %s\n", a.render.Clean(url))
			if left := a.quota.Remaining(); left >= 0 {
				fmt.Fprintf(a.out, "%d generation queries left\n", left)
			}
		}
	case "follow":
		err = a.toggle("Following", "Not following", func() (bool, error) { return a.lib.ToggleFollow(ctx, arg) })
	case "save":
		err = a.toggle("Saved", "Removed from saved", func() (bool, error) { return a.lib.ToggleSaved(ctx, arg) })
	case "later":
		err = a.toggle("Added to watch later", "Removed from watch later", func() (bool, error) { return a.lib.ToggleWatchLater(ctx, arg) })
	case "saved":
		videos, e := a.lib.Saved(ctx)
		if err = e; err == nil {
			a.render.Videos("Saved", videos)
		}
	case "watchlater":
		videos, e := a.lib.WatchLater(ctx)
		if err = e; err == nil {
			a.render.Videos("Watch later", videos)
		}
	case "upload":
		v, e := a.lib.Upload(ctx, a.prompt.Upload(arg))
		if err = e; err == nil {
			fmt.Fprintf(a.out, "Uploaded %s\n", a.render.Clean(v.ID))
		}
	case "delete":
		if err = a.lib.Delete(ctx, arg); err == nil {
			fmt.Fprintln(a.out, "Video deleted")
		}
	case "profile":
		a.render.Profile(a.ctrl.State())
	case "edit-profile":
		err = a.editProfile(ctx)
	case "refresh":
		a.ctrl.RefreshProfile(ctx)
		a.render.Profile(a.ctrl.State())
	case "login":
		err = a.login(ctx)
	case "logout":
		a.ctrl.Logout(ctx)
	case "exit", "quit":
		return true
	default:
		fmt.Fprintln(a.out, "Unknown command. Type 'help' for a list of commands.")
	}

	if err != nil {
		a.report(err)
	}
	return false
}

type argNames map[string]bool

var needsArg = argNames{
	"creator": true, "video": true, "play": true, "follow": true,
	"save": true, "later": true, "upload": true, "delete": true,
}

func (argNames) name(cmd string) string {
	if cmd == "upload" {
		return "path"
	}
	return "id"
}

func (a *app) feed(ctx context.Context) error {
	videos, err := a.lib.Feed(ctx)
	if err != nil {
		return err
	}
	a.render.Videos("Home", videos)
	return nil
}

func (a *app) toggle(on, off string, fn func() (bool, error)) error {
	state, err := fn()
	if err != nil {
		return err
	}
	if state {
		fmt.Fprintln(a.out, on)
	} else {
		fmt.Fprintln(a.out, off)
	}
	return nil
}

func (a *app) editProfile(ctx context.Context) error {
	s := a.ctrl.State()
	if !s.Authenticated || s.User == nil {
		return service.ErrNotAuthenticated
	}
	p, err := a.ctrl.UpdateProfile(ctx, a.prompt.ProfileUpdate(*s.User))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Profile updated for %s\n", a.render.Clean(p.Email))
	return nil
}

// report prints err as a short user-facing message.
func (a *app) report(err error) {
	switch {
	case errors.Is(err, service.ErrSuperseded):
		// a newer toggle for the same item already answered
	case errors.Is(err, service.ErrNotAuthenticated):
		fmt.Fprintln(a.out, "You need to sign in first. Run `login`.")
	case errors.Is(err, service.ErrQueryLimitReached):
		fmt.Fprintln(a.out, "You have used all generation queries for this session.")
	case errors.Is(err, service.ErrMissingTitle),
		errors.Is(err, service.ErrEmptyFile),
		errors.Is(err, service.ErrFileTooLarge),
		errors.Is(err, service.ErrUnsupportedType):
		fmt.Fprintf(a.out, "Cannot upload: %v\n", err)
	default:
		a.log.Warn("command failed", zap.Error(err))
		fmt.Fprintln(a.out, "Request failed. Please try again.")
	}
}
