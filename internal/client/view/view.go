// Package view renders client data for the terminal.
package view

import (
	"fmt"
	"html"
	"io"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/atinyakov/videora/internal/models"
)

// Renderer writes views to w. Text that comes from the backend is stripped of
// markup and control characters before it is printed.
type Renderer struct {
	w      io.Writer
	policy *bluemonday.Policy
}

// NewRenderer returns a Renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, policy: bluemonday.StrictPolicy()}
}

// Clean returns s as plain printable text.
func (r *Renderer) Clean(s string) string {
	s = html.UnescapeString(r.policy.Sanitize(s))
	s = strings.Map(func(c rune) rune {
		if c == '\n' || c == '\t' {
			return ' '
		}
		if unicode.IsControl(c) {
			return -1
		}
		return c
	}, s)
	return strings.TrimSpace(s)
}

// Videos renders a titled list of videos.
func (r *Renderer) Videos(title string, videos []models.Video) {
	fmt.Fprintf(r.w, "%s (%d)\n", title, len(videos))
	if len(videos) == 0 {
		fmt.Fprintln(r.w, "  nothing here yet")
		return
	}
	for _, v := range videos {
		fmt.Fprintf(r.w, "  [%s] %s", r.Clean(v.ID), r.Clean(v.Title))
		if v.CreatorName != "" {
			fmt.Fprintf(r.w, " by %s", r.Clean(v.CreatorName))
		}
		fmt.Fprintf(r.w, " · %s\n", views(v.Views))
	}
}

// Video renders a single video with its description.
func (r *Renderer) Video(v models.Video) {
	fmt.Fprintf(r.w, "%s\n", r.Clean(v.Title))
	if v.CreatorName != "" {
		fmt.Fprintf(r.w, "by %s\n", r.Clean(v.CreatorName))
	}
	fmt.Fprintf(r.w, "%s", views(v.Views))
	if v.CreatedAt != "" {
		fmt.Fprintf(r.w, " · %s", r.Clean(v.CreatedAt))
	}
	fmt.Fprintln(r.w)
	if d := r.Clean(v.Description); d != "" {
		fmt.Fprintf(r.w, "\n%s\n", d)
	}
	if v.URL != "" {
		fmt.Fprintf(r.w, "\nwatch: %s\n", r.Clean(v.URL))
	}
}

// Creators renders the creator list.
func (r *Renderer) Creators(creators []models.Creator) {
	fmt.Fprintf(r.w, "Creators (%d)\n", len(creators))
	for _, c := range creators {
		fmt.Fprintf(r.w, "  [%s] %s · %d followers\n", r.Clean(c.ID), r.Clean(c.Name), c.Followers)
	}
}

// Profile renders the session state.
func (r *Renderer) Profile(s models.State) {
	if !s.Authenticated || s.User == nil {
		fmt.Fprintln(r.w, "Not signed in.")
		return
	}
	u := s.User
	fmt.Fprintf(r.w, "Signed in as %s\n", r.Clean(firstNonEmpty(u.Name, u.Username, u.Email, u.ID)))
	rows := [][2]string{
		{"id", u.ID},
		{"username", u.Username},
		{"email", u.Email},
		{"phone", u.Phone},
		{"address", u.Address},
		{"picture", u.Picture},
	}
	for _, row := range rows {
		if row[1] != "" {
			fmt.Fprintf(r.w, "  %-9s %s\n", row[0]+":", r.Clean(row[1]))
		}
	}
}

// AuthFailed renders the generic message shown when sign-in fails.
func (r *Renderer) AuthFailed() {
	fmt.Fprintln(r.w, "Authentication failed. Run `login` to try again.")
}

func views(n int64) string {
	if n == 1 {
		return "1 view"
	}
	return fmt.Sprintf("%d views", n)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
