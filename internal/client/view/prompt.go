package view

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/videora/internal/models"
)

// Prompter asks questions on w and reads answers line by line from r.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter returns a Prompter over r and w.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(r), out: w}
}

// Line prints label and returns the trimmed answer. ok is false once input is
// exhausted.
func (p *Prompter) Line(label string) (answer string, ok bool) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

// ProfileUpdate asks for each editable field. Empty answers leave the field
// unchanged.
func (p *Prompter) ProfileUpdate(current models.Profile) models.ProfileUpdate {
	var upd models.ProfileUpdate
	ask := func(label, cur string, dst **string) {
		answer, _ := p.Line(fmt.Sprintf("%s [%s]: ", label, cur))
		if answer != "" {
			*dst = &answer
		}
	}
	ask("Name", current.Name, &upd.Name)
	ask("Username", current.Username, &upd.Username)
	ask("Phone", current.Phone, &upd.Phone)
	ask("Address", current.Address, &upd.Address)
	ask("Picture URL", current.Picture, &upd.Picture)
	return upd
}

// Upload asks for the metadata of the file at path.
func (p *Prompter) Upload(path string) models.Upload {
	title, _ := p.Line("Title: ")
	desc, _ := p.Line("Description: ")
	return models.Upload{Title: title, Description: desc, Path: path}
}
