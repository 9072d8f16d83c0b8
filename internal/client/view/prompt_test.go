package view

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/videora/internal/models"
)

func TestPrompter_Line(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("  hello  \n"), &out)

	got, ok := p.Line("Say: ")
	assert.True(t, ok)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "Say: ", out.String())

	_, ok = p.Line("Again: ")
	assert.False(t, ok)
}

func TestPrompter_ProfileUpdate(t *testing.T) {
	var out bytes.Buffer
	// name, username, phone, address, picture
	p := NewPrompter(strings.NewReader("Ann\n\n+100\n\n\n"), &out)

	upd := p.ProfileUpdate(models.Profile{Name: "Old", Phone: "1"})

	require.NotNil(t, upd.Name)
	assert.Equal(t, "Ann", *upd.Name)
	require.NotNil(t, upd.Phone)
	assert.Equal(t, "+100", *upd.Phone)
	assert.Nil(t, upd.Username)
	assert.Nil(t, upd.Address)
	assert.Nil(t, upd.Picture)
	assert.Contains(t, out.String(), "Name [Old]: ")
}

func TestPrompter_ProfileUpdate_EOF(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), &bytes.Buffer{})
	assert.Equal(t, models.ProfileUpdate{}, p.ProfileUpdate(models.Profile{}))
}

func TestPrompter_Upload(t *testing.T) {
	p := NewPrompter(strings.NewReader("My clip\nfunny cats\n"), &bytes.Buffer{})
	assert.Equal(t, models.Upload{Title: "My clip", Description: "funny cats", Path: "/tmp/a.mp4"}, p.Upload("/tmp/a.mp4"))
}
