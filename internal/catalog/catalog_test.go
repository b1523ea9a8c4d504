package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Feedactions/internal/action"
)

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://example.com/a.mp3", "http://example.com/a.mp3"},
		{`http://x/'; rm -rf / '`, "http://x/; rm -rf / "},
		{` "http://x/a\b" `, "http://x/ab"},
		{`'"\`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeURL(tt.in), "input %q", tt.in)
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FEEDACTIONS_TEST_DIR", dir)

	c, err := New(nil, []Definition{
		{Name: "wget", Kind: KindWget, Dir: "$FEEDACTIONS_TEST_DIR"},
		{Name: "download", Kind: KindDownload, Dir: dir},
		{Name: "play", Kind: KindLocal, Command: []string{"mpv", "--title={url}", "{url}"}},
		{Name: "remote", Kind: KindSSH, Host: "me@box", RemoteCommand: "echo '{url}'", IdentityFile: "/id", Port: 2222},
		{Name: "open", Kind: KindOpen},
	})
	require.NoError(t, err)

	url := `http://example.com/ep'1.mp3`
	clean := "http://example.com/ep1.mp3"

	tests := []struct {
		name string
		want action.Operation
	}{
		{"wget", action.Spawn("wget", "--directory-prefix", dir, "--", clean)},
		{"download", action.Call("download", clean, dir)},
		{"play", action.Spawn("mpv", "--title="+clean, clean)},
		{"remote", action.Spawn("ssh", "-p", "2222", "-i", "/id", "me@box", "echo '"+clean+"'")},
		{"open", action.Spawn("xdg-open", clean)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := c.Build(tt.name, url)
			require.NoError(t, err)
			assert.Equal(t, tt.name, a.Name())
			assert.Equal(t, []action.Operation{tt.want}, a.Operations())
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	c, err := New(nil, []Definition{
		{Name: "wget", Kind: KindWget, Dir: "/definitely/not/here"},
		{Name: "open", Kind: KindOpen},
	})
	require.NoError(t, err)

	_, err = c.Build("missing", "http://x")
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = c.Build("open", `"'`)
	assert.ErrorIs(t, err, ErrEmptyURL)

	_, err = c.Build("wget", "http://x/a")
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestBuild_RejectsNonHTTPAndOptionLikeURLs(t *testing.T) {
	c, err := New(nil, Defaults())
	require.NoError(t, err)

	for _, link := range []string{
		"--script=/tmp/evil.lua",
		"-o/tmp/x",
		"file:///etc/passwd",
		"javascript:alert(1)",
		"ftp://example.com/a.mp3",
		"example.com/a.mp3",
		"http:///a.mp3",
	} {
		for _, name := range []string{"play", "open"} {
			_, err := c.Build(name, link)
			assert.ErrorIs(t, err, ErrBadURL, "%s %q", name, link)
		}
	}

	a, err := c.Build("open", "HTTPS://example.com/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, []action.Operation{action.Spawn("xdg-open", "HTTPS://example.com/a.mp3")}, a.Operations())
}

func TestDefaults_PlayEndsOptions(t *testing.T) {
	c, err := New(nil, Defaults())
	require.NoError(t, err)

	a, err := c.Build("play", "http://example.com/-a.mp3")
	require.NoError(t, err)
	assert.Equal(t, []action.Operation{action.Spawn("mpv", "--", "http://example.com/-a.mp3")}, a.Operations())
}

func TestNew_InvalidDefinitions(t *testing.T) {
	tests := []struct {
		name  string
		defs  []Definition
		field string
	}{
		{"empty name", []Definition{{Kind: KindOpen}}, "name"},
		{"unknown kind", []Definition{{Name: "x", Kind: "teleport"}}, "kind"},
		{"local without command", []Definition{{Name: "x", Kind: KindLocal}}, "command"},
		{"ssh without host", []Definition{{Name: "x", Kind: KindSSH, RemoteCommand: "ls"}}, "host"},
		{"bad port", []Definition{{Name: "x", Kind: KindSSH, Host: "h", RemoteCommand: "ls", Port: 70000}}, "port"},
		{"download without dir", []Definition{{Name: "x", Kind: KindDownload}}, "dir"},
		{"duplicate", []Definition{{Name: "x", Kind: KindOpen}, {Name: "x", Kind: KindOpen}}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil, tt.defs)
			require.ErrorIs(t, err, ErrInvalidDefinition)

			var defErr *DefinitionError
			require.True(t, errors.As(err, &defErr))
			assert.Equal(t, tt.field, defErr.Field)
		})
	}
}

func TestList_SortedWithTitles(t *testing.T) {
	c, err := New(nil, Defaults())
	require.NoError(t, err)

	list := c.List()
	require.Len(t, list, 4)
	assert.Equal(t, "download", list[0].Name)
	assert.Equal(t, "wget", list[3].Name)

	d, ok := c.Get("play")
	require.True(t, ok)
	assert.Equal(t, "play with mpv", d.Title)
}
