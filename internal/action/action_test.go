package action

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *[][]any) {
	t.Helper()
	var calls [][]any
	reg := NewRegistry()
	reg.MustRegister("record", func(_ context.Context, args ...any) error {
		calls = append(calls, args)
		return nil
	})
	reg.MustRegister("boom", func(_ context.Context, _ ...any) error {
		return errors.New("boom")
	})
	return reg, &calls
}

func TestNew_Validation(t *testing.T) {
	reg, _ := newTestRegistry(t)

	tests := []struct {
		name string
		ops  []Operation
		want error
	}{
		{"no operations", nil, ErrNoOperations},
		{"empty argv", []Operation{Spawn()}, ErrEmptyArgv},
		{"empty program", []Operation{Spawn("", "-x")}, ErrEmptyArgv},
		{"unregistered function", []Operation{Call("os.RemoveAll", "/")}, ErrUnknownFunction},
		{"unknown kind", []Operation{{Kind: "eval"}}, ErrUnknownKind},
		{"non primitive arg", []Operation{Call("record", []string{"a"})}, ErrUnsupportedArg},
		{"second operation invalid", []Operation{Spawn("true"), Call("missing")}, ErrUnknownFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(reg, tt.ops...)
			require.Error(t, err)
			assert.Nil(t, a)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNew_CopiesOperations(t *testing.T) {
	reg, _ := newTestRegistry(t)
	argv := []string{"echo", "a"}
	op := Spawn(argv...)

	a, err := New(reg, op)
	require.NoError(t, err)

	op.Argv[1] = "changed"
	got := a.Operations()
	assert.Equal(t, []string{"echo", "a"}, got[0].Argv)

	got[0].Argv[0] = "rm"
	assert.Equal(t, "echo", a.Operations()[0].Argv[0])
	assert.Equal(t, "echo", a.Name())
}

func TestSpec_GobRoundTrip(t *testing.T) {
	reg, calls := newTestRegistry(t)

	a, err := NewNamed(reg, "mixed", Call("record", 4, "arg2", 2.5, true, int64(7), uint8(3)))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(a.Spec()))

	var spec Spec
	require.NoError(t, gob.NewDecoder(&buf).Decode(&spec))

	restored, err := FromSpec(reg, spec)
	require.NoError(t, err)
	assert.Equal(t, "mixed", restored.Name())

	require.NoError(t, restored.Execute(context.Background(), reg))
	require.Len(t, *calls, 1)
	assert.Equal(t, []any{4, "arg2", 2.5, true, int64(7), uint8(3)}, (*calls)[0])
}

func TestFromSpec_RejectsUnknownFunction(t *testing.T) {
	reg, _ := newTestRegistry(t)
	_, err := FromSpec(reg, Spec{Operations: []Operation{Call("not-there")}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExecute_StopsAtFirstError(t *testing.T) {
	reg, calls := newTestRegistry(t)

	a, err := New(reg, Call("record", 1), Call("boom"), Call("record", 2))
	require.NoError(t, err)

	err = a.Execute(context.Background(), reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, *calls, 1)
}

func TestExecute_Spawn(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")

	a, err := New(NewRegistry(), Spawn("sh", "-c", "echo hi > "+marker))
	require.NoError(t, err)
	require.NoError(t, a.Execute(context.Background(), nil))

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(data))
}

func TestExecute_SpawnNonZeroExit(t *testing.T) {
	a, err := New(NewRegistry(), Spawn("sh", "-c", "exit 3"))
	require.NoError(t, err)

	err = a.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrProcessFailed)
	assert.Contains(t, err.Error(), "code 3")
}

func TestRegistry_FreezeAndDuplicates(t *testing.T) {
	reg := NewRegistry()
	fn := func(context.Context, ...any) error { return nil }

	require.NoError(t, reg.Register("a", fn))
	assert.ErrorIs(t, reg.Register("a", fn), ErrDuplicateFunction)

	reg.Freeze()
	assert.True(t, reg.Frozen())
	assert.ErrorIs(t, reg.Register("b", fn), ErrRegistryFrozen)
	assert.Equal(t, []string{"a"}, reg.Names())
}

func TestDefault_RegisterAfterFreezePanics(t *testing.T) {
	Default().Freeze()

	defer func() {
		err, ok := recover().(error)
		require.True(t, ok, "Register must panic with an error")
		assert.ErrorIs(t, err, ErrRegistryFrozen)
		assert.NotContains(t, Default().Names(), "late")
	}()
	Register("late", func(context.Context, ...any) error { return nil })
}

func TestDefault_Builtins(t *testing.T) {
	names := Default().Names()
	for _, want := range []string{"download", "echo", "fail", "sleep"} {
		assert.Contains(t, names, want)
	}
}

func TestSleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 0.05))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, 10), context.Canceled)
	assert.ErrorIs(t, Sleep(context.Background(), "1"), ErrBadArguments)
}

func TestFail(t *testing.T) {
	err := Fail(context.Background(), "division by zero")
	require.Error(t, err)
	assert.Equal(t, "division by zero", err.Error())
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/episode.mp3":
			w.Write([]byte("audio"))
		case "/get":
			w.Header().Set("Content-Disposition", `attachment; filename="show 1.ogg"`)
			w.Write([]byte("ogg"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	dir := t.TempDir()

	require.NoError(t, Download(context.Background(), server.URL+"/episode.mp3", dir))
	data, err := os.ReadFile(filepath.Join(dir, "episode.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))

	require.NoError(t, Download(context.Background(), server.URL+"/get?id=1", dir))
	data, err = os.ReadFile(filepath.Join(dir, "show 1.ogg"))
	require.NoError(t, err)
	assert.Equal(t, "ogg", string(data))

	assert.Error(t, Download(context.Background(), server.URL+"/missing", dir))
	assert.ErrorIs(t, Download(context.Background(), server.URL), ErrBadArguments)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		disposition string
		url         string
		want        string
	}{
		{"", "http://example.com/a/b/file.mp3", "file.mp3"},
		{`attachment; filename="x.mp3"`, "http://example.com/other", "x.mp3"},
		{`attachment; filename="../../etc/passwd"`, "http://example.com/", "etcpasswd"},
		{"", "http://example.com/", fallbackFileName},
		{"garbage;;", "http://example.com/dir/", "dir"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.disposition, tt.url), tt.url)
	}
}
