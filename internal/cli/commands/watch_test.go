package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "db", "schema.rb")

	tests := []struct {
		name string
		ev   fsnotify.Event
		want changeKind
	}{
		{name: "schema write", ev: fsnotify.Event{Name: schema, Op: fsnotify.Write}, want: changeSchema},
		{name: "schema replaced", ev: fsnotify.Event{Name: schema, Op: fsnotify.Rename}, want: changeSchema},
		{name: "model created", ev: fsnotify.Event{Name: filepath.Join(dir, "app/models/user.rb"), Op: fsnotify.Create}, want: changeModel},
		{name: "other db file", ev: fsnotify.Event{Name: filepath.Join(dir, "db/seeds.rb"), Op: fsnotify.Write}, want: changeModel},
		{name: "not ruby", ev: fsnotify.Event{Name: filepath.Join(dir, "app/models/README.md"), Op: fsnotify.Write}, want: changeNone},
		{name: "chmod only", ev: fsnotify.Event{Name: schema, Op: fsnotify.Chmod}, want: changeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.ev, schema))
		})
	}
}

func TestWatchTree(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []string{"app/models/admin", "app/models/.git"} {
		mkdirAll(t, filepath.Join(dir, d))
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer func() { _ = w.Close() }()

	root := filepath.Join(dir, "app/models")
	assert.NoError(t, watchTree(w, root))
	assert.ElementsMatch(t, []string{root, filepath.Join(root, "admin")}, w.WatchList())
}

func mkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
}
