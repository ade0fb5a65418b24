package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"github.com/cruffinoni/gobars/internal/config"
)

func TestWatchLoopDebouncesBursts(t *testing.T) {
	events := make(chan fsnotify.Event)
	errs := make(chan error)
	batches := make(chan []fsnotify.Event, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, events, errs, 50*time.Millisecond, slog.New(slog.DiscardHandler), func(batch []fsnotify.Event) {
			batches <- batch
		})
	}()

	events <- fsnotify.Event{Name: "a.hbs", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "b.hbs", Op: fsnotify.Write}
	errs <- os.ErrPermission
	events <- fsnotify.Event{Name: "a.hbs", Op: fsnotify.Write}

	select {
	case batch := <-batches:
		require.Len(t, batch, 3)
		require.Equal(t, "b.hbs", batch[1].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch flushed")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not stop")
	}
	require.Empty(t, batches)
}

func TestWatchLoopStopsWhenEventsClose(t *testing.T) {
	events := make(chan fsnotify.Event)
	close(events)
	err := watchLoop(context.Background(), events, nil, time.Millisecond, slog.New(slog.DiscardHandler), func([]fsnotify.Event) {
		t.Fatal("unexpected flush")
	})
	require.NoError(t, err)
}

type recordingAdder struct {
	added []string
}

func (r *recordingAdder) Add(name string) error {
	r.added = append(r.added, name)
	return nil
}

func TestChangedTemplates(t *testing.T) {
	_, in, out, _ := setup(t)
	mustWrite(t, filepath.Join(in, "a.hbs"), "a")
	newDir := filepath.Join(in, "pages", "sub")
	require.NoError(t, os.MkdirAll(newDir, 0o755))

	cfg := config.Default()
	cfg.In = in
	cfg.Out = out
	p := newTestPrecompiler(t, cfg)

	adder := &recordingAdder{}
	changed := p.changedTemplates([]fsnotify.Event{
		{Name: filepath.Join(in, "pages"), Op: fsnotify.Create},
		{Name: filepath.Join(in, "a.hbs"), Op: fsnotify.Write},
		{Name: filepath.Join(in, "a.hbs"), Op: fsnotify.Write},
		{Name: filepath.Join(in, "notes.txt"), Op: fsnotify.Write},
		{Name: filepath.Join(in, "z.hbs"), Op: fsnotify.Remove},
		{Name: filepath.Join(in, "a.hbs"), Op: fsnotify.Chmod},
	}, adder)

	require.Equal(t, []string{"a.hbs", "z.hbs"}, changed)
	require.Equal(t, []string{filepath.Join(in, "pages"), newDir}, adder.added)
}
