package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keysync/internal/filewalker"
	"keysync/internal/runner"
)

type countingTarget struct {
	walker *filewalker.Walker
	runs   atomic.Int32
}

func (c *countingTarget) Run(context.Context) (*runner.Report, error) {
	c.runs.Add(1)
	return &runner.Report{}, nil
}

func (c *countingTarget) Walker() *filewalker.Walker { return c.walker }

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func startWatcher(t *testing.T, root string, extra []string) (*countingTarget, chan struct{}) {
	t.Helper()
	walker, err := filewalker.NewWalker([]string{"src/**/*.ts"}, []string{"src/gen/**"}, nil)
	require.NoError(t, err)
	target := &countingTarget{walker: walker}

	w, err := New(root, target, extra, 50*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	runs := make(chan struct{}, 16)
	go func() {
		defer close(done)
		assert.NoError(t, w.Watch(ctx, func(*runner.Report, error) { runs <- struct{}{} }))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("initial run did not happen")
	}
	return target, runs
}

func TestWatchRerunsOnSourceChange(t *testing.T) {
	root := t.TempDir()
	write(t, root, "src/a.ts", "t('a');")
	target, runs := startWatcher(t, root, nil)

	write(t, root, "src/a.ts", "t('b');")
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("change did not trigger a run")
	}
	assert.GreaterOrEqual(t, target.runs.Load(), int32(2))
}

func TestWatchCoalescesBursts(t *testing.T) {
	root := t.TempDir()
	write(t, root, "src/a.ts", "")
	target, runs := startWatcher(t, root, nil)

	for i := range 5 {
		write(t, root, "src/a.ts", string(rune('a'+i)))
	}
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("burst did not trigger a run")
	}
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(2), target.runs.Load())
}

func TestWatchIgnoresUnrelatedFiles(t *testing.T) {
	root := t.TempDir()
	write(t, root, "src/a.ts", "")
	target, _ := startWatcher(t, root, nil)

	write(t, root, "README.md", "docs")
	write(t, root, "locales/en/translation.json", "{}")
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), target.runs.Load())
}

func TestWatchNewDirectoriesAndExtraPatterns(t *testing.T) {
	root := t.TempDir()
	write(t, root, "src/a.ts", "")
	write(t, root, "public/index.html", "")
	_, runs := startWatcher(t, root, []string{"public/**/*.html"})

	write(t, root, "public/index.html", "<p data-i18n=\"x\"></p>")
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("extra pattern did not trigger a run")
	}

	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "feature"), 0o755))
	time.Sleep(100 * time.Millisecond)
	write(t, root, "src/feature/b.ts", "t('b');")
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("file in new directory did not trigger a run")
	}
}
