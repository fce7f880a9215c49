package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cours-de-latin/denpa"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const debounceDelay = 100 * time.Millisecond

func watchCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "watch LANGUAGE",
		Short: "Regenerate whenever the language file or its imports change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolve(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return newWatcher(args[0], s, cmd.OutOrStdout(), cmd.ErrOrStderr()).run(ctx)
		},
	}
	addFlags(cmd, opts)
	return cmd
}

// watcher reloads a language and regenerates its output when any file the
// language was built from changes. Parent directories are watched so that
// editors replacing files through renames are noticed.
type watcher struct {
	path     string
	settings *settings
	out      io.Writer
	errOut   io.Writer

	files map[string]bool
	dirs  map[string]bool
}

func newWatcher(path string, s *settings, out, errOut io.Writer) *watcher {
	return &watcher{
		path:     path,
		settings: s,
		out:      out,
		errOut:   errOut,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}
}

func (w *watcher) run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	w.track(fsw, w.regenerate())

	ticker := time.NewTicker(debounceDelay)
	defer ticker.Stop()
	pending := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.files[absPath(event.Name)] && event.Op != fsnotify.Chmod {
				w.settings.logger.Debug("File change detected", "path", event.Name, "op", event.Op.String())
				pending = true
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.settings.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			if pending {
				pending = false
				w.track(fsw, w.regenerate())
			}
		}
	}
}

// regenerate reloads the language, prints fresh output and returns the
// files it was built from. Failures are reported and leave the root file watched.
func (w *watcher) regenerate() []string {
	lang, err := load(w.path, w.settings)
	if err != nil {
		fmt.Fprintln(w.errOut, denpa.Diagnostic(err))
		return []string{w.path}
	}
	if err := runGenerate(w.out, lang, w.settings); err != nil {
		fmt.Fprintln(w.errOut, denpa.Diagnostic(err))
	}
	return lang.Files()
}

func (w *watcher) track(fsw *fsnotify.Watcher, files []string) {
	w.files = make(map[string]bool, len(files))
	for _, f := range files {
		abs := absPath(f)
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if w.dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			w.settings.logger.Warn("Failed to watch directory", "path", dir, "error", err)
			continue
		}
		w.dirs[dir] = true
		w.settings.logger.Debug("Watching directory", "path", dir)
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
