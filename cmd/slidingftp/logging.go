package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	dnssdlog "github.com/brutella/dnssd/log"
)

const defaultLogFile = "slidingftp.log"

type logOptions struct {
	level string
	file  string
}

// setupLogging installs the default slog logger. With toFile the records go
// to the log file instead of stderr. The returned func closes the file.
func setupLogging(opts *logOptions, toFile bool) (func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", opts.level, err)
	}

	dnssdlog.Info.SetOutput(io.Discard)
	dnssdlog.Debug.SetOutput(io.Discard)

	var out io.Writer = os.Stderr
	closeFn := func() {}
	if toFile {
		f, err := os.OpenFile(opts.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() {
			if err := f.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
			}
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return closeFn, nil
}
