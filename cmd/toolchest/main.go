package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rolentle/toolchest/internal/audio"
	"github.com/rolentle/toolchest/internal/engine"
	"github.com/rolentle/toolchest/internal/playback"
)

func main() {
	err := NewRootCmd().Execute()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(exitCode(err))
	}
}

// exitCode maps the session error taxonomy onto distinct process exit
// statuses.
func exitCode(err error) int {
	switch {
	case errors.Is(err, engine.ErrConfiguration):
		return 2
	case errors.Is(err, audio.ErrEmptyOutput):
		return 3
	case errors.Is(err, playback.ErrDevice):
		return 4
	case errors.Is(err, engine.ErrModel):
		return 5
	default:
		return 1
	}
}
