package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	// Cancellation already surfaces through the interrupted command's output.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "sceneflow:", err)
	}
	os.Exit(1)
}
