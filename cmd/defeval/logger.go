package main

import (
	"fmt"
	"io"
	"log"
	"os"
)

// setLogger sends the standard logger to both stderr and the file at path.
// The returned func restores the previous output and closes the file.
func setLogger(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	log.SetFlags(log.LstdFlags)
	return func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
		f.Close()
	}, nil
}
