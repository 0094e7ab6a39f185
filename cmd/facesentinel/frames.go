package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SBanditaDas/facesentinel/pkg/verify"
)

// errNoMoreFrames signals that a finite frame feed is drained.
var errNoMoreFrames = errors.New("no more frames")

// oneShotSource serves a single preloaded frame, then reports exhaustion.
type oneShotSource struct {
	data   []byte
	served bool
}

func (s *oneShotSource) ReadFrame() (*verify.Frame, error) {
	if s.served {
		return nil, errNoMoreFrames
	}
	s.served = true
	return &verify.Frame{Data: s.data, Timestamp: time.Now()}, nil
}

// dirFeed replays image files from a directory in name order, standing in
// for a live camera during watch sessions.
type dirFeed struct {
	files []string
	next  int
}

func newDirFeed(dir string) (*dirFeed, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image frames found in %s", dir)
	}

	return &dirFeed{files: files}, nil
}

func (f *dirFeed) Len() int {
	return len(f.files)
}

func (f *dirFeed) ReadFrame() (*verify.Frame, error) {
	if f.next >= len(f.files) {
		return nil, errNoMoreFrames
	}
	path := f.files[f.next]
	f.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %s: %w", path, err)
	}
	return &verify.Frame{Data: data, Timestamp: time.Now()}, nil
}
