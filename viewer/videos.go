package viewer

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
)

// DefaultVideoPaths is the fixed pool of looping background videos.
var DefaultVideoPaths = []string{
	"background.mp4",
	"background2.mp4",
	"background3.mp4",
}

// Video is one entry of the pool. Size comes from the metadata pass; Loaded
// marks videos that may be picked as a backdrop.
type Video struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Loaded bool   `json:"loaded"`
}

// VideoPool lazily loads the background videos: Load reads metadata for all
// of them and fully loads only the first.
type VideoPool struct {
	root  string
	paths []string
	pick  func(n int) int

	mu     sync.Mutex
	videos []Video
}

func NewVideoPool(root string, paths []string) *VideoPool {
	if len(paths) == 0 {
		paths = DefaultVideoPaths
	}
	return &VideoPool{root: root, paths: paths, pick: rand.IntN}
}

// ErrNoVideos is returned by Load when none of the pool's videos is readable.
var ErrNoVideos = errors.New("no background video could be loaded")

// Load reads metadata for every video and fully loads the first readable one.
// Unreadable videos are left out of the pool; Load fails only when none are
// readable.
func (p *VideoPool) Load() error {
	videos := make([]Video, 0, len(p.paths))
	var failures []error
	for _, path := range p.paths {
		info, err := os.Stat(filepath.Join(p.root, path))
		if err == nil && info.IsDir() {
			err = errors.New("is a directory")
		}
		if err != nil {
			slog.Warn("Load: skipping background video", "path", path, "error", err)
			failures = append(failures, fmt.Errorf("video %s: %w", path, err))
			continue
		}
		videos = append(videos, Video{Path: path, Size: info.Size()})
	}
	if len(videos) > 0 {
		videos[0].Loaded = true
	}

	p.mu.Lock()
	p.videos = videos
	p.mu.Unlock()

	if len(videos) == 0 {
		return fmt.Errorf("%w: %w", ErrNoVideos, errors.Join(failures...))
	}
	return nil
}

// Preload marks path as loaded. It reports false for unknown paths.
func (p *VideoPool) Preload(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.videos {
		if p.videos[i].Path == path {
			p.videos[i].Loaded = true
			return true
		}
	}
	return false
}

// PreloadNext loads the first video that is not loaded yet.
func (p *VideoPool) PreloadNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.videos {
		if !p.videos[i].Loaded {
			p.videos[i].Loaded = true
			return
		}
	}
}

func (p *VideoPool) Videos() []Video {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Video, len(p.videos))
	copy(out, p.videos)
	return out
}

// Random picks one of the loaded videos.
func (p *VideoPool) Random() (Video, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var loaded []Video
	for _, v := range p.videos {
		if v.Loaded {
			loaded = append(loaded, v)
		}
	}
	if len(loaded) == 0 {
		return Video{}, false
	}
	return loaded[p.pick(len(loaded))], true
}
