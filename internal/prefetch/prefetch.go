// Package prefetch keeps the chapters next to the current one warm.
//
// Each direction runs at most one cancellable task. Finished caches are
// delivered on Results; the slot owner decides whether to install them.
package prefetch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/justyntemme/webby-pager/internal/chapter"
	"github.com/justyntemme/webby-pager/internal/layout"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// Direction is the side of the current chapter being prefetched
type Direction int

const (
	Next Direction = iota
	Previous
)

// String returns the direction name
func (d Direction) String() string {
	if d == Previous {
		return "previous"
	}
	return "next"
}

// Offset is the chapter index delta for the direction
func (d Direction) Offset() int {
	if d == Previous {
		return -1
	}
	return 1
}

// Status reports what a prefetch request did
type Status int

const (
	// StatusStarted means a new task was started
	StatusStarted Status = iota
	// StatusInFlight means a task for the same chapter is already running
	StatusInFlight
	// StatusCached means the held slot already has the chapter
	StatusCached
	// StatusBoundary means there is no chapter in that direction; the
	// caller should reset the slot to chapter.Empty
	StatusBoundary
	// StatusClosed means the coordinator has been closed
	StatusClosed
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusStarted:
		return "started"
	case StatusInFlight:
		return "in-flight"
	case StatusCached:
		return "cached"
	case StatusBoundary:
		return "boundary"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Loader builds chapters; *chapter.Loader satisfies it
type Loader interface {
	Load(ctx context.Context, req chapter.Request) (*chapter.Cache, error)
}

// Request describes the reader's current chapter and the slot that would
// receive the prefetched neighbour
type Request struct {
	Book     models.Book
	Chapters []models.Chapter
	Current  int
	Held     *chapter.Cache
	Spec     layout.Spec
}

// Result is a finished prefetch. Exactly one of Cache and Err is set.
type Result struct {
	Direction    Direction
	ChapterIndex int
	ChapterKey   string
	Cache        *chapter.Cache
	Err          error
}

type task struct {
	index  int
	key    string
	cancel context.CancelFunc
}

// Coordinator runs next/previous prefetch tasks
type Coordinator struct {
	loader  Loader
	log     *zap.Logger
	results chan Result

	mu     sync.Mutex
	tasks  [2]*task
	closed bool
	wg     sync.WaitGroup
}

// New creates a coordinator
func New(loader Loader, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		loader:  loader,
		log:     log.Named("prefetch"),
		results: make(chan Result, 2),
	}
}

// Results delivers finished prefetches. It is closed by Close.
func (c *Coordinator) Results() <-chan Result {
	return c.results
}

// PrefetchNext prefetches the chapter after req.Current
func (c *Coordinator) PrefetchNext(ctx context.Context, req Request) Status {
	return c.prefetch(ctx, Next, req)
}

// PrefetchPrevious prefetches the chapter before req.Current. It is laid
// out so its anchor page is the last page.
func (c *Coordinator) PrefetchPrevious(ctx context.Context, req Request) Status {
	return c.prefetch(ctx, Previous, req)
}

func (c *Coordinator) prefetch(ctx context.Context, dir Direction, req Request) Status {
	target := req.Current + dir.Offset()
	if target < 0 || target >= len(req.Chapters) {
		c.Cancel(dir)
		return StatusBoundary
	}
	key := chapter.Key(req.Book.ID, req.Chapters[target])
	if req.Held.Matches(target, key) {
		return StatusCached
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return StatusClosed
	}
	if t := c.tasks[dir]; t != nil {
		if t.index == target && t.key == key {
			return StatusInFlight
		}
		c.log.Debug("superseding prefetch",
			zap.Stringer("direction", dir), zap.Int("old", t.index), zap.Int("new", target))
		t.cancel()
		c.tasks[dir] = nil
	}

	anchor := 0
	if dir == Previous {
		anchor = chapter.AnchorEnd
	}
	tctx, cancel := context.WithCancel(ctx)
	t := &task{index: target, key: key, cancel: cancel}
	c.tasks[dir] = t

	c.wg.Add(1)
	go c.run(tctx, dir, t, chapter.Request{
		Book:     req.Book,
		Chapters: req.Chapters,
		Index:    target,
		Spec:     req.Spec,
		Anchor:   anchor,
	})
	return StatusStarted
}

func (c *Coordinator) run(ctx context.Context, dir Direction, t *task, req chapter.Request) {
	defer c.wg.Done()
	defer c.finish(dir, t)

	cache, err := c.loader.Load(ctx, req)
	if ctx.Err() != nil {
		c.log.Debug("prefetch cancelled", zap.Stringer("direction", dir), zap.Int("index", t.index))
		return
	}

	res := Result{Direction: dir, ChapterIndex: t.index, ChapterKey: t.key, Cache: cache, Err: err}
	if err != nil {
		c.log.Warn("prefetch failed", zap.Stringer("direction", dir), zap.Int("index", t.index), zap.Error(err))
		res.Cache = nil
	}

	select {
	case c.results <- res:
	case <-ctx.Done():
	}
}

func (c *Coordinator) finish(dir Direction, t *task) {
	c.mu.Lock()
	if c.tasks[dir] == t {
		c.tasks[dir] = nil
	}
	c.mu.Unlock()
	t.cancel()
}

// Cancel stops the task for dir, if any. Its result is never delivered.
func (c *Coordinator) Cancel(dir Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.tasks[dir]; t != nil {
		t.cancel()
		c.tasks[dir] = nil
	}
}

// CancelAll stops both directions
func (c *Coordinator) CancelAll() {
	c.Cancel(Next)
	c.Cancel(Previous)
}

// InFlight returns the chapter index being fetched for dir
func (c *Coordinator) InFlight(dir Direction) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.tasks[dir]; t != nil {
		return t.index, true
	}
	return 0, false
}

// Close cancels all tasks, waits for them to exit and closes Results
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for dir, t := range c.tasks {
		if t != nil {
			t.cancel()
			c.tasks[dir] = nil
		}
	}
	c.mu.Unlock()

	c.wg.Wait()
	close(c.results)
}
