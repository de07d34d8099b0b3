package chapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/justyntemme/webby-pager/internal/layout"
	"github.com/justyntemme/webby-pager/internal/textmodel"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// ErrNoChapter is returned for chapter indexes outside the book
var ErrNoChapter = errors.New("no such chapter")

// Fetcher retrieves raw chapter bodies. Implementations own timeouts and
// retries.
type Fetcher interface {
	FetchChapter(ctx context.Context, book models.Book, ch models.Chapter) (models.ChapterContent, error)
}

// Request identifies a chapter to load and how to lay it out
type Request struct {
	Book     models.Book
	Chapters []models.Chapter
	Index    int
	Spec     layout.Spec
	Anchor   int
	Reuse    *textmodel.Model
}

// Loader fetches and builds chapters. Concurrent fetches of the same
// chapter share one call to the Fetcher, which is cancelled once every
// caller waiting on it has gone.
type Loader struct {
	fetcher Fetcher
	builder *Builder
	log     *zap.Logger
	group   singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is a shared fetch and the number of callers waiting on it
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewLoader creates a loader over fetcher
func NewLoader(fetcher Fetcher, builder *Builder, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{fetcher: fetcher, builder: builder, log: log, flights: map[string]*flight{}}
}

// Builder returns the builder caches are made with
func (l *Loader) Builder() *Builder {
	return l.builder
}

// Fetch returns the source of chapter index. Cancelling ctx abandons the
// wait; the shared fetch keeps running while other callers still wait
// on it.
func (l *Loader) Fetch(ctx context.Context, book models.Book, chapters []models.Chapter, index int) (Source, error) {
	if index < 0 || index >= len(chapters) {
		return Source{}, fmt.Errorf("chapter %d: %w", index, ErrNoChapter)
	}
	ch := chapters[index]
	key := Key(book.ID, ch)

	f, resultCh := l.join(ctx, key, func(fctx context.Context) (any, error) {
		l.log.Debug("fetching chapter", zap.String("key", key), zap.Int("index", index))
		return l.fetcher.FetchChapter(fctx, book, ch)
	})

	select {
	case <-ctx.Done():
		l.leave(key, f, true)
		return Source{}, ctx.Err()
	case res := <-resultCh:
		l.leave(key, f, false)
		if res.Err != nil {
			return Source{}, fmt.Errorf("fetch chapter %d: %w", index, res.Err)
		}
		cc := res.Val.(models.ChapterContent)
		title := cc.Title
		if title == "" {
			title = ch.Title
		}
		contentType := cc.ContentType
		if contentType == "" {
			contentType = book.ContentType
		}
		return Source{
			Index:       index,
			Key:         key,
			Title:       title,
			Raw:         cc.Content,
			ContentType: contentType,
			Format:      cc.Format,
		}, nil
	}
}

// join waits on the fetch for key, starting it if none is running. The
// fetch runs under its own context so one caller's cancellation does not
// end it for the others.
func (l *Loader) join(ctx context.Context, key string, fetch func(context.Context) (any, error)) (*flight, <-chan singleflight.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f := l.flights[key]
	if f == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		l.flights[key] = f
	}
	f.waiters++
	return f, l.group.DoChan(key, func() (any, error) { return fetch(f.ctx) })
}

// leave drops a waiter. The last one out cancels the fetch; when it gave
// up early the call is forgotten so the next caller starts afresh.
func (l *Loader) leave(key string, f *flight, abandoned bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if l.flights[key] == f {
		delete(l.flights, key)
	}
	if abandoned {
		l.group.Forget(key)
		l.log.Debug("abandoned chapter fetch", zap.String("key", key))
	}
}

// Load fetches and builds the requested chapter. Cancellation is checked
// before the fetch and again before the build.
func (l *Loader) Load(ctx context.Context, req Request) (*Cache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := l.Fetch(ctx, req.Book, req.Chapters, req.Index)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.builder.Build(src, req.Spec, req.Reuse, req.Anchor), nil
}
