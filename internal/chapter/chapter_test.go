package chapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/justyntemme/webby-pager/internal/layout"
	"github.com/justyntemme/webby-pager/pkg/models"
)

func testSpec() layout.Spec {
	return layout.Spec{FontSize: 1, ParagraphSpacing: 1, ViewportWidth: 30, ViewportHeight: 6, Indent: "  "}
}

func longBody(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Sentence number %d goes on for a few words.\n", i)
	}
	return b.String()
}

func TestBuildText(t *testing.T) {
	b := NewBuilder(nil, nil)
	src := Source{Index: 2, Key: "book/2", Title: "Two", Raw: longBody(20), ContentType: models.ContentTypeBook}
	c := b.Build(src, testSpec(), nil, 0)

	if c.IsEmpty() || c.IsManga() {
		t.Fatal("expected a text chapter")
	}
	if c.Model == nil || c.Layout == nil || len(c.Pages) < 2 {
		t.Fatalf("text payload missing: %d pages", len(c.Pages))
	}
	if len(c.ImageURLs) != 0 {
		t.Error("text chapter must not carry images")
	}
	if len(c.ParagraphStarts) != 20 || c.SentenceCount() != 20 {
		t.Errorf("got %d paragraph starts", len(c.ParagraphStarts))
	}
	if !c.Matches(2, "book/2") || c.Matches(3, "book/2") {
		t.Error("Matches gave the wrong answer")
	}
	if c.Source().Raw != src.Raw {
		t.Error("raw content should be retained")
	}
}

func TestBuildTextAnchorEnd(t *testing.T) {
	b := NewBuilder(nil, nil)
	c := b.BuildText(Source{Title: "T", Raw: longBody(30)}, testSpec(), nil, AnchorEnd)
	if c.AnchorPageIndex != len(c.Pages)-1 {
		t.Errorf("AnchorPageIndex = %d, want last page %d", c.AnchorPageIndex, len(c.Pages)-1)
	}
}

func TestBuildTextReuse(t *testing.T) {
	b := NewBuilder(nil, nil)
	src := Source{Title: "T", Raw: longBody(10)}
	first := b.BuildText(src, testSpec(), nil, 0)

	wider := testSpec()
	wider.ViewportWidth = 80
	second := b.BuildText(src, wider, first.Model, 0)

	if second.Model != first.Model {
		t.Error("reused model handle should be kept")
	}
	if second.Layout == first.Layout {
		t.Error("reuse must produce a new snapshot")
	}
	if first.Model.Snapshot() != second.Layout {
		t.Error("handle should point at the newest snapshot")
	}
}

func TestBuildManga(t *testing.T) {
	b := NewBuilder(nil, nil)
	c := b.Build(Source{Index: 0, Key: "c/0", Raw: "p1.jpg\n\n  p2.jpg \np3.jpg\n", ContentType: models.ContentTypeComic}, testSpec(), nil, 0)
	if !c.IsManga() {
		t.Fatal("expected manga chapter")
	}
	if len(c.ImageURLs) != 3 || c.ImageURLs[1] != "p2.jpg" {
		t.Errorf("ImageURLs = %q", c.ImageURLs)
	}
	if c.Pages != nil || c.Layout != nil {
		t.Error("manga chapter must not carry a text payload")
	}
	if c.PageCount() != 3 {
		t.Errorf("PageCount = %d", c.PageCount())
	}
}

func TestBuildError(t *testing.T) {
	b := NewBuilder(nil, nil)
	c := b.BuildError(Source{Index: 4, Key: "k", Title: "Four"}, testSpec(), errors.New("server down"))
	if c.Err == nil {
		t.Fatal("placeholder must carry the error")
	}
	if !strings.Contains(c.Layout.Text(), "server down") {
		t.Errorf("placeholder text = %q", c.Layout.Text())
	}
	if c.ChapterIndex != 4 || c.ChapterKey != "k" {
		t.Error("placeholder must keep chapter identity")
	}
}

func TestEmptySentinel(t *testing.T) {
	var nilCache *Cache
	if !Empty.IsEmpty() || !nilCache.IsEmpty() {
		t.Error("Empty and nil should be empty")
	}
	if Empty.Matches(-1, "") {
		t.Error("Empty must never match an identity")
	}
	if Empty.PageCount() != 0 || Empty.Len() != 0 {
		t.Error("Empty should have no content")
	}
}

func TestRender(t *testing.T) {
	b := NewBuilder(nil, nil)
	c := b.BuildText(Source{Title: "Title", Raw: longBody(8)}, testSpec(), nil, 0)

	var joined strings.Builder
	for i := range c.Pages {
		r, ok := c.Render(i)
		if !ok {
			t.Fatalf("Render(%d) failed", i)
		}
		if len(r.Lines) == 0 {
			t.Fatalf("page %d has no lines", i)
		}
		if r.Lines[0].Start != r.Range.Location {
			t.Errorf("page %d first line at %d, range at %d", i, r.Lines[0].Start, r.Range.Location)
		}
		if last := r.Lines[len(r.Lines)-1]; last.End != r.Range.End() {
			t.Errorf("page %d last line ends %d, range ends %d", i, last.End, r.Range.End())
		}
		for _, l := range r.Lines {
			if strings.Contains(l.Text, "\n") {
				t.Errorf("line text contains newline: %q", l.Text)
			}
			joined.WriteString(l.Text)
		}
	}
	if !strings.Contains(joined.String(), "Sentence number 7") {
		t.Error("rendered pages lost text")
	}
	if _, ok := c.Render(len(c.Pages)); ok {
		t.Error("out of range page should not render")
	}
}

func TestKey(t *testing.T) {
	if got := Key("b", models.Chapter{Href: "ch1.xhtml"}); got != "b/ch1.xhtml" {
		t.Errorf("href key = %q", got)
	}
	if got := Key("b", models.Chapter{ID: "c1"}); got != "b/c1" {
		t.Errorf("id key = %q", got)
	}
	if got := Key("b", models.Chapter{Index: 3}); got != "b/#3" {
		t.Errorf("index key = %q", got)
	}
}

type countingFetcher struct {
	calls atomic.Int32
	gate  chan struct{}
	err   error
}

func (f *countingFetcher) FetchChapter(ctx context.Context, book models.Book, ch models.Chapter) (models.ChapterContent, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return models.ChapterContent{}, f.err
	}
	return models.ChapterContent{BookID: book.ID, Chapter: ch.Index, Content: longBody(5)}, nil
}

func testChapters(n int) []models.Chapter {
	out := make([]models.Chapter, n)
	for i := range out {
		out[i] = models.Chapter{Index: i, Title: fmt.Sprintf("Chapter %d", i+1)}
	}
	return out
}

func TestLoaderDedup(t *testing.T) {
	f := &countingFetcher{gate: make(chan struct{})}
	l := NewLoader(f, NewBuilder(nil, nil), zaptest.NewLogger(t))
	req := Request{Book: models.Book{ID: "b"}, Chapters: testChapters(3), Index: 1, Spec: testSpec()}

	var wg sync.WaitGroup
	results := make([]*Cache, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := l.Load(context.Background(), req)
			if err != nil {
				t.Errorf("Load failed: %v", err)
			}
			results[i] = c
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	if got := f.calls.Load(); got != 1 {
		t.Errorf("fetcher called %d times, want 1", got)
	}
	for _, c := range results {
		if c == nil || c.ChapterIndex != 1 || c.Title != "Chapter 2" {
			t.Errorf("unexpected cache %+v", c)
		}
	}
}

func TestLoaderCancel(t *testing.T) {
	f := &countingFetcher{gate: make(chan struct{})}
	defer close(f.gate)
	l := NewLoader(f, NewBuilder(nil, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.Load(ctx, Request{Book: models.Book{ID: "b"}, Chapters: testChapters(2), Index: 0, Spec: testSpec()})
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Load did not return after cancel")
	}
}

func TestLoaderErrors(t *testing.T) {
	l := NewLoader(&countingFetcher{err: errors.New("boom")}, NewBuilder(nil, nil), nil)
	req := Request{Book: models.Book{ID: "b"}, Chapters: testChapters(2), Index: 1}
	if _, err := l.Load(context.Background(), req); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v", err)
	}

	req.Index = 5
	if _, err := l.Load(context.Background(), req); !errors.Is(err, ErrNoChapter) {
		t.Errorf("err = %v, want ErrNoChapter", err)
	}
}

// heldFetcher blocks every fetch until release, reporting starts and
// cancellations
type heldFetcher struct {
	calls    atomic.Int32
	started  chan struct{}
	canceled chan struct{}
	release  chan struct{}
}

func newHeldFetcher() *heldFetcher {
	return &heldFetcher{
		started:  make(chan struct{}, 4),
		canceled: make(chan struct{}, 4),
		release:  make(chan struct{}),
	}
}

func (f *heldFetcher) FetchChapter(ctx context.Context, book models.Book, ch models.Chapter) (models.ChapterContent, error) {
	f.calls.Add(1)
	f.started <- struct{}{}
	select {
	case <-f.release:
		return models.ChapterContent{BookID: book.ID, Chapter: ch.Index, Content: longBody(3)}, nil
	case <-ctx.Done():
		f.canceled <- struct{}{}
		return models.ChapterContent{}, ctx.Err()
	}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// waitWaiters polls until n callers share the fetch for key
func waitWaiters(t *testing.T, l *Loader, key string, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		f := l.flights[key]
		got := 0
		if f != nil {
			got = f.waiters
		}
		l.mu.Unlock()
		if got == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("%s never had %d waiters", key, n)
}

func TestLoaderCancelsAbandonedFetch(t *testing.T) {
	f := newHeldFetcher()
	l := NewLoader(f, NewBuilder(nil, nil), zaptest.NewLogger(t))
	book, chapters := models.Book{ID: "b"}, testChapters(2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.Fetch(ctx, book, chapters, 1)
		done <- err
	}()
	waitFor(t, f.started, "fetch to start")
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	waitFor(t, f.canceled, "abandoned fetch to be cancelled")

	// the next caller starts a fresh fetch rather than joining the dead one
	go func() {
		_, err := l.Fetch(context.Background(), book, chapters, 1)
		done <- err
	}()
	waitFor(t, f.started, "second fetch to start")
	close(f.release)
	if err := <-done; err != nil {
		t.Errorf("second fetch: %v", err)
	}
	if got := f.calls.Load(); got != 2 {
		t.Errorf("fetcher called %d times, want 2", got)
	}
}

func TestLoaderKeepsSharedFetch(t *testing.T) {
	f := newHeldFetcher()
	l := NewLoader(f, NewBuilder(nil, nil), zaptest.NewLogger(t))
	book, chapters := models.Book{ID: "b"}, testChapters(2)
	key := Key(book.ID, chapters[0])

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := l.Fetch(ctx, book, chapters, 0)
		first <- err
	}()
	waitFor(t, f.started, "fetch to start")

	second := make(chan error, 1)
	go func() {
		src, err := l.Fetch(context.Background(), book, chapters, 0)
		if err == nil && src.Raw == "" {
			err = errors.New("empty body")
		}
		second <- err
	}()
	waitWaiters(t, l, key, 2)

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Errorf("first caller: %v", err)
	}
	select {
	case <-f.canceled:
		t.Fatal("fetch cancelled while a caller still waits")
	default:
	}

	close(f.release)
	if err := <-second; err != nil {
		t.Errorf("second caller: %v", err)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("fetcher called %d times, want 1", got)
	}
	waitWaiters(t, l, key, 0)
}
