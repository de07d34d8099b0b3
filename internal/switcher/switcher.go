// Package switcher owns the previous/current/next chapter slots of an
// open book and moves the reader between chapters.
//
// A Switcher is not safe for concurrent use. All methods except Wait must
// be called from the goroutine that owns the slots; background loads and
// prefetches report back through Wait and are installed with Apply.
package switcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/webby-pager/internal/chapter"
	"github.com/justyntemme/webby-pager/internal/layout"
	"github.com/justyntemme/webby-pager/internal/prefetch"
	"github.com/justyntemme/webby-pager/pkg/models"
)

var (
	// ErrSwitchInProgress is returned when a chapter is still loading
	ErrSwitchInProgress = errors.New("chapter switch in progress")
	// ErrCoolingDown is returned when switches come faster than the cooldown
	ErrCoolingDown = errors.New("chapter switch cooling down")
	// ErrNoChapter is returned when the target chapter does not exist
	ErrNoChapter = chapter.ErrNoChapter
	// ErrClosed is returned by Wait after Close
	ErrClosed = errors.New("switcher closed")
)

// Landing says which page of the new chapter the reader should land on
type Landing int

const (
	LandStart Landing = iota
	LandEnd
	LandAnchor
)

// Slot names one of the three chapter slots
type Slot int

const (
	SlotPrevious Slot = iota
	SlotCurrent
	SlotNext
)

// Loader loads a chapter immediately; *chapter.Loader satisfies it
type Loader interface {
	Load(ctx context.Context, req chapter.Request) (*chapter.Cache, error)
}

// Prefetcher warms the neighbouring slots; *prefetch.Coordinator
// satisfies it
type Prefetcher interface {
	PrefetchNext(ctx context.Context, req prefetch.Request) prefetch.Status
	PrefetchPrevious(ctx context.Context, req prefetch.Request) prefetch.Status
	CancelAll()
	Results() <-chan prefetch.Result
}

// Options tunes a Switcher
type Options struct {
	// Cooldown is the minimum time between two Switch calls
	Cooldown time.Duration
	Now      func() time.Time
	Log      *zap.Logger
}

// LoadResult is a finished hard load
type LoadResult struct {
	Seq    uint64
	Index  int
	Key    string
	Anchor int
	Cache  *chapter.Cache
	Err    error
}

// RelayoutResult is a finished background re-pagination of the slots
type RelayoutResult struct {
	Seq   uint64
	Index int
	Slots [3]*chapter.Cache
}

// Event is one background completion. Exactly one field is set.
type Event struct {
	Prefetch *prefetch.Result
	Load     *LoadResult
	Relayout *RelayoutResult
}

// Switcher holds the chapter slots of one book
type Switcher struct {
	loader  Loader
	builder *chapter.Builder
	pf      Prefetcher
	log     *zap.Logger
	now     func() time.Time
	cool    time.Duration

	book     models.Book
	chapters []models.Chapter
	spec     layout.Spec
	index    int
	slots    [3]*chapter.Cache

	loading    bool
	loadSeq    uint64
	loadCancel context.CancelFunc
	lastSwitch time.Time

	relayouting    bool
	relayoutSeq    uint64
	relayoutCancel context.CancelFunc

	loads     chan LoadResult
	relayouts chan RelayoutResult
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a switcher. builder must be the one loader builds with so
// placeholders and relayouts match loaded chapters.
func New(loader Loader, builder *chapter.Builder, pf Prefetcher, opts Options) *Switcher {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if builder == nil {
		builder = chapter.NewBuilder(nil, nil)
	}
	return &Switcher{
		loader:  loader,
		builder: builder,
		pf:      pf,
		log:     opts.Log.Named("switcher"),
		now:     opts.Now,
		cool:    opts.Cooldown,
		slots:   [3]*chapter.Cache{chapter.Empty, chapter.Empty, chapter.Empty},
		loads:     make(chan LoadResult, 1),
		relayouts: make(chan RelayoutResult, 1),
		done:      make(chan struct{}),
	}
}

// Open starts reading book at chapter index, positioned at anchor
func (s *Switcher) Open(ctx context.Context, book models.Book, chapters []models.Chapter, index int, spec layout.Spec, anchor int) error {
	if index < 0 || index >= len(chapters) {
		return fmt.Errorf("open chapter %d of %d: %w", index, len(chapters), ErrNoChapter)
	}
	s.book = book
	s.chapters = chapters
	s.spec = spec
	s.lastSwitch = time.Time{}
	s.hardLoad(ctx, index, anchor)
	return nil
}

// JumpTo discards every slot and loads chapter index at anchor. It
// supersedes a load already in flight.
func (s *Switcher) JumpTo(ctx context.Context, index, anchor int) error {
	if index < 0 || index >= len(s.chapters) {
		return fmt.Errorf("jump to chapter %d: %w", index, ErrNoChapter)
	}
	s.hardLoad(ctx, index, anchor)
	return nil
}

// Switch moves one chapter forward (+1) or back (-1). When the neighbour
// is already built the slots rotate in place; otherwise the chapter is
// loaded and arrives later through Wait. Backward moves land on the last
// page.
func (s *Switcher) Switch(ctx context.Context, delta int) (Landing, error) {
	if delta != 1 && delta != -1 {
		return LandStart, fmt.Errorf("switch by %d: only adjacent chapters", delta)
	}
	if s.loading || s.relayouting {
		return LandStart, ErrSwitchInProgress
	}
	now := s.now()
	if s.cool > 0 && !s.lastSwitch.IsZero() && now.Sub(s.lastSwitch) < s.cool {
		return LandStart, ErrCoolingDown
	}
	target := s.index + delta
	if target < 0 || target >= len(s.chapters) {
		return LandStart, fmt.Errorf("switch to chapter %d: %w", target, ErrNoChapter)
	}
	s.lastSwitch = now

	slot, landing, anchor := SlotNext, LandStart, 0
	if delta < 0 {
		slot, landing, anchor = SlotPrevious, LandEnd, chapter.AnchorEnd
	}

	key := chapter.Key(s.book.ID, s.chapters[target])
	if c := s.slots[slot]; c.Matches(target, key) && c.Err == nil {
		s.pf.CancelAll()
		if delta > 0 {
			s.slots = [3]*chapter.Cache{s.slots[SlotCurrent], s.slots[SlotNext], chapter.Empty}
		} else {
			s.slots = [3]*chapter.Cache{chapter.Empty, s.slots[SlotPrevious], s.slots[SlotCurrent]}
		}
		s.index = target
		s.log.Debug("seamless switch", zap.Int("index", target))
		s.refreshNeighbors(ctx)
		return landing, nil
	}

	s.log.Debug("hard switch", zap.Int("index", target))
	s.hardLoad(ctx, target, anchor)
	return landing, nil
}

func (s *Switcher) hardLoad(ctx context.Context, index, anchor int) {
	s.pf.CancelAll()
	s.stopRelayout()
	if s.loadCancel != nil {
		s.loadCancel()
	}
	s.slots = [3]*chapter.Cache{chapter.Empty, chapter.Empty, chapter.Empty}
	s.index = index
	s.loading = true
	s.loadSeq++

	lctx, cancel := context.WithCancel(ctx)
	s.loadCancel = cancel
	req := chapter.Request{
		Book:     s.book,
		Chapters: s.chapters,
		Index:    index,
		Spec:     s.spec,
		Anchor:   anchor,
	}
	res := LoadResult{Seq: s.loadSeq, Index: index, Key: chapter.Key(s.book.ID, s.chapters[index]), Anchor: anchor}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res.Cache, res.Err = s.loader.Load(lctx, req)
		select {
		case s.loads <- res:
		case <-lctx.Done():
		case <-s.done:
		}
	}()
}

// Wait blocks until a load or prefetch finishes. It is the only method
// that may be called from another goroutine.
func (s *Switcher) Wait(ctx context.Context) (Event, error) {
	select {
	case r, ok := <-s.pf.Results():
		if !ok {
			return Event{}, ErrClosed
		}
		return Event{Prefetch: &r}, nil
	case r := <-s.loads:
		return Event{Load: &r}, nil
	case r := <-s.relayouts:
		return Event{Relayout: &r}, nil
	case <-s.done:
		return Event{}, ErrClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Apply installs ev if it is still wanted and reports whether any slot
// changed. Results for superseded loads or for chapters that are no
// longer adjacent are dropped.
func (s *Switcher) Apply(ctx context.Context, ev Event) bool {
	switch {
	case ev.Load != nil:
		return s.applyLoad(ctx, ev.Load)
	case ev.Prefetch != nil:
		return s.applyPrefetch(ctx, ev.Prefetch)
	case ev.Relayout != nil:
		return s.applyRelayout(ctx, ev.Relayout)
	}
	return false
}

func (s *Switcher) applyLoad(ctx context.Context, r *LoadResult) bool {
	if !s.loading || r.Seq != s.loadSeq {
		return false
	}
	s.loading = false
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}

	c := r.Cache
	if r.Err != nil {
		if errors.Is(r.Err, context.Canceled) {
			return false
		}
		s.log.Warn("chapter load failed", zap.Int("index", r.Index), zap.Error(r.Err))
		c = s.builder.BuildError(s.source(r.Index, r.Key), s.spec, r.Err)
	}
	s.slots[SlotCurrent] = c
	if stale(c, s.spec) {
		// the window changed while the chapter loaded
		s.startRelayout(ctx, r.Anchor)
		return true
	}
	s.refreshNeighbors(ctx)
	return true
}

func (s *Switcher) applyPrefetch(ctx context.Context, r *prefetch.Result) bool {
	if s.loading || s.relayouting {
		return false
	}
	slot := SlotNext
	if r.Direction == prefetch.Previous {
		slot = SlotPrevious
	}
	want := s.index + r.Direction.Offset()
	if r.ChapterIndex != want || want < 0 || want >= len(s.chapters) {
		return false
	}
	if r.ChapterKey != chapter.Key(s.book.ID, s.chapters[want]) {
		return false
	}

	c := r.Cache
	if r.Err != nil {
		c = s.builder.BuildError(s.source(want, r.ChapterKey), s.spec, r.Err)
	}
	if c == nil {
		return false
	}
	if stale(c, s.spec) {
		// laid out before the last relayout; ask again with the new spec
		s.refreshNeighbors(ctx)
		return false
	}
	s.slots[slot] = c
	return true
}

func (s *Switcher) applyRelayout(ctx context.Context, r *RelayoutResult) bool {
	if !s.relayouting || r.Seq != s.relayoutSeq || r.Index != s.index {
		return false
	}
	s.stopRelayout()
	s.slots = r.Slots
	s.refreshNeighbors(ctx)
	return true
}

// stale reports whether c was paginated for a spec other than spec
func stale(c *chapter.Cache, spec layout.Spec) bool {
	return !c.IsEmpty() && !c.IsManga() && c.Spec != spec
}

func (s *Switcher) rebuild(c *chapter.Cache, spec layout.Spec, anchor int) *chapter.Cache {
	switch {
	case c.IsEmpty() || c.IsManga():
		return c
	case c.Err != nil:
		return s.builder.BuildError(c.Source(), spec, c.Err)
	default:
		return s.builder.BuildText(c.Source(), spec, c.Model, anchor)
	}
}

func (s *Switcher) source(index int, key string) chapter.Source {
	return chapter.Source{Index: index, Key: key, Title: s.chapters[index].Title}
}

// refreshNeighbors asks for the chapters on either side of the current
// one. A failed neighbour is fetched again; a missing one empties its
// slot.
func (s *Switcher) refreshNeighbors(ctx context.Context) {
	req := prefetch.Request{Book: s.book, Chapters: s.chapters, Current: s.index, Spec: s.spec}

	req.Held = s.held(SlotNext)
	if st := s.pf.PrefetchNext(ctx, req); st == prefetch.StatusBoundary {
		s.slots[SlotNext] = chapter.Empty
	}
	req.Held = s.held(SlotPrevious)
	if st := s.pf.PrefetchPrevious(ctx, req); st == prefetch.StatusBoundary {
		s.slots[SlotPrevious] = chapter.Empty
	}
}

func (s *Switcher) held(slot Slot) *chapter.Cache {
	if c := s.slots[slot]; c.Err == nil {
		return c
	}
	return chapter.Empty
}

// Relayout re-paginates every built slot for spec without fetching. The
// work runs in the background and arrives through Wait; until it is
// applied the slots keep their old pages and Switch reports
// ErrSwitchInProgress. The current chapter keeps anchor on its anchor
// page and reuses its text model. A later Relayout or JumpTo supersedes
// one still running.
func (s *Switcher) Relayout(ctx context.Context, spec layout.Spec, anchor int) {
	s.spec = spec
	s.pf.CancelAll()
	if s.loading {
		// the load in flight is relaid out when it lands
		return
	}
	s.startRelayout(ctx, anchor)
}

func (s *Switcher) startRelayout(ctx context.Context, anchor int) {
	s.stopRelayout()
	s.relayouting = true
	s.relayoutSeq++

	rctx, cancel := context.WithCancel(ctx)
	s.relayoutCancel = cancel
	slots, spec := s.slots, s.spec
	res := RelayoutResult{Seq: s.relayoutSeq, Index: s.index}
	anchors := [3]int{SlotPrevious: chapter.AnchorEnd, SlotCurrent: anchor, SlotNext: 0}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for i, c := range slots {
			if rctx.Err() != nil {
				return
			}
			res.Slots[i] = s.rebuild(c, spec, anchors[i])
		}
		select {
		case s.relayouts <- res:
		case <-rctx.Done():
		case <-s.done:
		}
	}()
}

func (s *Switcher) stopRelayout() {
	if s.relayoutCancel != nil {
		s.relayoutCancel()
		s.relayoutCancel = nil
	}
	s.relayouting = false
}

// LandingPage returns the page of the current chapter for l
func (s *Switcher) LandingPage(l Landing) int {
	c := s.slots[SlotCurrent]
	switch {
	case c.IsEmpty():
		return 0
	case l == LandEnd:
		return max(c.PageCount()-1, 0)
	case l == LandAnchor && !c.IsManga():
		return c.AnchorPageIndex
	}
	return 0
}

// Current returns the chapter being read
func (s *Switcher) Current() *chapter.Cache { return s.slots[SlotCurrent] }

// Previous returns the prefetched chapter before the current one
func (s *Switcher) Previous() *chapter.Cache { return s.slots[SlotPrevious] }

// Next returns the prefetched chapter after the current one
func (s *Switcher) Next() *chapter.Cache { return s.slots[SlotNext] }

// Slot returns the cache held in slot
func (s *Switcher) Slot(slot Slot) *chapter.Cache { return s.slots[slot] }

// Index returns the current chapter index
func (s *Switcher) Index() int { return s.index }

// Loading reports whether a hard load is in flight
func (s *Switcher) Loading() bool { return s.loading }

// Relayouting reports whether a relayout is waiting to be applied
func (s *Switcher) Relayouting() bool { return s.relayouting }

// Book returns the open book
func (s *Switcher) Book() models.Book { return s.book }

// Chapters returns the open book's table of contents
func (s *Switcher) Chapters() []models.Chapter { return s.chapters }

// Spec returns the layout every slot is built with
func (s *Switcher) Spec() layout.Spec { return s.spec }

// Close stops background work and waits for the load in flight to
// return. Wait returns ErrClosed afterwards.
func (s *Switcher) Close() {
	s.closeOnce.Do(func() {
		if s.loadCancel != nil {
			s.loadCancel()
		}
		s.stopRelayout()
		s.pf.CancelAll()
		close(s.done)
	})
	s.wg.Wait()
}
