package views

import (
	"context"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/webby-pager/internal/chapter"
	"github.com/justyntemme/webby-pager/internal/layout"
	"github.com/justyntemme/webby-pager/internal/prefetch"
	"github.com/justyntemme/webby-pager/internal/switcher"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// readAlongInterval is how long each sentence stays highlighted
const readAlongInterval = 2 * time.Second

// saveTimeout bounds the position save when leaving a book
const saveTimeout = 5 * time.Second

// session is the chapter machinery of one open book
type session struct {
	sw     *switcher.Switcher
	pf     *prefetch.Coordinator
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *session) close() {
	s.cancel()
	s.sw.Close()
	s.pf.Close()
}

// Message types
type bookOpenedMsg struct {
	bookID   string
	chapters []models.Chapter
	position *models.ReadingPosition
	err      error
}

type switchEventMsg struct {
	sess *session
	ev   switcher.Event
	err  error
}

type readAlongTickMsg struct {
	sess *session
}

// newSession wires a loader, prefetcher and switcher over the view's source
func (v *ReaderView) newSession() *session {
	normalizer, err := v.config.Normalizer()
	if err != nil {
		v.log.Warn("ignoring replace rules", zap.Error(err))
		normalizer = nil
	}
	builder := chapter.NewBuilder(layout.CellEngine{}, normalizer)
	loader := chapter.NewLoader(v.source, builder, v.log)
	pf := prefetch.New(loader, v.log)
	sw := switcher.New(loader, builder, pf, switcher.Options{
		Cooldown: v.config.SwitchCooldown(),
		Log:      v.log,
	})
	ctx, cancel := context.WithCancel(v.ctx)
	return &session{sw: sw, pf: pf, ctx: ctx, cancel: cancel}
}

// openBook loads the table of contents and the saved position together
func (v *ReaderView) openBook() tea.Cmd {
	book := *v.book
	source, ctx, log := v.source, v.ctx, v.log
	return func() tea.Msg {
		var (
			chapters []models.Chapter
			pos      *models.ReadingPosition
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			chapters, err = source.Chapters(gctx, book)
			return err
		})
		g.Go(func() error {
			p, err := source.LoadPosition(gctx, book)
			if err != nil {
				// start from the top rather than refuse to open
				log.Warn("load position", zap.String("book", book.ID), zap.Error(err))
				return nil
			}
			pos = p
			return nil
		})
		err := g.Wait()
		return bookOpenedMsg{bookID: book.ID, chapters: chapters, position: pos, err: err}
	}
}

// waitSwitch delivers the next background completion of s
func waitSwitch(s *session) tea.Cmd {
	return func() tea.Msg {
		ev, err := s.sw.Wait(s.ctx)
		return switchEventMsg{sess: s, ev: ev, err: err}
	}
}

func (v *ReaderView) readAlongTick() tea.Cmd {
	s := v.sess
	return tea.Tick(readAlongInterval, func(time.Time) tea.Msg {
		return readAlongTickMsg{sess: s}
	})
}

// startIndex returns the chapter a saved position points at
func startIndex(pos *models.ReadingPosition, n int) int {
	if pos == nil {
		return 0
	}
	i := pos.ChapterIndex
	if i == 0 && pos.Chapter != "" {
		// positions saved by older clients only carry the chapter string
		if parsed, err := strconv.Atoi(pos.Chapter); err == nil {
			i = parsed
		}
	}
	if i < 0 || i >= n {
		return -1
	}
	return i
}

// handleBookOpened starts the session once the contents are known
func (v *ReaderView) handleBookOpened(msg bookOpenedMsg) (View, tea.Cmd) {
	if v.book == nil || msg.bookID != v.book.ID || v.sess != nil {
		return v, nil
	}
	v.opening = false
	if msg.err != nil {
		v.err = msg.err
		return v, nil
	}
	if len(msg.chapters) == 0 {
		v.err = errNoChapters
		return v, nil
	}

	index, anchor := 0, 0
	if i := startIndex(msg.position, len(msg.chapters)); i >= 0 && msg.position != nil {
		index = i
		anchor = msg.position.CharOffset
		pos := *msg.position
		v.pending = &pos
	}

	v.sess = v.newSession()
	v.landing = switcher.LandAnchor
	if err := v.sess.sw.Open(v.sess.ctx, *v.book, msg.chapters, index, v.spec(), anchor); err != nil {
		v.err = err
		return v, nil
	}
	v.log.Info("book opened", zap.String("book", v.book.ID), zap.Int("chapters", len(msg.chapters)), zap.Int("chapter", index))
	return v, waitSwitch(v.sess)
}

// handleSwitchEvent installs a finished load or prefetch and waits for
// the next one
func (v *ReaderView) handleSwitchEvent(msg switchEventMsg) (View, tea.Cmd) {
	if msg.sess != v.sess || v.sess == nil {
		return v, nil
	}
	if msg.err != nil {
		return v, nil
	}
	if v.sess.sw.Apply(v.sess.ctx, msg.ev) {
		switch {
		case msg.ev.Load != nil:
			v.land()
		case msg.ev.Relayout != nil:
			v.place(v.anchor)
		}
	}
	return v, waitSwitch(v.sess)
}

// closeSession stops the current book's background work
func (v *ReaderView) closeSession() {
	if v.sess != nil {
		v.sess.close()
		v.sess = nil
	}
}

// currentPosition is the reading position to persist, if a chapter is shown
func (v *ReaderView) currentPosition() (models.ReadingPosition, bool) {
	if v.sess == nil || v.book == nil {
		return models.ReadingPosition{}, false
	}
	c := v.sess.sw.Current()
	if c.IsEmpty() || c.Err != nil {
		return models.ReadingPosition{}, false
	}
	return v.mapper().Position(v.book.ID, v.anchor), true
}

// savePosition writes the current position to the source
func (v *ReaderView) savePosition() {
	pos, ok := v.currentPosition()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := v.source.SavePosition(ctx, pos); err != nil {
		v.log.Warn("save position", zap.String("book", pos.BookID), zap.Error(err))
		return
	}
	v.log.Debug("position saved", zap.String("book", pos.BookID), zap.Int("chapter", pos.ChapterIndex), zap.Int("offset", pos.CharOffset))
}
