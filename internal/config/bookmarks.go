package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/justyntemme/webby-pager/pkg/models"
)

// AddBookmark stores a bookmark and saves. Adding the same book, chapter
// and offset twice keeps one bookmark.
func (c *Config) AddBookmark(b Bookmark) error {
	for _, existing := range c.Bookmarks {
		if existing.BookID == b.BookID && existing.ChapterIndex == b.ChapterIndex && existing.CharOffset == b.CharOffset {
			return nil
		}
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	if b.ID == "" {
		b.ID = fmt.Sprintf("%s-%d-%d-%d", b.BookID, b.ChapterIndex, b.CharOffset, b.CreatedAt.UnixNano())
	}
	c.Bookmarks = append(c.Bookmarks, b)
	if len(c.Bookmarks) > MaxBookmarks {
		c.Bookmarks = c.Bookmarks[len(c.Bookmarks)-MaxBookmarks:]
	}
	return c.Save()
}

// DeleteBookmark removes the bookmark with id and saves
func (c *Config) DeleteBookmark(id string) error {
	for i, b := range c.Bookmarks {
		if b.ID == id {
			c.Bookmarks = append(c.Bookmarks[:i], c.Bookmarks[i+1:]...)
			return c.Save()
		}
	}
	return nil
}

// GetBookmarksForBook returns a book's bookmarks in reading order
func (c *Config) GetBookmarksForBook(bookID string) []Bookmark {
	var out []Bookmark
	for _, b := range c.Bookmarks {
		if b.BookID == bookID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChapterIndex != out[j].ChapterIndex {
			return out[i].ChapterIndex < out[j].ChapterIndex
		}
		return out[i].CharOffset < out[j].CharOffset
	})
	return out
}

// SavePosition stores a local reading position and saves
func (c *Config) SavePosition(pos models.ReadingPosition) error {
	if c.Positions == nil {
		c.Positions = make(map[string]models.ReadingPosition)
	}
	if pos.UpdatedAt.IsZero() {
		pos.UpdatedAt = time.Now()
	}
	c.Positions[pos.BookID] = pos
	return c.Save()
}

// Position returns the local reading position of bookID, or nil
func (c *Config) Position(bookID string) *models.ReadingPosition {
	pos, ok := c.Positions[bookID]
	if !ok {
		return nil
	}
	return &pos
}
