package api

import (
	"context"
	"fmt"

	"github.com/justyntemme/webby-pager/pkg/models"
)

// FetchChapter fetches a chapter body for the reader
func (c *Client) FetchChapter(ctx context.Context, book models.Book, ch models.Chapter) (models.ChapterContent, error) {
	cc, err := c.GetChapterText(ctx, book.ID, ch.Index)
	if err != nil {
		return models.ChapterContent{}, err
	}
	if cc == nil {
		return models.ChapterContent{}, fmt.Errorf("chapter %d: empty response", ch.Index)
	}
	return *cc, nil
}

// Chapters returns the book's table of contents with Index matching each
// chapter's position in the list
func (c *Client) Chapters(ctx context.Context, book models.Book) ([]models.Chapter, error) {
	toc, err := c.GetTOC(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("load contents: %w", err)
	}
	if toc == nil {
		return nil, nil
	}
	chapters := make([]models.Chapter, len(toc.Chapters))
	for i, ch := range toc.Chapters {
		ch.Index = i
		chapters[i] = ch
	}
	return chapters, nil
}

// LoadPosition returns the saved position of book, or nil
func (c *Client) LoadPosition(ctx context.Context, book models.Book) (*models.ReadingPosition, error) {
	return c.GetPosition(ctx, book.ID)
}
