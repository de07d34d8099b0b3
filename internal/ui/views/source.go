package views

import (
	"context"

	"github.com/justyntemme/webby-pager/internal/config"
	"github.com/justyntemme/webby-pager/internal/localbook"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// LocalSource reads a book from disk and keeps its position in the
// config file
type LocalSource struct {
	*localbook.Book
	config *config.Config
}

// NewLocalSource wraps b
func NewLocalSource(b *localbook.Book, cfg *config.Config) *LocalSource {
	return &LocalSource{Book: b, config: cfg}
}

// LoadPosition returns the position saved for book, or nil
func (s *LocalSource) LoadPosition(ctx context.Context, book models.Book) (*models.ReadingPosition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.config.Position(book.ID), nil
}

// SavePosition stores pos in the config file
func (s *LocalSource) SavePosition(ctx context.Context, pos models.ReadingPosition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.config.SavePosition(pos)
}
