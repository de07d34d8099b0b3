// Package localbook opens books from the local filesystem and serves their
// chapters the same way the webby server does.
package localbook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/justyntemme/webby-pager/pkg/models"
)

// ErrChapterNotFound is returned for chapter indexes outside the book
var ErrChapterNotFound = errors.New("chapter not found")

// ErrUnsupported is returned by Open for unknown file types
var ErrUnsupported = errors.New("unsupported book format")

type section struct {
	title       string
	href        string
	content     string
	contentType string
	format      string
}

// Book is a fully loaded local book
type Book struct {
	info     models.Book
	sections []section
}

// Open reads the book at path. Supported files are .txt and .md novels,
// .epub and .cbz.
func Open(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	b := &Book{info: models.Book{
		ID:          bookID(data),
		Title:       name,
		FileSize:    int64(len(data)),
		ContentType: models.ContentTypeBook,
	}}

	switch ext {
	case ".txt", ".text":
		b.info.FileFormat = models.FileFormatTXT
		b.sections = splitNovel(string(data), name, models.FormatText)
	case ".md", ".markdown":
		b.info.FileFormat = models.FileFormatTXT
		b.sections = splitNovel(string(data), name, models.FormatMarkdown)
	case ".epub":
		b.info.FileFormat = models.FileFormatEPUB
		err = b.readEPUB(path)
	case ".cbz":
		b.info.FileFormat = models.FileFormatCBZ
		b.info.ContentType = models.ContentTypeComic
		err = b.readCBZ(path, name)
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	if len(b.sections) == 0 {
		return nil, fmt.Errorf("open %s: no readable chapters", filepath.Base(path))
	}
	return b, nil
}

func bookID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Info returns the book's metadata
func (b *Book) Info() models.Book {
	return b.info
}

// TOC returns the chapter list
func (b *Book) TOC() []models.Chapter {
	out := make([]models.Chapter, len(b.sections))
	for i, s := range b.sections {
		out[i] = models.Chapter{
			Index: i,
			ID:    fmt.Sprintf("ch%d", i),
			Href:  s.href,
			Title: s.title,
		}
	}
	return out
}

// Chapters returns the chapter list of book
func (b *Book) Chapters(ctx context.Context, book models.Book) ([]models.Chapter, error) {
	if book.ID != "" && book.ID != b.info.ID {
		return nil, fmt.Errorf("book %s: %w", book.ID, ErrChapterNotFound)
	}
	return b.TOC(), nil
}

// Chapter returns chapter i's content
func (b *Book) Chapter(i int) (models.ChapterContent, error) {
	if i < 0 || i >= len(b.sections) {
		return models.ChapterContent{}, fmt.Errorf("chapter %d: %w", i, ErrChapterNotFound)
	}
	s := b.sections[i]
	return models.ChapterContent{
		BookID:      b.info.ID,
		Chapter:     i,
		Title:       s.title,
		Content:     s.content,
		ContentType: s.contentType,
		Format:      s.format,
	}, nil
}

// FetchChapter returns ch's content
func (b *Book) FetchChapter(ctx context.Context, book models.Book, ch models.Chapter) (models.ChapterContent, error) {
	if err := ctx.Err(); err != nil {
		return models.ChapterContent{}, err
	}
	return b.Chapter(ch.Index)
}
