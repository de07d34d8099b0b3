package models

import "time"

// Content type constants
const (
	ContentTypeBook  = "book"
	ContentTypeComic = "comic"
)

// File format constants
const (
	FileFormatEPUB = "epub"
	FileFormatTXT  = "txt"
	FileFormatCBZ  = "cbz"
)

// Chapter body formats
const (
	FormatText     = "text"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Book represents an ebook in the library
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Series      string    `json:"series,omitempty"`
	SeriesIndex float64   `json:"series_index,omitempty"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	FileFormat  string    `json:"file_format,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// IsComic returns true if the book is a comic
func (b *Book) IsComic() bool {
	return b.ContentType == ContentTypeComic
}

// IsCBZ returns true if the book is a CBZ file
func (b *Book) IsCBZ() bool {
	return b.FileFormat == FileFormatCBZ
}

// Chapter represents a chapter in the table of contents
type Chapter struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Href  string `json:"href"`
	Title string `json:"title"`
}

// ReadingPosition represents the user's position in a book.
// Position is the legacy chapter fraction; the remaining fields locate
// the reader precisely inside the chapter.
type ReadingPosition struct {
	BookID         string    `json:"book_id"`
	Chapter        string    `json:"chapter"`
	Position       float64   `json:"position"`
	ChapterIndex   int       `json:"chapter_index"`
	SentenceIndex  int       `json:"sentence_index"`
	SentenceOffset int       `json:"sentence_offset"`
	CharOffset     int       `json:"char_offset"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TTSPosition is the playback position exchanged with a speech engine
type TTSPosition struct {
	ChapterIndex   int  `json:"chapter_index"`
	SentenceIndex  int  `json:"sentence_index"`
	SentenceOffset int  `json:"sentence_offset"`
	IsReadingTitle bool `json:"is_reading_title"`
}

// TextRange is a half-open range of character offsets
type TextRange struct {
	Location int `json:"location"`
	Length   int `json:"length"`
}

// End returns the first offset past the range
func (r TextRange) End() int {
	return r.Location + r.Length
}

// Contains reports whether offset lies inside the range
func (r TextRange) Contains(offset int) bool {
	return offset >= r.Location && offset < r.End()
}

// PageRender describes one page handed to the view layer
type PageRender struct {
	Range         TextRange
	YOffset       float64
	PageHeight    float64
	StartSentence int
	Lines         []RenderLine
}

// RenderLine is one laid-out line of a rendered page
type RenderLine struct {
	Text  string
	Start int
	End   int
	Y     float64
}

// ChapterContent represents the text content of a chapter
type ChapterContent struct {
	BookID      string `json:"book_id"`
	Chapter     int    `json:"chapter"`
	Title       string `json:"title,omitempty"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	Format      string `json:"format,omitempty"`
}

// BooksResponse represents the API response for listing books
type BooksResponse struct {
	Books []Book `json:"books"`
	Count int    `json:"count"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// TOCResponse represents the table of contents response
type TOCResponse struct {
	Chapters []Chapter `json:"chapters"`
}

// PositionResponse represents reading position response
type PositionResponse struct {
	Position *ReadingPosition `json:"position"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error string `json:"error"`
}
