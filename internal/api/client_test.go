package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justyntemme/webby-pager/internal/devserver"
	"github.com/justyntemme/webby-pager/internal/localbook"
	"github.com/justyntemme/webby-pager/pkg/models"
)

func newTestServer(t *testing.T, token string) (*Client, models.Book) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "novel.txt")
	body := "Chapter 1 Start\nFirst line.\nChapter 2 Middle\nSecond line.\nChapter 3 End\nLast line.\n"
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	b, err := localbook.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(devserver.New([]*localbook.Book{b}, token, nil))
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, token), b.Info()
}

func TestClientReading(t *testing.T) {
	c, book := newTestServer(t, "tok")
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}

	list, err := c.ListBooks(ctx, 1, 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Books[0].ID != book.ID {
		t.Errorf("list %+v", list)
	}

	got, err := c.GetBook(ctx, book.ID)
	if err != nil || got.Title != "novel" {
		t.Fatalf("GetBook = %+v, %v", got, err)
	}

	chapters, err := c.Chapters(ctx, book)
	if err != nil {
		t.Fatal(err)
	}
	if len(chapters) != 3 || chapters[2].Index != 2 || chapters[1].Title != "Chapter 2 Middle" {
		t.Errorf("chapters %+v", chapters)
	}

	cc, err := c.FetchChapter(ctx, book, chapters[1])
	if err != nil {
		t.Fatal(err)
	}
	if cc.Content != "Second line." || cc.ContentType != models.ContentTypeBook {
		t.Errorf("chapter %+v", cc)
	}
}

func TestClientPosition(t *testing.T) {
	c, book := newTestServer(t, "")
	ctx := context.Background()

	pos, err := c.LoadPosition(ctx, book)
	if err != nil || pos != nil {
		t.Fatalf("fresh position = %+v, %v", pos, err)
	}

	want := models.ReadingPosition{BookID: book.ID, Chapter: "2", ChapterIndex: 2, Position: 0.5, SentenceIndex: 1, SentenceOffset: 4, CharOffset: 30}
	if err := c.SavePosition(ctx, want); err != nil {
		t.Fatal(err)
	}
	pos, err = c.GetPosition(ctx, book.ID)
	if err != nil {
		t.Fatal(err)
	}
	if pos.ChapterIndex != 2 || pos.SentenceOffset != 4 || pos.CharOffset != 30 || pos.Position != 0.5 {
		t.Errorf("position %+v", pos)
	}

	want.Position = 2
	if err := c.SavePosition(ctx, want); err == nil {
		t.Error("invalid position should be rejected")
	}
}

func TestClientErrors(t *testing.T) {
	c, book := newTestServer(t, "tok")
	ctx := context.Background()

	_, err := c.GetChapterText(ctx, book.ID, 7)
	if err == nil || !strings.Contains(err.Error(), "chapter not found") {
		t.Errorf("err = %v", err)
	}

	c.SetToken("wrong")
	if _, err := c.GetTOC(ctx, book.ID); err == nil || !strings.Contains(err.Error(), "invalid token") {
		t.Errorf("err = %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := c.Health(cancelled); err == nil {
		t.Error("cancelled request should fail")
	}
}

func TestNotFound(t *testing.T) {
	c, book := newTestServer(t, "")
	ctx := context.Background()

	_, err := c.GetBook(ctx, "missing")
	if !IsNotFound(err) {
		t.Errorf("GetBook(missing) err = %v, want 404", err)
	}
	if _, err := c.GetBook(ctx, book.ID); IsNotFound(err) {
		t.Errorf("GetBook(%s) err = %v", book.ID, err)
	}
}

func TestDecodePlainError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "")
	_, err := c.GetBook(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "HTTP 502") {
		t.Errorf("err = %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway || se.Message != "gateway down" {
		t.Errorf("status error = %+v", se)
	}
}
