package chapter

import (
	"strings"

	"github.com/justyntemme/webby-pager/internal/content"
	"github.com/justyntemme/webby-pager/internal/layout"
	"github.com/justyntemme/webby-pager/internal/paginate"
	"github.com/justyntemme/webby-pager/internal/textmodel"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// Builder turns fetched chapter sources into caches. Both the prefetch
// path and the immediate-load path build through the same Builder.
type Builder struct {
	engine     layout.Engine
	normalizer *content.Normalizer
}

// NewBuilder creates a builder. A nil normalizer applies no replace rules.
func NewBuilder(engine layout.Engine, normalizer *content.Normalizer) *Builder {
	if engine == nil {
		engine = layout.CellEngine{}
	}
	return &Builder{engine: engine, normalizer: normalizer}
}

// Build dispatches on the source's content type
func (b *Builder) Build(src Source, spec layout.Spec, reuse *textmodel.Model, anchor int) *Cache {
	if src.ContentType == models.ContentTypeComic {
		return b.BuildManga(src)
	}
	return b.BuildText(src, spec, reuse, anchor)
}

// BuildText lays out a text chapter and paginates it around anchor. When
// reuse is non-nil it is re-measured in place of building a new model.
func (b *Builder) BuildText(src Source, spec layout.Spec, reuse *textmodel.Model, anchor int) *Cache {
	sentences := b.normalizer.Sentences(src.Raw, src.Format)
	return b.buildFromSentences(src, sentences, spec, reuse, anchor, nil)
}

// BuildManga treats every non-empty line of the raw body as an image
// reference. Manga chapters carry no pages.
func (b *Builder) BuildManga(src Source) *Cache {
	var urls []string
	for _, line := range strings.Split(src.Raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	return &Cache{
		ChapterIndex: src.Index,
		ChapterKey:   src.Key,
		Title:        src.Title,
		ContentType:  models.ContentTypeComic,
		Format:       src.Format,
		RawContent:   src.Raw,
		ImageURLs:    urls,
	}
}

// BuildError builds a placeholder text chapter whose body is err's message
func (b *Builder) BuildError(src Source, spec layout.Spec, err error) *Cache {
	sentences := content.SplitParagraphs("Failed to load chapter.\n" + err.Error())
	src.ContentType = models.ContentTypeBook
	src.Raw = ""
	return b.buildFromSentences(src, sentences, spec, nil, 0, err)
}

func (b *Builder) buildFromSentences(src Source, sentences []string, spec layout.Spec, reuse *textmodel.Model, anchor int, err error) *Cache {
	var model *textmodel.Model
	var snap *textmodel.Snapshot
	if reuse != nil {
		model = reuse
		snap = reuse.Rebuild(src.Title, sentences, spec)
	} else {
		model = textmodel.Build(b.engine, src.Title, sentences, spec)
		snap = model.Snapshot()
	}

	res := paginate.Paginate(snap, paginate.ViewportFor(spec), anchor)
	contentType := src.ContentType
	if contentType == "" {
		contentType = models.ContentTypeBook
	}
	return &Cache{
		ChapterIndex:    src.Index,
		ChapterKey:      src.Key,
		Title:           src.Title,
		ContentType:     contentType,
		Format:          src.Format,
		RawContent:      src.Raw,
		Model:           model,
		Layout:          snap,
		Pages:           res.Pages,
		AnchorPageIndex: res.AnchorPageIndex,
		ParagraphStarts: snap.ParagraphStarts(),
		Spec:            spec,
		Err:             err,
	}
}
