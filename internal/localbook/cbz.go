package localbook

import (
	"archive/zip"
	"path"
	"sort"
	"strings"

	"github.com/justyntemme/webby-pager/pkg/models"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// readCBZ turns a comic archive into one manga chapter whose body lists
// the page images in reading order
func (b *Book) readCBZ(file, name string) error {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return err
	}
	defer zr.Close()

	var pages []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(path.Base(f.Name), ".") {
			continue
		}
		if imageExts[strings.ToLower(path.Ext(f.Name))] {
			pages = append(pages, f.Name)
		}
	}
	if len(pages) == 0 {
		return nil
	}
	sort.Strings(pages)

	b.sections = append(b.sections, section{
		title:       name,
		content:     strings.Join(pages, "\n"),
		contentType: models.ContentTypeComic,
	})
	return nil
}
