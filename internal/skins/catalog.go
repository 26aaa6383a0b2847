package skins

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PerPage is the shop page size.
const PerPage = 5

// Categories in shop order.
var Categories = []string{"profile", "kiss", "hug", "dance"}

// Catalog lists skin images stored under <root>/<category>_skins/.
type Catalog struct {
	root string
}

// New creates a catalog rooted at dir. A missing dir yields an empty catalog.
func New(dir string) *Catalog {
	return &Catalog{root: dir}
}

// IsCategory reports whether c is a known category.
func IsCategory(c string) bool {
	for _, x := range Categories {
		if x == c {
			return true
		}
	}
	return false
}

func (c *Catalog) dir(category string) string {
	return filepath.Join(c.root, category+"_skins")
}

// List returns the image file names of a category, sorted.
func (c *Catalog) List(category string) ([]string, error) {
	if !IsCategory(category) {
		return nil, nil
	}
	entries, err := os.ReadDir(c.dir(category))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Page returns one shop page and the total page count.
func (c *Catalog) Page(category string, page int) ([]string, int, error) {
	all, err := c.List(category)
	if err != nil {
		return nil, 0, err
	}
	pages := (len(all) + PerPage - 1) / PerPage
	if page < 0 || page >= pages {
		return nil, pages, nil
	}
	end := (page + 1) * PerPage
	if end > len(all) {
		end = len(all)
	}
	return all[page*PerPage : end], pages, nil
}

// Find locates a skin by file name across categories.
func (c *Catalog) Find(name string) (category, path string, ok bool) {
	for _, cat := range Categories {
		names, err := c.List(cat)
		if err != nil {
			continue
		}
		for _, n := range names {
			if n == name {
				return cat, filepath.Join(c.dir(cat), n), true
			}
		}
	}
	return "", "", false
}

// Path returns the file of a skin within one category, if it is still on disk.
func (c *Catalog) Path(category, name string) (string, bool) {
	names, err := c.List(category)
	if err != nil {
		return "", false
	}
	for _, n := range names {
		if n == name {
			return filepath.Join(c.dir(category), n), true
		}
	}
	return "", false
}
