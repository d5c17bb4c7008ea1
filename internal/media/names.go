// Package media matches uploaded image files to child profiles by name.
package media

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	imageExtRe    = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)$`)
	trailingSeqRe = regexp.MustCompile(`_\d+$`)
)

// IsImageFile reports whether filename has an image extension we upload
func IsImageFile(filename string) bool {
	return !strings.HasPrefix(filename, ".") && imageExtRe.MatchString(filename)
}

// NormalizeChildName turns an image filename into the child's display name.
//
//	abebech_teferi_teka_1.jpg -> Abebech Teferi Teka
func NormalizeChildName(filename string) string {
	name := imageExtRe.ReplaceAllString(filename, "")
	name = trailingSeqRe.ReplaceAllString(name, "")

	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		first, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(first)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// Key returns the lookup key for a display name: lower-cased, spaces to underscores
func Key(fullName string) string {
	return strings.ReplaceAll(strings.ToLower(fullName), " ", "_")
}

// Group collects items under the key of the child their filename names
type Group[T any] struct {
	Name  string
	Items []T
}

// GroupByChild buckets items by the child name derived from filename(item).
// Items whose filename is not an image are skipped. Order of first appearance
// is preserved.
func GroupByChild[T any](items []T, filename func(T) string) ([]string, map[string]*Group[T]) {
	var order []string
	groups := make(map[string]*Group[T])
	for _, item := range items {
		fn := filename(item)
		if !IsImageFile(fn) {
			continue
		}
		name := NormalizeChildName(fn)
		key := Key(name)
		g, ok := groups[key]
		if !ok {
			g = &Group[T]{Name: name}
			groups[key] = g
			order = append(order, key)
		}
		g.Items = append(g.Items, item)
	}
	return order, groups
}
