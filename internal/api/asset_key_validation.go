package api

import (
	"strings"
	"unicode/utf8"

	"pagecraft/internal/editor"
)

// pageFromAssetKey 校验素材对象名并返回其所属页面。
func pageFromAssetKey(key string) (string, bool) {
	if key == "" || !utf8.ValidString(key) || len(key) > 200 {
		return "", false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return "", false
	}
	rest, ok := strings.CutPrefix(key, "page-assets/")
	if !ok {
		return "", false
	}
	page, name, ok := strings.Cut(rest, "/")
	if !ok || name == "" || strings.Contains(name, "/") || !editor.ValidPage(page) {
		return "", false
	}
	return page, true
}

func isValidPageAssetObjectKey(page, key string) bool {
	owner, ok := pageFromAssetKey(key)
	return ok && owner == page
}
