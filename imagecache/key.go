package imagecache

import (
	"fmt"
	"net/url"
	pkgPath "path"
	"strings"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// DefaultFilename is used as a key for urls without a filename.
const DefaultFilename = "default.png"

// KeyFunc derives a cache key from an image url.
type KeyFunc func(rawURL string) camoview.ResourceKey

// NewKeyFunc returns a [KeyFunc] for the passed mode.
func NewKeyFunc(mode camoview.CacheKeyMode) (KeyFunc, error) {
	switch mode {
	case camoview.CacheKeyFilename:
		return FilenameKey, nil
	case camoview.CacheKeyHash:
		return HashedKey, nil
	default:
		return nil, fmt.Errorf("unknown cache key mode: %q", mode)
	}
}

// FilenameKey returns the last element of the url path. Images with the same filename
// share the same key.
func FilenameKey(rawURL string) camoview.ResourceKey {
	name := pkgPath.Base(urlPath(rawURL))
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = norm.NFC.String(name)

	// Unescaped names can contain separators.
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return -1
		}
		return r
	}, name)

	if name == "" || name == "." || name == ".." {
		name = DefaultFilename
	}
	return camoview.ResourceKey(name)
}

// HashedKey returns the hash of the full url with the original extension, so
// different images never share the same key.
func HashedKey(rawURL string) camoview.ResourceKey {
	ext := strings.ToLower(pkgPath.Ext(urlPath(rawURL)))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\%`) {
		ext = ""
	}
	return camoview.ResourceKey(fmt.Sprintf("%016x%s", xxhash.Sum64String(rawURL), ext))
}

// urlPath returns the escaped path of the url without query and fragment.
func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		// Fallback for malformed urls.
		p, _, _ := strings.Cut(rawURL, "?")
		p, _, _ = strings.Cut(p, "#")
		return p
	}
	return u.EscapedPath()
}
