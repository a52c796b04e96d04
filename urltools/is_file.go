// Package urltools tells local media paths apart from network URLs.
package urltools

import (
	"net/url"
	"path/filepath"
)

// LocalPath returns the filesystem path the URL points to, if it points to a local file.
func LocalPath(urlString string) (string, bool) {
	if filepath.IsAbs(urlString) {
		return urlString, true
	}
	u, err := url.Parse(urlString)
	if err != nil {
		return urlString, true
	}
	switch u.Scheme {
	case "":
		return urlString, true
	case "file":
		if u.Path == "" {
			return u.Opaque, true
		}
		return u.Path, true
	}
	return "", false
}
