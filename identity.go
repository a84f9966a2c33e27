package sortify

import (
	"fmt"
	"image"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/corona10/goimagehash"
)

// ImageName derives the cache identity for ref: the base file name without
// its extension. Stable across directories, hosts, and runs — the identity
// never depends on where the file currently lives.
func ImageName(ref string) string {
	base := filepath.Base(ref)
	if strings.Contains(ref, "://") {
		if u, err := url.Parse(ref); err == nil && u.Path != "" {
			base = path.Base(u.Path)
		}
	}
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// ContentName derives an identity from the image pixels (perceptual dHash),
// stable across renames and re-downloads of the same shot. Falls back to
// ImageName if hashing fails.
func ContentName(ref string, img image.Image) string {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return ImageName(ref)
	}
	return fmt.Sprintf("dhash-%016x", hash.GetHash())
}
