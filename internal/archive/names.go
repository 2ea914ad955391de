package archive

import (
	"fmt"
	"path"
	"strings"
)

// folderUnsafe lists the characters disallowed in vehicle names used as
// archive folder names. Each occurrence is replaced with "-" on export.
const folderUnsafe = `:/\?`

// SanitizeFolderName makes a vehicle name safe to use as a path segment.
func SanitizeFolderName(name string) string {
	out := []rune(strings.TrimSpace(name))
	for i, r := range out {
		if strings.ContainsRune(folderUnsafe, r) {
			out[i] = '-'
		}
	}
	return string(out)
}

// Deduper hands out unique file names within one scope (one vehicle, one
// attachment type). Colliding names get "-2", "-3", ... appended before the
// extension, so two photos captioned "Garage" export as Garage.jpg and
// Garage-2.jpg. Processing order is the caller's, which keeps generated
// names reproducible across runs.
type Deduper struct {
	seen map[string]bool
}

// NewDeduper returns an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]bool)}
}

// Unique returns name unchanged if unused in this scope, otherwise the
// first "-N" variant that is.
func (d *Deduper) Unique(name string) string {
	if !d.seen[name] {
		d.seen[name] = true
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		if !d.seen[candidate] {
			d.seen[candidate] = true
			return candidate
		}
	}
}
