package render

import (
	"sync"

	"golang.org/x/net/html"
)

// View is an in-memory Container holding the serialized feed. Every Replace
// bumps the version; the most recent Replace wins.
type View struct {
	mu      sync.RWMutex
	html    string
	version uint64

	onReplace func(version uint64)
}

// NewView returns an empty View. onReplace, if set, is called after every
// replace with the new version.
func NewView(onReplace func(version uint64)) *View {
	return &View{onReplace: onReplace}
}

func (v *View) Replace(nodes []*html.Node) {
	out := HTML(nodes)

	v.mu.Lock()
	v.version++
	v.html = out
	version := v.version
	v.mu.Unlock()

	if v.onReplace != nil {
		v.onReplace(version)
	}
}

// Snapshot returns the current markup and its version.
func (v *View) Snapshot() (string, uint64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.html, v.version
}

func (v *View) HTML() string {
	out, _ := v.Snapshot()
	return out
}
