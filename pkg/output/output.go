// Package output provides non-interactive renderings of a file-selection
// tree (plain text and JSON) for scripting and piping.
//
// The package uses a registry pattern so the CLI can select a formatter at
// runtime:
//
//	formatter, err := output.Get("plain")
//	var buf bytes.Buffer
//	err = formatter.Format(&buf, snapshot)
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"seedpick/pkg/filetree"
)

// Snapshot is the renderable state of one torrent's file tree.
type Snapshot struct {
	// TorrentName is the torrent's display name.
	TorrentName string

	// Tree is the aggregation tree built from the latest snapshot.
	Tree *filetree.Tree
}

// Formatter renders a snapshot into a buffer.
type Formatter interface {
	Format(w *bytes.Buffer, s *Snapshot) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Formatter)
)

// Register adds a formatter factory under the given name.
func Register(name string, factory func() Formatter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get returns a new formatter for the given name.
func Get(name string) (Formatter, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (have %v)", name, Names())
	}
	return factory(), nil
}

// Names returns the registered formatter names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
