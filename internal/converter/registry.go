package converter

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a codec; bin overrides the default executable when set.
type Factory func(bin string) Codec

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register adds a codec factory under name, replacing any previous one.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = f
}

// Get builds the codec registered under name.
func Get(name, bin string) (Codec, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("codec not found: %s", name)
	}
	return f(bin), nil
}

// Names returns the registered codec names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListInfo describes every registered codec with its default binary.
func ListInfo() []Info {
	names := Names()
	infos := make([]Info, 0, len(names))
	for _, name := range names {
		c, err := Get(name, "")
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:         c.Name(),
			Binary:       c.Binary(),
			TargetFormat: c.TargetFormat(),
			Available:    Available(c) == nil,
		})
	}
	return infos
}
