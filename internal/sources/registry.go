package sources

import (
	"context"
	"fmt"
	"sync"

	"dashfeed/internal/types"
)

const (
	KindURL      = "url"
	KindOPMLFile = "opml_file"
	KindOPMLURL  = "opml_url"
)

// Loader expands one configured feed entry into the sources it names.
type Loader interface {
	Load(ctx context.Context, value string) ([]types.Source, error)
}

// Spec is a single feed entry as written in the configuration.
type Spec struct {
	Kind  string
	Value string
	Name  string
}

var (
	loaders = make(map[string]Loader)
	mu      sync.RWMutex
)

func RegisterLoader(kind string, loader Loader) {
	mu.Lock()
	defer mu.Unlock()
	loaders[kind] = loader
}

func GetLoader(kind string) (Loader, error) {
	mu.RLock()
	defer mu.RUnlock()

	loader, exists := loaders[kind]
	if !exists {
		return nil, fmt.Errorf("unknown loader type: %s", kind)
	}

	return loader, nil
}

// Load resolves spec with the loader registered for its kind. A name on a
// plain URL entry overrides the feed's own title as its label.
func Load(ctx context.Context, spec Spec) ([]types.Source, error) {
	loader, err := GetLoader(spec.Kind)
	if err != nil {
		return nil, err
	}

	srcs, err := loader.Load(ctx, spec.Value)
	if err != nil {
		return nil, err
	}

	if len(srcs) == 0 {
		return nil, fmt.Errorf("no feeds found in %s", spec.Value)
	}

	if spec.Kind == KindURL && spec.Name != "" {
		for i := range srcs {
			srcs[i].Name = spec.Name
		}
	}

	return srcs, nil
}
