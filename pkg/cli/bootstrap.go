package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/getmockd/oasstub/pkg/definitions"
)

// maxConcurrentLoads bounds the definition files registered in parallel.
const maxConcurrentLoads = 4

// LoadDefinitions registers every definitions file of dir, one API per
// file named after the file. It returns the registered names in order.
func (a *App) LoadDefinitions(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read definitions dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && definitions.IsDefinitionFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}

	names := make([]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, path := range paths {
		g.Go(func() error {
			name, defs, err := definitions.ReadFile(path)
			if err != nil {
				return err
			}
			if err := a.registry.Save(gctx, name, defs); err != nil {
				return fmt.Errorf("register %s: %w", filepath.Base(path), err)
			}
			names[i] = name
			a.log.Info("api registered", "api", name, "file", path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}
