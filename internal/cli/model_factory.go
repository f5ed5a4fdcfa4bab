package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aretw0/keel"
	"github.com/aretw0/keel/pkg/adapters/redis"
	"github.com/aretw0/keel/pkg/domain"
)

// descriptionExts are tried in order when looking for an entry point.
var descriptionExts = []string{".yaml", ".yml", ".json"}

// openModel opens a model with standard CLI conventions.
func openModel(opts Options, logger *slog.Logger, hooks domain.LifecycleHooks) (*keel.Model, error) {
	path := opts.Path
	if path == "" {
		path = determineEntryPoint(opts.Dir)
	}

	modelOpts := []keel.Option{
		keel.WithLogger(logger),
		keel.WithLifecycleHooks(hooks),
		keel.WithTolerateErrors(opts.Tolerate),
	}

	if opts.RedisURL != "" {
		redisOpts, err := goredis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		// namespaced by root description so separate models never share overrides
		store := redis.NewFromClient(goredis.NewClient(redisOpts), redis.WithScene(path))
		modelOpts = append(modelOpts, keel.WithOverrideStore(store))
	}

	model, err := keel.Open(opts.Dir, path, modelOpts...)
	if err != nil {
		return nil, fmt.Errorf("error opening model: %w", err)
	}
	return model, nil
}

// determineEntryPoint picks the root description of dir: "main", then a file named after
// the directory, then the only description file present, falling back to "main.yaml".
func determineEntryPoint(dir string) string {
	if p, ok := findDescription(dir, "main"); ok {
		return p
	}
	if abs, err := filepath.Abs(dir); err == nil {
		if p, ok := findDescription(dir, filepath.Base(abs)); ok {
			return p
		}
	}

	entries, err := os.ReadDir(dir)
	if err == nil {
		var only string
		count := 0
		for _, e := range entries {
			if e.IsDir() || !isDescriptionExt(filepath.Ext(e.Name())) {
				continue
			}
			only = e.Name()
			count++
		}
		if count == 1 {
			return only
		}
	}
	return "main.yaml"
}

// findDescription checks if a description named base exists in dir under a known extension.
func findDescription(dir, base string) (string, bool) {
	for _, ext := range descriptionExts {
		if _, err := os.Stat(filepath.Join(dir, base+ext)); err == nil {
			return base + ext, true
		}
	}
	return "", false
}

func isDescriptionExt(ext string) bool {
	for _, e := range descriptionExts {
		if e == ext {
			return true
		}
	}
	return false
}
