package config

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Store is the key-value interface the resolver reads the persisted
// configuration through. Get returns (nil, nil) when the key is absent.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// Resolver loads the calculation config from a Store, deep-merging the
// stored value over Defaults so partial configuration updates are safe.
type Resolver struct {
	store Store
	log   *logrus.Entry
}

func NewResolver(store Store) *Resolver {
	return &Resolver{
		store: store,
		log:   logrus.WithField("component", "config"),
	}
}

// Resolve never fails: any read or parse error degrades to defaults with a
// warning, so configuration trouble cannot abort a computation pass.
func (r *Resolver) Resolve() CalculationConfig {
	cfg := Defaults()

	raw, err := r.store.Get(Key)
	if err != nil {
		r.log.WithError(err).Warn("config read failed, using defaults")
		cfg.Validate()
		return cfg
	}
	if len(raw) == 0 {
		cfg.Validate()
		return cfg
	}

	merged, err := mergeOverDefaults(raw)
	if err != nil {
		r.log.WithError(err).Warn("stored config malformed, using defaults")
		cfg.Validate()
		return cfg
	}

	merged.Validate()
	return merged
}

// Update validates that raw is a JSON object and stores it as the new
// configuration version. Last write wins.
func (r *Resolver) Update(raw []byte) error {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("config must be a JSON object: %w", err)
	}
	if err := r.store.Put(Key, raw); err != nil {
		return fmt.Errorf("store config: %w", err)
	}
	return nil
}

func mergeOverDefaults(raw []byte) (CalculationConfig, error) {
	var stored map[string]any
	if err := json.Unmarshal(raw, &stored); err != nil {
		return CalculationConfig{}, fmt.Errorf("unmarshal stored: %w", err)
	}

	defRaw, err := json.Marshal(Defaults())
	if err != nil {
		return CalculationConfig{}, fmt.Errorf("marshal defaults: %w", err)
	}
	var base map[string]any
	if err := json.Unmarshal(defRaw, &base); err != nil {
		return CalculationConfig{}, fmt.Errorf("unmarshal defaults: %w", err)
	}

	deepMerge(base, stored)

	out, err := json.Marshal(base)
	if err != nil {
		return CalculationConfig{}, fmt.Errorf("marshal merged: %w", err)
	}
	var cfg CalculationConfig
	if err := json.Unmarshal(out, &cfg); err != nil {
		return CalculationConfig{}, fmt.Errorf("unmarshal merged: %w", err)
	}
	return cfg, nil
}

// deepMerge overlays src onto dst. Object values merge key by key, scalars
// and arrays override wholesale, and nulls never override a default.
func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		if v == nil {
			continue
		}
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := dst[k].(map[string]any); ok {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[k] = v
	}
}
