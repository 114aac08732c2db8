package app

import (
	"fmt"
	"strings"

	"patternlog/internal/config"
	"patternlog/internal/storage"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc, err := cfg.Storage.Storage()
	if err != nil {
		return storage.Config{}, false, err
	}
	driver := strings.ToLower(sc.Driver)
	switch driver {
	case "", "none":
		return storage.Config{}, false, nil
	case "file":
		return storage.Config{Driver: "file", Path: sc.Path}, true, nil
	case "sqlite", "sqlite3":
		if sc.Path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		sc.Driver = driver
		return sc, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}
