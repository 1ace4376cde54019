// v0
// internal/catalog/catalog.go

// Package catalog holds the per-model side tables: documentation, quality
// metrics, resource usage and version history. Each table has its own lock.
package catalog

import (
	"errors"
	"strings"
	"sync"
	"time"

	"modelmarket/internal/models"
)

var ErrNotFound = errors.New("not found")

// Catalog groups the side tables behind one handle.
type Catalog struct {
	clock func() time.Time

	docsMu sync.RWMutex
	docs   map[string][]models.Documentation

	qualityMu sync.RWMutex
	quality   map[string]models.QualityMetrics

	usageMu sync.RWMutex
	usage   map[string]models.ResourceUsage

	versionsMu sync.RWMutex
	versions   map[string][]models.ModelVersion
}

func New(clock func() time.Time) *Catalog {
	if clock == nil {
		clock = time.Now
	}
	return &Catalog{
		clock:    clock,
		docs:     make(map[string][]models.Documentation),
		quality:  make(map[string]models.QualityMetrics),
		usage:    make(map[string]models.ResourceUsage),
		versions: make(map[string][]models.ModelVersion),
	}
}

func requireIDs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return models.Invalid("%s must not be empty", pairs[i])
		}
	}
	return nil
}
