// v0
// internal/catalog/versions.go
package catalog

import "modelmarket/internal/models"

// AddModelVersion appends to the model's history. Version numbers must be
// unique per model.
func (c *Catalog) AddModelVersion(modelID string, v models.ModelVersion) (models.ModelVersion, error) {
	if err := requireIDs("modelId", modelID); err != nil {
		return models.ModelVersion{}, err
	}
	if v.Version < 1 {
		return models.ModelVersion{}, models.Invalid("version must be positive")
	}
	if v.Timestamp == 0 {
		v.Timestamp = c.clock().Unix()
	}
	c.versionsMu.Lock()
	defer c.versionsMu.Unlock()
	for _, existing := range c.versions[modelID] {
		if existing.Version == v.Version {
			return models.ModelVersion{}, models.Invalid("version %d already exists for %s", v.Version, modelID)
		}
	}
	c.versions[modelID] = append(c.versions[modelID], v)
	return v, nil
}

func (c *Catalog) VersionHistory(modelID string) []models.ModelVersion {
	c.versionsMu.RLock()
	defer c.versionsMu.RUnlock()
	return append([]models.ModelVersion{}, c.versions[modelID]...)
}

// CanRollback reports whether target exists in the model's history and is
// marked as a rollback point.
func (c *Catalog) CanRollback(modelID string, target int) bool {
	c.versionsMu.RLock()
	defer c.versionsMu.RUnlock()
	for _, v := range c.versions[modelID] {
		if v.Version == target && v.CanRollback {
			return true
		}
	}
	return false
}
