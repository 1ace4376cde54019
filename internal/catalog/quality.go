// v0
// internal/catalog/quality.go
package catalog

import "modelmarket/internal/models"

// UpdateQualityMetrics replaces the model's metrics. Recorded validations and
// the last audit time survive the update.
func (c *Catalog) UpdateQualityMetrics(modelID string, m models.QualityMetrics) (models.QualityMetrics, error) {
	if err := requireIDs("modelId", modelID); err != nil {
		return models.QualityMetrics{}, err
	}
	if !models.Finite(m.Accuracy) || !models.Finite(m.Reliability) || !models.Finite(m.AvgResponseTime) {
		return models.QualityMetrics{}, models.Invalid("quality metrics must be finite")
	}
	c.qualityMu.Lock()
	defer c.qualityMu.Unlock()
	prev := c.quality[modelID]
	next := m.Clone()
	if len(next.Validations) == 0 {
		next.Validations = append([]string(nil), prev.Validations...)
	}
	if next.LastAudit == 0 {
		next.LastAudit = prev.LastAudit
	}
	c.quality[modelID] = next
	return next.Clone(), nil
}

// ValidateModel records a validator's sign-off and stamps the audit time.
func (c *Catalog) ValidateModel(modelID, validatorID string) (models.QualityMetrics, error) {
	if err := requireIDs("modelId", modelID, "validatorId", validatorID); err != nil {
		return models.QualityMetrics{}, err
	}
	c.qualityMu.Lock()
	defer c.qualityMu.Unlock()
	q := c.quality[modelID]
	q.Validations = append(q.Validations, validatorID)
	q.LastAudit = c.clock().Unix()
	c.quality[modelID] = q
	return q.Clone(), nil
}

// ModelQuality returns the metrics of a model, or zero metrics if none are recorded.
func (c *Catalog) ModelQuality(modelID string) models.QualityMetrics {
	c.qualityMu.RLock()
	defer c.qualityMu.RUnlock()
	q := c.quality[modelID]
	out := q.Clone()
	if out.Validations == nil {
		out.Validations = []string{}
	}
	return out
}
