// v0
// internal/market/catalog.go
package market

import (
	"log/slog"

	"modelmarket/internal/models"
	"modelmarket/internal/reputation"
)

// AddDocumentation stores a document and credits its author.
func (m *Marketplace) AddDocumentation(modelID, authorID, content string, tags []string) (models.Documentation, error) {
	doc, err := m.catalog.AddDocumentation(modelID, authorID, content, tags)
	if err != nil {
		return models.Documentation{}, err
	}
	m.bump(authorID, reputation.DocAuthoredDelta)
	return doc, nil
}

// UpvoteDocumentation credits the author of the model's latest document.
func (m *Marketplace) UpvoteDocumentation(modelID, voterID string) error {
	author, err := m.catalog.UpvoteDocumentation(modelID, voterID)
	if err != nil {
		return err
	}
	m.bump(author, reputation.DocUpvotedDelta)
	return nil
}

// AddDocComment credits the commenter.
func (m *Marketplace) AddDocComment(modelID, userID, comment string) error {
	if err := m.catalog.AddDocComment(modelID, userID, comment); err != nil {
		return err
	}
	m.bump(userID, reputation.DocCommentDelta)
	return nil
}

func (m *Marketplace) ModelDocs(modelID string) []models.Documentation {
	return m.catalog.ModelDocs(modelID)
}

func (m *Marketplace) UpdateQualityMetrics(modelID string, q models.QualityMetrics) (models.QualityMetrics, error) {
	return m.catalog.UpdateQualityMetrics(modelID, q)
}

// ValidateModel records the validator's sign-off and credits the validator.
func (m *Marketplace) ValidateModel(modelID, validatorID string) (models.QualityMetrics, error) {
	q, err := m.catalog.ValidateModel(modelID, validatorID)
	if err != nil {
		return models.QualityMetrics{}, err
	}
	m.bump(validatorID, reputation.ValidationDelta)
	return q, nil
}

func (m *Marketplace) ModelQuality(modelID string) models.QualityMetrics {
	return m.catalog.ModelQuality(modelID)
}

func (m *Marketplace) TrackResourceUsage(modelID string, u models.ResourceUsage) error {
	return m.catalog.TrackResourceUsage(modelID, u)
}

func (m *Marketplace) ResourceMetrics(modelID string) models.ResourceUsage {
	return m.catalog.ResourceMetrics(modelID)
}

func (m *Marketplace) OptimizeResourceAllocation(modelID string) float64 {
	return m.catalog.OptimizeResourceAllocation(modelID)
}

func (m *Marketplace) AddModelVersion(modelID string, v models.ModelVersion) (models.ModelVersion, error) {
	return m.catalog.AddModelVersion(modelID, v)
}

func (m *Marketplace) VersionHistory(modelID string) []models.ModelVersion {
	return m.catalog.VersionHistory(modelID)
}

// RollbackVersion appends a ROLLBACK record when target is a rollback point.
// It returns false without error when the target cannot be rolled back to.
func (m *Marketplace) RollbackVersion(modelID string, target int) (bool, error) {
	if !m.catalog.CanRollback(modelID, target) {
		m.log.Info("market_rollback_refused", slog.String("model_id", modelID), slog.Int("target", target))
		return false, nil
	}
	if _, err := m.ledger.AddRollback(modelID, target); err != nil {
		return false, err
	}
	return true, nil
}
