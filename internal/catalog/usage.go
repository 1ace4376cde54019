// v0
// internal/catalog/usage.go
package catalog

import "modelmarket/internal/models"

// optimizeCostFactor is applied to costTokens on each optimization pass.
const optimizeCostFactor = 0.9

func (c *Catalog) TrackResourceUsage(modelID string, u models.ResourceUsage) error {
	if err := requireIDs("modelId", modelID); err != nil {
		return err
	}
	for _, v := range []float64{u.CPUHours, u.GPUHours, u.MemoryGB, u.BandwidthGB, u.CostTokens} {
		if !models.Finite(v) || v < 0 {
			return models.Invalid("resource usage values must be finite and non-negative")
		}
	}
	c.usageMu.Lock()
	c.usage[modelID] = u
	c.usageMu.Unlock()
	return nil
}

func (c *Catalog) ResourceMetrics(modelID string) models.ResourceUsage {
	c.usageMu.RLock()
	defer c.usageMu.RUnlock()
	return c.usage[modelID]
}

// OptimizeResourceAllocation returns tokens spent per compute hour before
// trimming the model's token cost by ten percent.
func (c *Catalog) OptimizeResourceAllocation(modelID string) float64 {
	c.usageMu.Lock()
	defer c.usageMu.Unlock()
	u := c.usage[modelID]
	var efficiency float64
	if hours := u.CPUHours + u.GPUHours; hours > 0 {
		efficiency = u.CostTokens / hours
	}
	u.CostTokens *= optimizeCostFactor
	c.usage[modelID] = u
	return efficiency
}
