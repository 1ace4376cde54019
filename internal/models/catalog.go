// v0
// internal/models/catalog.go
package models

// DocComment is a remark attached to a documentation entry.
type DocComment struct {
	UserID    string `json:"userId"`
	Comment   string `json:"comment"`
	Timestamp int64  `json:"timestamp"`
}

// Documentation is one authored document for a model.
type Documentation struct {
	ModelID   string       `json:"modelId"`
	AuthorID  string       `json:"authorId"`
	Content   string       `json:"content"`
	Tags      []string     `json:"tags"`
	Timestamp int64        `json:"timestamp"`
	Upvotes   int          `json:"upvotes"`
	Comments  []DocComment `json:"comments"`
}

func (d Documentation) Clone() Documentation {
	cp := d
	cp.Tags = append([]string(nil), d.Tags...)
	cp.Comments = append([]DocComment(nil), d.Comments...)
	return cp
}

// QualityMetrics tracks evaluation results and who vouched for them.
type QualityMetrics struct {
	Accuracy        float64  `json:"accuracy" validate:"gte=0,lte=1"`
	Reliability     float64  `json:"reliability" validate:"gte=0,lte=1"`
	UserCount       int      `json:"userCount" validate:"gte=0"`
	AvgResponseTime float64  `json:"avgResponseTime" validate:"gte=0"`
	Validations     []string `json:"validations"`
	LastAudit       int64    `json:"lastAudit"`
}

func (q QualityMetrics) Clone() QualityMetrics {
	cp := q
	cp.Validations = append([]string(nil), q.Validations...)
	return cp
}

// ResourceUsage describes compute consumed by a model.
type ResourceUsage struct {
	CPUHours    float64 `json:"cpuHours" validate:"gte=0"`
	GPUHours    float64 `json:"gpuHours" validate:"gte=0"`
	MemoryGB    float64 `json:"memoryGb" validate:"gte=0"`
	BandwidthGB float64 `json:"bandwidthGb" validate:"gte=0"`
	CostTokens  float64 `json:"costTokens" validate:"gte=0"`
}

// ModelVersion is one published revision of a model.
type ModelVersion struct {
	Version     int    `json:"version" validate:"gte=1"`
	CommitHash  string `json:"commitHash"`
	ParentHash  string `json:"parentHash"`
	Timestamp   int64  `json:"timestamp"`
	Changes     string `json:"changes"`
	CanRollback bool   `json:"canRollback"`
}
