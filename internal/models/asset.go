package models

import "time"

// Asset types accepted by the catalog.
const (
	AssetTypeDataset   = "dataset"
	AssetTypeTable     = "table"
	AssetTypeStream    = "stream"
	AssetTypeDashboard = "dashboard"
	AssetTypeModel     = "model"
)

// Asset is one entry in the data catalog.
type Asset struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Location    string   `json:"location"`
	Owner       string   `json:"owner"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	// FreshnessSLAHours is how long the asset may go without validation
	// before it counts as stale. Zero disables staleness checks.
	FreshnessSLAHours int        `json:"freshness_sla_hours"`
	LastValidated     *time.Time `json:"last_validated,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ValidAssetType reports whether t is one of the accepted asset types.
func ValidAssetType(t string) bool {
	switch t {
	case AssetTypeDataset, AssetTypeTable, AssetTypeStream, AssetTypeDashboard, AssetTypeModel:
		return true
	}
	return false
}
