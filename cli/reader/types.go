// Package reader provides the read side of the outpost CLI.
//
// It derives everything from the asset root on disk; the agent keeps no
// other persistent state.
package reader

import (
	"time"

	"github.com/pithecene-io/outpost/types"
)

// InspectAssetsResponse lists materialized assets.
type InspectAssetsResponse struct {
	AssetRoot string              `json:"asset_root" yaml:"asset_root"`
	Assets    []types.AssetRecord `json:"assets" yaml:"assets"`
}

// AssetStats summarizes an asset root.
type AssetStats struct {
	AssetRoot   string     `json:"asset_root" yaml:"asset_root"`
	Files       int        `json:"files" yaml:"files"`
	Directories int        `json:"directories" yaml:"directories"`
	TotalBytes  int64      `json:"total_bytes" yaml:"total_bytes"`
	LastUpdated *time.Time `json:"last_updated" yaml:"last_updated"`
}

// AssetRow is the flat table form of an AssetRecord.
type AssetRow struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Digest  string `json:"digest"`
	ModTime string `json:"mod_time"`
}
