package reader

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pithecene-io/outpost/asset"
	"github.com/pithecene-io/outpost/types"
)

// shortDigest is the digest prefix length shown in tables.
const shortDigest = 12

// InspectAssets lists the assets under store whose path starts with prefix.
// An empty prefix lists everything.
func InspectAssets(store *asset.Store, prefix string) (*InspectAssetsResponse, error) {
	records, err := store.List()
	if err != nil {
		return nil, err
	}
	prefix = strings.TrimPrefix(prefix, "/")

	matched := make([]types.AssetRecord, 0, len(records))
	for _, rec := range records {
		if prefix == "" || strings.HasPrefix(rec.Path, prefix) {
			matched = append(matched, rec)
		}
	}
	return &InspectAssetsResponse{AssetRoot: store.Root(), Assets: matched}, nil
}

// StatsAssets summarizes the asset root.
func StatsAssets(store *asset.Store) (*AssetStats, error) {
	records, err := store.List()
	if err != nil {
		return nil, err
	}

	stats := &AssetStats{AssetRoot: store.Root(), Files: len(records)}
	dirs := make(map[string]struct{})
	for _, rec := range records {
		stats.TotalBytes += rec.Size
		for dir := path.Dir(rec.Path); dir != "."; dir = path.Dir(dir) {
			dirs[dir] = struct{}{}
		}
		if stats.LastUpdated == nil || rec.ModTime.After(*stats.LastUpdated) {
			mod := rec.ModTime
			stats.LastUpdated = &mod
		}
	}
	stats.Directories = len(dirs)
	return stats, nil
}

// Rows flattens records for table output.
func Rows(records []types.AssetRecord) []AssetRow {
	rows := make([]AssetRow, len(records))
	for i, rec := range records {
		digest := rec.Digest
		if len(digest) > shortDigest {
			digest = digest[:shortDigest]
		}
		rows[i] = AssetRow{
			Path:    rec.Path,
			Size:    rec.Size,
			Digest:  digest,
			ModTime: rec.ModTime.Format(time.RFC3339),
		}
	}
	return rows
}

// HumanBytes formats a byte count with a binary unit.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
