package types

import "time"

// AssetUpdateRequest is a validated "update asset" directive.
// RelativePath and SourceURL are never empty.
type AssetUpdateRequest struct {
	RelativePath string
	SourceURL    string
	Force        bool
}

// AssetRecord describes a materialized asset under the asset root.
type AssetRecord struct {
	// Path is slash-separated and relative to the asset root.
	Path string `json:"path" yaml:"path"`
	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// Digest is the hex-encoded BLAKE3 content fingerprint.
	Digest string `json:"digest" yaml:"digest"`
	// ModTime is the last modification time.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// AgentMeta identifies the agent to the controller and in logs.
type AgentMeta struct {
	AgentID    string
	AgentClass string
}
