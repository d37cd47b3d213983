package asset

import (
	"strings"

	"github.com/pithecene-io/outpost/types"
)

// Argument keys of an "update asset" operation.
const (
	ArgFile          = "file"
	ArgURL           = "url"
	ArgForceDownload = "forceDownload"
)

// ResolveOperation validates operation arguments into an AssetUpdateRequest.
// It performs no I/O. "file" is checked before "url"; empty values count as
// missing. Unknown arguments are ignored.
func ResolveOperation(op *types.Operation) (*types.AssetUpdateRequest, error) {
	file, ok := op.Args.Lookup(ArgFile)
	if !ok {
		return nil, &ArgumentError{Arg: ArgFile}
	}
	url, ok := op.Args.Lookup(ArgURL)
	if !ok {
		return nil, &ArgumentError{Arg: ArgURL}
	}

	force := false
	if v, ok := op.Args.Lookup(ArgForceDownload); ok {
		force = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	return &types.AssetUpdateRequest{
		RelativePath: file,
		SourceURL:    url,
		Force:        force,
	}, nil
}
