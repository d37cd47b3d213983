package asset

import (
	"errors"
	"testing"

	"github.com/pithecene-io/outpost/types"
)

func TestResolveOperation(t *testing.T) {
	tests := []struct {
		name      string
		args      types.Args
		wantErr   string
		wantFile  string
		wantURL   string
		wantForce bool
	}{
		{
			name:    "no args",
			args:    nil,
			wantErr: "Couldn't find 'file' argument",
		},
		{
			name:    "url without file",
			args:    types.Args{"url": "/api/file/A.txt"},
			wantErr: "Couldn't find 'file' argument",
		},
		{
			name:    "file without url",
			args:    types.Args{"file": "my_file.txt"},
			wantErr: "Couldn't find 'url' argument",
		},
		{
			name:    "empty file counts as missing",
			args:    types.Args{"file": "", "url": "/a"},
			wantErr: "Couldn't find 'file' argument",
		},
		{
			name:    "empty url counts as missing",
			args:    types.Args{"file": "a.txt", "url": ""},
			wantErr: "Couldn't find 'url' argument",
		},
		{
			name:     "minimal",
			args:     types.Args{"file": "my_file.txt", "url": "/api/file/A.txt"},
			wantFile: "my_file.txt",
			wantURL:  "/api/file/A.txt",
		},
		{
			name:      "force true",
			args:      types.Args{"file": "f", "url": "u", "forceDownload": "true"},
			wantFile:  "f",
			wantURL:   "u",
			wantForce: true,
		},
		{
			name:      "force is case-insensitive",
			args:      types.Args{"file": "f", "url": "u", "forceDownload": "TRUE"},
			wantFile:  "f",
			wantURL:   "u",
			wantForce: true,
		},
		{
			name:     "force anything else is false",
			args:     types.Args{"file": "f", "url": "u", "forceDownload": "yes"},
			wantFile: "f",
			wantURL:  "u",
		},
		{
			name:     "unknown keys ignored",
			args:     types.Args{"file": "f", "url": "u", "checksum": "abc"},
			wantFile: "f",
			wantURL:  "u",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ResolveOperation(&types.Operation{ID: "1", Args: tt.args})
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got request %+v", tt.wantErr, req)
				}
				if err.Error() != tt.wantErr {
					t.Errorf("error = %q, want %q", err.Error(), tt.wantErr)
				}
				var argErr *ArgumentError
				if !errors.As(err, &argErr) {
					t.Errorf("expected *ArgumentError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.RelativePath != tt.wantFile {
				t.Errorf("RelativePath = %q, want %q", req.RelativePath, tt.wantFile)
			}
			if req.SourceURL != tt.wantURL {
				t.Errorf("SourceURL = %q, want %q", req.SourceURL, tt.wantURL)
			}
			if req.Force != tt.wantForce {
				t.Errorf("Force = %v, want %v", req.Force, tt.wantForce)
			}
		})
	}
}
