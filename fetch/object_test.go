package fetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/outpost/asset"
)

// failingStore is a lode.Store whose lookups fail.
type failingStore struct {
	err error
}

func (s *failingStore) Put(context.Context, string, io.Reader) error { return s.err }
func (s *failingStore) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, s.err
}
func (s *failingStore) Exists(context.Context, string) (bool, error)   { return false, s.err }
func (s *failingStore) List(context.Context, string) ([]string, error) { return nil, s.err }
func (s *failingStore) Delete(context.Context, string) error           { return s.err }
func (s *failingStore) ReaderAt(context.Context, string) (io.ReaderAt, error) {
	return nil, s.err
}
func (s *failingStore) ReadRange(context.Context, string, int64, int64) ([]byte, error) {
	return nil, s.err
}

var _ lode.Store = (*failingStore)(nil)

// memoryOpener hands out one in-memory store per bucket and counts opens.
func memoryOpener(t *testing.T) (StoreOpener, map[string]lode.Store, *int) {
	t.Helper()
	stores := make(map[string]lode.Store)
	opens := 0
	open := func(bucket string) (lode.Store, error) {
		opens++
		if s, ok := stores[bucket]; ok {
			return s, nil
		}
		s, err := lode.NewMemoryFactory()()
		if err != nil {
			return nil, err
		}
		stores[bucket] = s
		return s, nil
	}
	return open, stores, &opens
}

func TestParseObjectURL(t *testing.T) {
	tests := []struct {
		raw     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://assets/models/v1.bin", "assets", "models/v1.bin", false},
		{"s3://assets/a.txt", "assets", "a.txt", false},
		{"s3://assets/", "", "", true},
		{"s3:///a.txt", "", "", true},
		{"http://assets/a.txt", "", "", true},
	}
	for _, tt := range tests {
		bucket, key, err := ParseObjectURL(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseObjectURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("ParseObjectURL(%q) = %q, %q", tt.raw, bucket, key)
		}
	}
}

func TestObjectFetcher_Fetch(t *testing.T) {
	open, stores, opens := memoryOpener(t)
	f := NewObjectFetcher(open, 0)

	store, err := open("assets")
	if err != nil {
		t.Fatal(err)
	}
	*opens = 0
	if err := store.Put(t.Context(), "models/v1.bin", bytes.NewReader([]byte("weights"))); err != nil {
		t.Fatal(err)
	}

	for range 2 {
		data, err := f.Fetch(t.Context(), "s3://assets/models/v1.bin")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if string(data) != "weights" {
			t.Errorf("body = %q", data)
		}
	}
	if *opens != 1 {
		t.Errorf("store opened %d times, want 1", *opens)
	}
	if len(stores) != 1 {
		t.Errorf("stores = %d, want 1", len(stores))
	}
}

func TestObjectFetcher_NotFound(t *testing.T) {
	open, _, _ := memoryOpener(t)
	f := NewObjectFetcher(open, 0)

	_, err := f.Fetch(t.Context(), "s3://assets/missing.bin")
	assertFetchKind(t, err, asset.FetchNotFound)
}

func TestObjectFetcher_TooLarge(t *testing.T) {
	open, _, _ := memoryOpener(t)
	f := NewObjectFetcher(open, 4)

	store, _ := open("assets")
	_ = store.Put(t.Context(), "big.bin", bytes.NewReader([]byte("0123456789")))

	_, err := f.Fetch(t.Context(), "s3://assets/big.bin")
	assertFetchKind(t, err, asset.FetchTooLarge)
}

func TestObjectFetcher_StoreErrors(t *testing.T) {
	storeErr := errors.New("access denied")
	f := NewObjectFetcher(func(string) (lode.Store, error) {
		return &failingStore{err: storeErr}, nil
	}, 0)

	_, err := f.Fetch(t.Context(), "s3://assets/a.bin")
	fetchErr := assertFetchKind(t, err, asset.FetchNetwork)
	if !errors.Is(fetchErr, storeErr) {
		t.Errorf("expected wrapped store error, got %v", fetchErr.Err)
	}
}

func TestObjectFetcher_OpenError(t *testing.T) {
	f := NewObjectFetcher(func(string) (lode.Store, error) {
		return nil, errors.New("no credentials")
	}, 0)

	_, err := f.Fetch(t.Context(), "s3://assets/a.bin")
	assertFetchKind(t, err, asset.FetchNetwork)
}

func TestObjectFetcher_InvalidURL(t *testing.T) {
	open, _, _ := memoryOpener(t)
	f := NewObjectFetcher(open, 0)

	_, err := f.Fetch(t.Context(), "s3://assets")
	assertFetchKind(t, err, asset.FetchInvalidURL)
}
