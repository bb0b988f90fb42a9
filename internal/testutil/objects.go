package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ong-aas/claims-portal/internal/upload"
)

// MemoryObjects is an in-memory object store.
type MemoryObjects struct {
	mu      sync.Mutex
	calls   int
	Objects map[string][]byte
	// Fail maps a 1-based Put call number to the error it returns.
	Fail map[int]error
	// OnPut runs after each Put, before it returns.
	OnPut func(call int)
}

var _ upload.ObjectStore = (*MemoryObjects)(nil)

// NewMemoryObjects returns an empty store.
func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{Objects: map[string][]byte{}, Fail: map[int]error{}}
}

func (m *MemoryObjects) Put(_ context.Context, bucket, key, _ string, body io.Reader, _ int64) (string, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	failure := m.Fail[call]
	m.mu.Unlock()

	if m.OnPut != nil {
		defer m.OnPut(call)
	}
	if failure != nil {
		return "", failure
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[bucket+"/"+key] = data
	return key, nil
}

func (m *MemoryObjects) PublicURL(bucket, path string) string {
	return fmt.Sprintf("https://objects.test/%s/%s", bucket, path)
}

// Calls returns how many Put calls were made.
func (m *MemoryObjects) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// TextFile builds an upload.File backed by an in-memory string.
func TextFile(name, content string) upload.File {
	return upload.File{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(content))), nil
		},
	}
}

// SizedFile builds an upload.File that claims the given size.
func SizedFile(name string, size int64) upload.File {
	f := TextFile(name, strings.Repeat("x", 4))
	f.Size = size
	return f
}
