// Package shm provides the shared memory region used to transfer encoded
// result buffers between processes.
//
// Ownership is asymmetric: the producer creates the region and is the only
// party that releases it. Consumers get a read-only View whose Close only
// unmaps their own mapping; the View type has no operation that could
// release or unlink the region.
package shm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// Region is a producer-owned shared memory mapping backed by a file in the
// run directory. The file path doubles as the handle passed to consumers.
type Region struct {
	path string
	data []byte
}

// Create allocates a region in dir, maps it read-write and fills it with buf.
func Create(dir string, buf []byte) (*Region, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("shm: refusing to create empty region")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("shm: create run dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("results-%s.shm", uuid.NewString()))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shm: create region file: %w", err)
	}
	defer f.Close()

	if err := f.Truncate(int64(len(buf))); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("shm: size region to %d bytes: %w", len(buf), err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, len(buf), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("shm: map region: %w", err)
	}
	copy(data, buf)

	return &Region{path: path, data: data}, nil
}

// Handle returns the token a consumer needs to open a View of the region.
func (r *Region) Handle() string {
	return r.path
}

// Size returns the byte size of the mapped region.
func (r *Region) Size() int {
	return len(r.data)
}

// Close unmaps and unlinks the region. Producer side only; consumers never
// call this because they never hold a Region.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	if rmErr := os.Remove(r.path); err == nil {
		err = rmErr
	}
	if err != nil {
		return fmt.Errorf("shm: release region %s: %w", r.path, err)
	}
	return nil
}
