package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// View is a borrowed, read-only mapping of a region owned by another
// process. Closing a View unmaps this process's mapping and nothing else;
// the region file stays in place for its producer to release.
type View struct {
	data []byte
}

// Open maps the region identified by handle read-only. size is the byte
// size announced alongside the handle; the region must be at least that big.
func Open(handle string, size int) (*View, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shm: invalid view size %d", size)
	}
	f, err := os.Open(handle)
	if err != nil {
		return nil, fmt.Errorf("shm: open region: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("shm: stat region: %w", err)
	}
	if info.Size() < int64(size) {
		return nil, fmt.Errorf("shm: region %s is %d bytes, announced size is %d", handle, info.Size(), size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: map region read-only: %w", err)
	}
	return &View{data: data}, nil
}

// Bytes returns the mapped region contents. The slice is only valid until
// Close.
func (v *View) Bytes() []byte {
	return v.data
}

// Close unmaps the view. The underlying region is untouched.
func (v *View) Close() error {
	if v.data == nil {
		return nil
	}
	err := unix.Munmap(v.data)
	v.data = nil
	if err != nil {
		return fmt.Errorf("shm: unmap view: %w", err)
	}
	return nil
}
