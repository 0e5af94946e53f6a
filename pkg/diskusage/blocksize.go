package diskusage

import "sync"

// DefaultBlockSize is used when the filesystem cannot be asked.
const DefaultBlockSize int64 = 4096

// BlockSizer reports the allocation unit for files in dir on device dev.
type BlockSizer interface {
	BlockSize(dir string, dev uint64) int64
}

// FixedBlockSize always reports the same block size.
type FixedBlockSize int64

func (f FixedBlockSize) BlockSize(string, uint64) int64 {
	return int64(f)
}

// cachedSizer asks the platform once per device.
type cachedSizer struct {
	mu    sync.Mutex
	byDev map[uint64]int64
	query func(dir string) (int64, error)
}

// NewBlockSizer returns the platform block sizer, cached per device.
func NewBlockSizer() BlockSizer {
	return &cachedSizer{byDev: make(map[uint64]int64), query: platformBlockSize}
}

func (c *cachedSizer) BlockSize(dir string, dev uint64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if size, ok := c.byDev[dev]; ok {
		return size
	}
	size, err := c.query(dir)
	if err != nil || size <= 0 {
		size = DefaultBlockSize
	}
	c.byDev[dev] = size
	return size
}
