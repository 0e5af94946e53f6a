//go:build !linux && !darwin && !freebsd

package diskusage

// Platforms without a usable statfs assume 4 KiB clusters.
func platformBlockSize(string) (int64, error) {
	return DefaultBlockSize, nil
}
