//go:build linux || darwin || freebsd

package diskusage

import "golang.org/x/sys/unix"

func platformBlockSize(dir string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, err
	}
	return int64(st.Bsize), nil
}
