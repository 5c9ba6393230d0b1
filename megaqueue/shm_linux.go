// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package megaqueue

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"code.hybscloud.com/tsl"
)

// shmDir mirrors the original's use of /dev/shm-backed POSIX shared
// memory rather than hugetlbfs.
const shmDir = "/dev/shm"

const namePrefix = "megaqueue_"

// platformOpen implements the real, cross-process-capable backing
// store: a file under /dev/shm, ftruncate'd on Create, mapped with
// mmap(MAP_SHARED), and pre-faulted via madvise(MADV_WILLNEED).
//
// Grounded on megaqueue_open.
func platformOpen(mode Mode, name string, size int) (platformRegion, error) {
	path := filepath.Join(shmDir, namePrefix+name)

	flags := os.O_RDONLY
	if mode&Write != 0 {
		flags = os.O_RDWR
	}
	if mode&Create != 0 {
		flags |= os.O_CREATE
	}

	f, err := os.OpenFile(path, flags, 0666)
	if err != nil {
		return platformRegion{}, tsl.ErrInvalid
	}

	if mode&Create != 0 {
		if err := f.Truncate(int64(size)); err != nil {
			_ = f.Close()
			return platformRegion{}, tsl.ErrInvalid
		}
	}

	prot := unix.PROT_READ
	if mode&Write != 0 {
		prot |= unix.PROT_WRITE
	}

	region, err := unix.Mmap(int(f.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return platformRegion{}, tsl.ErrInvalid
	}

	if mode&Create != 0 {
		prefetch := size
		if prefetch > 512<<20 {
			prefetch = 512 << 20
		}
		if err := unix.Madvise(region[:prefetch], unix.MADV_WILLNEED); err != nil {
			// Not fatal: performance hint only.
			_ = err
		}
	}

	closer := func(unlink bool) error {
		err := unix.Munmap(region)
		cerr := f.Close()
		if unlink {
			_ = unix.Unlink(path)
		}
		if err != nil {
			return err
		}
		return cerr
	}

	return platformRegion{bytes: region, closer: closer}, nil
}
