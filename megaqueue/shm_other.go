// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package megaqueue

import (
	"sync"

	"code.hybscloud.com/tsl"
)

// fallbackRegions backs megaqueue rings on platforms without a
// POSIX-shm mapping path wired up here. Segments are process-local —
// opening the same name from a second process is not possible on this
// build, only from goroutines within the same process that share this
// package's memory (e.g. tests). The Linux build (shm_linux.go) is the
// one that actually crosses process boundaries via /dev/shm + mmap.
var fallbackRegions sync.Map // name string -> []byte

// platformOpen is the non-Linux fallback: a plain heap buffer standing
// in for the shared-memory mapping, looked up or created by name.
func platformOpen(mode Mode, name string, size int) (platformRegion, error) {
	if mode&Create != 0 {
		region := make([]byte, size)
		fallbackRegions.Store(name, region)
		return platformRegion{
			bytes: region,
			closer: func(unlink bool) error {
				if unlink {
					fallbackRegions.Delete(name)
				}
				return nil
			},
		}, nil
	}

	v, ok := fallbackRegions.Load(name)
	if !ok {
		return platformRegion{}, tsl.ErrNotFound
	}
	region := v.([]byte)
	if len(region) != size {
		return platformRegion{}, tsl.ErrInvalid
	}
	return platformRegion{
		bytes: region,
		closer: func(unlink bool) error {
			if unlink {
				fallbackRegions.Delete(name)
			}
			return nil
		},
	}, nil
}
