// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package affinity

// Apply is a no-op outside Linux: this module's CPU pinning is only
// wired up against sched_setaffinity. Worker threads still run, just
// without pinning.
func (s Set) Apply() error {
	return nil
}
