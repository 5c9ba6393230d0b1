// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package lfq

// RaceEnabled is true when the race detector is active.
// Exposed for tests that need to skip concurrent scenarios the race
// detector cannot verify (it does not track acquire-release orderings
// across separate atomic variables).
const RaceEnabled = true
