// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tsl_test

import (
	"fmt"

	"code.hybscloud.com/tsl/logalloc"
)

// ExampleArena demonstrates the allocate/reference/free cycle a
// dataplane component runs against a LogAlloc arena: reserve a cell,
// take out a reference on behalf of a second consumer, and release
// both references.
func ExampleArena() {
	arena, err := logalloc.New(64, 8, nil)
	if err != nil {
		fmt.Println("new:", err)
		return
	}
	defer arena.Delete()

	p, err := arena.Alloc(40)
	if err != nil {
		fmt.Println("alloc:", err)
		return
	}
	copy(p.Bytes(), []byte("payload"))

	// A second consumer takes a reference before the first releases.
	if err := p.Reference(); err != nil {
		fmt.Println("reference:", err)
		return
	}

	fmt.Println(string(p.Bytes()[:7]))

	if err := p.Free(); err != nil {
		fmt.Println("first free:", err)
		return
	}
	if err := p.Free(); err != nil {
		fmt.Println("second free:", err)
		return
	}

	// Output:
	// payload
}

// ExampleArena_prepareFinalize demonstrates the streaming two-phase
// path used when the final size of a record isn't known until it has
// been written: reserve an upper bound, write into the returned bytes,
// then commit only the portion actually used.
func ExampleArena_prepareFinalize() {
	arena, err := logalloc.New(32, 8, nil)
	if err != nil {
		fmt.Println("new:", err)
		return
	}
	defer arena.Delete()

	p, reserved, err := arena.PrepareRegion(96)
	if err != nil {
		fmt.Println("prepare:", err)
		return
	}

	n := copy(p.Bytes(), []byte("short record"))
	_ = reserved

	if err := arena.FinalizeRegion(p, n); err != nil {
		fmt.Println("finalize:", err)
		return
	}

	fmt.Println(string(p.Bytes()[:n]))

	// Output:
	// short record
}
