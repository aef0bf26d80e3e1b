/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package presence

import "github.com/sabouaram/archivefs/errors"

// Config holds the quota parameters governing RAM/disk spillover for sinks
// allocated by a single Manager instance.
type Config struct {
	// MaxRAMQuota bounds the manager's total RAM usage across all sinks. A
	// nil value means unbounded: allocations never spill for quota reasons.
	MaxRAMQuota *uint64

	// FileMaxInRAM is the per-sink size above which a sink must live on
	// disk, regardless of quota headroom. Zero means no per-sink cap.
	FileMaxInRAM uint64

	// PercFileMemoryFadeIn is the hysteresis factor (0..1) applied to
	// FileMaxInRAM: a disk sink whose size falls below
	// FileMaxInRAM * PercFileMemoryFadeIn is eligible for promotion back to
	// RAM, provided the quota accommodates it.
	PercFileMemoryFadeIn float64

	// ScratchDir is the host-managed directory new local-file sinks are
	// created under. Empty means the OS default temp directory.
	ScratchDir string
}

func (c Config) Validate() errors.Error {
	if c.PercFileMemoryFadeIn < 0 || c.PercFileMemoryFadeIn > 1 {
		return ErrorParamsInvalid.Error(nil)
	}
	if c.MaxRAMQuota != nil && c.FileMaxInRAM > *c.MaxRAMQuota {
		// a per-sink cap above the total quota can never be reached on
		// disk-to-ram promotion; not an error, just dead configuration,
		// but the quota value itself must still be internally consistent.
		return nil
	}
	return nil
}
