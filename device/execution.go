package device

import (
	"runtime"
	"sync"
)

// Dim3 holds 3D grid or block dimensions.
type Dim3 struct {
	X, Y, Z int
}

// Size returns the total number of elements covered by the dimensions.
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// CeilDiv rounds the quotient n/d up.
func CeilDiv(n, d int) int {
	return (n + d - 1) / d
}

// ThreadID identifies one thread's position within the launch grid, with the
// same indexing semantics as blockIdx/threadIdx/blockDim/gridDim.
type ThreadID struct {
	BlockIdx  Dim3
	ThreadIdx Dim3
	BlockDim  Dim3
	GridDim   Dim3
}

// GlobalX returns the flattened thread index across the grid's X and Y block
// dimensions. Kernels use it with a grid-stride loop so correctness does not
// depend on the exact launch geometry.
func (tid ThreadID) GlobalX() int {
	blk := tid.BlockIdx.Y*tid.GridDim.X + tid.BlockIdx.X
	return blk*tid.BlockDim.X + tid.ThreadIdx.X
}

// GridThreads returns the total thread count across the X and Y grid
// dimensions, the stride for grid-stride loops.
func (tid ThreadID) GridThreads() int {
	return tid.GridDim.X * tid.GridDim.Y * tid.BlockDim.X
}

// Kernel is a compute kernel with its arguments already bound. Execute is
// called once per thread and must be safe for concurrent calls.
type Kernel interface {
	Execute(tid ThreadID)
}

// Launch enqueues a kernel execution over the given grid on a stream. The
// call is asynchronous: it returns once the work is queued, and the stream
// runs blocks across a worker fan-out sized to the host core count. Blocks
// are distributed contiguously so threads sharing data keep cache locality.
func (ctx *Context) Launch(s *Stream, grid, block Dim3, k Kernel) error {
	if grid.X <= 0 || grid.Y <= 0 || grid.Z <= 0 || block.X <= 0 || block.Y <= 0 || block.Z <= 0 {
		return NewLaunchError("Launch", "grid and block dimensions must be positive", nil)
	}
	if s == nil {
		s = ctx.defaultStream
	}

	gridSize := grid.Size()
	blockSize := block.Size()

	s.Submit(func() {
		workers := runtime.NumCPU()
		if gridSize < workers {
			workers = gridSize
		}
		blocksPerWorker := (gridSize + workers - 1) / workers

		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			start := w * blocksPerWorker
			end := start + blocksPerWorker
			if end > gridSize {
				end = gridSize
			}
			go func(start, end int) {
				defer wg.Done()
				for blockID := start; blockID < end; blockID++ {
					blockIdx := linearTo3D(blockID, grid)
					for t := 0; t < blockSize; t++ {
						k.Execute(ThreadID{
							BlockIdx:  blockIdx,
							ThreadIdx: linearTo3D(t, block),
							BlockDim:  block,
							GridDim:   grid,
						})
					}
				}
			}(start, end)
		}
		wg.Wait()
	})
	return nil
}

// linearTo3D converts a linear index to 3D coordinates within dim.
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}
