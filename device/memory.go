package device

import (
	"sync"
	"unsafe"
)

// MemcpyKind specifies the direction of a memory transfer. The emulated
// device shares the host address space, so all kinds reduce to a copy; the
// distinction is kept for API fidelity and logging.
type MemcpyKind int

const (
	MemcpyHostToDevice MemcpyKind = iota
	MemcpyDeviceToHost
	MemcpyDeviceToDevice
)

// Buffer is a handle to device memory holding float32 working values.
// The zero value is a nil buffer.
type Buffer struct {
	ptr   unsafe.Pointer
	elems int
}

// IsNil reports whether the buffer refers to no allocation.
func (b Buffer) IsNil() bool {
	return b.ptr == nil
}

// Len returns the element count.
func (b Buffer) Len() int {
	return b.elems
}

// Float32 returns the buffer's contents as a float32 slice. The slice aliases
// device memory; it stays valid until the buffer is freed.
func (b Buffer) Float32() []float32 {
	if b.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(b.ptr), b.elems)
}

// MemoryPool allocates device buffers and reuses freed blocks of matching
// size, cutting allocation churn across repeated trials.
type MemoryPool struct {
	mu         sync.Mutex
	freeBySize map[int][]Buffer
	inUse      int64
	peak       int64
}

// NewMemoryPool creates an empty pool.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{freeBySize: make(map[int][]Buffer)}
}

// Malloc allocates a device buffer of elems float32 values, zero-filled.
func (ctx *Context) Malloc(elems int) (Buffer, error) {
	return ctx.memory.allocate(elems)
}

// Free returns a buffer to the pool. Freeing a nil buffer is a no-op.
func (ctx *Context) Free(b Buffer) error {
	return ctx.memory.release(b)
}

// Memcpy copies count float32 elements between host slices and device
// buffers. The transfer is synchronous with respect to the caller; callers
// ordering against in-flight kernels must synchronize the stream first.
func (ctx *Context) Memcpy(dst, src interface{}, count int, kind MemcpyKind) error {
	d, err := asFloat32(dst, count, "dst")
	if err != nil {
		return err
	}
	s, err := asFloat32(src, count, "src")
	if err != nil {
		return err
	}
	copy(d[:count], s[:count])
	return nil
}

func asFloat32(v interface{}, count int, what string) ([]float32, error) {
	switch x := v.(type) {
	case Buffer:
		if x.IsNil() {
			return nil, NewMemoryError("Memcpy", what+" is a nil buffer", nil)
		}
		if x.Len() < count {
			return nil, NewMemoryError("Memcpy", what+" buffer too small", nil)
		}
		return x.Float32(), nil
	case []float32:
		if len(x) < count {
			return nil, NewMemoryError("Memcpy", what+" slice too small", nil)
		}
		return x, nil
	default:
		return nil, NewMemoryError("Memcpy", "unsupported "+what+" type", nil)
	}
}

func (mp *MemoryPool) allocate(elems int) (Buffer, error) {
	if elems <= 0 {
		return Buffer{}, NewMemoryError("Malloc", "element count must be positive", nil)
	}
	mp.mu.Lock()
	if free := mp.freeBySize[elems]; len(free) > 0 {
		b := free[len(free)-1]
		mp.freeBySize[elems] = free[:len(free)-1]
		mp.inUse += int64(elems) * 4
		if mp.inUse > mp.peak {
			mp.peak = mp.inUse
		}
		mp.mu.Unlock()
		clear(b.Float32())
		return b, nil
	}
	mp.inUse += int64(elems) * 4
	if mp.inUse > mp.peak {
		mp.peak = mp.inUse
	}
	mp.mu.Unlock()

	backing := make([]float32, elems)
	return Buffer{ptr: unsafe.Pointer(&backing[0]), elems: elems}, nil
}

func (mp *MemoryPool) release(b Buffer) error {
	if b.IsNil() {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.freeBySize[b.elems] = append(mp.freeBySize[b.elems], b)
	mp.inUse -= int64(b.elems) * 4
	if mp.inUse < 0 {
		mp.inUse = 0
		return NewMemoryError("Free", "double free detected", nil)
	}
	return nil
}

// InUseBytes returns the bytes currently allocated from the pool.
func (mp *MemoryPool) InUseBytes() int64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.inUse
}

// PeakBytes returns the high-water mark of pool usage.
func (mp *MemoryPool) PeakBytes() int64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.peak
}

// Memory returns the context's pool, for footprint reporting.
func (ctx *Context) Memory() *MemoryPool {
	return ctx.memory
}
