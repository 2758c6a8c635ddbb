//go:build windows

package webgpu

import (
	"math/bits"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

const maxPoolSize = 32 // Max buffers per size class

type poolKey struct {
	class uint
	usage wgpu.BufferUsage
}

// BufferPool reuses GPU buffers between kernel launches. Buffers are
// grouped by power-of-two size class and usage flags.
type BufferPool struct {
	device *wgpu.Device

	mu   sync.Mutex
	free map[poolKey][]*wgpu.Buffer

	hits, misses uint64
}

// NewBufferPool creates a new buffer pool for the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{device: device, free: make(map[poolKey][]*wgpu.Buffer)}
}

func sizeClass(size uint64) uint {
	if size <= 4 {
		return 2
	}
	return uint(bits.Len64(size - 1))
}

// Acquire returns a buffer of at least size bytes with the given usage.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	key := poolKey{class: sizeClass(size), usage: usage}
	p.mu.Lock()
	defer p.mu.Unlock()
	if list := p.free[key]; len(list) > 0 {
		buf := list[len(list)-1]
		p.free[key] = list[:len(list)-1]
		p.hits++
		return buf
	}
	p.misses++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  uint64(1) << key.class,
	})
}

// Release returns a buffer acquired for size bytes to the pool.
func (p *BufferPool) Release(buf *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	key := poolKey{class: sizeClass(size), usage: usage}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free[key]) >= maxPoolSize {
		buf.Release()
		return
	}
	p.free[key] = append(p.free[key], buf)
}

// Clear releases all pooled buffers.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, list := range p.free {
		for _, buf := range list {
			buf.Release()
		}
		delete(p.free, key)
	}
}

// Stats returns the pool hit and miss counts.
func (p *BufferPool) Stats() (hits, misses uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.misses
}
