// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pmem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"wsprtx.io/x/wsprtx/host/fs"
)

// Mem represents a section of memory that is usable by the DMA controller.
//
// Since this is physically allocated memory, that could potentially have been
// allocated in spite of OS consent, for example by asking the GPU directly, it
// is important to call Close() before process exit.
type Mem interface {
	io.Closer
	// Bytes returns the user space memory mapped buffer address as a slice of
	// bytes.
	Bytes() []byte
	// AsPOD initializes a pointer to a POD (plain old data) to point to the
	// memory mapped region. See Slice.AsPOD for the accepted shapes.
	AsPOD(pp interface{}) error
	// PhysAddr is the physical address backing this view, when known.
	PhysAddr() uint64
}

// Slice can be transparently viewed as []byte, []uint32 or a struct.
type Slice []byte

// Bytes returns the memory mapped buffer as a slice of bytes.
func (s *Slice) Bytes() []byte {
	return []byte(*s)
}

func (s *Slice) Uint32() []uint32 {
	header := *(*reflect.SliceHeader)(unsafe.Pointer(s))
	header.Len /= 4
	header.Cap /= 4
	return *(*[]uint32)(unsafe.Pointer(&header))
}

// AsPOD initializes a pointer to a POD (plain old data) to point to the
// memory mapped region.
//
// pp must be a pointer to:
//
//   - pointer to a fixed size type (uint8, int64, float32, etc)
//   - struct
//   - array of the above
//   - slice of the above
//
// and the value must be nil. Returns an error otherwise.
func (s *Slice) AsPOD(pp interface{}) error {
	pv := reflect.ValueOf(pp)
	if k := pv.Kind(); k != reflect.Ptr {
		return fmt.Errorf("pmem: require Ptr, got %s", k)
	}
	if pv.IsNil() {
		return errors.New("pmem: require Ptr to be valid")
	}
	p := pv.Elem()
	if k := p.Kind(); k != reflect.Ptr && k != reflect.Slice {
		return fmt.Errorf("pmem: require Ptr to Ptr or Ptr to Slice, got Ptr to %s", k)
	}
	if !p.IsNil() {
		return errors.New("pmem: require destination to be nil")
	}

	if p.Kind() == reflect.Slice {
		t := p.Type().Elem()
		if !isPOD(t) {
			return fmt.Errorf("pmem: slice of non-POD type %s", t)
		}
		esize := int(t.Size())
		if esize == 0 {
			return errors.New("pmem: can't map a slice of zero sized elements")
		}
		n := len(*s) / esize
		dest := unsafe.Pointer(((*reflect.SliceHeader)(unsafe.Pointer(s))).Data)
		hdr := reflect.SliceHeader{Data: uintptr(dest), Len: n, Cap: n}
		p.Set(reflect.NewAt(p.Type(), unsafe.Pointer(&hdr)).Elem())
		return nil
	}

	// p.Elem() can't be used since it's a nil pointer. Use the type instead.
	t := p.Type().Elem()
	if !isPOD(t) {
		return fmt.Errorf("pmem: not a POD type: %s", t)
	}
	if size := int(t.Size()); size > len(*s) {
		return fmt.Errorf("pmem: can't map %s (size %d) on [%d]byte", t, size, len(*s))
	}
	// Use casting black magic to read the internal slice headers.
	dest := unsafe.Pointer(((*reflect.SliceHeader)(unsafe.Pointer(s))).Data)
	// Use reflection black magic to write to the original pointer.
	p.Set(reflect.NewAt(t, dest))
	return nil
}

// isPOD returns true if t can be safely memory mapped: a fixed size numeric
// type, or a struct, array or slice composed entirely of such types.
//
// Plain int/uint/uintptr are rejected since their size varies by platform.
func isPOD(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Float32, reflect.Float64, reflect.Bool:
		return true
	case reflect.Array:
		return isPOD(t.Elem())
	case reflect.Slice:
		return isPOD(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !isPOD(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// View represents a view of physical memory memory mapped into user space.
//
// It is usually used to map CPU registers into user space, usually I/O
// registers and the likes.
//
// It is not required to call Close(), the kernel will clean up on process
// shutdown.
type View struct {
	Slice
	phys uint64  // Physical address backing Slice, when known.
	orig []uint8 // Reference rounded to the lowest 4Kb page containing Slice.
}

// Close unmaps the memory from the user address space.
//
// This is done naturally by the OS on process teardown (when the process
// exits) so this is not a hard requirement to call this function.
func (v *View) Close() error {
	if v.orig == nil {
		return nil
	}
	return unix.Munmap(v.orig)
}

// PhysAddr returns the physical address backing this view, when known.
func (v *View) PhysAddr() uint64 {
	return v.phys
}

// MapAsPOD maps a peripheral I/O memory range and initializes pp to point to
// it. See Slice.AsPOD for the accepted shapes of pp.
func MapAsPOD(base uint64, pp interface{}) error {
	pv := reflect.ValueOf(pp)
	if k := pv.Kind(); k != reflect.Ptr {
		return fmt.Errorf("pmem: require Ptr, got %s", k)
	}
	if pv.IsNil() {
		return errors.New("pmem: require Ptr to be valid")
	}
	p := pv.Elem()
	if k := p.Kind(); k != reflect.Ptr {
		return fmt.Errorf("pmem: require Ptr to Ptr, got %s", k)
	}
	if !p.IsNil() {
		return errors.New("pmem: require destination to be nil")
	}
	t := p.Type().Elem()
	if !isPOD(t) {
		return fmt.Errorf("pmem: not a POD type: %s", t)
	}
	m, err := Map(base, int(t.Size()))
	if err != nil {
		return err
	}
	return m.AsPOD(pp)
}

// MapGPIO returns a CPU specific memory mapping of the CPU I/O registers using
// /dev/gpiomem.
//
// At the moment, /dev/gpiomem is only supported on Raspbian Jessie via a
// specific kernel driver.
func MapGPIO() (*View, error) {
	if isLinux {
		return mapGPIOLinux()
	}
	return nil, errors.New("pmem: /dev/gpiomem is not support on this platform")
}

// Map returns a memory mapped view of arbitrary physical memory range using OS
// provided functionality.
//
// Maps size of memory, rounded on a 4kb window.
//
// This function is dangerous and should be used wisely. It normally requires
// super privileges (root). On Linux, it leverages /dev/mem.
func Map(base uint64, size int) (*View, error) {
	if isLinux {
		return mapLinux(base, size)
	}
	return nil, errors.New("pmem: /dev/mem is not supported on this platform")
}

//

// Keep a cache of open file handles instead of opening and closing repeatedly.
var (
	mu          sync.Mutex
	gpioMemErr  error
	gpioMemView *View
	devMem      *fs.File
	devMemErr   error
)

// mapGPIOLinux is purely Raspbian specific.
func mapGPIOLinux() (*View, error) {
	mu.Lock()
	defer mu.Unlock()
	if gpioMemView == nil && gpioMemErr == nil {
		if f, err := fs.Open("/dev/gpiomem", os.O_RDWR|os.O_SYNC); err == nil {
			defer f.Close()
			if i, err := unix.Mmap(int(f.Fd()), 0, 4096, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED); err == nil {
				gpioMemView = &View{Slice: i, orig: i}
			} else {
				gpioMemErr = err
			}
		} else {
			gpioMemErr = err
		}
	}
	return gpioMemView, gpioMemErr
}

// mapLinux leverages /dev/mem to map a view of physical memory.
func mapLinux(base uint64, size int) (*View, error) {
	f, err := openDevMemLinux()
	if err != nil {
		return nil, err
	}
	// Align base and size at 4Kb.
	offset := int(base & 0xFFF)
	i, err := unix.Mmap(
		int(f.Fd()),
		int64(base&^0xFFF),
		(size+offset+0xFFF)&^0xFFF,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("pmem: mapping at 0x%x failed: %v", base, err)
	}
	return &View{Slice: i[offset : offset+size], phys: base, orig: i}, nil
}

func openDevMemLinux() (*fs.File, error) {
	mu.Lock()
	defer mu.Unlock()
	if devMem == nil && devMemErr == nil {
		devMem, devMemErr = fs.Open("/dev/mem", os.O_RDWR|os.O_SYNC)
	}
	return devMem, devMemErr
}

// wrapf returns an error prefixed with the package name.
func wrapf(format string, a ...interface{}) error {
	return fmt.Errorf("pmem: "+format, a...)
}
