// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache stores float vectors under uint64 keys.
//
// It is a front end to fastcache. Entries may be evicted at any time, so
// callers must be able to recompute a missing value.
package cache

import (
	"encoding/binary"
	"math"

	"github.com/VictoriaMetrics/fastcache"
)

// Cache with key of type uint64 and value of type []float64.
type Cache struct {
	fc  *fastcache.Cache
	key [8]byte
	buf []byte
}

// DefaultSize is the capacity used when NewCache gets a non-positive size.
const DefaultSize = 32 << 20

// NewCache creates a cache holding up to maxBytes of data.
func NewCache(maxBytes int) *Cache {
	if maxBytes <= 0 {
		maxBytes = DefaultSize
	}
	return &Cache{
		fc: fastcache.New(maxBytes),
	}
}

// Stats returns the number of entries and misses since the last Clear.
func (c *Cache) Stats() (entries, misses uint64) {
	var s fastcache.Stats
	c.fc.UpdateStats(&s)
	return s.EntriesCount, s.Misses
}

// Set stores a copy of v.
func (c *Cache) Set(n uint64, v []float64) {
	c.buf = encode(c.buf[:0], v)
	c.fc.Set(c.keyBytes(n), c.buf)
}

// Get returns the vector stored under n. The result is owned by the caller.
func (c *Cache) Get(n uint64) (v []float64, ok bool) {
	c.buf, ok = c.fc.HasGet(c.buf[:0], c.keyBytes(n))
	if !ok {
		return nil, false
	}
	return decode(c.buf), true
}

// Delete removes the entry under n.
func (c *Cache) Delete(n uint64) {
	c.fc.Del(c.keyBytes(n))
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.fc.Reset()
}

func (c *Cache) keyBytes(n uint64) []byte {
	binary.LittleEndian.PutUint64(c.key[:], n)
	return c.key[:]
}

func encode(dst []byte, v []float64) []byte {
	var b [8]byte
	for _, x := range v {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(x))
		dst = append(dst, b[:]...)
	}
	return dst
}

func decode(b []byte) []float64 {
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v
}
