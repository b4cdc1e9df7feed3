package render

// CacheSize is the import cache capacity, matched to the typical hardware
// decode surface pool size.
const CacheSize = 8

type cacheKey struct {
	surface    uint64
	generation uint64
}

type cacheEntry struct {
	key     cacheKey
	image   ImageHandle
	used    bool
	lastUse uint64
}

// importCache is a fixed-capacity map from (surface identity, generation)
// to imported image, with LRU replacement. At most one entry per key.
type importCache struct {
	entries [CacheSize]cacheEntry
}

// lookup returns the entry for the key, or nil on miss.
func (c *importCache) lookup(k cacheKey) *cacheEntry {
	for i := range c.entries {
		if c.entries[i].used && c.entries[i].key == k {
			return &c.entries[i]
		}
	}
	return nil
}

// insert stores an imported image under the key, reusing an empty slot or
// replacing the entry with the globally smallest lastUse. The retire
// callback releases any previously held image before the slot is reused.
func (c *importCache) insert(k cacheKey, img ImageHandle, retire func(ImageHandle)) *cacheEntry {
	best := 0
	oldest := c.entries[0].lastUse
	for i := range c.entries {
		if !c.entries[i].used {
			best = i
			break
		}
		if c.entries[i].lastUse < oldest {
			oldest = c.entries[i].lastUse
			best = i
		}
	}

	e := &c.entries[best]
	if e.used && e.image != NoImage && retire != nil {
		retire(e.image)
	}
	*e = cacheEntry{key: k, image: img, used: true}
	return e
}

// clear releases every held image and empties the cache.
func (c *importCache) clear(retire func(ImageHandle)) {
	for i := range c.entries {
		if c.entries[i].used && c.entries[i].image != NoImage && retire != nil {
			retire(c.entries[i].image)
		}
		c.entries[i] = cacheEntry{}
	}
}

// len returns the number of occupied slots.
func (c *importCache) len() int {
	n := 0
	for i := range c.entries {
		if c.entries[i].used {
			n++
		}
	}
	return n
}
