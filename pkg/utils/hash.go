package utils

import (
	"hash"

	"github.com/spaolacci/murmur3"
)

// Mmh3Hash32 returns the signed murmur3 hash of raw, the form Shodan-style
// search engines index banners and favicons by.
func Mmh3Hash32(raw []byte) int32 {
	if len(raw) == 0 {
		return 0
	}
	var h32 hash.Hash32 = murmur3.New32()
	h32.Write(raw)
	return int32(h32.Sum32())
}
