package codec

import "hash/crc32"

// CRC32 implements enet.Checksum with the IEEE polynomial via the
// standard library's table-driven implementation; no third-party
// checksum library in the retrieved corpus covers this narrower case
// better than hash/crc32 already does.
type CRC32 struct{}

// Sum folds every byte slice in in into a single CRC32/IEEE checksum.
func (CRC32) Sum(in [][]byte) uint32 {
	h := crc32.NewIEEE()
	for _, b := range in {
		h.Write(b)
	}
	return h.Sum32()
}
