package invindex

import "encoding/binary"

// postingSize is the byte width of one posting record: a 4-byte resource
// (service) id followed by a 4-byte amalgamated service-type/score word,
// matching the WordDetails layout from tracker-indexer.c (the original
// engine's `id` and `amalgamated` uint32 pair).
const postingSize = 8

// Posting is one (resource, score) entry in a term's postings list.
type Posting struct {
	ServiceID   uint32
	ServiceType uint8
	Score       int16
}

// amalgamate packs serviceType and score into the single uint32 the
// original engine called `amalgamated`: byte 0 is the service type, bytes
// 1-2 are the score (big-endian int16), byte 3 is reserved and always
// zero, mirroring tracker_indexer_calc_amalgamated.
func amalgamate(serviceType uint8, score int16) uint32 {
	return uint32(serviceType)<<24 | uint32(uint16(score))<<8
}

func splitAmalgamated(a uint32) (serviceType uint8, score int16) {
	serviceType = uint8(a >> 24)
	score = int16(uint16(a >> 8))
	return
}

// encodePosting serializes one Posting to its 8-byte wire form.
func encodePosting(p Posting) [postingSize]byte {
	var buf [postingSize]byte
	binary.BigEndian.PutUint32(buf[0:4], p.ServiceID)
	binary.BigEndian.PutUint32(buf[4:8], amalgamate(p.ServiceType, p.Score))
	return buf
}

func decodePosting(buf []byte) Posting {
	serviceID := binary.BigEndian.Uint32(buf[0:4])
	serviceType, score := splitAmalgamated(binary.BigEndian.Uint32(buf[4:8]))
	return Posting{ServiceID: serviceID, ServiceType: serviceType, Score: score}
}

// decodePostings splits a postings blob (as stored in one bbolt value)
// into its individual records. Trailing bytes that do not fill a whole
// record are dropped silently rather than reported as corruption.
func decodePostings(blob []byte) []Posting {
	n := len(blob) / postingSize
	out := make([]Posting, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, decodePosting(blob[i*postingSize:(i+1)*postingSize]))
	}
	return out
}

// encodePostings serializes a full postings slice back into one blob,
// the inverse of decodePostings, used when rewriting a term's entry after
// an update or a removal.
func encodePostings(postings []Posting) []byte {
	out := make([]byte, 0, len(postings)*postingSize)
	for _, p := range postings {
		enc := encodePosting(p)
		out = append(out, enc[:]...)
	}
	return out
}
