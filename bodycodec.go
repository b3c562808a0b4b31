package cacheproxy

import "github.com/golang/snappy"

// maybeCompress snappy-compresses body when it's large enough that the
// framing overhead is worth it, and reports whether it did. Bodies below
// compressThreshold are kept raw since there's nothing to save. Adapted from
// the marker-byte scheme in the teacher's wrapper/compresscache package,
// simplified to a single algorithm since the store only ever has one
// backend (the in-memory maps) rather than a pluggable set.
func maybeCompress(body []byte) (out []byte, compressed bool) {
	if len(body) < compressThreshold {
		return body, false
	}
	return snappy.Encode(nil, body), true
}

func maybeDecompress(body []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return body, nil
	}
	return snappy.Decode(nil, body)
}
