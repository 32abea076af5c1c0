package db

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// PayloadCID returns the CIDv1 (raw codec, sha2-256) of a payload body. The
// same payload scanned twice gets the same id.
func PayloadCID(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// ParsePayloadCID validates a CID string and returns its canonical form.
func ParsePayloadCID(s string) (string, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}
