// Package fairness derives the provably fair random outcome from the
// three revealed inputs of the commit-reveal scheme.
//
// The digest is keccak256 over the ASCII concatenation of the
// 0x-prefixed lowercase hex client seed, the base-10 nonce and the
// 0x-prefixed lowercase hex secret, in that order. The string encoding
// (not raw byte concatenation) is the public contract: any third party
// must be able to recompute the digest from the revealed values.
package fairness

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Resolve computes the verifiable random number for one order.
// It is pure: identical inputs always yield the identical digest.
func Resolve(clientSeed, secret common.Hash, nonce uint64) common.Hash {
	payload := clientSeed.Hex() + strconv.FormatUint(nonce, 10) + secret.Hex()
	return crypto.Keccak256Hash([]byte(payload))
}
