package assets

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrSignatureExpired = errors.New("assets: permit signature expired")
	ErrInvalidSigner    = errors.New("assets: permit signed by wrong key")
	ErrBadSignature     = errors.New("assets: malformed permit signature")
	ErrBadNonce         = errors.New("assets: permit nonce mismatch")
)

var permitPrefix = []byte("issuance-backend/permit/v1")

// PermitRequest is a signed allowance grant: owner authorizes spender over
// amount of asset without submitting the approval themselves.
type PermitRequest struct {
	Asset    common.Address
	Owner    common.Address
	Spender  common.Address
	Amount   *big.Int
	Nonce    uint64
	Deadline int64 // unix seconds
}

// PermitDigest is the message the owner signs. The nonce binds each
// signature to a single use; the prefix domain-separates it from any other
// signed payload.
func PermitDigest(req PermitRequest) []byte {
	buf := make([]byte, 0, len(permitPrefix)+20*3+32+8+8)
	buf = append(buf, permitPrefix...)
	buf = append(buf, req.Asset.Bytes()...)
	buf = append(buf, req.Owner.Bytes()...)
	buf = append(buf, req.Spender.Bytes()...)
	buf = append(buf, common.LeftPadBytes(req.Amount.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(new(big.Int).SetUint64(req.Nonce).Bytes(), 8)...)
	buf = append(buf, common.LeftPadBytes(big.NewInt(req.Deadline).Bytes(), 8)...)
	return crypto.Keccak256(buf)
}

// Nonce returns the next unused permit nonce for owner.
func (b *Book) Nonce(owner common.Address) uint64 {
	return b.nonces[owner]
}

// SetNonce seeds a persisted nonce during rehydration.
func (b *Book) SetNonce(owner common.Address, nonce uint64) {
	b.nonces[owner] = nonce
}

// Permit verifies the owner's signature over req and, on success, consumes
// the nonce and grants the allowance. sig is a 65-byte [R||S||V] secp256k1
// signature over PermitDigest(req).
func (b *Book) Permit(req PermitRequest, sig []byte, now time.Time) error {
	if _, ok := b.assets[req.Asset]; !ok {
		return ErrUnknownAsset
	}
	if req.Deadline > 0 && now.Unix() > req.Deadline {
		return ErrSignatureExpired
	}
	if req.Nonce != b.nonces[req.Owner] {
		return ErrBadNonce
	}
	if len(sig) != crypto.SignatureLength {
		return ErrBadSignature
	}
	// Accept both 0/1 and 27/28 recovery ids.
	norm := make([]byte, crypto.SignatureLength)
	copy(norm, sig)
	if norm[64] >= 27 {
		norm[64] -= 27
	}
	pub, err := crypto.SigToPub(PermitDigest(req), norm)
	if err != nil {
		return ErrBadSignature
	}
	if crypto.PubkeyToAddress(*pub) != req.Owner {
		return ErrInvalidSigner
	}
	b.nonces[req.Owner]++
	return b.Approve(req.Asset, req.Owner, req.Spender, req.Amount)
}
