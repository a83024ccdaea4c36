/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

// Package crx validates CRX3 containers well enough to decide whether the
// elevated broker may run what is inside one. A CRX3 file is a small binary
// envelope around a zip archive: magic, format version, a protobuf header
// carrying signature proofs, then the archive itself. The proofs sign the
// header-plus-archive, and the package identity (crx_id) is bound to the
// signing key, so a validated file cannot have been re-signed or re-stamped.
package crx

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"
)

var (
	ErrBadMagic     = errors.New("not a CRX file")
	ErrBadVersion   = errors.New("not a CRX3 file")
	ErrBadHeader    = errors.New("malformed CRX header")
	ErrNoProof      = errors.New("CRX has no valid signature proof")
	ErrUntrustedKey = errors.New("CRX is not signed by an allowed publisher")
)

const (
	magic         = "Cr24"
	formatVersion = 3
	maxHeaderLen  = 1 << 20

	signedDataPrefix = "CRX3 SignedData\x00"
)

// Protobuf tags of the CrxFileHeader and AsymmetricKeyProof messages.
const (
	tagProofRSA     = 2<<3 | 2
	tagProofECDSA   = 3<<3 | 2
	tagSignedHeader = 10000<<3 | 2

	tagProofPublicKey = 1<<3 | 2
	tagProofSignature = 2<<3 | 2

	tagSignedDataCrxID = 1<<3 | 2
)

type proof struct {
	publicKey []byte
	signature []byte
	ecdsa     bool
}

// CRX describes a validated container.
type CRX struct {
	// ID is the 32-character package id derived from the signing key.
	ID string

	// ArchiveOffset is where the zip payload starts within the file.
	ArchiveOffset int64

	// Digest is the BLAKE2b-256 of the zip payload, for audit logging.
	Digest [blake2b.Size256]byte

	// SignerKeyHashes are the SHA-256 hashes of every public key whose proof
	// verified.
	SignerKeyHashes [][sha256.Size]byte
}

// Verify reads and validates the container at path. At least one signature
// proof must verify against the file contents, the proof's key must hash to
// the declared crx_id, and, when allowedKeys is non-empty, that key must be
// one of them.
func Verify(path string, allowedKeys [][sha256.Size]byte) (*CRX, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < 12 || string(raw[:4]) != magic {
		return nil, ErrBadMagic
	}
	if binary.LittleEndian.Uint32(raw[4:8]) != formatVersion {
		return nil, ErrBadVersion
	}
	headerLen := binary.LittleEndian.Uint32(raw[8:12])
	if headerLen == 0 || headerLen > maxHeaderLen || uint64(12)+uint64(headerLen) > uint64(len(raw)) {
		return nil, ErrBadHeader
	}
	header := raw[12 : 12+headerLen]
	archive := raw[12+headerLen:]

	proofs, signedHeader, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	crxID, err := parseSignedData(signedHeader)
	if err != nil {
		return nil, err
	}

	// Every proof signs the same payload: a fixed prefix, the length-prefixed
	// signed header, and the archive.
	payload := sha256.New()
	payload.Write([]byte(signedDataPrefix))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(signedHeader)))
	payload.Write(lenBuf[:])
	payload.Write(signedHeader)
	payload.Write(archive)
	digest := payload.Sum(nil)

	c := &CRX{
		ID:            encodeID(crxID),
		ArchiveOffset: int64(12 + headerLen),
	}
	for i := range proofs {
		keyHash, err := verifyProof(&proofs[i], digest)
		if err != nil {
			continue
		}
		if !bytes.Equal(keyHash[:16], crxID) {
			// Valid signature from a key that is not the package's identity
			// key; ignore it rather than let it satisfy the pinning check.
			continue
		}
		c.SignerKeyHashes = append(c.SignerKeyHashes, keyHash)
	}
	if len(c.SignerKeyHashes) == 0 {
		return nil, ErrNoProof
	}
	if len(allowedKeys) > 0 && !anyAllowed(c.SignerKeyHashes, allowedKeys) {
		return nil, ErrUntrustedKey
	}
	c.Digest = blake2b.Sum256(archive)
	return c, nil
}

func anyAllowed(signers, allowed [][sha256.Size]byte) bool {
	for _, s := range signers {
		for _, a := range allowed {
			if s == a {
				return true
			}
		}
	}
	return false
}

func verifyProof(p *proof, digest []byte) (keyHash [sha256.Size]byte, err error) {
	pub, err := x509.ParsePKIXPublicKey(p.publicKey)
	if err != nil {
		return
	}
	switch pub := pub.(type) {
	case *rsa.PublicKey:
		if p.ecdsa {
			err = errors.New("RSA key in ECDSA proof")
			return
		}
		err = rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest, p.signature)
	case *ecdsa.PublicKey:
		if !p.ecdsa {
			err = errors.New("ECDSA key in RSA proof")
			return
		}
		if !ecdsa.VerifyASN1(pub, digest, p.signature) {
			err = errors.New("bad ECDSA signature")
		}
	default:
		err = fmt.Errorf("unsupported key type %T", pub)
	}
	if err != nil {
		return
	}
	keyHash = sha256.Sum256(p.publicKey)
	return
}

func parseHeader(header []byte) (proofs []proof, signedHeader []byte, err error) {
	for len(header) > 0 {
		var tag uint64
		tag, header, err = readVarint(header)
		if err != nil {
			return nil, nil, ErrBadHeader
		}
		if tag&7 == 0 {
			// Unknown varint field; skip it.
			_, header, err = readVarint(header)
			if err != nil {
				return nil, nil, ErrBadHeader
			}
			continue
		}
		if tag&7 != 2 {
			return nil, nil, ErrBadHeader
		}
		var field []byte
		field, header, err = readBytes(header)
		if err != nil {
			return nil, nil, ErrBadHeader
		}
		switch tag {
		case tagProofRSA, tagProofECDSA:
			p, err := parseProof(field)
			if err != nil {
				return nil, nil, err
			}
			p.ecdsa = tag == tagProofECDSA
			proofs = append(proofs, p)
		case tagSignedHeader:
			signedHeader = field
		}
	}
	if signedHeader == nil {
		return nil, nil, ErrBadHeader
	}
	return proofs, signedHeader, nil
}

func parseProof(raw []byte) (p proof, err error) {
	for len(raw) > 0 {
		var tag uint64
		tag, raw, err = readVarint(raw)
		if err != nil {
			return p, ErrBadHeader
		}
		var field []byte
		field, raw, err = readBytes(raw)
		if err != nil {
			return p, ErrBadHeader
		}
		switch tag {
		case tagProofPublicKey:
			p.publicKey = field
		case tagProofSignature:
			p.signature = field
		}
	}
	if p.publicKey == nil || p.signature == nil {
		return p, ErrBadHeader
	}
	return p, nil
}

func parseSignedData(raw []byte) ([]byte, error) {
	for len(raw) > 0 {
		tag, rest, err := readVarint(raw)
		if err != nil {
			return nil, ErrBadHeader
		}
		field, rest, err := readBytes(rest)
		if err != nil {
			return nil, ErrBadHeader
		}
		if tag == tagSignedDataCrxID {
			if len(field) != 16 {
				return nil, ErrBadHeader
			}
			return field, nil
		}
		raw = rest
	}
	return nil, ErrBadHeader
}

func readVarint(b []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, nil, ErrBadHeader
	}
	return v, b[n:], nil
}

func readBytes(b []byte) ([]byte, []byte, error) {
	l, rest, err := readVarint(b)
	if err != nil || l > uint64(len(rest)) {
		return nil, nil, ErrBadHeader
	}
	return rest[:l], rest[l:], nil
}

// encodeID renders a crx_id the way the browser does: hex, but with the
// alphabet shifted to 'a'..'p' so ids never look like numbers.
func encodeID(id []byte) string {
	out := make([]byte, len(id)*2)
	for i, b := range id {
		out[i*2] = 'a' + b>>4
		out[i*2+1] = 'a' + b&0x0f
	}
	return string(out)
}
