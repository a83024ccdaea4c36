/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package crx

import (
	"archive/zip"
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func pbBytes(field int, b []byte) []byte {
	out := binary.AppendUvarint(nil, uint64(field)<<3|2)
	out = binary.AppendUvarint(out, uint64(len(b)))
	return append(out, b...)
}

func buildArchive(t *testing.T, names ...string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		_, err = w.Write([]byte("contents of " + name))
		if err != nil {
			t.Fatal(err)
		}
	}
	err := zw.Close()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func buildCRX(t *testing.T, signer crypto.Signer, useECDSA bool, archive []byte) (file []byte, keyHash [sha256.Size]byte) {
	pubDER, err := x509.MarshalPKIXPublicKey(signer.Public())
	if err != nil {
		t.Fatal(err)
	}
	keyHash = sha256.Sum256(pubDER)
	signedData := pbBytes(1, keyHash[:16])

	h := sha256.New()
	h.Write([]byte(signedDataPrefix))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(signedData)))
	h.Write(lenBuf[:])
	h.Write(signedData)
	h.Write(archive)
	digest := h.Sum(nil)

	var sig []byte
	if useECDSA {
		sig, err = ecdsa.SignASN1(rand.Reader, signer.(*ecdsa.PrivateKey), digest)
	} else {
		sig, err = rsa.SignPKCS1v15(rand.Reader, signer.(*rsa.PrivateKey), crypto.SHA256, digest)
	}
	if err != nil {
		t.Fatal(err)
	}

	proof := append(pbBytes(1, pubDER), pbBytes(2, sig)...)
	proofField := 2
	if useECDSA {
		proofField = 3
	}
	header := append(pbBytes(proofField, proof), pbBytes(10000, signedData)...)

	file = append(file, magic...)
	file = binary.LittleEndian.AppendUint32(file, formatVersion)
	file = binary.LittleEndian.AppendUint32(file, uint32(len(header)))
	file = append(file, header...)
	file = append(file, archive...)
	return file, keyHash
}

func writeCRX(t *testing.T, file []byte) string {
	path := filepath.Join(t.TempDir(), "test.crx")
	err := os.WriteFile(path, file, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func rsaKey(t *testing.T) *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestVerifyRSA(t *testing.T) {
	archive := buildArchive(t, "ChromeRecovery.exe")
	file, keyHash := buildCRX(t, rsaKey(t), false, archive)
	c, err := Verify(writeCRX(t, file), nil)
	if err != nil {
		t.Fatalf("Unable to verify valid CRX: %s", err)
	}
	if len(c.ID) != 32 {
		t.Errorf("Unexpected id length: %q", c.ID)
	}
	if len(c.SignerKeyHashes) != 1 || c.SignerKeyHashes[0] != keyHash {
		t.Error("Signer key hash does not match the signing key")
	}
	if c.ArchiveOffset != int64(len(file)-len(archive)) {
		t.Errorf("Wrong archive offset %d", c.ArchiveOffset)
	}
}

func TestVerifyECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	file, _ := buildCRX(t, key, true, buildArchive(t, "ChromeRecovery.exe"))
	_, err = Verify(writeCRX(t, file), nil)
	if err != nil {
		t.Errorf("Unable to verify ECDSA-signed CRX: %s", err)
	}
}

func TestVerifyRejectsTamper(t *testing.T) {
	file, _ := buildCRX(t, rsaKey(t), false, buildArchive(t, "ChromeRecovery.exe"))
	file[len(file)-1] ^= 1
	_, err := Verify(writeCRX(t, file), nil)
	if !errors.Is(err, ErrNoProof) {
		t.Errorf("Tampered archive verified anyway: %v", err)
	}
}

func TestVerifyRejectsWrapper(t *testing.T) {
	file, _ := buildCRX(t, rsaKey(t), false, buildArchive(t, "ChromeRecovery.exe"))

	bad := append([]byte{}, file...)
	copy(bad, "Cr42")
	if _, err := Verify(writeCRX(t, bad), nil); !errors.Is(err, ErrBadMagic) {
		t.Errorf("Bad magic accepted: %v", err)
	}

	bad = append([]byte{}, file...)
	binary.LittleEndian.PutUint32(bad[4:8], 2)
	if _, err := Verify(writeCRX(t, bad), nil); !errors.Is(err, ErrBadVersion) {
		t.Errorf("CRX2 accepted: %v", err)
	}

	bad = append([]byte{}, file...)
	binary.LittleEndian.PutUint32(bad[8:12], uint32(len(bad)))
	if _, err := Verify(writeCRX(t, bad), nil); !errors.Is(err, ErrBadHeader) {
		t.Errorf("Overlong header accepted: %v", err)
	}
}

func TestVerifyPinning(t *testing.T) {
	file, keyHash := buildCRX(t, rsaKey(t), false, buildArchive(t, "ChromeRecovery.exe"))
	path := writeCRX(t, file)

	var otherKey [sha256.Size]byte
	otherKey[0] = 1
	_, err := Verify(path, [][sha256.Size]byte{otherKey})
	if !errors.Is(err, ErrUntrustedKey) {
		t.Errorf("Unpinned key accepted: %v", err)
	}
	_, err = Verify(path, [][sha256.Size]byte{otherKey, keyHash})
	if err != nil {
		t.Errorf("Pinned key rejected: %s", err)
	}
}

func TestUnpack(t *testing.T) {
	archive := buildArchive(t, "ChromeRecovery.exe", "helper.exe", "resources/strings.dat")
	file, _ := buildCRX(t, rsaKey(t), false, archive)
	path := writeCRX(t, file)
	c, err := Verify(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	dest := t.TempDir()
	runner, err := Unpack(path, c, dest)
	if err != nil {
		t.Fatalf("Unable to unpack: %s", err)
	}
	if runner != filepath.Join(dest, "ChromeRecovery.exe") {
		t.Errorf("Wrong runner %q", runner)
	}
	if _, err := os.Stat(filepath.Join(dest, "resources", "strings.dat")); err != nil {
		t.Errorf("Nested member missing: %s", err)
	}
}

func TestUnpackRejectsTraversal(t *testing.T) {
	archive := buildArchive(t, "../evil.exe")
	file, _ := buildCRX(t, rsaKey(t), false, archive)
	path := writeCRX(t, file)
	c, err := Verify(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Unpack(path, c, t.TempDir())
	if err == nil {
		t.Error("Traversing member name accepted")
	}
}

func TestUnpackEnforcesSizeCap(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("ChromeRecovery.exe")
	if err != nil {
		t.Fatal(err)
	}
	_, err = w.Write(bytes.Repeat([]byte{0}, 4096))
	if err != nil {
		t.Fatal(err)
	}
	err = zw.Close()
	if err != nil {
		t.Fatal(err)
	}
	file, _ := buildCRX(t, rsaKey(t), false, buf.Bytes())
	path := writeCRX(t, file)
	c, err := Verify(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := unpack(path, c, t.TempDir(), 1024); err == nil {
		t.Error("Archive expanding past the cap unpacked anyway")
	}
	if _, err := unpack(path, c, t.TempDir(), 1<<20); err != nil {
		t.Errorf("Archive within the cap rejected: %s", err)
	}
}

func TestUnpackRequiresRunner(t *testing.T) {
	archive := buildArchive(t, "readme.txt")
	file, _ := buildCRX(t, rsaKey(t), false, archive)
	path := writeCRX(t, file)
	c, err := Verify(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Unpack(path, c, t.TempDir())
	if !errors.Is(err, ErrNoRunner) {
		t.Errorf("Runnerless archive accepted: %v", err)
	}
}
