package main

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

func readCert(t *testing.T, path string) *x509.Certificate {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		t.Fatalf("%s is not PEM", path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return cert
}

func TestRun_GeneratesUsableCertificates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	if err := run(dir, []string{"localhost", "127.0.0.1"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, name := range []string{"ca.crt", "ca.key", "server.crt", "server.key"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	info, err := os.Stat(filepath.Join(dir, "server.key"))
	if err == nil && info.Mode().Perm() != 0o600 {
		t.Errorf("server.key mode = %v; want 0600", info.Mode().Perm())
	}

	if _, err := tls.LoadX509KeyPair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")); err != nil {
		t.Errorf("server key pair unusable: %v", err)
	}

	ca := readCert(t, filepath.Join(dir, "ca.crt"))
	server := readCert(t, filepath.Join(dir, "server.crt"))
	pool := x509.NewCertPool()
	pool.AddCert(ca)
	if _, err := server.Verify(x509.VerifyOptions{DNSName: "localhost", Roots: pool}); err != nil {
		t.Errorf("server cert does not verify against CA: %v", err)
	}
}

func TestRun_ReusesExistingCA(t *testing.T) {
	dir := t.TempDir()
	if err := run(dir, []string{"localhost"}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, _ := os.ReadFile(filepath.Join(dir, "ca.crt"))

	if err := run(dir, []string{"cards.local"}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, _ := os.ReadFile(filepath.Join(dir, "ca.crt"))

	if !bytes.Equal(first, second) {
		t.Error("existing CA was replaced")
	}
	if got := readCert(t, filepath.Join(dir, "server.crt")).DNSNames; len(got) != 1 || got[0] != "cards.local" {
		t.Errorf("DNSNames = %v; want [cards.local]", got)
	}
}

func TestRun_BadCA(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ca.crt"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ca.key"), []byte("junk"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := run(dir, []string{"localhost"}); err == nil {
		t.Error("expected error for a corrupt CA")
	}
}
