// Package main generates a development Certificate Authority and a server
// certificate signed by it, writing them to files under the "certs" directory.
//
// Run the server with -tls-cert certs/server.crt -tls-key certs/server.key
// and the client with -ca certs/ca.crt.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/cardkeeper/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	flag.Parse()

	if err := run(*dir, strings.Split(*hosts, ",")); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("✅ Certificates generated into %s\n", *dir)
}

// run writes ca.crt, ca.key, server.crt and server.key into dir. An existing
// CA in dir is reused so that clients trusting it keep working.
func run(dir string, hosts []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	caCertPath := filepath.Join(dir, "ca.crt")
	caKeyPath := filepath.Join(dir, "ca.key")

	caCert, caKey, err := certgen.LoadCACredentials(caCertPath, caKeyPath)
	if errors.Is(err, fs.ErrNotExist) {
		certPEM, keyPEM, genErr := certgen.GenerateCA("CardKeeper Dev CA")
		if genErr != nil {
			return genErr
		}
		if err := writeCertAndKey(caCertPath, caKeyPath, certPEM, keyPEM); err != nil {
			return err
		}
		caCert, caKey, err = certgen.ParseCA(certPEM, keyPEM)
	}
	if err != nil {
		return err
	}

	serverCert, serverKey, err := certgen.GenerateServerCertificate(hosts, caCert, caKey)
	if err != nil {
		return err
	}
	return writeCertAndKey(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"), serverCert, serverKey)
}

// writeCertAndKey writes the PEM certificate and private key to the given
// paths. The key is readable by the owner only.
func writeCertAndKey(certPath, keyPath string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", certPath, err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", keyPath, err)
	}
	return nil
}
