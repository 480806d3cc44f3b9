package tls

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/loykin/taskr/internal/config"
)

func TestParseTLSVersion(t *testing.T) {
	cases := []struct {
		in   string
		want uint16
		ok   bool
	}{
		{"", tls.VersionTLS13, false},
		{"1.2", tls.VersionTLS12, true},
		{"TLS1.3", tls.VersionTLS13, true},
		{"1.1", 0, false},
	}
	for _, tc := range cases {
		v, ok := parseTLSVersion(tc.in)
		if v != tc.want || ok != tc.ok {
			t.Fatalf("parseTLSVersion(%q) = %v,%v want %v,%v", tc.in, v, ok, tc.want, tc.ok)
		}
	}
	min, max := resolveTLSVersions(config.TLSConfig{MinVersion: "1.3", MaxVersion: "1.2"})
	if min != tls.VersionTLS13 || max != tls.VersionTLS13 {
		t.Fatalf("max must not fall below min: %x %x", min, max)
	}
}

func TestSetupDisabled(t *testing.T) {
	c, err := Setup(config.TLSConfig{})
	if err != nil || c != nil {
		t.Fatalf("expected nil config for disabled TLS, got %v %v", c, err)
	}
}

func TestSetupSelfSigned(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tls")
	c, err := Setup(SelfSigned(dir, "taskr.local", "localhost"))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if c.MinVersion != tls.VersionTLS12 || c.MaxVersion != tls.VersionTLS13 {
		t.Fatalf("versions: %x %x", c.MinVersion, c.MaxVersion)
	}
	cert, err := c.GetCertificate(&tls.ClientHelloInfo{})
	if err != nil {
		t.Fatalf("load generated pair: %v", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}
	if leaf.Subject.CommonName != "taskr.local" || len(leaf.DNSNames) != 2 {
		t.Fatalf("unexpected certificate: cn=%s dns=%v", leaf.Subject.CommonName, leaf.DNSNames)
	}
	st, err := os.Stat(filepath.Join(dir, tlsKey))
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm()&0o077 != 0 {
		t.Fatalf("private key is group/world readable: %v", st.Mode())
	}
	b, _ := os.ReadFile(filepath.Join(dir, tlsCaCrt))
	if blk, _ := pem.Decode(b); blk == nil || blk.Type != "CERTIFICATE" {
		t.Fatalf("ca certificate not written")
	}

	// a second Setup reuses the existing pair
	before, _ := os.ReadFile(filepath.Join(dir, tlsCrt))
	if _, err := Setup(SelfSigned(dir)); err != nil {
		t.Fatal(err)
	}
	after, _ := os.ReadFile(filepath.Join(dir, tlsCrt))
	if string(before) != string(after) {
		t.Fatalf("certificate regenerated")
	}
}

func TestSetupErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Setup(config.TLSConfig{Enabled: true}); err == nil {
		t.Fatalf("expected error without a certificate source")
	}
	if _, err := Setup(config.TLSConfig{Enabled: true, Dir: dir}); err == nil {
		t.Fatalf("expected error for empty dir without auto generation")
	}
	if _, err := Setup(config.TLSConfig{Enabled: true, CertFile: filepath.Join(dir, "c"), KeyFile: filepath.Join(dir, "k")}); err == nil {
		t.Fatalf("expected error for missing files")
	}
}

func TestSafeReadFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := safeReadFile(dir, filepath.Join(dir, "..", "outside")); err == nil {
		t.Fatalf("expected path escape to be rejected")
	}
}
