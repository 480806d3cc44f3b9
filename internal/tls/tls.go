package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/taskr/internal/config"
)

const (
	tlsCaCrt = "tls_ca.crt"
	tlsCrt   = "tls.crt"
	tlsKey   = "tls.key"
)

// parseTLSVersion parses TLS version string and returns the corresponding constant
func parseTLSVersion(ver string) (uint16, bool) {
	switch strings.TrimSpace(ver) {
	case "", "default":
		return tls.VersionTLS13, false
	case "1.2", "TLS1.2", "tls1.2":
		return tls.VersionTLS12, true
	case "1.3", "TLS1.3", "tls1.3":
		return tls.VersionTLS13, true
	default:
		return 0, false
	}
}

// resolveTLSVersions resolves minimum and maximum TLS versions. Unset or
// unknown values mean 1.3.
func resolveTLSVersions(cfg config.TLSConfig) (min uint16, max uint16) {
	min = tls.VersionTLS13
	max = tls.VersionTLS13
	if v, ok := parseTLSVersion(cfg.MinVersion); ok {
		min = v
	}
	if v, ok := parseTLSVersion(cfg.MaxVersion); ok {
		max = v
	}
	if min > max {
		max = min
	}
	return
}

// safeReadFile reads file content safely within base directory
func safeReadFile(baseDir, p string) ([]byte, error) {
	clean := filepath.Clean(p)
	if baseDir != "" {
		absBase, _ := filepath.Abs(baseDir)
		absFile, _ := filepath.Abs(clean)
		if !strings.HasPrefix(absFile, absBase+string(filepath.Separator)) && absFile != absBase {
			return nil, errors.New("file path outside of allowed directory")
		}
	}
	return os.ReadFile(clean)
}

// getCertificationFunc loads the key pair on every handshake so rotated
// certificates are picked up without a restart.
func getCertificationFunc(certFile, keyFile string) func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	baseDir := filepath.Dir(certFile)
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		if readCert, err := safeReadFile(baseDir, certFile); err != nil {
			return nil, err
		} else if readKey, err := safeReadFile(filepath.Dir(keyFile), keyFile); err != nil {
			return nil, err
		} else {
			certificate, err := tls.X509KeyPair(readCert, readKey)
			return &certificate, err
		}
	}
}

// Setup returns the server TLS configuration, or nil when TLS is disabled.
func Setup(cfg config.TLSConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	minVer, maxVer := resolveTLSVersions(cfg)

	// Priority 1: explicit cert/key files
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		if !certificatesExist(cfg.CertFile, cfg.KeyFile) {
			return nil, fmt.Errorf("tls: certificate %s or key %s not found", cfg.CertFile, cfg.KeyFile)
		}
		return createTLSConfig(cfg.CertFile, cfg.KeyFile, minVer, maxVer), nil
	}

	// Priority 2: directory-based certificates
	if cfg.Dir != "" {
		keyPath := filepath.Join(cfg.Dir, tlsKey)
		certPath := filepath.Join(cfg.Dir, tlsCrt)

		if cfg.AutoGenerate && !certificatesExist(certPath, keyPath) {
			if err := generateCertificate(cfg.AutoGen, cfg.Dir); err != nil {
				return nil, fmt.Errorf("certificate generation failed: %w", err)
			}
		}
		if !certificatesExist(certPath, keyPath) {
			return nil, fmt.Errorf("tls: no %s/%s in %s", tlsCrt, tlsKey, cfg.Dir)
		}
		return createTLSConfig(certPath, keyPath, minVer, maxVer), nil
	}

	return nil, errors.New("TLS enabled but no valid certificate configuration found")
}

func getOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func getOrDefaultSlice(value, defaultValue []string) []string {
	if len(value) == 0 {
		return defaultValue
	}
	return value
}

func createTLSConfig(certPath, keyPath string, minVer, maxVer uint16) *tls.Config {
	// #nosec G402 TLS backward compatibility considered
	return &tls.Config{
		GetCertificate: getCertificationFunc(certPath, keyPath),
		MinVersion:     minVer,
		MaxVersion:     maxVer,
	}
}

func certificatesExist(certPath, keyPath string) bool {
	_, certErr := os.Stat(certPath)
	_, keyErr := os.Stat(keyPath)
	return certErr == nil && keyErr == nil
}

// generateCertificate writes a self-signed pair into destDir.
func generateCertificate(autoGen config.AutoGenTLS, destDir string) error {
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	validDays := autoGen.ValidDays
	if validDays <= 0 {
		validDays = 365
	}

	return GenerateSelfSignedCert(CertConfig{
		CommonName:   getOrDefault(autoGen.CommonName, "localhost"),
		Organization: getOrDefault(autoGen.Organization, "taskr"),
		DNSNames:     getOrDefaultSlice(autoGen.DNSNames, []string{"localhost"}),
		IPAddresses:  getOrDefaultSlice(autoGen.IPAddresses, []string{"127.0.0.1"}),
		NotAfter:     time.Now().AddDate(0, 0, validDays),
		CertPath:     filepath.Join(destDir, tlsCrt),
		KeyPath:      filepath.Join(destDir, tlsKey),
		CACertPath:   filepath.Join(destDir, tlsCaCrt),
	})
}
