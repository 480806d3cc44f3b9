package tls

import "github.com/loykin/taskr/internal/config"

// SelfSigned returns a TLS configuration that serves a self-signed pair from
// dir, generating it on first use. Meant for local development.
func SelfSigned(dir string, hosts ...string) config.TLSConfig {
	if len(hosts) == 0 {
		hosts = []string{"localhost"}
	}
	return config.TLSConfig{
		Enabled:      true,
		Dir:          dir,
		AutoGenerate: true,
		MinVersion:   "1.2",
		MaxVersion:   "1.3",
		AutoGen: config.AutoGenTLS{
			CommonName: hosts[0],
			DNSNames:   hosts,
			ValidDays:  365,
		},
	}
}
