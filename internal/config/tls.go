package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// BackupAPITLS builds a *tls.Config for the backup API client.
// Returns nil, nil when nothing is configured so the system defaults apply.
func (c *Config) BackupAPITLS() (*tls.Config, error) {
	if c.BackupAPITLSCert == "" && c.BackupAPITLSKey == "" && c.BackupAPICACert == "" && c.BackupAPITLSServerName == "" {
		return nil, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.BackupAPITLSCert != "" || c.BackupAPITLSKey != "" {
		cert, err := tls.LoadX509KeyPair(c.BackupAPITLSCert, c.BackupAPITLSKey)
		if err != nil {
			return nil, fmt.Errorf("load backup API client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if c.BackupAPICACert != "" {
		caPEM, err := os.ReadFile(c.BackupAPICACert)
		if err != nil {
			return nil, fmt.Errorf("read backup API CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse backup API CA cert")
		}
		tlsConfig.RootCAs = pool
	}

	if c.BackupAPITLSServerName != "" {
		tlsConfig.ServerName = c.BackupAPITLSServerName
	}

	return tlsConfig, nil
}
