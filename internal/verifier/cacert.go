package verifier

import (
	"crypto/x509"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CACertEnv names the environment variable pointing at the PEM file of
// the CA that signed the verifier's server certificate.
const CACertEnv = "CHAINPAY_VERIFIER_CA_CERT"

// resolveCACertPath picks the CA certificate path: explicit config,
// then CHAINPAY_VERIFIER_CA_CERT, then the local mkcert root used in
// development setups.
func resolveCACertPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if path := os.Getenv(CACertEnv); path != "" {
		return path, nil
	}
	out, err := exec.Command("mkcert", "-CAROOT").Output()
	if err != nil {
		return "", fmt.Errorf("locate verifier CA: set %s or install mkcert: %w", CACertEnv, err)
	}
	return filepath.Join(strings.TrimSpace(string(out)), "rootCA.pem"), nil
}

func loadCertPool(configured string) (*x509.CertPool, error) {
	path, err := resolveCACertPath(configured)
	if err != nil {
		return nil, err
	}
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read verifier CA %s: %w", path, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}
