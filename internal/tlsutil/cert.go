package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	certFileName = "mocksim.crt"
	keyFileName  = "mocksim.key"

	defaultValidity = 365 * 24 * time.Hour
)

// ErrNoCertificate is returned when nothing can be loaded and generation is off
var ErrNoCertificate = errors.New("no TLS certificate available")

// CertSource describes where the server certificate comes from. An explicit
// CertFile/KeyFile pair wins; otherwise the pair lives in Dir and is created
// there on first use when AutoGenerate is set.
type CertSource struct {
	CertFile     string
	KeyFile      string
	Dir          string
	AutoGenerate bool
	// Hosts are added to the generated certificate next to localhost
	Hosts []string
	// Validity defaults to one year
	Validity time.Duration
}

// Paths returns the certificate and key files the source reads
func (s CertSource) Paths() (certPath, keyPath string) {
	if s.CertFile != "" && s.KeyFile != "" {
		return s.CertFile, s.KeyFile
	}
	return filepath.Join(s.Dir, certFileName), filepath.Join(s.Dir, keyFileName)
}

// Load returns the configured key pair, generating a self-signed one when allowed
func (s CertSource) Load() (tls.Certificate, error) {
	if s.CertFile != "" && s.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(s.CertFile, s.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load certificate %s: %w", s.CertFile, err)
		}
		return cert, nil
	}

	certPath, keyPath := s.Paths()
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err == nil {
		return cert, nil
	}
	if !s.AutoGenerate {
		return tls.Certificate{}, fmt.Errorf("%w in %s", ErrNoCertificate, s.Dir)
	}

	certPEM, keyPEM, err := SelfSigned(s.Hosts, s.Validity)
	if err != nil {
		return tls.Certificate{}, err
	}
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate directory: %w", err)
	}
	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to save certificate: %w", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to save private key: %w", err)
	}

	return tls.X509KeyPair(certPEM, keyPEM)
}

// ServerConfig returns a TLS 1.2+ config serving cert
func ServerConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}

// SelfSigned creates a PEM encoded ECDSA P-256 certificate and key valid for
// localhost, the loopback addresses and hosts
func SelfSigned(hosts []string, validity time.Duration) (certPEM, keyPEM []byte, err error) {
	if validity <= 0 {
		validity = defaultValidity
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := time.Now().Add(-time.Minute)
	tmpl := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"go-mocksim"},
			CommonName:   "go-mocksim self-signed",
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	addHosts(&tmpl, hosts)

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

// addHosts puts each host in the IP or DNS SAN list. Wildcard binds are skipped.
func addHosts(tmpl *x509.Certificate, hosts []string) {
	for _, h := range hosts {
		if h == "" || h == "localhost" {
			continue
		}
		if ip := net.ParseIP(h); ip != nil {
			if ip.IsUnspecified() || ip.IsLoopback() {
				continue
			}
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
			continue
		}
		tmpl.DNSNames = append(tmpl.DNSNames, h)
	}
}
