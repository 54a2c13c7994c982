package gemini

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"os"

	"github.com/rs/zerolog"
)

// caBundlePaths are probed, in order, when the platform trust store is
// unavailable. Inherited from the constrained hosts this tool runs on.
var caBundlePaths = []string{
	"/etc/ssl/certs/ca-certificates.crt",
	"/etc/ssl/certs/ca-bundle.crt",
	"/usr/local/etc/openssl@3/cert.pem",
	"/usr/local/etc/openssl@1.1/cacert.pem",
}

// ResolveTransport picks the TLS trust context for outbound calls: the
// platform trust store first, then the well-known CA bundle locations. When
// neither resolves, certificate verification is disabled only if the caller
// opted in with allowInsecure; otherwise the default transport is kept and
// verification is left to fail on its own.
func ResolveTransport(allowInsecure bool, log zerolog.Logger) *http.Transport {
	if pool, err := x509.SystemCertPool(); err == nil && pool != nil {
		return &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}
	}

	for _, path := range caBundlePaths {
		pem, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			continue
		}
		log.Info().Str("path", path).Msg("using CA bundle")
		return &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}
	}

	if allowInsecure {
		log.Warn().Msg("no trust store found, TLS certificate verification disabled")
		return &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}

	log.Warn().Msg("no trust store found, keeping default transport")
	return &http.Transport{}
}
