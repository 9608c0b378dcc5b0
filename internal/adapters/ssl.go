package adapters

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"sentinel/pkg/models"
)

const sslSource = "SSL Certificate Analysis"

// SSLConfig configures the certificate adapter.
type SSLConfig struct {
	Timeout time.Duration
}

// SSLAdapter fetches the subject's TLS certificate and classifies issuer,
// validity, and expiry. Verification is disabled on the dial so broken
// chains can still be inspected and reported.
type SSLAdapter struct {
	timeout time.Duration
}

// NewSSLAdapter creates the certificate adapter.
func NewSSLAdapter(cfg SSLConfig) *SSLAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SSLAdapter{timeout: cfg.Timeout}
}

// Name returns the registry key.
func (a *SSLAdapter) Name() string { return "ssl" }

// classifyCert bands a certificate into a severity. Self-signed beats
// expiry because it says more about the operator than the clock does.
func classifyCert(selfSigned bool, daysLeft int) (severity, title string) {
	switch {
	case selfSigned:
		return models.SeverityCritical, "Self-signed SSL certificate"
	case daysLeft < 0:
		return models.SeverityCritical, "SSL certificate has expired"
	case daysLeft < 30:
		return models.SeverityWarning, fmt.Sprintf("SSL certificate expires in %d days", daysLeft)
	default:
		return models.SeveritySafe, "Valid SSL certificate"
	}
}

// Run inspects the TLS certificate of the subject host.
func (a *SSLAdapter) Run(ctx context.Context, subject Subject) []models.EvidenceCard {
	if subject.URL == nil {
		return []models.EvidenceCard{SkippedCard(
			"SSL check skipped",
			"subject is not a URL",
			sslSource,
		)}
	}
	host := subject.URL.Hostname()
	port := subject.URL.Port()
	if port == "" {
		port = "443"
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	dialer := &tls.Dialer{Config: &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true,
	}}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			card := models.NewCard(models.KindSSL, models.SeverityCritical,
				"No SSL certificate found",
				fmt.Sprintf("%s does not accept HTTPS connections; data sent to this site is not encrypted", host),
				sslSource, 0.95)
			card.Metadata = map[string]interface{}{"hostname": host, "error": true}
			return []models.EvidenceCard{card}
		}
		return []models.EvidenceCard{FailedCard("SSL check failed", err, sslSource)}
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return []models.EvidenceCard{FailedCard("SSL check failed",
			fmt.Errorf("no peer certificate presented by %s", host), sslSource)}
	}

	cert := state.PeerCertificates[0]
	issuer := cert.Issuer.CommonName
	if issuer == "" && len(cert.Issuer.Organization) > 0 {
		issuer = cert.Issuer.Organization[0]
	}
	subjectCN := cert.Subject.CommonName
	selfSigned := issuer != "" && issuer == subjectCN
	daysLeft := int(time.Until(cert.NotAfter).Hours() / 24)
	severity, title := classifyCert(selfSigned, daysLeft)

	details := []string{
		"Issuer: " + issuer,
		fmt.Sprintf("Valid: %s - %s", cert.NotBefore.Format("2006-01-02"), cert.NotAfter.Format("2006-01-02")),
	}
	if daysLeft > 0 {
		details = append(details, fmt.Sprintf("Expires in %d days", daysLeft))
	}

	card := models.NewCard(models.KindSSL, severity, title, strings.Join(details, " | "), sslSource, 0.95)
	card.Metadata = map[string]interface{}{
		"hostname":   host,
		"issuer":     issuer,
		"validFrom":  cert.NotBefore.Format(time.RFC3339),
		"validTo":    cert.NotAfter.Format(time.RFC3339),
		"selfSigned": selfSigned,
	}
	return []models.EvidenceCard{card}
}
