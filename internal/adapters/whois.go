package adapters

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"sentinel/pkg/models"
)

const whoisSource = "WHOIS Lookup"

// WhoisConfig configures the WHOIS adapter.
type WhoisConfig struct {
	Server  string // host:port, default whois.verisign-grs.com:43
	Timeout time.Duration
}

// WhoisAdapter looks up domain registration data over the WHOIS port and
// classifies domain age. Young domains are a strong fraud indicator.
type WhoisAdapter struct {
	server  string
	timeout time.Duration
	dial    func(ctx context.Context, addr string) (net.Conn, error)
}

// NewWhoisAdapter creates the WHOIS adapter.
func NewWhoisAdapter(cfg WhoisConfig) *WhoisAdapter {
	if cfg.Server == "" {
		cfg.Server = "whois.verisign-grs.com:43"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	d := &net.Dialer{}
	return &WhoisAdapter{
		server:  cfg.Server,
		timeout: cfg.Timeout,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		},
	}
}

// Name returns the registry key.
func (a *WhoisAdapter) Name() string { return "whois" }

// Run queries WHOIS for the subject's domain and emits one card.
func (a *WhoisAdapter) Run(ctx context.Context, subject Subject) []models.EvidenceCard {
	if subject.Domain == "" {
		return []models.EvidenceCard{SkippedCard(
			"WHOIS lookup skipped",
			"subject is not a URL",
			whoisSource,
		)}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.query(ctx, a.server, subject.Domain)
	if err != nil {
		return []models.EvidenceCard{FailedCard(
			fmt.Sprintf("WHOIS lookup failed for %s", subject.Domain),
			err, whoisSource,
		)}
	}

	rec := parseWhois(raw)
	if rec.referral != "" && !strings.EqualFold(rec.referral, a.server) {
		// One referral hop from the registry to the registrar server.
		if deeper, err := a.query(ctx, rec.referral, subject.Domain); err == nil {
			if deepRec := parseWhois(deeper); deepRec.creation != "" {
				rec = deepRec
			}
		}
	}

	card := a.classify(subject.Domain, rec)
	card.Metadata = map[string]interface{}{
		"domain":    subject.Domain,
		"registrar": rec.registrar,
		"country":   rec.country,
		"raw":       CapRaw(raw),
	}
	return []models.EvidenceCard{card}
}

func (a *WhoisAdapter) query(ctx context.Context, server, domain string) (string, error) {
	if !strings.Contains(server, ":") {
		server += ":43"
	}
	conn, err := a.dial(ctx, server)
	if err != nil {
		return "", fmt.Errorf("dial whois server: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if _, err := fmt.Fprintf(conn, "%s\r\n", domain); err != nil {
		return "", fmt.Errorf("send whois query: %w", err)
	}
	raw, err := io.ReadAll(io.LimitReader(conn, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read whois response: %w", err)
	}
	return string(raw), nil
}

type whoisRecord struct {
	registrar string
	creation  string
	expiry    string
	country   string
	org       string
	referral  string
}

func parseWhois(raw string) whoisRecord {
	var rec whoisRecord
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch {
		case strings.Contains(key, "registrar whois server") && rec.referral == "":
			rec.referral = value
		case key == "registrar" || (strings.Contains(key, "registrar") && !strings.Contains(key, "abuse") && rec.registrar == ""):
			if rec.registrar == "" {
				rec.registrar = value
			}
		case strings.Contains(key, "creation date") || strings.Contains(key, "created"):
			if rec.creation == "" {
				rec.creation = value
			}
		case strings.Contains(key, "expir") && strings.Contains(key, "date"):
			if rec.expiry == "" {
				rec.expiry = value
			}
		case strings.Contains(key, "registrant country"):
			if rec.country == "" {
				rec.country = value
			}
		case strings.Contains(key, "registrant organization"):
			if rec.org == "" {
				rec.org = value
			}
		}
	}
	return rec
}

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func parseWhoisDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (a *WhoisAdapter) classify(domain string, rec whoisRecord) models.EvidenceCard {
	severity := models.SeveritySafe
	title := fmt.Sprintf("Domain: %s", domain)
	confidence := 0.6
	var details []string

	if created, ok := parseWhoisDate(rec.creation); ok {
		ageDays := int(time.Since(created).Hours() / 24)
		switch {
		case ageDays < 30:
			severity = models.SeverityCritical
			title = fmt.Sprintf("Domain registered %d days ago", ageDays)
		case ageDays < 365:
			severity = models.SeverityWarning
			title = fmt.Sprintf("Domain is %d days old", ageDays)
		default:
			title = fmt.Sprintf("Domain is %d years old", ageDays/365)
		}
		confidence = 0.9
		details = append(details, fmt.Sprintf("Registered: %s", created.Format("2006-01-02")))
	} else {
		severity = models.SeverityInfo
		title = fmt.Sprintf("No registration date found for %s", domain)
		details = append(details, "WHOIS record has no parseable creation date")
	}

	if rec.registrar != "" {
		details = append(details, "Registrar: "+rec.registrar)
	}
	if rec.country != "" {
		details = append(details, "Country: "+rec.country)
	}
	if rec.org != "" {
		details = append(details, "Organization: "+rec.org)
	}
	if expiry, ok := parseWhoisDate(rec.expiry); ok {
		details = append(details, "Expires: "+expiry.Format("2006-01-02"))
	}

	return models.NewCard(models.KindDomain, severity, title, strings.Join(details, " | "), whoisSource, confidence)
}
