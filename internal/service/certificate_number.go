package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCertificatePrefix heads every generated certificate number.
const DefaultCertificatePrefix = "EVXLAB"

// CertificateNumberGenerator builds numbers of the form
// PREFIX/YY-YY/D####XXXXXXXX. Uniqueness is probabilistic and is enforced
// by the store's unique index.
type CertificateNumberGenerator struct {
	prefix string
	loc    *time.Location
	now    func() time.Time
	random func() string
}

// NewCertificateNumberGenerator constructs a generator. The fiscal year is
// taken from the clock in loc.
func NewCertificateNumberGenerator(prefix string, loc *time.Location) *CertificateNumberGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultCertificatePrefix
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CertificateNumberGenerator{prefix: prefix, loc: loc, now: time.Now, random: uuid.NewString}
}

// Generate returns a fresh certificate number.
func (g *CertificateNumberGenerator) Generate() string {
	now := g.now()
	tail := now.UnixMilli() % 10000
	hex := strings.ToUpper(strings.ReplaceAll(g.random(), "-", ""))
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return fmt.Sprintf("%s/%s/D%04d%s", g.prefix, FiscalYear(now.In(g.loc)), tail, hex)
}

// FiscalYear returns the April-to-March year containing t, e.g. "23-24".
func FiscalYear(t time.Time) string {
	start := t.Year()
	if t.Month() < time.April {
		start--
	}
	return fmt.Sprintf("%02d-%02d", start%100, (start+1)%100)
}
