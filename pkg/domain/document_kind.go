package domain

import "fmt"

// DocumentKind identifies one of the three tax-compliance document families
// published per state.
//
// Usage: construct via ParseDocumentKind at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type DocumentKind string

const (
	KindDefinitions             DocumentKind = "definitions"
	KindComplianceCertificate   DocumentKind = "compliance_certificate"
	KindAdministrativePractices DocumentKind = "administrative_practices"
)

// validDocumentKinds is the single source of truth for supported kinds.
var validDocumentKinds = map[DocumentKind]bool{
	KindDefinitions:             true,
	KindComplianceCertificate:   true,
	KindAdministrativePractices: true,
}

// shortCodes preserves the publisher's abbreviations (LOD/COC/TAP), which
// appear in source filenames and operator tooling.
var shortCodes = map[string]DocumentKind{
	"LOD": KindDefinitions,
	"COC": KindComplianceCertificate,
	"TAP": KindAdministrativePractices,
}

// ParseDocumentKind constructs a DocumentKind from external input. Both the
// canonical names and the publisher's short codes are accepted.
func ParseDocumentKind(s string) (DocumentKind, error) {
	if s == "" {
		return "", fmt.Errorf("document kind cannot be empty")
	}
	if k, ok := shortCodes[s]; ok {
		return k, nil
	}
	k := DocumentKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unsupported document kind %q", s)
	}
	return k, nil
}

// IsValid reports whether the kind is one of the supported enum values.
func (k DocumentKind) IsValid() bool {
	return validDocumentKinds[k]
}

// ShortCode returns the publisher's abbreviation for the kind.
func (k DocumentKind) ShortCode() string {
	switch k {
	case KindDefinitions:
		return "LOD"
	case KindComplianceCertificate:
		return "COC"
	case KindAdministrativePractices:
		return "TAP"
	}
	return string(k)
}

func (k DocumentKind) String() string {
	return string(k)
}
