package domain

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type DomainSuite struct {
	suite.Suite
}

func TestDomainSuite(t *testing.T) {
	suite.Run(t, new(DomainSuite))
}

func (s *DomainSuite) TestParseDocumentKind() {
	s.Run("accepts canonical names", func() {
		k, err := ParseDocumentKind("definitions")
		s.Require().NoError(err)
		s.Equal(KindDefinitions, k)
	})

	s.Run("accepts publisher short codes", func() {
		cases := map[string]DocumentKind{
			"LOD": KindDefinitions,
			"COC": KindComplianceCertificate,
			"TAP": KindAdministrativePractices,
		}
		for code, want := range cases {
			k, err := ParseDocumentKind(code)
			s.Require().NoError(err)
			s.Equal(want, k)
		}
	})

	s.Run("rejects unknown kinds", func() {
		_, err := ParseDocumentKind("rates")
		s.Error(err)
		_, err = ParseDocumentKind("")
		s.Error(err)
	})

	s.Run("round-trips through short codes", func() {
		for _, k := range []DocumentKind{KindDefinitions, KindComplianceCertificate, KindAdministrativePractices} {
			parsed, err := ParseDocumentKind(k.ShortCode())
			s.Require().NoError(err)
			s.Equal(k, parsed)
		}
	})
}

func (s *DomainSuite) TestParseStateCode() {
	s.Run("normalizes to upper case", func() {
		code, err := ParseStateCode(" oh ")
		s.Require().NoError(err)
		s.Equal(StateCode("OH"), code)
	})

	s.Run("rejects anything but two letters", func() {
		for _, bad := range []string{"", "O", "OHI", "O1", "Ohio"} {
			_, err := ParseStateCode(bad)
			s.Error(err, "input %q", bad)
		}
	})
}

func (s *DomainSuite) TestParseVersionLabel() {
	label, err := ParseVersionLabel("  v2024.0 ")
	s.Require().NoError(err)
	s.Equal(VersionLabel("v2024.0"), label)

	_, err = ParseVersionLabel("   ")
	s.Error(err)
}

func (s *DomainSuite) TestItemSubtype() {
	s.True(SubtypeProductDefinition.IsValid())
	s.True(SubtypeAdminDefinition.IsValid())
	s.True(SubtypeHolidayItem.IsValid())
	s.False(SubtypeNone.IsValid())
	s.False(ItemSubtype("rate_definition").IsValid())
}
