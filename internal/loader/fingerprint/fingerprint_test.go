package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"sstload/internal/loader/models"
	"sstload/pkg/fieldmap"
)

type FingerprintSuite struct {
	suite.Suite
}

func TestFingerprintSuite(t *testing.T) {
	suite.Run(t, new(FingerprintSuite))
}

func rec(pairs ...string) models.RawRecord {
	fields := fieldmap.New()
	for i := 0; i+1 < len(pairs); i += 2 {
		fields.Set(pairs[i], fieldmap.String(pairs[i+1]))
	}
	return models.RawRecord{Fields: fields}
}

func (s *FingerprintSuite) TestOf() {
	s.Run("same content yields the same fingerprint", func() {
		a := Of([]models.RawRecord{rec("code", "A1", "rate", "0.05")})
		b := Of([]models.RawRecord{rec("code", "A1", "rate", "0.05")})
		s.Equal(a, b)
		s.Len(a, 64)
	})

	s.Run("line numbers do not affect the fingerprint", func() {
		a := []models.RawRecord{rec("code", "A1")}
		b := []models.RawRecord{rec("code", "A1")}
		a[0].Line = 1
		b[0].Line = 99
		s.Equal(Of(a), Of(b))
	})

	s.Run("different values differ", func() {
		a := Of([]models.RawRecord{rec("code", "A1")})
		b := Of([]models.RawRecord{rec("code", "A2")})
		s.NotEqual(a, b)
	})

	s.Run("record order is significant", func() {
		a := Of([]models.RawRecord{rec("code", "A1"), rec("code", "A2")})
		b := Of([]models.RawRecord{rec("code", "A2"), rec("code", "A1")})
		s.NotEqual(a, b)
	})

	s.Run("record boundaries are unambiguous", func() {
		a := Of([]models.RawRecord{rec("a", "1"), rec("b", "2")})
		b := Of([]models.RawRecord{rec("a", "1", "b", "2")})
		s.NotEqual(a, b)
	})

	s.Run("empty batch is stable", func() {
		s.Equal(Of(nil), Of([]models.RawRecord{}))
	})
}
