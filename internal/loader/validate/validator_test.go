package validate

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"sstload/internal/loader/models"
	"sstload/pkg/domain"
	"sstload/pkg/fieldmap"
)

type ValidatorSuite struct {
	suite.Suite
	validator *Validator
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) SetupTest() {
	s.validator = New(0)
}

func record(line int, pairs ...string) models.RawRecord {
	fields := fieldmap.New()
	for i := 0; i+1 < len(pairs); i += 2 {
		fields.Set(pairs[i], fieldmap.String(pairs[i+1]))
	}
	return models.RawRecord{Line: line, Fields: fields}
}

func definitionRecord(line int, code string) models.RawRecord {
	return record(line,
		"item_type", "product_definition",
		"code", code,
		"description", "Description of "+code,
	)
}

// =============================================================================
// Shape Tests
// =============================================================================

func (s *ValidatorSuite) TestShape() {
	s.Run("empty batch is a structural mismatch", func() {
		_, err := s.validator.Validate(domain.KindDefinitions, nil)
		var serr *models.StructuralMismatchError
		s.Require().ErrorAs(err, &serr)
		s.Equal(domain.KindDefinitions, serr.Kind)
	})

	s.Run("batch with none of the required fields is a structural mismatch", func() {
		records := []models.RawRecord{
			record(1, "question_number", "1", "question_text", "Does the state..."),
			record(2, "question_number", "2", "question_text", "Is the rate..."),
		}
		_, err := s.validator.Validate(domain.KindDefinitions, records)
		var serr *models.StructuralMismatchError
		s.Require().ErrorAs(err, &serr)
		s.Contains(serr.Missing, "item_type")
	})

	s.Run("one matching record is enough to pass the shape check", func() {
		records := []models.RawRecord{
			definitionRecord(1, "10010"),
		}
		res, err := s.validator.Validate(domain.KindDefinitions, records)
		s.Require().NoError(err)
		s.Len(res.Accepted, 1)
	})

	s.Run("unknown kind is rejected", func() {
		_, err := s.validator.Validate(domain.DocumentKind("bogus"), []models.RawRecord{record(1, "a", "b")})
		s.Require().Error(err)
	})
}

// =============================================================================
// Field Rule Tests
// =============================================================================

func (s *ValidatorSuite) TestFieldRules() {
	s.Run("normalizes and promotes typed fields", func() {
		rec := record(1,
			"item_type", "product_definition",
			"code", "csd1001",
			"description", "Candy",
			"taxable", "yes",
			"rate", "0.065",
			"citation", "Ala. Code 40-23-1",
		)
		res, err := s.validator.Validate(domain.KindDefinitions, []models.RawRecord{rec})
		s.Require().NoError(err)
		s.Require().Len(res.Accepted, 1)

		item := res.Accepted[0]
		s.Equal("CSD1001", item.Code)
		s.Equal(domain.SubtypeProductDefinition, item.Subtype)
		s.Require().NotNil(item.Taxable)
		s.True(*item.Taxable)
		s.Require().NotNil(item.Rate)
		s.InDelta(0.065, *item.Rate, 1e-9)
		s.Equal("Ala. Code 40-23-1", item.Citation)
		s.Equal(0, item.Extra.Len())
	})

	s.Run("keeps unpromoted fields in the extension map in source order", func() {
		rec := definitionRecord(1, "10010")
		rec.Fields.Set("legacy_flag", fieldmap.String("x"))
		rec.Fields.Set("source_page", fieldmap.Number(12))

		res, err := s.validator.Validate(domain.KindDefinitions, []models.RawRecord{rec})
		s.Require().NoError(err)
		s.Require().Len(res.Accepted, 1)

		extra := res.Accepted[0].Extra
		s.Equal(2, extra.Len())
		var names []string
		extra.Walk(func(name string, _ fieldmap.Value) { names = append(names, name) })
		s.Equal([]string{"legacy_flag", "source_page"}, names)
	})

	s.Run("rejects missing required field", func() {
		rec := record(3, "item_type", "product_definition", "code", "10010")
		res, err := s.validator.Validate(domain.KindDefinitions, []models.RawRecord{rec, definitionRecord(4, "10020")})
		s.Require().Error(err) // 1 of 2 rejected exceeds the threshold
		s.Require().Len(res.Rejected, 1)
		s.Equal("description", res.Rejected[0].Err.Field)
		s.Equal(3, res.Rejected[0].Err.Line)
	})

	s.Run("rejects rate outside 0..1", func() {
		rec := definitionRecord(1, "10010")
		rec.Fields.Set("rate", fieldmap.String("6.5"))
		res, _ := s.validator.Validate(domain.KindDefinitions, []models.RawRecord{rec})
		s.Require().Len(res.Rejected, 1)
		s.Equal("rate", res.Rejected[0].Err.Field)
	})

	s.Run("rejects unparseable boolean", func() {
		rec := definitionRecord(1, "10010")
		rec.Fields.Set("taxable", fieldmap.String("maybe"))
		res, _ := s.validator.Validate(domain.KindDefinitions, []models.RawRecord{rec})
		s.Require().Len(res.Rejected, 1)
		s.Equal("taxable", res.Rejected[0].Err.Field)
	})

	s.Run("rejects item marked both taxable and exempt", func() {
		rec := definitionRecord(7, "10010")
		rec.Fields.Set("taxable", fieldmap.String("true"))
		rec.Fields.Set("exempt", fieldmap.String("true"))
		res, _ := s.validator.Validate(domain.KindDefinitions, []models.RawRecord{rec})
		s.Require().Len(res.Rejected, 1)
		s.Contains(res.Rejected[0].Err.Reason, "taxable and exempt")
	})
}

// =============================================================================
// Certificate and Practices Tests
// =============================================================================

func (s *ValidatorSuite) TestQuestionKinds() {
	s.Run("normalizes N/A answers to NA", func() {
		rec := record(1,
			"question_number", "310005",
			"question_text", "Does the state provide a rate database?",
			"answer", "n/a",
		)
		res, err := s.validator.Validate(domain.KindComplianceCertificate, []models.RawRecord{rec})
		s.Require().NoError(err)
		s.Require().Len(res.Accepted, 1)
		s.Equal("NA", res.Accepted[0].Answer)
		s.Equal("310005", res.Accepted[0].Code)
	})

	s.Run("rejects answers outside the enum", func() {
		rec := record(1,
			"question_number", "310005",
			"question_text", "Does the state provide a rate database?",
			"answer", "SOMETIMES",
		)
		res, _ := s.validator.Validate(domain.KindComplianceCertificate, []models.RawRecord{rec})
		s.Require().Len(res.Rejected, 1)
		s.Equal("answer", res.Rejected[0].Err.Field)
	})

	s.Run("accepts practices with group names", func() {
		rec := record(1,
			"question_number", "410001",
			"question_text", "Does the state offer amnesty?",
			"answer", "YES",
			"group_name", "Audit",
		)
		res, err := s.validator.Validate(domain.KindAdministrativePractices, []models.RawRecord{rec})
		s.Require().NoError(err)
		s.Require().Len(res.Accepted, 1)
		s.Equal("Audit", res.Accepted[0].GroupName)
	})
}

// =============================================================================
// Threshold Tests
// =============================================================================

func (s *ValidatorSuite) TestThreshold() {
	badRecord := func(line int) models.RawRecord {
		return record(line, "item_type", "product_definition", "code", "X") // missing description
	}

	s.Run("tolerates rejections at or below the threshold", func() {
		records := make([]models.RawRecord, 0, 20)
		for i := 0; i < 18; i++ {
			records = append(records, definitionRecord(i+1, "10010"))
		}
		records = append(records, badRecord(19), badRecord(20))

		res, err := s.validator.Validate(domain.KindDefinitions, records)
		s.Require().NoError(err)
		s.Len(res.Accepted, 18)
		s.Len(res.Rejected, 2)
	})

	s.Run("fails the batch above the threshold", func() {
		records := make([]models.RawRecord, 0, 20)
		for i := 0; i < 17; i++ {
			records = append(records, definitionRecord(i+1, "10010"))
		}
		records = append(records, badRecord(18), badRecord(19), badRecord(20))

		_, err := s.validator.Validate(domain.KindDefinitions, records)
		var berr *models.BatchValidationError
		s.Require().ErrorAs(err, &berr)
		s.Equal(17, berr.Accepted)
		s.Equal(3, berr.Rejected)
		s.Len(berr.Reasons, 3)
	})

	s.Run("custom threshold widens tolerance", func() {
		v := New(0.5)
		records := []models.RawRecord{
			definitionRecord(1, "10010"),
			badRecord(2),
		}
		res, err := v.Validate(domain.KindDefinitions, records)
		s.Require().NoError(err)
		s.Len(res.Accepted, 1)
		s.Len(res.Rejected, 1)
	})
}
