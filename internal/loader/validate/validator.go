// Package validate normalizes and accepts or rejects parsed records against
// per-document-kind field rules, and enforces the batch-level
// failure-tolerance threshold.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"sstload/internal/loader/models"
	"sstload/pkg/domain"
	"sstload/pkg/fieldmap"
)

// DefaultThreshold is the batch failure tolerance: above this share of
// rejected records, the whole batch fails.
const DefaultThreshold = 0.10

// Rejection pairs a rejected record with its structured reason.
type Rejection struct {
	Record models.RawRecord
	Err    models.RecordValidationError
}

// Result holds the two output sequences of a batch validation.
type Result struct {
	Accepted []models.Item
	Rejected []Rejection
}

// Reasons flattens the rejection reasons for reporting.
func (r Result) Reasons() []models.RecordValidationError {
	reasons := make([]models.RecordValidationError, 0, len(r.Rejected))
	for _, rej := range r.Rejected {
		reasons = append(reasons, rej.Err)
	}
	return reasons
}

// Validator applies a document kind's rule set to a parsed batch.
type Validator struct {
	threshold float64
}

// New returns a Validator with the given failure threshold; zero means
// DefaultThreshold.
func New(threshold float64) *Validator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Validator{threshold: threshold}
}

// Validate checks every record against the kind's rules. Below the
// threshold, rejected records are reported but the batch proceeds with the
// accepted subset. Above it, the error is a *models.BatchValidationError and
// nothing should be committed. A batch whose shape does not match the kind
// at all yields a *models.StructuralMismatchError.
func (v *Validator) Validate(kind domain.DocumentKind, records []models.RawRecord) (Result, error) {
	rules, ok := RulesFor(kind)
	if !ok {
		return Result{}, fmt.Errorf("no rule set for document kind %q", kind)
	}

	if err := checkShape(rules, records); err != nil {
		return Result{}, err
	}

	var res Result
	for _, rec := range records {
		item, verr := checkRecord(rules, rec)
		if verr != nil {
			res.Rejected = append(res.Rejected, Rejection{Record: rec, Err: *verr})
			continue
		}
		res.Accepted = append(res.Accepted, item)
	}

	total := len(records)
	if total > 0 && float64(len(res.Rejected))/float64(total) > v.threshold {
		return res, &models.BatchValidationError{
			Accepted:  len(res.Accepted),
			Rejected:  len(res.Rejected),
			Threshold: v.threshold,
			Reasons:   res.Reasons(),
		}
	}
	return res, nil
}

// checkShape detects upstream contract breaks: an empty batch, or a batch in
// which no record carries any of the kind's required fields, is a wrong
// document rather than a dirty one.
func checkShape(rules RuleSet, records []models.RawRecord) error {
	required := rules.Required()
	for _, rec := range records {
		for _, name := range required {
			if _, ok := rec.Get(name); ok {
				return nil
			}
		}
	}
	return &models.StructuralMismatchError{Kind: rules.Kind, Missing: required}
}

// checkRecord applies field rules and cross-field checks, returning the
// normalized item or the first failure.
func checkRecord(rules RuleSet, rec models.RawRecord) (models.Item, *models.RecordValidationError) {
	item := models.Item{Extra: fieldmap.New()}
	promoted := make(map[string]bool, len(rules.Rules))

	for _, rule := range rules.Rules {
		raw, present := rec.Get(rule.Name)
		raw = strings.TrimSpace(raw)
		if !present || raw == "" {
			if rule.Required {
				return item, &models.RecordValidationError{
					Line: rec.Line, Field: rule.Name, Reason: "missing required field",
				}
			}
			promoted[rule.Name] = true
			continue
		}
		if verr := applyField(&item, rule, raw, rec.Line); verr != nil {
			return item, verr
		}
		promoted[rule.Name] = true
	}

	if verr := checkCrossField(rules.Kind, item, rec.Line); verr != nil {
		return item, verr
	}

	// Unpromoted fields land in the extension map, preserving source order.
	rec.Fields.Walk(func(name string, val fieldmap.Value) {
		if !promoted[name] {
			item.Extra.Set(name, val)
		}
	})
	return item, nil
}

func applyField(item *models.Item, rule FieldRule, raw string, line int) *models.RecordValidationError {
	fail := func(reason string) *models.RecordValidationError {
		return &models.RecordValidationError{Line: line, Field: rule.Name, Reason: reason}
	}

	switch rule.Kind {
	case KindBool:
		b, err := parseBool(raw)
		if err != nil {
			return fail(fmt.Sprintf("expected boolean, got %q", raw))
		}
		setBoolField(item, rule.Name, b)
	case KindNumeric:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fail(fmt.Sprintf("expected number, got %q", raw))
		}
		if rule.Min != nil && n < *rule.Min {
			return fail(fmt.Sprintf("value %v below minimum %v", n, *rule.Min))
		}
		if rule.Max != nil && n > *rule.Max {
			return fail(fmt.Sprintf("value %v above maximum %v", n, *rule.Max))
		}
		setNumericField(item, rule.Name, n)
	case KindEnum:
		norm := strings.ToUpper(raw)
		ok := false
		for _, allowed := range rule.Enum {
			if norm == strings.ToUpper(allowed) {
				ok = true
				break
			}
		}
		if !ok {
			return fail(fmt.Sprintf("value %q not in %v", raw, rule.Enum))
		}
		setEnumField(item, rule.Name, raw, norm)
	default:
		setTextField(item, rule.Name, raw)
	}
	return nil
}

func checkCrossField(kind domain.DocumentKind, item models.Item, line int) *models.RecordValidationError {
	if kind == domain.KindDefinitions {
		if item.Taxable != nil && item.Exempt != nil && *item.Taxable && *item.Exempt {
			return &models.RecordValidationError{
				Line: line, Reason: "item cannot be both taxable and exempt",
			}
		}
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

func setBoolField(item *models.Item, name string, b bool) {
	switch name {
	case "taxable":
		item.Taxable = &b
	case "exempt":
		item.Exempt = &b
	}
}

func setNumericField(item *models.Item, name string, n float64) {
	switch name {
	case "rate":
		item.Rate = &n
	case "threshold":
		item.Threshold = &n
	}
}

func setEnumField(item *models.Item, name, raw, norm string) {
	switch name {
	case "item_type":
		item.Subtype = domain.ItemSubtype(strings.ToLower(raw))
	case "answer":
		if norm == "N/A" {
			norm = "NA"
		}
		item.Answer = norm
	}
}

func setTextField(item *models.Item, name, raw string) {
	switch name {
	case "code":
		item.Code = strings.ToUpper(raw)
	case "question_number":
		item.Code = raw
	case "description":
		item.SSTDefinition = raw
	case "question_text":
		item.QuestionText = raw
	case "state_definition":
		item.StateDefinition = raw
	case "group_name":
		item.GroupName = raw
	case "citation":
		item.Citation = raw
	case "notes":
		item.Notes = raw
	}
}
