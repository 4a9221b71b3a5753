package validate

import "sstload/pkg/domain"

// ValueKind is the expected domain of a field's value.
type ValueKind int

const (
	KindText ValueKind = iota
	KindBool
	KindNumeric
	KindEnum
)

// FieldRule is one field's acceptance rule within a document kind.
type FieldRule struct {
	Name     string
	Required bool
	Kind     ValueKind
	// Enum lists accepted values (compared after upper-case normalization)
	// for KindEnum fields.
	Enum []string
	// Min/Max bound KindNumeric fields when non-nil.
	Min *float64
	Max *float64
}

// RuleSet is the full acceptance contract for one document kind.
type RuleSet struct {
	Kind  domain.DocumentKind
	Rules []FieldRule
}

// Required returns the names of the kind's required fields.
func (rs RuleSet) Required() []string {
	var names []string
	for _, r := range rs.Rules {
		if r.Required {
			names = append(names, r.Name)
		}
	}
	return names
}

var (
	zero = 0.0
	one  = 1.0

	answerEnum  = []string{"YES", "NO", "NA", "N/A"}
	subtypeEnum = []string{
		string(domain.SubtypeAdminDefinition),
		string(domain.SubtypeProductDefinition),
		string(domain.SubtypeHolidayItem),
	}
)

// ruleSets maps each document kind to its field rules. Field names follow
// the upstream parser contract.
var ruleSets = map[domain.DocumentKind]RuleSet{
	domain.KindDefinitions: {
		Kind: domain.KindDefinitions,
		Rules: []FieldRule{
			{Name: "item_type", Required: true, Kind: KindEnum, Enum: subtypeEnum},
			{Name: "code", Required: true, Kind: KindText},
			{Name: "description", Required: true, Kind: KindText},
			{Name: "state_definition", Kind: KindText},
			{Name: "taxable", Kind: KindBool},
			{Name: "exempt", Kind: KindBool},
			{Name: "rate", Kind: KindNumeric, Min: &zero, Max: &one},
			{Name: "threshold", Kind: KindNumeric, Min: &zero},
			{Name: "citation", Kind: KindText},
			{Name: "notes", Kind: KindText},
		},
	},
	domain.KindComplianceCertificate: {
		Kind: domain.KindComplianceCertificate,
		Rules: []FieldRule{
			{Name: "question_number", Required: true, Kind: KindText},
			{Name: "question_text", Required: true, Kind: KindText},
			{Name: "answer", Kind: KindEnum, Enum: answerEnum},
			{Name: "citation", Kind: KindText},
		},
	},
	domain.KindAdministrativePractices: {
		Kind: domain.KindAdministrativePractices,
		Rules: []FieldRule{
			{Name: "question_number", Required: true, Kind: KindText},
			{Name: "question_text", Required: true, Kind: KindText},
			{Name: "answer", Kind: KindEnum, Enum: answerEnum},
			{Name: "group_name", Kind: KindText},
			{Name: "citation", Kind: KindText},
			{Name: "notes", Kind: KindText},
		},
	},
}

// RulesFor returns the rule set for a document kind.
func RulesFor(kind domain.DocumentKind) (RuleSet, bool) {
	rs, ok := ruleSets[kind]
	return rs, ok
}
