// Package diff computes the semantic change set between a newly accepted
// batch and the item set of the version it supersedes. The result is
// informational and audit-only; it never blocks a commit.
package diff

import "sstload/internal/loader/models"

// Compute classifies every natural key across the old and new item sets.
// Only typed domain fields participate in the comparison; the open-ended
// extension map is excluded unless one of its fields has been promoted.
func Compute(oldItems, newItems []models.Item) *models.ChangeSummary {
	oldByKey := make(map[string]models.Item, len(oldItems))
	for _, it := range oldItems {
		oldByKey[it.NaturalKey()] = it
	}

	summary := &models.ChangeSummary{}
	seen := make(map[string]bool, len(newItems))

	for _, it := range newItems {
		key := it.NaturalKey()
		seen[key] = true
		prev, existed := oldByKey[key]
		if !existed {
			summary.Added++
			summary.Changes = append(summary.Changes, models.ItemChange{Key: key, Change: models.ChangeAdded})
			continue
		}
		if fields := changedFields(prev, it); len(fields) > 0 {
			summary.Modified++
			summary.Changes = append(summary.Changes, models.ItemChange{
				Key: key, Change: models.ChangeModified, Fields: fields,
			})
			continue
		}
		summary.Unchanged++
		summary.Changes = append(summary.Changes, models.ItemChange{Key: key, Change: models.ChangeUnchanged})
	}

	for _, it := range oldItems {
		key := it.NaturalKey()
		if !seen[key] {
			summary.Removed++
			summary.Changes = append(summary.Changes, models.ItemChange{Key: key, Change: models.ChangeRemoved})
		}
	}
	return summary
}

// ChangedFields lists the typed fields that differ between two revisions of
// the same natural key. Denormalized fields are skipped: they track the
// owning version, not the item's substance.
func ChangedFields(old, new models.Item) []string {
	return changedFields(old, new)
}

func changedFields(old, new models.Item) []string {
	var fields []string
	if !eqBool(old.Taxable, new.Taxable) {
		fields = append(fields, "taxable")
	}
	if !eqBool(old.Exempt, new.Exempt) {
		fields = append(fields, "exempt")
	}
	if !eqFloat(old.Rate, new.Rate) {
		fields = append(fields, "rate")
	}
	if !eqFloat(old.Threshold, new.Threshold) {
		fields = append(fields, "threshold")
	}
	if old.Answer != new.Answer {
		fields = append(fields, "answer")
	}
	if old.QuestionText != new.QuestionText {
		fields = append(fields, "question_text")
	}
	if old.GroupName != new.GroupName {
		fields = append(fields, "group_name")
	}
	if old.SSTDefinition != new.SSTDefinition {
		fields = append(fields, "description")
	}
	if old.StateDefinition != new.StateDefinition {
		fields = append(fields, "state_definition")
	}
	if old.Citation != new.Citation {
		fields = append(fields, "citation")
	}
	if old.Notes != new.Notes {
		fields = append(fields, "notes")
	}
	return fields
}

func eqBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
