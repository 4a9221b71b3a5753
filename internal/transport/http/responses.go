package httptransport

import (
	"time"

	"github.com/google/uuid"

	"sstload/internal/loader/models"
	"sstload/pkg/fieldmap"
)

type versionBody struct {
	ID            string            `json:"id"`
	State         string            `json:"state"`
	Kind          string            `json:"kind"`
	Label         string            `json:"label"`
	EffectiveDate string            `json:"effective_date"`
	ValidTo       *string           `json:"valid_to,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	LoadedAt      time.Time         `json:"loaded_at"`
	LoadedBy      string            `json:"loaded_by,omitempty"`
}

func toVersionBody(v *models.DocumentVersion) *versionBody {
	if v == nil {
		return nil
	}
	body := &versionBody{
		ID:            v.ID.String(),
		State:         v.State.String(),
		Kind:          string(v.Kind),
		Label:         v.Label.String(),
		EffectiveDate: v.EffectiveDate.Format(dateLayout),
		Metadata:      v.Metadata,
		LoadedAt:      v.LoadedAt,
		LoadedBy:      v.LoadedBy,
	}
	if v.ValidTo != nil {
		s := v.ValidTo.Format(dateLayout)
		body.ValidTo = &s
	}
	return body
}

type itemBody struct {
	Code            string        `json:"code"`
	Subtype         string        `json:"subtype,omitempty"`
	Taxable         *bool         `json:"taxable,omitempty"`
	Exempt          *bool         `json:"exempt,omitempty"`
	Rate            *float64      `json:"rate,omitempty"`
	Threshold       *float64      `json:"threshold,omitempty"`
	Answer          string        `json:"answer,omitempty"`
	QuestionText    string        `json:"question_text,omitempty"`
	GroupName       string        `json:"group_name,omitempty"`
	SSTDefinition   string        `json:"sst_definition,omitempty"`
	StateDefinition string        `json:"state_definition,omitempty"`
	Citation        string        `json:"citation,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Extra           *fieldmap.Map `json:"extra,omitempty"`
}

func toItemBody(item models.Item) itemBody {
	body := itemBody{
		Code:            item.Code,
		Subtype:         string(item.Subtype),
		Taxable:         item.Taxable,
		Exempt:          item.Exempt,
		Rate:            item.Rate,
		Threshold:       item.Threshold,
		Answer:          item.Answer,
		QuestionText:    item.QuestionText,
		GroupName:       item.GroupName,
		SSTDefinition:   item.SSTDefinition,
		StateDefinition: item.StateDefinition,
		Citation:        item.Citation,
		Notes:           item.Notes,
	}
	if item.Extra != nil && item.Extra.Len() > 0 {
		body.Extra = item.Extra
	}
	return body
}

func toItemBodies(items []models.Item) []itemBody {
	out := make([]itemBody, 0, len(items))
	for _, item := range items {
		out = append(out, toItemBody(item))
	}
	return out
}

type rejectionBody struct {
	Line   int    `json:"line"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

type changeSummaryBody struct {
	Added     int `json:"added"`
	Modified  int `json:"modified"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

type loadOutcomeBody struct {
	Status    string             `json:"status"`
	VersionID string             `json:"version_id,omitempty"`
	Accepted  int                `json:"accepted"`
	Rejected  int                `json:"rejected"`
	Reasons   []rejectionBody    `json:"rejected_records,omitempty"`
	Changes   *changeSummaryBody `json:"changes,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func outcomeBody(o *models.Outcome) *loadOutcomeBody {
	if o == nil {
		return nil
	}
	body := &loadOutcomeBody{
		Status:   string(o.Status),
		Accepted: o.Accepted,
		Rejected: o.Rejected,
		Error:    o.Error,
	}
	if o.VersionID != uuid.Nil {
		body.VersionID = o.VersionID.String()
	}
	for _, rej := range o.RejectedRecords {
		body.Reasons = append(body.Reasons, rejectionBody{Line: rej.Line, Field: rej.Field, Reason: rej.Reason})
	}
	if o.Changes != nil {
		body.Changes = &changeSummaryBody{
			Added:     o.Changes.Added,
			Modified:  o.Changes.Modified,
			Removed:   o.Changes.Removed,
			Unchanged: o.Changes.Unchanged,
		}
	}
	return body
}

type attemptBody struct {
	ID          string     `json:"id"`
	State       string     `json:"state"`
	Kind        string     `json:"kind"`
	Label       string     `json:"label"`
	Fingerprint string     `json:"fingerprint"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Accepted    int        `json:"accepted"`
	Rejected    int        `json:"rejected"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

func toAttemptBody(a models.LoadAttempt) attemptBody {
	return attemptBody{
		ID:          a.ID.String(),
		State:       a.Key.State.String(),
		Kind:        string(a.Key.Kind),
		Label:       a.Key.Label.String(),
		Fingerprint: a.Key.Fingerprint,
		Status:      string(a.Status),
		Error:       a.Error,
		Accepted:    a.Accepted,
		Rejected:    a.Rejected,
		StartedAt:   a.StartedAt,
		FinishedAt:  a.FinishedAt,
	}
}

type changeBody struct {
	FromLabel     string   `json:"from_label"`
	ToLabel       string   `json:"to_label"`
	EffectiveDate string   `json:"effective_date"`
	Change        string   `json:"change"`
	Fields        []string `json:"fields,omitempty"`
}
