package converter

import (
	"context"
	"strings"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// stateHandler matches the State column against the vocabulary of the block type
type stateHandler struct{}

func (h *stateHandler) Key() string    { return keyState }
func (h *stateHandler) Column() string { return "State" }

func (h *stateHandler) Parse(ctx context.Context, row *Row, raw string) error {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	status, ok := types.ParseStatus(row.Type, value)
	if !ok {
		// new records keep the default state, existing ones their current state
		row.Warning(model.MsgWrongValueDefault, h.Column(), strings.ToLower(value))
		return nil
	}
	row.requested = &status
	return nil
}

func (h *stateHandler) Export(ctx context.Context, row *ExportRow) string {
	return string(row.Record.Status)
}

var reviewStatuses = map[types.Status]bool{
	types.StatusInReview:     true,
	types.StatusReworkNeeded: true,
	types.StatusCompleted:    true,
	types.StatusVerified:     true,
}

// applyStatus decides the final status of the row.
//
//  1. Deprecated is always honoured.
//  2. When the verifiers of an existing record change and the row asks for a
//     state other than In Progress, or the record is under review or done,
//     the record goes back to In Progress.
//  3. A state that needs verifiers is refused when none remain.
//  4. Otherwise the requested state is applied.
func (c *Converter) applyStatus(ctx context.Context, row *Row) error {
	current := row.Record.Status
	if row.Existing != nil {
		current = row.Existing.Status
	}
	if current == "" {
		current = types.DefaultStatus(row.Type)
	}

	next := current
	requested := row.requested

	switch {
	case requested != nil && *requested == types.StatusDeprecated:
		next = types.StatusDeprecated

	default:
		verifierRole, hasVerifiers := c.schema.Role(row.Type, c.schema.VerifierRole)
		if !hasVerifiers {
			if requested != nil {
				next = *requested
			}
			break
		}

		before := []string{}
		if row.Existing != nil {
			members, err := c.session.Members(ctx, row.Existing.Ref())
			if err != nil {
				return err
			}
			before = members[verifierRole.ID]
		}
		after, given := row.roles[verifierRole.ID]
		if !given {
			after = before
		}
		changed := row.Existing != nil && given && !model.SamePeople(before, after)

		switch {
		case changed && ((requested != nil && *requested != types.StatusInProgress) || reviewStatuses[current]):
			row.Warning(model.MsgStateWillBeIgnored)
			next = types.StatusInProgress
		case requested != nil && c.schema.IsVerifierRequired(*requested) && len(after) == 0:
			row.Warning(model.MsgNoVerifier, *requested)
		case requested != nil:
			next = *requested
		}
	}

	row.Record.Status = next
	if next != current || row.IsNew() {
		c.stampStatusDates(row.Record, next)
	}
	return nil
}

// stampStatusDates fills the lifecycle dates of the state being entered.
// Dates that are already set are kept.
func (c *Converter) stampStatusDates(rec *model.Record, status types.Status) {
	today := model.DateOf(c.now())
	switch status {
	case types.StatusCompleted, types.StatusFinished:
		if rec.FinishedDate.IsZero() {
			rec.FinishedDate = today
		}
	case types.StatusVerified:
		if rec.FinishedDate.IsZero() {
			rec.FinishedDate = today
		}
		if rec.VerifiedDate.IsZero() {
			rec.VerifiedDate = today
		}
	case types.StatusDeprecated:
		if rec.LastDeprecatedDate.IsZero() {
			rec.LastDeprecatedDate = today
		}
	}
}
