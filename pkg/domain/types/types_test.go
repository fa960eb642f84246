package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

func TestParseObjectType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    types.ObjectType
		wantErr bool
	}{
		{"exact", "Assessment", types.ObjectTypeAssessment, false},
		{"lower case", "issue", types.ObjectTypeIssue, false},
		{"display name with space", "Cycle Task", types.ObjectTypeCycleTask, false},
		{"surrounding spaces", "  program ", types.ObjectTypeProgram, false},
		{"non record type", "person", types.ObjectTypePerson, false},
		{"unknown", "Project", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := types.ParseObjectType(tt.input)
			if tt.wantErr {
				gt.Error(t, err).Is(types.ErrUnknownObjectType)
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, got).Equal(tt.want)
		})
	}
}

func TestObjectType_IsRecord(t *testing.T) {
	for _, ot := range types.AllRecordTypes() {
		gt.Bool(t, ot.IsRecord()).True()
		gt.Bool(t, ot.IsValid()).True()
	}
	gt.Bool(t, types.ObjectTypeSnapshot.IsRecord()).False()
	gt.Bool(t, types.ObjectTypeSnapshot.IsValid()).True()
	gt.Bool(t, types.ObjectType("Project").IsValid()).False()
}

func TestObjectType_SlugPrefix(t *testing.T) {
	gt.Value(t, types.ObjectTypeAssessment.SlugPrefix()).Equal("ASSESSMENT")
	gt.Value(t, types.ObjectTypeCycleTask.SlugPrefix()).Equal("CYCLETASK")
	gt.Value(t, types.ObjectTypeCycleTask.DisplayName()).Equal("Cycle Task")
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name   string
		ot     types.ObjectType
		input  string
		want   types.Status
		wantOK bool
	}{
		{"canonical", types.ObjectTypeAssessment, "In Review", types.StatusInReview, true},
		{"mixed case", types.ObjectTypeAssessment, "in PROGRESS", types.StatusInProgress, true},
		{"extra spaces", types.ObjectTypeIssue, " fixed  and verified ", types.StatusFixedAndVerified, true},
		{"not in vocabulary of type", types.ObjectTypeIssue, "Not Started", "", false},
		{"unknown", types.ObjectTypeAssessment, "Open", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := types.ParseStatus(tt.ot, tt.input)
			gt.Value(t, ok).Equal(tt.wantOK)
			gt.Value(t, got).Equal(tt.want)
		})
	}
}

func TestDefaultStatus(t *testing.T) {
	gt.Value(t, types.DefaultStatus(types.ObjectTypeAssessment)).Equal(types.StatusNotStarted)
	gt.Value(t, types.DefaultStatus(types.ObjectTypeIssue)).Equal(types.StatusDraft)
	gt.Value(t, types.DefaultStatus(types.ObjectTypeAudit)).Equal(types.StatusPlanned)
	gt.Value(t, types.DefaultStatus(types.ObjectTypeCycleTask)).Equal(types.StatusAssigned)
	gt.Value(t, types.DefaultStatus(types.ObjectTypePerson)).Equal(types.Status(""))
}

func TestStatus_IsTaskDone(t *testing.T) {
	gt.Bool(t, types.StatusFinished.IsTaskDone()).True()
	gt.Bool(t, types.StatusVerified.IsTaskDone()).True()
	gt.Bool(t, types.StatusDeprecated.IsTaskDone()).True()
	gt.Bool(t, types.StatusInProgress.IsTaskDone()).False()
	gt.Bool(t, types.StatusAssigned.IsTaskDone()).False()
}

func TestAttributeType(t *testing.T) {
	for _, at := range types.AllAttributeTypes() {
		gt.Bool(t, at.IsValid()).True()
		parsed, ok := types.ParseAttributeType(at.String())
		gt.Bool(t, ok).True()
		gt.Value(t, parsed).Equal(at)
	}

	parsed, ok := types.ParseAttributeType("multiselect")
	gt.Bool(t, ok).True()
	gt.Value(t, parsed).Equal(types.AttributeTypeMultiselect)

	_, ok = types.ParseAttributeType("number")
	gt.Bool(t, ok).False()

	gt.Bool(t, types.AttributeTypeDropdown.HasOptions()).True()
	gt.Bool(t, types.AttributeTypeText.HasOptions()).False()
}

func TestNotificationKind(t *testing.T) {
	for _, k := range types.AllNotificationKinds() {
		gt.Bool(t, k.IsValid()).True()
	}
	gt.Bool(t, types.NotificationTaskOverdue.IsRepeating()).True()
	gt.Bool(t, types.NotificationDueIn.IsRepeating()).False()
	gt.Bool(t, types.NotificationKind("weekly").IsValid()).False()
}
