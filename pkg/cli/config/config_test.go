package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcbook/pkg/cli/config"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

const validSchema = `
verifier_role = "Reviewers"
verifier_required = ["completed", "Verified"]

[digest]
due_in_days = 2
cycle_start_lead = 5
time_zone = "Asia/Tokyo"

[[role]]
object_type = "Control"
name = "Control Reviewers"

[[role]]
object_type = "Assessment"
name = "Reviewers"
mandatory = true
map = false

[[attribute]]
object_type = "Control"
title = "Risk Level"
type = "dropdown"
mandatory = true
options = ["Low", "Medium", "High"]

[[attribute]]
object_type = "Program"
title = "Budget Owner"
type = "Map:Person"
record = "PROGRAM-A"
`

func TestLoadSchemaFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "valid schema",
			content: validSchema,
		},
		{
			name:    "empty file",
			content: "",
		},
		{
			name: "unknown object type",
			content: `
[[role]]
object_type = "Spreadsheet"
name = "Owners"
`,
			wantErr: config.ErrInvalidObjectType,
		},
		{
			name: "role without name",
			content: `
[[role]]
object_type = "Control"
`,
			wantErr: config.ErrMissingName,
		},
		{
			name: "duplicate role differing in case",
			content: `
[[role]]
object_type = "Control"
name = "Reviewers"

[[role]]
object_type = "control"
name = "reviewers"
`,
			wantErr: config.ErrDuplicateRole,
		},
		{
			name: "unknown attribute type",
			content: `
[[attribute]]
object_type = "Control"
title = "Score"
type = "number"
`,
			wantErr: config.ErrInvalidAttributeType,
		},
		{
			name: "dropdown without options",
			content: `
[[attribute]]
object_type = "Control"
title = "Risk Level"
type = "Dropdown"
`,
			wantErr: config.ErrMissingOptions,
		},
		{
			name: "duplicate attribute",
			content: `
[[attribute]]
object_type = "Control"
title = "Notes"
type = "Text"

[[attribute]]
object_type = "Control"
title = "notes"
type = "Rich Text"
`,
			wantErr: config.ErrDuplicateAttribute,
		},
		{
			name: "same title on different records is allowed",
			content: `
[[attribute]]
object_type = "Program"
title = "Notes"
type = "Text"
record = "PROGRAM-A"

[[attribute]]
object_type = "Program"
title = "Notes"
type = "Text"
record = "PROGRAM-B"
`,
		},
		{
			name:    "status outside assessment vocabulary",
			content: `verifier_required = ["Finished"]`,
			wantErr: config.ErrInvalidStatus,
		},
		{
			name: "unknown time zone",
			content: `
[digest]
time_zone = "Mars/Olympus"
`,
			wantErr: config.ErrInvalidTimeZone,
		},
		{
			name: "negative day count",
			content: `
[digest]
due_in_days = -1
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name:    "broken TOML",
			content: `[[role]`,
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := config.LoadSchemaFile(writeSchema(t, tt.content))
			if tt.wantErr != nil {
				gt.Error(t, err).Is(tt.wantErr)
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, file).NotNil()
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadSchemaFile(filepath.Join(t.TempDir(), "absent.toml"))
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})
}

func TestLoadSchema(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		schema, err := config.LoadSchema("")
		gt.NoError(t, err).Required()
		gt.Value(t, schema.VerifierRole).Equal("Verifiers")
		gt.Number(t, schema.Digest.DueInDays).Equal(1)
	})

	t.Run("file is merged over defaults", func(t *testing.T) {
		schema, err := config.LoadSchema(writeSchema(t, validSchema))
		gt.NoError(t, err).Required()

		gt.Value(t, schema.VerifierRole).Equal("Reviewers")
		gt.Array(t, schema.VerifierRequired).Length(2).Required()
		gt.Value(t, schema.VerifierRequired[0]).Equal(types.StatusCompleted)
		gt.Number(t, schema.Digest.DueInDays).Equal(2)
		gt.Number(t, schema.Digest.CycleStartLead).Equal(5)
		gt.Value(t, schema.Digest.TimeZone().String()).Equal("Asia/Tokyo")

		// built-in roles survive
		_, ok := schema.Role(types.ObjectTypeProgram, "Program Managers")
		gt.Bool(t, ok).True()

		reviewers, ok := schema.Role(types.ObjectTypeAssessment, "Reviewers")
		gt.Bool(t, ok).True()
		gt.Bool(t, reviewers.Mandatory).True()
		gt.Bool(t, reviewers.Delete).True()
		gt.Bool(t, reviewers.Map).False()
		gt.Bool(t, reviewers.Read).True()

		controlReviewers, ok := schema.Role(types.ObjectTypeControl, "Control Reviewers")
		gt.Bool(t, ok).True()
		gt.Bool(t, controlReviewers.Delete).False()

		attrs := schema.GlobalAttributes(types.ObjectTypeControl)
		gt.Array(t, attrs).Length(1).Required()
		gt.Value(t, attrs[0].ID).Equal(model.CADID(types.ObjectTypeControl, "", "Risk Level"))
		gt.Value(t, attrs[0].AttributeType).Equal(types.AttributeTypeDropdown)
		gt.Array(t, attrs[0].MultiChoiceOptions).Length(3)

		gt.Array(t, schema.LocalAttributes).Length(1).Required()
		gt.Value(t, schema.LocalAttributes[0].RecordSlug).Equal("PROGRAM-A")
		gt.Value(t, schema.LocalAttributes[0].Definition.AttributeType).Equal(types.AttributeTypePerson)
	})

	t.Run("Schema flag config", func(t *testing.T) {
		schema, err := config.NewSchemaForTest(writeSchema(t, validSchema)).Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, schema.VerifierRole).Equal("Reviewers")

		_, err = config.NewSchemaForTest(filepath.Join(t.TempDir(), "absent.toml")).Configure()
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})
}
