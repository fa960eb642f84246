package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

func TestAttributeValidator_Normalize(t *testing.T) {
	v := model.NewAttributeValidator()

	tests := []struct {
		name    string
		def     model.CustomAttributeDefinition
		raw     string
		want    string
		wantErr error
	}{
		{
			name: "text is kept as is",
			def:  model.CustomAttributeDefinition{AttributeType: types.AttributeTypeText},
			raw:  " some text ",
			want: "some text",
		},
		{
			name: "rich text is kept as is",
			def:  model.CustomAttributeDefinition{AttributeType: types.AttributeTypeRichText},
			raw:  "<p>line</p>",
			want: "<p>line</p>",
		},
		{
			name: "date is stored in iso form",
			def:  model.CustomAttributeDefinition{AttributeType: types.AttributeTypeDate},
			raw:  "7/15/2015",
			want: "2015-07-15",
		},
		{
			name:    "invalid date",
			def:     model.CustomAttributeDefinition{AttributeType: types.AttributeTypeDate},
			raw:     "someday",
			wantErr: model.ErrInvalidAttributeValue,
		},
		{
			name: "dropdown matches case-insensitively",
			def: model.CustomAttributeDefinition{
				AttributeType:      types.AttributeTypeDropdown,
				MultiChoiceOptions: []string{"Low", "High"},
			},
			raw:  "high",
			want: "High",
		},
		{
			name: "dropdown rejects unknown option",
			def: model.CustomAttributeDefinition{
				AttributeType:      types.AttributeTypeDropdown,
				MultiChoiceOptions: []string{"Low", "High"},
			},
			raw:     "medium",
			wantErr: model.ErrInvalidOption,
		},
		{
			name: "checkbox yes",
			def:  model.CustomAttributeDefinition{AttributeType: types.AttributeTypeCheckbox},
			raw:  "Yes",
			want: "1",
		},
		{
			name: "checkbox false",
			def:  model.CustomAttributeDefinition{AttributeType: types.AttributeTypeCheckbox},
			raw:  "FALSE",
			want: "0",
		},
		{
			name:    "checkbox garbage",
			def:     model.CustomAttributeDefinition{AttributeType: types.AttributeTypeCheckbox},
			raw:     "maybe",
			wantErr: model.ErrInvalidAttributeValue,
		},
		{
			name: "multiselect normalizes case",
			def: model.CustomAttributeDefinition{
				AttributeType:      types.AttributeTypeMultiselect,
				MultiChoiceOptions: []string{"Option 1", "Option 2"},
			},
			raw:  "option 1",
			want: "Option 1",
		},
		{
			name: "multiselect keeps definition order and drops duplicates",
			def: model.CustomAttributeDefinition{
				AttributeType:      types.AttributeTypeMultiselect,
				MultiChoiceOptions: []string{"Option 1", "Option 2", "Option 3"},
			},
			raw:  "option 3, OPTION 1,option 3",
			want: "Option 1,Option 3",
		},
		{
			name: "multiselect rejects unknown item",
			def: model.CustomAttributeDefinition{
				AttributeType:      types.AttributeTypeMultiselect,
				MultiChoiceOptions: []string{"Option 1", "Option 2"},
			},
			raw:     "option 1,option 9",
			wantErr: model.ErrInvalidOption,
		},
		{
			name: "person e-mail is normalized",
			def:  model.CustomAttributeDefinition{AttributeType: types.AttributeTypePerson},
			raw:  "User@Example.com",
			want: "user@example.com",
		},
		{
			name:    "person rejects non e-mail",
			def:     model.CustomAttributeDefinition{AttributeType: types.AttributeTypePerson},
			raw:     "john",
			wantErr: model.ErrInvalidAttributeValue,
		},
		{
			name:    "empty value",
			def:     model.CustomAttributeDefinition{AttributeType: types.AttributeTypeText},
			raw:     "  ",
			wantErr: model.ErrMissingRequired,
		},
		{
			name:    "unknown attribute type",
			def:     model.CustomAttributeDefinition{AttributeType: "Number"},
			raw:     "1",
			wantErr: model.ErrInvalidAttributeType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Normalize(&tt.def, tt.raw)
			if tt.wantErr != nil {
				gt.Error(t, err).Is(tt.wantErr)
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, got).Equal(tt.want)
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1", " on "} {
		b, ok := model.ParseBool(s)
		gt.Bool(t, ok).True()
		gt.Bool(t, b).True()
	}
	for _, s := range []string{"no", "False", "0"} {
		b, ok := model.ParseBool(s)
		gt.Bool(t, ok).True()
		gt.Bool(t, b).False()
	}
	_, ok := model.ParseBool("perhaps")
	gt.Bool(t, ok).False()
}
