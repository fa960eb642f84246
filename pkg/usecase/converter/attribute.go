package converter

import (
	"context"
	"strings"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// attributeHandler sets a custom attribute value. Global attributes carry
// their definition; local ones are looked up on the row's record by title.
type attributeHandler struct {
	c     *Converter
	title string
	def   *model.CustomAttributeDefinition // nil for local attributes
}

func (h *attributeHandler) Key() string    { return NormalizeHeader(h.title) }
func (h *attributeHandler) Column() string { return h.title }

func (h *attributeHandler) definition(ctx context.Context, row *Row) (*model.CustomAttributeDefinition, error) {
	if h.def != nil {
		return h.def, nil
	}
	if row.Existing == nil {
		return nil, nil
	}
	defs, err := h.c.session.Definitions(ctx, row.Type)
	if err != nil {
		return nil, err
	}
	return localDefinition(defs, row.Existing.ID, h.title), nil
}

func localDefinition(defs []*model.CustomAttributeDefinition, recordID, title string) *model.CustomAttributeDefinition {
	for _, d := range defs {
		if d.IsLocal() && d.DefinitionID == recordID && strings.EqualFold(strings.TrimSpace(d.Title), strings.TrimSpace(title)) {
			return d
		}
	}
	return nil
}

func (h *attributeHandler) Parse(ctx context.Context, row *Row, raw string) error {
	value := strings.TrimSpace(raw)

	def, err := h.definition(ctx, row)
	if err != nil {
		return err
	}
	if def == nil {
		if value != "" {
			row.Warning(model.MsgUnknownAttribute, h.title)
		}
		return nil
	}

	if value == "" {
		if !def.Mandatory {
			return nil
		}
		stored := false
		if row.Existing != nil {
			values, err := h.c.session.Values(ctx, row.Existing.Ref())
			if err != nil {
				return err
			}
			v, ok := values[def.ID]
			stored = ok && v.Value != ""
		}
		if !stored {
			row.Error(model.MsgMissingValue, h.title)
		}
		return nil
	}

	normalized, err := h.c.validator.Normalize(def, value)
	if err != nil {
		row.Warning(model.MsgWrongValue, h.title)
		return nil
	}

	if def.AttributeType == types.AttributeTypePerson {
		p, err := h.c.resolvePerson(ctx, row, normalized)
		if err != nil {
			return err
		}
		normalized = p.ID
	}
	row.values[def.ID] = normalized
	return nil
}

func (h *attributeHandler) Export(ctx context.Context, row *ExportRow) string {
	def := h.def
	if def == nil {
		def = localDefinition(row.LocalDefinitions, row.Record.ID, h.title)
	}
	if def == nil {
		return ""
	}
	v, ok := row.Values[def.ID]
	if !ok {
		return ""
	}

	switch def.AttributeType {
	case types.AttributeTypeDate:
		return model.Date(v.Value).ExportString()
	case types.AttributeTypeCheckbox:
		if v.Value == "1" {
			return "yes"
		}
		return "no"
	case types.AttributeTypePerson:
		if p, ok := row.Persons[v.Value]; ok {
			return p.Email
		}
		return ""
	case types.AttributeTypeRichText:
		return flattenRichText(v.Value)
	default:
		return v.Value
	}
}
