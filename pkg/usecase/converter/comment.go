package converter

import (
	"context"
	"sort"
	"strings"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

const commentSeparator = ";;"

// commentHandler collects new comments. Comments never change the record
// itself; they are created when the row is staged.
type commentHandler struct{}

func (h *commentHandler) Key() string    { return keyComments }
func (h *commentHandler) Column() string { return "Comments" }

func (h *commentHandler) Parse(ctx context.Context, row *Row, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	items := splitMulti(raw, commentSeparator)
	if len(items) == 0 {
		row.Warning(model.MsgWrongValue, h.Column())
		return nil
	}
	row.comments = append(row.comments, items...)
	return nil
}

func (h *commentHandler) Export(ctx context.Context, row *ExportRow) string {
	comments := append([]*model.Comment(nil), row.Comments...)
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	descriptions := make([]string, 0, len(comments))
	for _, c := range comments {
		descriptions = append(descriptions, flattenRichText(c.Description))
	}
	return strings.Join(descriptions, commentSeparator)
}

// assigneeType returns the non-internal role names the actor holds on the
// record after the row is applied, sorted and comma joined
func (c *Converter) assigneeType(row *Row, members model.RoleMembers, actor *model.Person) string {
	if actor == nil {
		return ""
	}
	var names []string
	for _, role := range c.schema.RolesFor(row.Type) {
		if role.Internal {
			continue
		}
		if members.Has(role.ID, actor.ID) {
			names = append(names, role.Name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
