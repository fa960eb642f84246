package converter

import (
	"context"
	"sort"
	"strings"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
)

// roleHandler replaces the people holding one role on the row's record
type roleHandler struct {
	c    *Converter
	role model.AccessControlRole
}

func (h *roleHandler) Key() string    { return NormalizeHeader(h.role.Name) }
func (h *roleHandler) Column() string { return h.role.Name }

func (h *roleHandler) Parse(ctx context.Context, row *Row, raw string) error {
	value := strings.TrimSpace(raw)

	switch value {
	case "":
		if h.role.Mandatory && row.IsNew() {
			row.Warning(model.MsgOwnerMissing, h.role.Name)
		}
		return nil
	case clearMarker:
		if h.role.Mandatory {
			row.Warning(model.MsgOwnerMissing, h.role.Name)
			return nil
		}
		row.roles[h.role.ID] = []string{}
		return nil
	}

	var ids []string
	seen := make(map[string]bool)
	for _, email := range splitEmails(value) {
		email = model.NormalizeEmail(email)
		if !model.IsValidEmail(email) {
			row.Warning(model.MsgInvalidEmail, h.role.Name, email)
			continue
		}
		p, err := h.c.resolvePerson(ctx, row, email)
		if err != nil {
			return err
		}
		if !seen[p.ID] {
			seen[p.ID] = true
			ids = append(ids, p.ID)
		}
	}

	if len(ids) == 0 {
		if h.role.Mandatory {
			row.Warning(model.MsgOwnerMissing, h.role.Name)
		}
		return nil
	}
	sort.Strings(ids)
	row.roles[h.role.ID] = ids
	return nil
}

func (h *roleHandler) Export(ctx context.Context, row *ExportRow) string {
	var emails []string
	for _, id := range row.Members[h.role.ID] {
		if p, ok := row.Persons[id]; ok {
			emails = append(emails, p.Email)
		}
	}
	sort.Strings(emails)
	return strings.Join(emails, "\n")
}

// resolvePerson finds the person with email in the row, the session or the
// directory, and otherwise creates a stub that is saved with the row
func (c *Converter) resolvePerson(ctx context.Context, row *Row, email string) (*model.Person, error) {
	if p, ok := row.persons[email]; ok {
		return p, nil
	}

	p, err := c.session.Person(ctx, email)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	if c.directory != nil {
		found, err := c.directory.LookupByEmail(ctx, email)
		if err != nil {
			logging.From(ctx).Warn("person directory lookup failed, creating stub",
				"email", email, "error", err)
		} else if found != nil {
			p = &model.Person{
				ID:    model.NewID(),
				Email: email,
				Name:  found.Name,
			}
		}
	}
	if p == nil {
		p = model.NewPersonStub(email)
	}

	row.persons[email] = p
	return p, nil
}
