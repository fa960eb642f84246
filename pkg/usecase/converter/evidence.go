package converter

import (
	"context"
	"sort"
	"strings"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
)

// evidenceURLHandler attaches link evidence. Links already attached are
// skipped.
type evidenceURLHandler struct {
	c *Converter
}

func (h *evidenceURLHandler) Key() string    { return keyEvidenceURL }
func (h *evidenceURLHandler) Column() string { return "Evidence URL" }

func (h *evidenceURLHandler) Parse(ctx context.Context, row *Row, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	links := splitLines(raw)
	if len(links) == 0 {
		row.Warning(model.MsgWrongValue, h.Column())
		return nil
	}

	known := make(map[string]bool)
	if row.Existing != nil {
		existing, err := h.c.session.Evidence(ctx, row.Existing.Ref())
		if err != nil {
			return err
		}
		for _, e := range existing {
			known[e.Link] = true
		}
	}

	for _, link := range links {
		if known[link] {
			continue
		}
		known[link] = true

		evidence := &model.Evidence{
			ID:    model.NewID(),
			Kind:  types.EvidenceKindURL,
			Link:  link,
			Title: link,
		}
		if h.c.host != nil {
			doc, err := h.c.host.Resolve(ctx, link)
			if err != nil || doc == nil {
				logging.From(ctx).Warn("failed to resolve evidence link", "link", link, "error", err)
				row.Warning(model.MsgWrongValue, h.Column())
				continue
			}
			if doc.Link != "" {
				evidence.Link = doc.Link
			}
			if doc.Name != "" {
				evidence.Title = doc.Name
			}
			evidence.SourceID = doc.ID
		}
		row.evidence = append(row.evidence, evidence)
	}
	return nil
}

func (h *evidenceURLHandler) Export(ctx context.Context, row *ExportRow) string {
	return evidenceLinks(row.Evidence, types.EvidenceKindURL)
}

// evidenceFileHandler exports file evidence and refuses changes to it
type evidenceFileHandler struct {
	c *Converter
}

func (h *evidenceFileHandler) Key() string    { return keyEvidenceFile }
func (h *evidenceFileHandler) Column() string { return "Evidence File" }

func (h *evidenceFileHandler) Parse(ctx context.Context, row *Row, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	given := splitLines(raw)

	var current []*model.Evidence
	if row.Existing != nil {
		var err error
		current, err = h.c.session.Evidence(ctx, row.Existing.Ref())
		if err != nil {
			return err
		}
	}
	stored := splitLines(evidenceLinks(current, types.EvidenceKindFile))

	if !sameSet(given, stored) {
		row.Warning(model.MsgEvidenceFileReadOnly)
	}
	return nil
}

func (h *evidenceFileHandler) Export(ctx context.Context, row *ExportRow) string {
	return evidenceLinks(row.Evidence, types.EvidenceKindFile)
}

func evidenceLinks(list []*model.Evidence, kind types.EvidenceKind) string {
	var links []string
	for _, e := range list {
		if e.Kind == kind {
			links = append(links, e.Link)
		}
	}
	sort.Strings(links)
	return strings.Join(links, "\n")
}

func sameSet(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	other := make(map[string]bool, len(b))
	for _, s := range b {
		if !set[s] {
			return false
		}
		other[s] = true
	}
	return len(set) == len(other)
}
