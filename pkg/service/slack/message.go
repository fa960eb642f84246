package slack

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/slack-go/slack"
)

// maxSectionBytes is the size limit of a section text object
const maxSectionBytes = 3000

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// BuildDigestBlocks renders a digest as Block Kit blocks and returns the
// plain text fallback used for notifications
func BuildDigestBlocks(msg *model.DigestMessage, appURL string) ([]slack.Block, string) {
	title := fmt.Sprintf("Your grcbook digest for %s", msg.Date.ExportString())
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title, false, false)),
	}

	count := 0
	for _, kind := range types.AllNotificationKinds() {
		refs := msg.Sections[kind]
		if len(refs) == 0 {
			continue
		}
		count += len(refs)

		var b strings.Builder
		fmt.Fprintf(&b, "*%s*\n", kind.Title())
		for _, ref := range refs {
			b.WriteString("• ")
			b.WriteString(formatTaskRef(ref, appURL))
			b.WriteString("\n")
		}
		text := truncateToMaxBytes(strings.TrimRight(b.String(), "\n"), maxSectionBytes)
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil))
	}

	return blocks, fmt.Sprintf("%s: %d item(s)", title, count)
}

func formatTaskRef(ref model.TaskRef, appURL string) string {
	label := mrkdwnEscaper.Replace(ref.Slug)
	if appURL != "" {
		label = fmt.Sprintf("<%s/%s|%s>", strings.TrimRight(appURL, "/"), ref.ID, label)
	}

	line := label + " " + mrkdwnEscaper.Replace(ref.Title)
	if !ref.DueDate.IsZero() {
		line += " (due " + ref.DueDate.ExportString() + ")"
	}
	if ref.Cycle != "" {
		line += " in _" + mrkdwnEscaper.Replace(ref.Cycle) + "_"
	}
	return line
}

// truncateToMaxBytes cuts s to at most max bytes without splitting a rune
func truncateToMaxBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	const ellipsis = "…"
	cut := max - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}
