package slack_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/service/slack"
)

func TestBuildDigestBlocks(t *testing.T) {
	msg := &model.DigestMessage{
		Recipient: "bob@example.com",
		Date:      model.Date("2026-03-10"),
		Sections: map[types.NotificationKind][]model.TaskRef{
			types.NotificationTaskOverdue: {{ID: "t3", Slug: "TASK-3", Title: "Rotate keys", DueDate: "2026-03-05"}},
			types.NotificationDueIn:       {{ID: "t1", Slug: "TASK-1", Title: "A <b> & c", DueDate: "2026-03-11", Cycle: "Q1"}},
		},
	}

	blocks, text := slack.BuildDigestBlocks(msg, "")
	gt.Array(t, blocks).Length(3)
	gt.Value(t, text).Equal("Your grcbook digest for 03/10/2026: 2 item(s)")
}

func TestFormatTaskRef(t *testing.T) {
	ref := model.TaskRef{ID: "t1", Slug: "TASK-1", Title: "A <b> & c", DueDate: "2026-03-11", Cycle: "Q1"}

	gt.Value(t, slack.FormatTaskRef(ref, "")).Equal("TASK-1 A &lt;b&gt; &amp; c (due 03/11/2026) in _Q1_")
	gt.Value(t, slack.FormatTaskRef(ref, "https://grc.example.com/")).
		Equal("<https://grc.example.com/t1|TASK-1> A &lt;b&gt; &amp; c (due 03/11/2026) in _Q1_")
}

func TestTruncateToMaxBytes(t *testing.T) {
	gt.Value(t, slack.TruncateToMaxBytes("short", 10)).Equal("short")

	long := strings.Repeat("日本語", 10)
	got := slack.TruncateToMaxBytes(long, 20)
	gt.Bool(t, len(got) <= 20).True()
	gt.Bool(t, utf8.ValidString(got)).True()
	gt.Bool(t, strings.HasSuffix(got, "…")).True()
}
