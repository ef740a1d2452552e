package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestTableAlignsColumns(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	out := NewOutput(cmd)

	table := NewTable(out, "FILE", "STATUS")
	table.AddRow("tradePlan", out.Status(true, false))
	table.AddRow("positions", out.Status(false, true), "extra")
	table.Render()

	want := strings.Join([]string{
		"FILE       STATUS",
		"---------  -------",
		"tradePlan  OK",
		"positions  SKIPPED",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("table output:\n%s\nwant:\n%s", got, want)
	}
}

func TestVisibleLenIgnoresStyles(t *testing.T) {
	if n := visibleLen(ColorRed + "FAILED" + ColorReset); n != 6 {
		t.Errorf("visibleLen = %d, want 6", n)
	}
}
