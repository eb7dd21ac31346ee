package ai

import (
	"fmt"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

const summarySystemPrompt = `You are an assistant that writes short attendance reports.
You receive the attendance log of a single day: one line per person with the
time they were first seen. Write a concise plain-text summary: how many people
attended, who arrived first and last, and anything notable about arrival
times. Do not invent people or times that are not in the log. Answer in at
most five sentences.`

// buildSummaryContent renders the user message for one day's entries.
func buildSummaryContent(day string, entries []ledger.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attendance log for %s (%d people):\n", day, len(entries))
	if len(entries) == 0 {
		b.WriteString("(nobody was recorded)\n")
		return b.String()
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "%s - first seen at %s\n", e.Name, e.Timestamp)
	}
	return b.String()
}
