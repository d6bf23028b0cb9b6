package opstrack

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Summary renders one human-readable line for op, the form corectl ops
// prints per row.
func Summary(op *Operation) string {
	age := humanize.Time(op.StartedAt)
	runtime := humanize.RelTime(op.StartedAt, op.StartedAt.Add(op.Duration()), "", "")
	line := fmt.Sprintf("%s  %-24s  %-10s  started %s  ran %s", op.ID, op.Kind, op.Status, age, runtime)
	if op.Err != "" {
		line += fmt.Sprintf("  error=%q", op.Err)
	}
	return line
}
