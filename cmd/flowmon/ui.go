package main

import (
	"github.com/fatih/color"

	"github.com/rendis/flowmon/pkg/schema"
)

var (
	brand  = color.New(color.FgHiCyan, color.Bold)
	subtle = color.New(color.FgHiBlack)
	good   = color.New(color.FgGreen)
	warn   = color.New(color.FgYellow)
	bad    = color.New(color.FgRed)
	active = color.New(color.FgBlue)
)

func statusColor(s schema.NodeStatus) *color.Color {
	switch s {
	case schema.NodeStatusCompleted:
		return good
	case schema.NodeStatusFailed:
		return bad
	case schema.NodeStatusInProgress:
		return active
	case schema.NodeStatusPending:
		return warn
	default:
		return subtle
	}
}
