// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Styles degrade to plain text when stdout is not a color terminal
var (
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	addressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// field prints one aligned "label value" line
func field(label, value string) {
	fmt.Printf("%s %s\n", labelStyle.Width(12).Render(label), value)
}

func warn(format string, args ...any) {
	fmt.Printf("%s %s\n", warnStyle.Render("!"), fmt.Sprintf(format, args...))
}
