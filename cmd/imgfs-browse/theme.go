// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/charmbracelet/lipgloss"

// theme holds the color palette for the browser's two panes.
type theme struct {
	NormalText         lipgloss.Color
	FaintText          lipgloss.Color
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color
	DirectoryColor     lipgloss.Color
	HeaderForeground   lipgloss.Color
	BorderColor        lipgloss.Color
	HelpText           lipgloss.Color
}

var defaultTheme = theme{
	NormalText:         lipgloss.Color("250"),
	FaintText:          lipgloss.Color("244"),
	SelectedBackground: lipgloss.Color("24"),
	SelectedForeground: lipgloss.Color("230"),
	DirectoryColor:     lipgloss.Color("110"),
	HeaderForeground:   lipgloss.Color("229"),
	BorderColor:        lipgloss.Color("238"),
	HelpText:           lipgloss.Color("244"),
}
