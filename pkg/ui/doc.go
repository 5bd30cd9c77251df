// Package ui holds the terminal output of igcollect: colored messages,
// the per-collection progress line, the end-of-run summary table and
// desktop notifications.
package ui
