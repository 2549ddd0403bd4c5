// Package tables registers all sheet definitions with the core registry.
// Import this package to ensure all sheets are registered.
package tables

// This file exists to provide a single import point.
// Each sheet file uses init() to register its sheet.
