// Package domain defines core data models and interfaces shared across bidvault.
// It contains plain types (wire/state) and contracts (interfaces) only.
package domain
