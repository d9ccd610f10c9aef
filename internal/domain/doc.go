// Package domain defines core data models and interfaces shared across the
// relay server and its client. It contains plain types (wire/state) and
// contracts (interfaces) only.
package domain
