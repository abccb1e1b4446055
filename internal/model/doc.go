// Package model defines domain data structures used across the app: game
// catalog records, workshop item records, download tasks, and status enums.
// Structures are designed for direct binding in the presentation layer and
// explicit state transitions.
package model
