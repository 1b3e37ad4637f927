// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldEventID   = "event_id"

	// Trigger / template fields
	FieldTemplate = "template"
	FieldTrigger  = "trigger"
	FieldHandle   = "handle"
	FieldKind     = "kind"
	FieldTarget   = "target"

	// Outcome fields
	FieldStatus = "status"
	FieldErrno  = "errno"
	FieldBytes  = "bytes"
	FieldPath   = "path"
)
