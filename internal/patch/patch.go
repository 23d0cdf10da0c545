package patch

import (
	"encoding/json"
	"fmt"
)

// Type selects the patch formalism for one field.
type Type string

const (
	TypeUnifiedDiff Type = "unified_diff"
	TypeJSONPatch   Type = "json_patch"
)

// FieldPatch is a declared intent to mutate one named field of an entity
// record using one formalism.
type FieldPatch struct {
	Field string `json:"field"`
	Type  Type   `json:"patchType"`
	Patch string `json:"patch"`
}

// Error describes one failed field patch. A batch accumulates one Error per
// failing field rather than short-circuiting.
type Error struct {
	Field     string
	PatchType Type
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("field %q (%s): %s", e.Field, e.PatchType, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Result is the outcome of applying a patch batch. Record is populated only
// when Success is true; callers must never persist a partial result.
type Result struct {
	Success bool
	Record  map[string]any
	Errors  []*Error
}

// Apply applies patches in order against a shared working copy of current:
// later patches observe earlier patches' unsaved output, and two patches on
// the same field compose sequentially. Each failing field contributes one
// Error while the remaining patches still run. The updated record is returned
// only when every patch succeeded.
func Apply(current map[string]any, patches []FieldPatch) Result {
	working := make(map[string]any, len(current))
	for k, v := range current {
		working[k] = v
	}

	var errs []*Error
	for _, fp := range patches {
		if err := applyOne(working, fp); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return Result{Success: false, Errors: errs}
	}
	return Result{Success: true, Record: working}
}

// Validate is a dry run of Apply for pre-flight review: same routing and
// validation, returning only the error list.
func Validate(current map[string]any, patches []FieldPatch) []*Error {
	return Apply(current, patches).Errors
}

func applyOne(working map[string]any, fp FieldPatch) *Error {
	switch fp.Type {
	case TypeUnifiedDiff:
		original, _ := working[fp.Field].(string)
		updated, err := ApplyUnifiedDiff(original, fp.Patch)
		if err != nil {
			return &Error{Field: fp.Field, PatchType: fp.Type, Message: err.Error(), Cause: err}
		}
		working[fp.Field] = updated
		return nil

	case TypeJSONPatch:
		ops, err := ParseJSONPatch(fp.Patch)
		if err != nil {
			return &Error{Field: fp.Field, PatchType: fp.Type, Message: err.Error(), Cause: err}
		}
		doc := jsonFieldValue(working[fp.Field])
		updated, err := ApplyJSONPatch(doc, ops)
		if err != nil {
			return &Error{Field: fp.Field, PatchType: fp.Type, Message: err.Error(), Cause: err}
		}
		// Patched structured fields go back to their string storage form.
		working[fp.Field] = updated
		return nil

	default:
		return &Error{
			Field:     fp.Field,
			PatchType: fp.Type,
			Message:   fmt.Sprintf("unknown patch type %q", fp.Type),
		}
	}
}

// jsonFieldValue coerces a field's current value into JSON text for patching:
// absent or unparseable values default to an empty object.
func jsonFieldValue(v any) string {
	s, ok := v.(string)
	if !ok || !json.Valid([]byte(s)) {
		return "{}"
	}
	return s
}
