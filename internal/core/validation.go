package core

// validation.go checks spreadsheet-derived rows before a preview is created.
//
// Validation happens at three levels:
//  1. Structural: required columns must exist and the sheet must have rows.
//     Failure here short-circuits, no per-row validation runs.
//  2. Per-row: required fields, enum membership, and length limits. Failing
//     rows are collected so the caller sees every bad row at once.
//  3. Optional fields (project_key, assignee, labels): violations become
//     warnings, never errors. A malformed label annotates the result but
//     does not block ticket creation.
//
// The file-size check is advisory only; oversize input is reported as a
// warning unless the caller chooses to enforce it.

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits, matching what the remote tracker accepts.
const (
	MaxSummaryLen     = 255
	MaxDescriptionLen = 32767
	MaxAssigneeLen    = 100
	MaxLabelsLen      = 1000
	MaxLabelLen       = 50
	MinProjectKeyLen  = 2
	MaxProjectKeyLen  = 10
)

// MaxFileSize is the advisory upload size limit (10MB).
var MaxFileSize int64 = 10 * 1024 * 1024

// RequiredColumns are the column headers every upload must contain.
var RequiredColumns = []string{"summary", "description", "issue_type", "priority"}

// ValidIssueTypes and ValidPriorities are the accepted enum tokens,
// compared case-insensitively.
var (
	ValidIssueTypes = []string{"bug", "task", "story", "epic", "subtask"}
	ValidPriorities = []string{"low", "medium", "high", "critical", "highest"}
)

var (
	assigneePattern = regexp.MustCompile(`^[A-Za-z0-9 .\-_]+$`)
	labelPattern    = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)
)

// ValidationResult is the aggregate outcome of validating an upload.
// OK is false iff a structural, required, enum, or length rule failed;
// optional-field violations only populate Warnings.
type ValidationResult struct {
	OK          bool     `json:"ok"`
	Message     string   `json:"message"`
	RowErrors   []string `json:"row_errors,omitempty"`
	InvalidRows []int    `json:"invalid_rows,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Validate checks parsed rows against the upload rules. fileSize is the
// byte size of the uploaded file; pass 0 to skip the advisory size check.
// Row indices in the result are zero-based; messages use one-based row
// numbers for the operator.
func Validate(columns []string, rows []Row, fileSize int64) ValidationResult {
	res := ValidationResult{}

	// Structural checks short-circuit everything else.
	if len(rows) == 0 {
		res.Message = "no data rows found in spreadsheet"
		return res
	}
	if missing := missingColumns(columns); len(missing) > 0 {
		res.Message = fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))
		return res
	}

	if fileSize > MaxFileSize {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"file size (%d bytes) exceeds recommended maximum (%d bytes)", fileSize, MaxFileSize))
	}

	for i, row := range rows {
		if err := validateRow(row, i); err != nil {
			res.InvalidRows = append(res.InvalidRows, i)
			res.RowErrors = append(res.RowErrors, err.Error())
		}
	}

	if len(res.InvalidRows) > 0 {
		res.Message = fmt.Sprintf("validation failed for %d of %d rows", len(res.InvalidRows), len(rows))
		return res
	}

	// Optional fields are checked only once the sheet is otherwise valid;
	// their violations never flip OK back to false.
	for i, row := range rows {
		res.Warnings = append(res.Warnings, optionalFieldWarnings(row, i)...)
	}

	res.OK = true
	res.Message = fmt.Sprintf("validation passed for %d tickets", len(rows))
	if len(res.Warnings) > 0 {
		res.Message += fmt.Sprintf(" with %d warnings", len(res.Warnings))
	}
	return res
}

// missingColumns returns the required columns absent from the header set.
func missingColumns(columns []string) []string {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[strings.TrimSpace(c)] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// validateRow applies the required, enum, and length rules to one row.
// It returns the first violation, matching how operators fix sheets: one
// problem per row at a time.
func validateRow(row Row, idx int) error {
	for _, field := range RequiredColumns {
		if strings.TrimSpace(row[field]) == "" {
			return fmt.Errorf("row %d: %s is required and cannot be empty", idx+1, field)
		}
	}

	issueType := strings.ToLower(strings.TrimSpace(row["issue_type"]))
	if !containsToken(ValidIssueTypes, issueType) {
		return fmt.Errorf("row %d: invalid issue_type %q, must be one of: %s",
			idx+1, row["issue_type"], strings.Join(ValidIssueTypes, ", "))
	}

	priority := strings.ToLower(strings.TrimSpace(row["priority"]))
	if !containsToken(ValidPriorities, priority) {
		return fmt.Errorf("row %d: invalid priority %q, must be one of: %s",
			idx+1, row["priority"], strings.Join(ValidPriorities, ", "))
	}

	// Limits are in characters, not bytes; multibyte text counts per rune.
	if utf8.RuneCountInString(strings.TrimSpace(row["summary"])) > MaxSummaryLen {
		return fmt.Errorf("row %d: summary is too long (max %d characters)", idx+1, MaxSummaryLen)
	}
	if utf8.RuneCountInString(strings.TrimSpace(row["description"])) > MaxDescriptionLen {
		return fmt.Errorf("row %d: description is too long (max %d characters)", idx+1, MaxDescriptionLen)
	}
	return nil
}

// optionalFieldWarnings checks project_key, assignee, and labels.
// Violations are advisory: malformed values are still sent to the remote
// tracker as-is, which is deliberate (the client has its own fallbacks).
func optionalFieldWarnings(row Row, idx int) []string {
	var warnings []string

	if key := strings.TrimSpace(row["project_key"]); key != "" {
		if n := utf8.RuneCountInString(key); n < MinProjectKeyLen || n > MaxProjectKeyLen {
			warnings = append(warnings, fmt.Sprintf(
				"row %d: project key must be between %d and %d characters", idx+1, MinProjectKeyLen, MaxProjectKeyLen))
		} else if !isAlphanumeric(key) {
			warnings = append(warnings, fmt.Sprintf(
				"row %d: project key must contain only letters and numbers", idx+1))
		}
	}

	if assignee := strings.TrimSpace(row["assignee"]); assignee != "" {
		if utf8.RuneCountInString(assignee) > MaxAssigneeLen {
			warnings = append(warnings, fmt.Sprintf(
				"row %d: assignee name is too long (max %d characters)", idx+1, MaxAssigneeLen))
		} else if !assigneePattern.MatchString(assignee) {
			warnings = append(warnings, fmt.Sprintf(
				"row %d: assignee name contains invalid characters", idx+1))
		}
	}

	if labels := strings.TrimSpace(row["labels"]); labels != "" {
		if utf8.RuneCountInString(labels) > MaxLabelsLen {
			warnings = append(warnings, fmt.Sprintf(
				"row %d: labels are too long (max %d characters)", idx+1, MaxLabelsLen))
		} else {
			for _, label := range SplitLabels(labels) {
				if utf8.RuneCountInString(label) > MaxLabelLen {
					warnings = append(warnings, fmt.Sprintf(
						"row %d: label %q is too long (max %d characters)", idx+1, label, MaxLabelLen))
				} else if !labelPattern.MatchString(label) {
					warnings = append(warnings, fmt.Sprintf(
						"row %d: label %q contains invalid characters", idx+1, label))
				}
			}
		}
	}

	return warnings
}

// SplitLabels splits a comma-separated label cell into trimmed,
// non-empty tokens.
func SplitLabels(labels string) []string {
	var out []string
	for _, l := range strings.Split(labels, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func containsToken(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return len(s) > 0
}
