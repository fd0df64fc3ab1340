package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"cleaningos/internal/core"
)

// tableRange is the A1 range spanning every column of the table layout.
func tableRange(table core.Table) string {
	return fmt.Sprintf("%s!A:%s", quoteSheet(string(table)), columnLetter(len(table.Columns())))
}

// columnLetter converts a 1-based column index into its A1 letter(s).
func columnLetter(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

// checkHeader compares the first worksheet row with the table layout and
// names the first column that is missing or out of place.
func checkHeader(table core.Table, header []any) error {
	for i, col := range table.Columns() {
		var got string
		if i < len(header) {
			got = strings.TrimSpace(fmt.Sprint(header[i]))
		}
		if !strings.EqualFold(got, col) {
			detail := "header cell is empty"
			if got != "" {
				detail = fmt.Sprintf("found %q in column %s", got, columnLetter(i+1))
			}
			return &core.SchemaError{Table: table, Column: col, Detail: detail}
		}
	}
	return nil
}

func missingHeader(table core.Table) error {
	return &core.SchemaError{Table: table, Column: table.Columns()[0], Detail: "worksheet has no header row"}
}

// dataRows drops rows whose cells are all blank.
func dataRows(values [][]any) []core.Row {
	out := make([]core.Row, 0, len(values))
	for _, v := range values {
		blank := true
		for _, cell := range v {
			if strings.TrimSpace(fmt.Sprint(cell)) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}
		out = append(out, core.Row(v))
	}
	return out
}

// classifyError maps Sheets API failures onto the ledger error taxonomy. The
// upstream body is kept verbatim so permission problems can be diagnosed.
func classifyError(table core.Table, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &core.StorageUnavailableError{Backend: backendName, Err: err}
	}
	detail := strings.TrimSpace(gerr.Body)
	if detail == "" {
		detail = gerr.Message
	}
	switch {
	case gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range"):
		return &core.SchemaError{Table: table, Detail: gerr.Message}
	case gerr.Code == http.StatusBadRequest:
		return fmt.Errorf("sheets request for %s rejected: %w", table, err)
	default:
		return &core.StorageUnavailableError{Backend: backendName, Detail: detail, Err: err}
	}
}
