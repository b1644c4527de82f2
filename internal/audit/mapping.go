package audit

import (
	"fmt"
	"sort"
	"strings"

	"inventory-mobile/client/internal/audit/domain"
)

// Table overrides for resources whose singular is not the table name minus a trailing "s".
var tableResources = map[string]string{
	"inventory_entries": "inventory entry",
	"categories":        "category",
	"stock_alerts":      "stock alert",
	"alerts":            "alert",
}

const maxListedFields = 3

// Describe returns the display label for a record, e.g. "updated product #42 (price, stock)".
func Describe(rec domain.ChangeRecord) string {
	label := fmt.Sprintf("%s %s #%d", actionVerb(rec.Action), tableToResource(rec.TableName), rec.RecordID)
	if rec.Action != domain.ActionUpdate {
		return label
	}
	fields := rec.ChangedFields()
	if len(fields) == 0 {
		return label
	}
	sort.Strings(fields)
	if len(fields) > maxListedFields {
		fields = append(fields[:maxListedFields], fmt.Sprintf("+%d more", len(fields)-maxListedFields))
	}
	return label + " (" + strings.Join(fields, ", ") + ")"
}

func actionVerb(a domain.Action) string {
	switch domain.Action(strings.ToUpper(string(a))) {
	case domain.ActionInsert:
		return "created"
	case domain.ActionUpdate:
		return "updated"
	case domain.ActionDelete:
		return "deleted"
	default:
		return strings.ToLower(string(a))
	}
}

func tableToResource(table string) string {
	table = strings.ToLower(strings.TrimSpace(table))
	if table == "" {
		return "record"
	}
	if r, ok := tableResources[table]; ok {
		return r
	}
	s := strings.TrimSuffix(table, "s")
	if s == "" {
		s = table
	}
	return strings.ReplaceAll(s, "_", " ")
}
