package store

import (
    "fmt"
    "strings"

    "github.com/yourorg/feed-sync/internal/normalize"
)

const DefaultTable = "listings"

func columnType(k normalize.Kind) string {
    switch k {
    case normalize.KindNumber:
        return "DOUBLE PRECISION"
    case normalize.KindBool:
        return "BOOLEAN"
    case normalize.KindTextArray:
        return "TEXT[] NOT NULL DEFAULT '{}'"
    case normalize.KindTimestamp:
        return "TIMESTAMPTZ"
    default:
        return "TEXT"
    }
}

// createTableSQL derives the table from the normalizer's field table so the
// two can never drift apart.
func createTableSQL(table string, fields []normalize.Field) []string {
    cols := make([]string, 0, len(fields)+1)
    for _, f := range fields {
        if f.Column == normalize.ColumnListingKey {
            cols = append(cols, f.Column+" TEXT PRIMARY KEY")
            continue
        }
        cols = append(cols, f.Column+" "+columnType(f.Kind))
    }
    cols = append(cols, "synced_at TIMESTAMPTZ NOT NULL DEFAULT now()")

    stmts := []string{
        fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n);", table, strings.Join(cols, ",\n    ")),
        fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_modified ON %s (%s DESC);", table, table, normalize.ColumnModifiedAt),
        fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_address_key ON %s (%s);", table, table, normalize.ColumnAddressKey),
    }
    // columns added to the field table after the first deploy
    for _, f := range fields {
        if f.Column == normalize.ColumnListingKey { continue }
        stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s;", table, f.Column, columnType(f.Kind)))
    }
    return stmts
}

// upsertSQL writes every column and replaces all of them on a key collision.
func upsertSQL(table string, cols []string, key string) string {
    placeholders := make([]string, len(cols))
    updates := make([]string, 0, len(cols))
    for i, c := range cols {
        placeholders[i] = fmt.Sprintf("$%d", i+1)
        if c == key { continue }
        updates = append(updates, c+" = EXCLUDED."+c)
    }
    updates = append(updates, "synced_at = now()")
    return fmt.Sprintf(
        "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
        table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), key, strings.Join(updates, ", "),
    )
}

func watermarkSQL(table string) string {
    return fmt.Sprintf(
        "SELECT %[2]s FROM %[1]s WHERE %[2]s IS NOT NULL ORDER BY %[2]s DESC LIMIT 1",
        table, normalize.ColumnModifiedAt,
    )
}
