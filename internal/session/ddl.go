package session

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// IsDDL reports whether sql contains a statement that can change the
// schema tree: creating, dropping, renaming or moving relations, functions,
// sequences or schemas. Text that does not parse falls back to a keyword
// check so that a failed DROP still counts.
func IsDDL(sql string) bool {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return hasDDLKeyword(sql)
	}

	for _, raw := range result.Stmts {
		n := raw.Stmt
		if n == nil {
			continue
		}
		switch {
		case n.GetCreateStmt() != nil,
			n.GetDropStmt() != nil,
			n.GetAlterTableStmt() != nil,
			n.GetRenameStmt() != nil,
			n.GetViewStmt() != nil,
			n.GetCreateTableAsStmt() != nil,
			n.GetCreateFunctionStmt() != nil,
			n.GetCreateSeqStmt() != nil,
			n.GetCreateSchemaStmt() != nil,
			n.GetAlterObjectSchemaStmt() != nil,
			n.GetCreateForeignTableStmt() != nil:
			return true
		}
		if sel := n.GetSelectStmt(); sel != nil && sel.IntoClause != nil {
			return true
		}
	}
	return false
}

func hasDDLKeyword(sql string) bool {
	for _, stmt := range strings.Split(sql, ";") {
		fields := strings.Fields(stmt)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "CREATE", "DROP", "ALTER":
			return true
		}
	}
	return false
}
