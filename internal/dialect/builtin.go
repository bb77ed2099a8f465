package dialect

// Names of the built-in dialects.
const (
	MySQLName     = "mysql"
	PostgresName  = "postgres"
	SQLiteName    = "sqlite"
	SQLServerName = "sqlserver"
)

var sql92Reserved = []string{
	"ADD", "ALL", "ALTER", "AND", "ANY", "AS", "ASC", "BETWEEN", "BY", "CASE",
	"CAST", "CHECK", "COLUMN", "CONSTRAINT", "CREATE", "CROSS", "CURRENT_DATE",
	"CURRENT_TIME", "CURRENT_TIMESTAMP", "DEFAULT", "DELETE", "DESC", "DISTINCT",
	"DROP", "ELSE", "END", "EXCEPT", "EXISTS", "FALSE", "FOREIGN", "FROM", "FULL",
	"GRANT", "GROUP", "HAVING", "IN", "INDEX", "INNER", "INSERT", "INTERSECT",
	"INTO", "IS", "JOIN", "KEY", "LEFT", "LIKE", "NOT", "NULL", "ON", "OR",
	"ORDER", "OUTER", "PRIMARY", "REFERENCES", "RIGHT", "SELECT", "SET",
	"TABLE", "THEN", "TO", "TRUE", "UNION", "UNIQUE", "UPDATE", "USER", "USING",
	"VALUES", "VIEW", "WHEN", "WHERE", "WITH",
}

func reservedWith(extra ...string) []string {
	words := append([]string(nil), sql92Reserved...)
	return append(words, extra...)
}

// MySQL is MySQL / MariaDB.
var MySQL = func() *Dialect {
	d := &Dialect{
		Name:             MySQLName,
		DriverName:       "mysql",
		QuoteBegin:       "`",
		QuoteEnd:         "`",
		BackslashEscapes: true,
		TrueLiteral:      "1",
		FalseLiteral:     "0",
		DateTimeLayout:   "2006-01-02 15:04:05.999999",
		Identity:         "^auto_increment",
		Rename:           RenameStatement,
		BeginTransaction: "^start ^transaction",
		ChangeColumn:     ChangeColumnChange,
		DropIndex:        DropIndexOnTable,
		Limit:            LimitClause,
		Functions: map[string]string{
			"YEAR":    "YEAR({})",
			"MONTH":   "MONTH({})",
			"DAY":     "DAYOFMONTH({})",
			"HOUR":    "HOUR({})",
			"MINUTE":  "MINUTE({})",
			"SECOND":  "SECOND({})",
			"WEEKDAY": "(DAYOFWEEK({}) - 1)",
		},
		Caps: fullDDL(Capabilities{
			MultipleDatabase:          true,
			ForeignKeys:               true,
			Uniques:                   true,
			ComputedColumns:           true,
			AnonymousPrimaryKey:       true,
			ExplicitDropConstraint:    true,
			EnableConstraintsPerTable: false,
			RangeSelect:               true,
			AllowDeleteFrom:           true,
			AllowUpdateFrom:           false,
		}),
	}
	d.Caps.RenameProgrammable = false
	d.SetReserved(reservedWith("ACCESSIBLE", "AUTO_INCREMENT", "CHANGE", "DATABASE",
		"DATABASES", "DIV", "DUAL", "ENUM", "FULLTEXT", "IGNORE", "INTERVAL", "KEYS",
		"KILL", "LIMIT", "LOCK", "MOD", "MODIFY", "OPTION", "READ", "REGEXP", "RENAME",
		"REPLACE", "SCHEMA", "SHOW", "SPATIAL", "STRAIGHT_JOIN", "TRIGGER", "UNSIGNED",
		"USE", "WRITE", "XOR", "ZEROFILL"))
	return d
}()

// Postgres is PostgreSQL.
var Postgres = func() *Dialect {
	d := &Dialect{
		Name:           PostgresName,
		DriverName:     "postgres",
		QuoteBegin:     `"`,
		QuoteEnd:       `"`,
		TrueLiteral:    "TRUE",
		FalseLiteral:   "FALSE",
		DateTimeLayout: "2006-01-02 15:04:05.999999",
		Identity:       "^generated ^by ^default ^as ^identity",
		Rename:         RenameAlterTable,
		ChangeColumn:   ChangeColumnAlterType,
		DropIndex:      DropIndexPlain,
		Limit:          LimitClause,
		Functions: map[string]string{
			"YEAR":    "EXTRACT(YEAR FROM {})",
			"MONTH":   "EXTRACT(MONTH FROM {})",
			"DAY":     "EXTRACT(DAY FROM {})",
			"HOUR":    "EXTRACT(HOUR FROM {})",
			"MINUTE":  "EXTRACT(MINUTE FROM {})",
			"SECOND":  "FLOOR(EXTRACT(SECOND FROM {}))",
			"WEEKDAY": "EXTRACT(DOW FROM {})",
		},
		Caps: fullDDL(Capabilities{
			MultipleSchema:      true,
			ForeignKeys:         true,
			Uniques:             true,
			ComputedColumns:     true,
			AnonymousPrimaryKey: true,
			RangeSelect:         true,
			AllowDeleteFrom:     false,
			AllowUpdateFrom:     false,
			RowID:               "ctid",
		}),
	}
	d.Caps.AlterProgrammable = false
	d.SetReserved(reservedWith("ANALYSE", "ANALYZE", "ARRAY", "ASYMMETRIC", "BOTH",
		"COLLATE", "CURRENT_ROLE", "CURRENT_USER", "DEFERRABLE", "DO", "FETCH", "FOR",
		"ILIKE", "INITIALLY", "LATERAL", "LEADING", "LIMIT", "LOCALTIME",
		"LOCALTIMESTAMP", "OFFSET", "ONLY", "PLACING", "RETURNING", "SESSION_USER",
		"SOME", "SYMMETRIC", "TRAILING", "VARIADIC", "VERBOSE", "WINDOW"))
	return d
}()

// SQLite is SQLite 3.
var SQLite = func() *Dialect {
	d := &Dialect{
		Name:           SQLiteName,
		DriverName:     "sqlite3",
		QuoteBegin:     `"`,
		QuoteEnd:       `"`,
		TrueLiteral:    "1",
		FalseLiteral:   "0",
		DateTimeLayout: "2006-01-02 15:04:05.999",
		Rename:         RenameAlterTable,
		ChangeColumn:   ChangeColumnAlter,
		DropIndex:      DropIndexPlain,
		Limit:          LimitClause,
		KeepReferences: [2]string{
			"^pragma legacy_alter_table = ^on",
			"^pragma legacy_alter_table = ^off",
		},
		Functions: map[string]string{
			"YEAR":    "CAST(strftime('%Y', {}) AS INTEGER)",
			"MONTH":   "CAST(strftime('%m', {}) AS INTEGER)",
			"DAY":     "CAST(strftime('%d', {}) AS INTEGER)",
			"HOUR":    "CAST(strftime('%H', {}) AS INTEGER)",
			"MINUTE":  "CAST(strftime('%M', {}) AS INTEGER)",
			"SECOND":  "CAST(strftime('%S', {}) AS INTEGER)",
			"WEEKDAY": "CAST(strftime('%w', {}) AS INTEGER)",
		},
		Caps: Capabilities{
			ForeignKeys:              true,
			Uniques:                  true,
			AnonymousPrimaryKey:      true,
			RangeSelect:              true,
			RowID:                    "rowid",
			RenameRewritesReferences: true,
			CreateTable:              true,
			DropTable:                true,
			RenameTable:              true,
			AddColumn:                true,
			AddIndex:                 true,
			DropIndex:                true,
			RecreateTable:            true,
		},
	}
	d.SetReserved(reservedWith("ABORT", "AUTOINCREMENT", "COLLATE", "CONFLICT",
		"DEFERRABLE", "GLOB", "INDEXED", "ISNULL", "LIMIT", "NOTNULL", "OFFSET",
		"PRAGMA", "RAISE", "REGEXP", "REINDEX", "RENAME", "REPLACE", "TRANSACTION",
		"VACUUM"))
	return d
}()

// SQLServer is Microsoft SQL Server and Azure SQL.
var SQLServer = func() *Dialect {
	d := &Dialect{
		Name:           SQLServerName,
		QuoteBegin:     "[",
		QuoteEnd:       "]",
		TrueLiteral:    "1",
		FalseLiteral:   "0",
		DateTimeLayout: "2006-01-02T15:04:05.999",
		Identity:       "^identity",
		Rename:         RenameProcedure,
		ChangeColumn:   ChangeColumnAlter,
		DropIndex:      DropIndexOnTable,
		Limit:          LimitTop,
		IdentityInsert: true,
		Functions: map[string]string{
			"TRIM":    "LTRIM(RTRIM({}))",
			"YEAR":    "DATEPART(year, {})",
			"MONTH":   "DATEPART(month, {})",
			"DAY":     "DATEPART(day, {})",
			"HOUR":    "DATEPART(hour, {})",
			"MINUTE":  "DATEPART(minute, {})",
			"SECOND":  "DATEPART(second, {})",
			"WEEKDAY": "((DATEPART(weekday, {}) + @@DATEFIRST - 1) % 7)",
		},
		Caps: fullDDL(Capabilities{
			MultipleSchema:            true,
			MultipleDatabase:          true,
			ForeignKeys:               true,
			Uniques:                   true,
			ComputedColumns:           true,
			SparseColumns:             true,
			AnonymousPrimaryKey:       false,
			EnableConstraintsPerTable: true,
			RangeSelect:               true,
			AllowDeleteFrom:           true,
			AllowUpdateFrom:           true,
		}),
	}
	d.SetReserved(reservedWith("BACKUP", "BREAK", "BROWSE", "BULK", "CLUSTERED",
		"COMPUTE", "CONTAINS", "DATABASE", "DBCC", "DENY", "DISK", "DUMP", "EXEC",
		"EXECUTE", "FILE", "FILLFACTOR", "GOTO", "HOLDLOCK", "IDENTITY",
		"IDENTITY_INSERT", "KILL", "LINENO", "MERGE", "NOCHECK", "NONCLUSTERED",
		"OFF", "OPENQUERY", "PERCENT", "PIVOT", "PLAN", "PRINT", "PROC", "PROCEDURE",
		"RAISERROR", "READTEXT", "RESTORE", "RETURN", "ROWCOUNT", "RULE", "SCHEMA",
		"SHUTDOWN", "TOP", "TRAN", "TRANSACTION", "TRIGGER", "TRUNCATE", "TSEQUAL",
		"WAITFOR", "WHILE"))
	return d
}()

func init() {
	Register(MySQL, "mariadb")
	Register(Postgres, "postgresql", "pg")
	Register(SQLite, "sqlite3")
	Register(SQLServer, "mssql")
}
