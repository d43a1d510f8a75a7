// Package sqlfuncs bridges SPARQL built-in functions to SQL: most map to
// a plain SQLite scalar expression emitted inline by the translator, and
// REGEX, the MD5/SHA1/SHA256 hash functions and sparqlformattime use a
// SQLite runtime function registered once per connection via
// github.com/mattn/go-sqlite3's ConnectHook, the same extension point the
// teacher never needed but which is the idiomatic way this driver
// supports custom SQL functions.
package sqlfuncs

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"hash"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/trackerd/core/internal/trackererr"
)

// InlineForm reports whether a built-in name emits as a plain SQLite
// expression (true, with the SQL template returned) or needs the
// registered runtime function of the same name (false).
func InlineForm(name string) (template string, ok bool) {
	switch strings.ToUpper(name) {
	case "STR":
		return "CAST(%s AS TEXT)", true
	case "STRLEN":
		return "LENGTH(%s)", true
	case "UCASE":
		return "UPPER(%s)", true
	case "LCASE":
		return "LOWER(%s)", true
	case "ABS":
		return "ABS(%s)", true
	case "ROUND":
		return "ROUND(%s)", true
	case "CEIL":
		return "(CASE WHEN %[1]s = CAST(%[1]s AS INTEGER) THEN %[1]s ELSE CAST(%[1]s AS INTEGER) + 1 END)", true
	case "FLOOR":
		return "CAST(%s AS INTEGER)", true
	case "BOUND":
		return "(%s IS NOT NULL)", true
	case "ISNUMERIC":
		return "(TYPEOF(%s) IN ('integer','real'))", true
	}
	return "", false
}

// VariadicInlineForm handles built-ins whose SQL shape depends on more
// than one argument being interpolated positionally rather than all
// into a single %s slot (CONCAT, CONTAINS, STRSTARTS, STRENDS, SUBSTR).
func VariadicInlineForm(name string, args []string) (string, bool) {
	switch strings.ToUpper(name) {
	case "CONCAT":
		return "(" + strings.Join(args, " || ") + ")", true
	case "CONTAINS":
		if len(args) == 2 {
			return fmt.Sprintf("INSTR(%s, %s) > 0", args[0], args[1]), true
		}
	case "STRSTARTS":
		if len(args) == 2 {
			return fmt.Sprintf("SUBSTR(%s, 1, LENGTH(%s)) = %s", args[0], args[1], args[1]), true
		}
	case "STRENDS":
		if len(args) == 2 {
			return fmt.Sprintf("SUBSTR(%s, -LENGTH(%s)) = %s", args[0], args[1], args[1]), true
		}
	case "SUBSTR":
		if len(args) == 2 {
			return fmt.Sprintf("SUBSTR(%s, %s)", args[0], args[1]), true
		}
		if len(args) == 3 {
			return fmt.Sprintf("SUBSTR(%s, %s, %s)", args[0], args[1], args[2]), true
		}
	}
	return "", false
}

// runtimeFunctionNames lists the built-ins requiring a registered SQLite
// scalar function rather than an inline expression: REGEX and the hash
// family can't be expressed as plain SQLite operators.
var runtimeFunctionNames = map[string]bool{
	"REGEX": true, "MD5": true, "SHA1": true, "SHA256": true, "SPARQLFORMATTIME": true,
}

// IsRuntimeFunction reports whether name needs Register to have been
// called on the connection before it can be used in generated SQL.
func IsRuntimeFunction(name string) bool {
	return runtimeFunctionNames[strings.ToUpper(name)]
}

var registerOnce sync.Once
var driverName string

// DriverName returns the sql.Register name translated queries should use
// with sql.Open, registering the custom driver on first call.
func DriverName() string {
	registerOnce.Do(func() {
		driverName = "sqlite3_tracker"
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return registerAll(conn)
			},
		})
	})
	return driverName
}

func registerAll(conn *sqlite3.SQLiteConn) error {
	funcs := map[string]any{
		"regex":            sparqlRegex,
		"md5":              hashFunc(md5.New),
		"sha1":             hashFunc(sha1.New),
		"sha256":           hashFunc(sha256.New),
		"sparqlformattime": sparqlFormatTime,
	}
	for name, fn := range funcs {
		if err := conn.RegisterFunc(name, fn, true); err != nil {
			return trackererr.New(trackererr.KindQuery, "sqlfuncs.registerAll", err)
		}
	}
	return nil
}

// sparqlFormatTime renders a ServiceNumericMetaData epoch-seconds value
// as an xsd:dateTime lexical form, the registered-function counterpart to
// the inline strftime('%Y-%m-%d', ...) used for plain dates (datetimes
// need the full RFC 3339 instant, not just a calendar day).
func sparqlFormatTime(epochSeconds int64) string {
	return time.Unix(epochSeconds, 0).UTC().Format(time.RFC3339)
}

func sparqlRegex(s, pattern string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, trackererr.New(trackererr.KindQuery, "sqlfuncs.sparqlRegex", err)
	}
	return re.MatchString(s), nil
}

func hashFunc(newHash func() hash.Hash) func(string) string {
	return func(s string) string {
		h := newHash()
		h.Write([]byte(s))
		return hex.EncodeToString(h.Sum(nil))
	}
}
