// Command backwindow-admin maintains the SQL org registry: credentials
// and allow-list entries. It operates directly on the database, so it can
// run before the server is up.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/backwindow/pkg/identity"
	"github.com/platinummonkey/backwindow/pkg/registry"
)

const usage = `Usage: backwindow-admin [flags] <command> [args]

Commands:
  ensure-schema                               create registry tables
  set-credentials <org> <clientID> <keyfile>  set an org's connected app
  allow <org> <provider> <email>              add an allow-list entry
  disallow <entryID>                          remove an allow-list entry
  show <org>                                  print a registration

Flags:
`

func main() {
	var (
		driver = flag.String("driver", envOr("BACKWINDOW_DB_DRIVER", "sqlite3"), "database driver (postgres or sqlite3)")
		dsn    = flag.String("dsn", envOr("BACKWINDOW_DB_DSN", ""), "database connection string")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*driver, *dsn, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "backwindow-admin: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(driver, dsn string, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("no command given")
	}
	if dsn == "" {
		return fmt.Errorf("-dsn (or BACKWINDOW_DB_DSN) is required")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	dialect := registry.DialectSQLite
	if driver == "postgres" {
		dialect = registry.DialectPostgres
	}
	reg := registry.NewSQLRegistry(db, dialect)

	switch cmd, rest := args[0], args[1:]; cmd {
	case "ensure-schema":
		return reg.EnsureSchema(ctx)

	case "set-credentials":
		if len(rest) != 3 {
			return fmt.Errorf("set-credentials needs <org> <clientID> <keyfile>")
		}
		key, err := os.ReadFile(rest[2])
		if err != nil {
			return fmt.Errorf("read key file: %w", err)
		}
		if err := reg.SetCredentials(ctx, rest[0], rest[1], string(key)); err != nil {
			return err
		}
		fmt.Printf("credentials set for %s\n", rest[0])
		return nil

	case "allow":
		if len(rest) != 3 {
			return fmt.Errorf("allow needs <org> <provider> <email>")
		}
		provider := identity.Provider(rest[1])
		if !provider.Valid() {
			return fmt.Errorf("unknown provider %q (want google or salesforce)", rest[1])
		}
		email := rest[2]
		// Entries match verbatim at request time, so reject input that
		// can only ever fail to match.
		if email == "" || email != strings.TrimSpace(email) {
			return fmt.Errorf("email must be non-empty with no surrounding whitespace")
		}
		if _, err := reg.AddAllowedEntry(ctx, rest[0], provider, email); err != nil {
			return err
		}
		return show(ctx, reg, rest[0])

	case "disallow":
		if len(rest) != 1 {
			return fmt.Errorf("disallow needs <entryID>")
		}
		id, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad entry ID %q", rest[0])
		}
		if err := reg.RemoveAllowedEntry(ctx, id); err != nil {
			return err
		}
		fmt.Printf("entry %d removed\n", id)
		return nil

	case "show":
		if len(rest) != 1 {
			return fmt.Errorf("show needs <org>")
		}
		return show(ctx, reg, rest[0])

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func show(ctx context.Context, reg *registry.SQLRegistry, sfOrgID string) error {
	org, err := reg.FindBySfOrgID(ctx, sfOrgID)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(org, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
