// Command oxyromon is the CLI surface of spec.md §6: it wires the Catalog
// Store, Settings service, Matcher, Elector, Sorter and Converter/
// Rebuilder/Exporter together into the subcommands of a single ROM
// collection manager. Generalized from bodgit-rom/cmd/rom/main.go's
// urfave/cli/v2 app shape (enumValue generic flag, cli.VersionFlag
// override) to the full surface spec.md names.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/settings"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// enumValue is a cli.Generic flag value restricted to a fixed candidate
// set, generalized from bodgit-rom/cmd/rom/main.go's checksum-algorithm
// flag. None of the current commands declares a flag with it: closed-choice
// flags such as -m MERGING and -f FMT are plain string flags.
type enumValue struct {
	Enum     []string
	Default  string
	selected string
}

func (e *enumValue) Set(value string) error {
	for _, enum := range e.Enum {
		if enum == value {
			e.selected = value
			return nil
		}
	}
	return fmt.Errorf("allowed values are %s", strings.Join(e.Enum, ", "))
}

func (e *enumValue) String() string {
	if e.selected == "" {
		return e.Default
	}
	return e.selected
}

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

// userError marks an error as exit code 1 ("user error") rather than the
// exit code 2 ("fatal") every other error maps to, per spec.md §6/§7.
type userError struct{ err error }

func (e userError) Error() string { return e.err.Error() }
func (e userError) Unwrap() error { return e.err }

func userErrorf(format string, args ...interface{}) error {
	return userError{fmt.Errorf(format, args...)}
}

// dataDir resolves spec.md §6's `OXYROMON_DATA_DIR` override, falling back
// to ~/.oxyromon, grounded on retronian-romu/internal/db/db.go's
// UserHomeDir+fixed-subdirectory default.
func dataDir() (string, error) {
	if d := os.Getenv("OXYROMON_DATA_DIR"); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".oxyromon"), nil
}

// openStore resolves the data directory, ensures its layout exists (§6:
// "SQL database at ${data_dir}/oxyromon/oxyromon.db ... header
// definitions under ${data_dir}/oxyromon/headers/"), and opens the Store.
func openStore() (*catalog.Store, string, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, "", err
	}
	root := filepath.Join(dir, "oxyromon")
	if err := os.MkdirAll(filepath.Join(root, "headers"), 0o755); err != nil {
		return nil, "", err
	}

	store, err := catalog.Open(filepath.Join(root, "oxyromon.db"))
	if err != nil {
		return nil, "", err
	}
	return store, root, nil
}

// bootstrap opens the Store and loads Settings, the pair nearly every
// subcommand needs before it can do anything, per spec.md §9's "Settings
// service loaded once per top-level operation."
func bootstrap(ctx context.Context, opts ...settings.Option) (*catalog.Store, *settings.Settings, error) {
	store, _, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := settings.Load(ctx, store, opts...)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	return store, cfg, nil
}

// shutdownContext returns a context canceled on SIGINT/SIGTERM, per
// spec.md §7's "Canceled — cooperative shutdown... exit 130", installed
// once here rather than per-subcommand.
func shutdownContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	app := cli.NewApp()

	app.Name = "oxyromon"
	app.Usage = "ROM collection manager"
	app.Version = fmt.Sprintf("%s, commit %s, built at %s", version, commit, date)

	app.Commands = []*cli.Command{
		configCommand,
		infoCommand,
		importDatsCommand,
		downloadDatsCommand,
		importIrdsCommand,
		importPatchesCommand,
		importRomsCommand,
		sortRomsCommand,
		convertRomsCommand,
		exportRomsCommand,
		rebuildRomsCommand,
		checkRomsCommand,
		purgeRomsCommand,
		purgeSystemsCommand,
		generatePlaylistsCommand,
		benchmarkCommand,
		serverCommand,
	}

	if err := app.Run(os.Args); err != nil {
		var ue userError
		if ok := asUserError(err, &ue); ok {
			log.Print(ue.err)
			os.Exit(1)
		}
		if err == context.Canceled {
			os.Exit(130)
		}
		log.Print(err)
		os.Exit(2)
	}
}

func asUserError(err error, target *userError) bool {
	for err != nil {
		if ue, ok := err.(userError); ok {
			*target = ue
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
