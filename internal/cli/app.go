package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/humanist/internal/logging"
	"github.com/dmitrijs2005/humanist/internal/server/auth"
	"github.com/dmitrijs2005/humanist/internal/server/db"
	"github.com/dmitrijs2005/humanist/internal/server/services"
	"github.com/dmitrijs2005/humanist/internal/shared"
)

const usage = `Usage: humanist-cli <command> [flags]

Commands:
  normalize-dsn [-ssl mode] <url>   print the canonical connection string
  hash-password [-cost n]           read a password and print its bcrypt digest
  check-db [-attempts n] [-ssl mode] <url>
                                    probe the database with the startup retry policy
  generate-secret [-bytes n]        print a random hex key for SECRET_KEY
`

var errUsage = errors.New("usage")

type App struct {
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer
	logger logging.Logger
}

func NewApp(in io.Reader, out, errOut io.Writer, l logging.Logger) *App {
	return &App{reader: bufio.NewReader(in), out: out, errOut: errOut, logger: l}
}

// NewDefaultApp talks to the process's standard streams.
func NewDefaultApp() *App {
	return NewApp(os.Stdin, os.Stdout, os.Stderr, logging.NewJSONLogger(os.Stderr, "info"))
}

// Run executes one command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.errOut, usage)
		return 2
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "normalize-dsn":
		err = a.normalizeDSN(rest)
	case "hash-password":
		err = a.hashPassword(ctx, rest)
	case "check-db":
		err = a.checkDB(ctx, rest)
	case "generate-secret":
		err = a.generateSecret(rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return 0
	default:
		fmt.Fprintln(a.errOut, "Unknown command:", cmd)
		fmt.Fprint(a.errOut, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintln(a.errOut, "error:", err)
		return 1
	}
}

func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// parse reports malformed flags as a usage error; the flag package has
// already printed the details.
func parse(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return errUsage
}

func (a *App) normalizeDSN(args []string) error {
	fs := a.newFlagSet("normalize-dsn")
	ssl := fs.String("ssl", "", "ssl mode used when the URL has none (require, prefer, disable)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.errOut, "Usage: normalize-dsn [-ssl mode] <url>")
		return errUsage
	}

	dsn, err := db.Normalize(fs.Arg(0), *ssl)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, dsn)
	return nil
}

func (a *App) hashPassword(ctx context.Context, args []string) error {
	fs := a.newFlagSet("hash-password")
	cost := fs.Int("cost", 12, "bcrypt cost")
	if err := parse(fs, args); err != nil {
		return err
	}

	password, err := GetPassword(a.reader, a.errOut)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if err := services.ValidatePassword(password); err != nil {
		return err
	}

	digest, err := auth.NewPasswordHasher(*cost, 1).Hash(ctx, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, digest)
	return nil
}

func (a *App) checkDB(ctx context.Context, args []string) error {
	fs := a.newFlagSet("check-db")
	defaults := db.DefaultBootstrapOptions()
	attempts := fs.Int("attempts", defaults.MaxAttempts, "maximum number of probes")
	delay := fs.Duration("delay", defaults.BaseDelay, "delay before the first retry")
	ssl := fs.String("ssl", "", "ssl mode used when the URL has none (require, prefer, disable)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.errOut, "Usage: check-db [-attempts n] [-ssl mode] <url>")
		return errUsage
	}

	dsn, err := db.Normalize(fs.Arg(0), *ssl)
	if err != nil {
		return err
	}

	opts := defaults
	opts.MaxAttempts = *attempts
	opts.BaseDelay = *delay

	manager, err := db.NewPostgresManager(dsn, db.DefaultPoolOptions(), opts, a.logger)
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.Bootstrap(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "database reachable")
	return nil
}

func (a *App) generateSecret(args []string) error {
	fs := a.newFlagSet("generate-secret")
	size := fs.Int("bytes", 32, "number of random bytes")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *size < 16 {
		fmt.Fprintln(a.errOut, "generate-secret: -bytes must be at least 16")
		return errUsage
	}

	secret, err := shared.RandomHex(*size)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, secret)
	return nil
}
