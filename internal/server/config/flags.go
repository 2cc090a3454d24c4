package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/humanist/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   database URL
//	-s string   token signing secret
//	-t int      access token validity, minutes
//	-e string   author email
//
// Only these flags are looked at; everything else in os.Args is left for
// other parsers.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-t", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to serve HTTP on")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "address and port to serve gRPC health on")
	fs.StringVar(&config.DatabaseURL, "d", config.DatabaseURL, "database URL")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenMinutes := fs.Int("t", int(config.AccessTokenTTL/time.Minute), "access token validity (in minutes)")
	fs.StringVar(&config.AuthorEmail, "e", config.AuthorEmail, "author email")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.AccessTokenTTL = time.Duration(*accessTokenMinutes) * time.Minute
		}
	})
}
