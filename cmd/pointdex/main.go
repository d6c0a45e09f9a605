// Pointdex - point a camera at a creature, hear its entry.
//
// Usage:
//
//	pointdex run [--config pointdex.yaml] [--api http://host:5000]
//	pointdex classify photo.jpg
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	app := &cli.App{
		Name:    "pointdex",
		Usage:   "Live camera classifier with stable announcements",
		Version: version,
		Flags:   commonFlags(),
		Commands: []*cli.Command{
			runCommand(),
			classifyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "pointdex: %v\n", err)
		os.Exit(1)
	}
}
