// Command schedulerd wires the scheduler core and its collaborators
// together into a runnable (dry-run) process, the way Nomad's `command`
// package dispatches `nomad agent` and friends through hashicorp/cli.
package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/cli"
)

// Version is the module version, overridden at build time via -ldflags.
var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	c := &cli.CLI{
		Name:     "schedulerd",
		Args:     args,
		Commands: commands(),
		HelpFunc: cli.BasicHelpFunc("schedulerd"),
	}

	exitCode, err := c.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

func commands() map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"agent": func() (cli.Command, error) {
			return &AgentCommand{}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{Version: Version}, nil
		},
	}
}
