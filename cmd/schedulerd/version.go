package main

import "fmt"

// VersionCommand prints the build version, mirroring Nomad's `version`
// command.
type VersionCommand struct {
	Version string
}

func (c *VersionCommand) Help() string     { return "Print the schedulerd version." }
func (c *VersionCommand) Synopsis() string { return "Print version information" }

func (c *VersionCommand) Run(args []string) int {
	fmt.Printf("schedulerd %s\n", c.Version)
	return 0
}
