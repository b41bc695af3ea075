// Package main is the entry point for the paramkit CLI, which manages
// application parameters in the parameter store: resolving manifests into
// target files, pushing and deleting parameters, and sealing offline
// snapshots.
package main

import "paramkit/cmd/paramkit/commands"

func main() {
	commands.Execute()
}
