// Command corectl is the administrative CLI for the state store: schema
// initialization, consistency checks, reset, and TaskHub/operation
// inspection. It owns no core semantics of its own — every subcommand is a
// thin wrapper over internal/graphstore.
package main

func main() {
	Execute()
}
