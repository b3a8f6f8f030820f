package main

import (
	"rosteretl/cmd/rosteretl/commands"
	"rosteretl/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
