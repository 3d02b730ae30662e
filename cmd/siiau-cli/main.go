package main

import (
	"siiau-backend/cmd/siiau-cli/commands"
	"siiau-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
