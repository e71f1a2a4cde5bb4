package main

import (
	"github.com/robotalks/framelink/pkg/cli/sh"

	_ "github.com/robotalks/framelink/pkg/cli/cmds/device"
)

//go-build: CGO_ENABLED=0

func init() {
	sh.SetupFlags()
}

func main() {
	sh.Main()
}
