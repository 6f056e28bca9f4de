package main

import (
	"os"

	"github.com/bianoble/check-delta/cmd/check-delta/cmd"
	"github.com/bianoble/check-delta/internal/engine"
)

func main() {
	if err := cmd.Execute(os.Args[1:]); err != nil {
		if code, ok := engine.IsBuildFailure(err); ok {
			os.Exit(code)
		}
		os.Exit(1)
	}
}
