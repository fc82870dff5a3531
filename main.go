package main

import (
	"os"

	"github.com/xiaot623/gogo/chatwidget/internal/cmds"
)

func main() {
	if err := cmds.Execute(); err != nil {
		os.Exit(1)
	}
}
