// cmd/cli/main.go
package main

import (
	"os"
)

func main() {
	if err := NewApp().RootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
