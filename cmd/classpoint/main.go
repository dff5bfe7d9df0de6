// Command classpoint manages class point ledgers from the terminal.
package main

import (
	"context"
	"os"

	"github.com/lhtc/classpoint/internal/interface/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:]))
}
