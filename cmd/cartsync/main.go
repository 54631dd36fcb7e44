// Command cartsync is the storefront cart client.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/storefront/cartsync/internal/cli"
)

func main() {
	root := cli.NewRootCommand(cli.DefaultFactory)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
