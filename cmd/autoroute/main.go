// Command autoroute generates typed HTTP handler contracts from
// //autoroute:route directives.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/autoroute/internal/cli"
)

func main() {
	root := cli.NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "autoroute:", err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
