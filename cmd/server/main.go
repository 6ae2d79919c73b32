// Command server runs the lexisync sync endpoint.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/lexisync/internal/server"
	"github.com/dmitrijs2005/lexisync/internal/server/config"
)

func main() {
	ctx := context.Background()

	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "lexisync server: %v\n", err)
		os.Exit(1)
	}

	app.Run(ctx)
}
