package main

import (
	"fmt"
	"os"

	"github.com/oseayemenre/bookshelf/cmd"
)

// @title		Bookshelf
// @version	1.0
// @description	Personal book tracking api
// @host		localhost:8080
// @BasePath	/api/v1
func main() {
	if err := cmd.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
