package main

import "github.com/endb-go/endb/cli/cmd"

func main() {
	cmd.Execute()
}
