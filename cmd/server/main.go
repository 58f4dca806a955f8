package main

import "github.com/inkwell-blog/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
