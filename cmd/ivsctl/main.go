package main

import "github.com/xbanchon/image-variant-service/cmd/ivsctl/cmd"

func main() {
	cmd.Execute()
}
