package main

import "github.com/panyam/fireauth/cmd/fireauth/cmd"

func main() {
	cmd.Execute()
}
