package main

import "github.com/shadowvote/votegate/cmd"

func main() {
	cmd.Execute()
}
