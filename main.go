package main

import "github.com/dh1tw/vibify/cmd"

func main() {
	cmd.Execute()
}
