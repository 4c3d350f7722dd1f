package main

import "github.com/theirongolddev/ledgerscope/cmd"

func main() {
	cmd.Execute()
}
