package main

import "github.com/nfrund/profilesync/cmd/profilesync/cmd"

func main() {
	cmd.Execute()
}
