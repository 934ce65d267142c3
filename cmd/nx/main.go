package main

import "github.com/b2nix/nx/internal/nxcli"

func main() {
	nxcli.Main()
}
