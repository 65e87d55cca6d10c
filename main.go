package main

import "github.com/ValentinKolb/dFS/cmd"

func main() {
	cmd.Execute()
}
