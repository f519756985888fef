package main

import "github.com/ValentinKolb/dGo/cmd"

func main() {
	cmd.Execute()
}
